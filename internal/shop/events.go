package shop

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventStockChanged   = "StockChanged"
	EventInvoiceIssued  = "InvoiceIssued"
	EventInvoiceAmended = "InvoiceAmended"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g. "checkout-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// ---- payload per event ----

// StockChangedPayload carries the stock level left after a reservation or
// release hit the ledger.
type StockChangedPayload struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}

type InvoiceIssuedPayload struct {
	InvoiceID string          `json:"invoice_id"`
	UserID    string          `json:"user_id"`
	Items     []CartItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
}

type InvoiceAmendedPayload struct {
	InvoiceID string          `json:"invoice_id"`
	Items     []CartItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
}
