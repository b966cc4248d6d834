package shop

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleClient Role = "CLIENT"
)

// Actor is the identity the transport layer resolved for the current
// request. The core trusts it as-is.
type Actor struct {
	ID   string
	Role Role
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Brand       string          `json:"brand"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Status      bool            `json:"status"` // false = retired, accepts no new reservations
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CartItem is stock already reserved from the ledger on behalf of a user.
type CartItem struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// Cart is the one active cart of a user. Version guards against two
// concurrent mutations of the same user's cart interleaving; a save with a
// stale version is rejected.
type Cart struct {
	ID      string
	UserID  string
	Items   []CartItem
	Total   decimal.Decimal
	Version int
}

// InvoiceItem snapshots product and unit price at commit time; the price is
// never re-read from the ledger afterwards.
type InvoiceItem struct {
	ProductID string          `json:"productId"`
	Qty       int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type Invoice struct {
	ID     string          `json:"id"`
	UserID string          `json:"userId"`
	Items  []InvoiceItem   `json:"items"`
	Total  decimal.Decimal `json:"total"`
	Date   time.Time       `json:"date"`
}

// LineView is a cart or invoice line resolved to product details for
// responses.
type LineView struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Qty       int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type CartView struct {
	UserID string          `json:"userId"`
	Items  []LineView      `json:"items"`
	Total  decimal.Decimal `json:"total"`
}

type InvoiceView struct {
	ID     string          `json:"id"`
	UserID string          `json:"userId"`
	Items  []LineView      `json:"items"`
	Total  decimal.Decimal `json:"total"`
	Date   time.Time       `json:"date"`
}
