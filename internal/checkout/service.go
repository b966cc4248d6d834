package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	kafkax "github.com/retailops/checkout-api/internal/kafka"
	"github.com/retailops/checkout-api/internal/shop"
)

// ProductLedger is the reservation contract against the stock counters.
// All mutations are atomic per product and return the stock level left
// behind so the caller can publish it. Restore undoes a Release without
// the status gate a fresh Reserve carries; it exists for compensation
// only.
type ProductLedger interface {
	Reserve(ctx context.Context, productID string, qty int) (price decimal.Decimal, remaining int, err error)
	Release(ctx context.Context, productID string, qty int) (remaining int, err error)
	Restore(ctx context.Context, productID string, qty int) (remaining int, err error)
	PriceOf(ctx context.Context, productID string) (decimal.Decimal, error)
}

type CartStore interface {
	Get(ctx context.Context, userID string) (shop.Cart, error)
	View(ctx context.Context, userID string) (shop.CartView, error)
	Save(ctx context.Context, c shop.Cart) (shop.Cart, error)
	Delete(ctx context.Context, userID string) error
}

type InvoiceStore interface {
	Get(ctx context.Context, invoiceID string) (shop.Invoice, error)
	Issue(ctx context.Context, inv shop.Invoice, cartID string) error
	Replace(ctx context.Context, inv shop.Invoice) error
	ListByUser(ctx context.Context, userID string) ([]shop.InvoiceView, error)
}

type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Service coordinates the ledger and one aggregate per operation: add to
// cart, checkout, cancel, amend. Each reservation failure is a definitive
// rejection; nothing is retried.
type Service struct {
	Ledger         ProductLedger
	Carts          CartStore
	Invoices       InvoiceStore
	StockEvents    EventPublisher // shop.stock.changed; may be nil
	InvoiceIssued  EventPublisher // shop.invoice.issued; may be nil
	InvoiceAmended EventPublisher // shop.invoice.amended; may be nil
	ServiceName    string
	Log            *zap.Logger
}

// CreateCart creates an empty cart for the user. A user has at most one.
func (s *Service) CreateCart(ctx context.Context, userID string) (shop.Cart, error) {
	cart := shop.Cart{ID: uuid.NewString(), UserID: userID, Total: decimal.Zero}
	return s.Carts.Save(ctx, cart)
}

// AddItem reserves qty units in the ledger, merges the line into the
// user's cart (creating the cart if needed) and recomputes the total from
// fresh prices. If the cart write fails after the reservation, the
// reservation is released so neither side keeps partial state.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (shop.CartView, error) {
	_, remaining, err := s.Ledger.Reserve(ctx, productID, qty)
	if err != nil {
		return shop.CartView{}, err
	}

	cart, err := s.Carts.Get(ctx, userID)
	switch {
	case errors.Is(err, shop.ErrNotFound):
		cart = shop.Cart{ID: uuid.NewString(), UserID: userID}
	case err != nil:
		s.undoReserve(ctx, productID, qty)
		return shop.CartView{}, err
	}

	mergeLine(&cart, productID, qty)

	total, err := shop.ComputeTotal(ctx, cart.Items, s.Ledger.PriceOf)
	if err != nil {
		s.undoReserve(ctx, productID, qty)
		return shop.CartView{}, err
	}
	cart.Total = total

	if _, err := s.Carts.Save(ctx, cart); err != nil {
		s.undoReserve(ctx, productID, qty)
		return shop.CartView{}, err
	}

	s.publishStockChanged(productID, remaining)
	return s.Carts.View(ctx, userID)
}

// GetCart returns the user's cart with lines resolved to product details.
func (s *Service) GetCart(ctx context.Context, userID string) (shop.CartView, error) {
	return s.Carts.View(ctx, userID)
}

// Cancel releases every reserved line back to the ledger, then deletes the
// cart. Releases are best-effort: each line is attempted regardless of
// earlier failures, and any failures are joined into the returned error.
func (s *Service) Cancel(ctx context.Context, userID string) error {
	cart, err := s.Carts.Get(ctx, userID)
	if err != nil {
		return err
	}

	var errs []error
	for _, it := range cart.Items {
		remaining, err := s.Ledger.Release(ctx, it.ProductID, it.Qty)
		if err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", it.ProductID, err))
			continue
		}
		s.publishStockChanged(it.ProductID, remaining)
	}

	if err := s.Carts.Delete(ctx, userID); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Commit converts the user's cart into an invoice. The stock the cart
// reserved stays reserved, so no ledger mutation happens here. Unit
// prices are read once into the invoice snapshot and the total is
// computed from that same snapshot, so the two can never disagree.
func (s *Service) Commit(ctx context.Context, userID string) (shop.Invoice, error) {
	cart, err := s.Carts.Get(ctx, userID)
	if err != nil {
		return shop.Invoice{}, err
	}
	if len(cart.Items) == 0 {
		return shop.Invoice{}, fmt.Errorf("%w: user %s", shop.ErrEmptyCart, userID)
	}

	inv := shop.Invoice{
		ID:     uuid.NewString(),
		UserID: userID,
		Date:   time.Now().UTC(),
	}
	total := decimal.Zero
	for _, it := range cart.Items {
		price, err := s.Ledger.PriceOf(ctx, it.ProductID)
		if err != nil {
			return shop.Invoice{}, err
		}
		inv.Items = append(inv.Items, shop.InvoiceItem{ProductID: it.ProductID, Qty: it.Qty, UnitPrice: price})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	inv.Total = total

	if err := s.Invoices.Issue(ctx, inv, cart.ID); err != nil {
		return shop.Invoice{}, err
	}

	s.publishInvoice(s.InvoiceIssued, shop.EventInvoiceIssued, inv)
	return inv, nil
}

func (s *Service) ListInvoices(ctx context.Context, userID string) ([]shop.InvoiceView, error) {
	return s.Invoices.ListByUser(ctx, userID)
}

// Amend replaces an invoice's line items wholesale: release the stock held
// by the old lines, then validate and reserve the new ones. Every ledger
// mutation pushes an undo step; on any failure the steps are unwound LIFO
// so both the invoice and the ledger end exactly where they started.
func (s *Service) Amend(ctx context.Context, actor shop.Actor, invoiceID string, items []shop.CartItem) (shop.Invoice, error) {
	if actor.Role != shop.RoleAdmin {
		return shop.Invoice{}, fmt.Errorf("%w: amending invoices requires role %s", shop.ErrForbidden, shop.RoleAdmin)
	}

	inv, err := s.Invoices.Get(ctx, invoiceID)
	if err != nil {
		return shop.Invoice{}, err
	}

	var undo []func(context.Context) error
	fail := func(cause error) (shop.Invoice, error) {
		for i := len(undo) - 1; i >= 0; i-- {
			if err := undo[i](ctx); err != nil {
				s.Log.Error("amend compensation failed",
					zap.String("invoice_id", invoiceID), zap.Error(err))
				cause = errors.Join(cause, err)
			}
		}
		return shop.Invoice{}, cause
	}

	// Track the last stock level seen per touched product; published only
	// after the amend fully succeeds.
	stockAfter := map[string]int{}
	var touched []string
	note := func(productID string, remaining int) {
		if _, seen := stockAfter[productID]; !seen {
			touched = append(touched, productID)
		}
		stockAfter[productID] = remaining
	}

	// Phase 1: hand back the stock held by the current lines.
	for _, it := range inv.Items {
		remaining, err := s.Ledger.Release(ctx, it.ProductID, it.Qty)
		if err != nil {
			return fail(err)
		}
		note(it.ProductID, remaining)
		undo = append(undo, func(ctx context.Context) error {
			_, err := s.Ledger.Restore(ctx, it.ProductID, it.Qty)
			return err
		})
	}

	// Phase 2: validate and reserve the replacement lines.
	newItems := make([]shop.InvoiceItem, 0, len(items))
	total := decimal.Zero
	for _, it := range items {
		price, remaining, err := s.Ledger.Reserve(ctx, it.ProductID, it.Qty)
		if err != nil {
			return fail(err)
		}
		note(it.ProductID, remaining)
		undo = append(undo, func(ctx context.Context) error {
			_, err := s.Ledger.Release(ctx, it.ProductID, it.Qty)
			return err
		})
		newItems = append(newItems, shop.InvoiceItem{ProductID: it.ProductID, Qty: it.Qty, UnitPrice: price})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}

	amended := inv
	amended.Items = newItems
	amended.Total = total
	amended.Date = time.Now().UTC()
	if err := s.Invoices.Replace(ctx, amended); err != nil {
		return fail(err)
	}

	for _, productID := range touched {
		s.publishStockChanged(productID, stockAfter[productID])
	}
	s.publishInvoice(s.InvoiceAmended, shop.EventInvoiceAmended, amended)
	return amended, nil
}

func (s *Service) undoReserve(ctx context.Context, productID string, qty int) {
	if _, err := s.Ledger.Release(ctx, productID, qty); err != nil {
		s.Log.Error("compensating release failed",
			zap.String("product_id", productID), zap.Int("qty", qty), zap.Error(err))
	}
}

func (s *Service) publishStockChanged(productID string, remaining int) {
	if s.StockEvents == nil {
		return
	}
	ev := shop.Envelope{
		EventID:       uuid.NewString(),
		EventType:     shop.EventStockChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: productID,
		Payload:       kafkax.MustMarshal(shop.StockChangedPayload{ProductID: productID, Stock: remaining}),
	}
	s.StockEvents.Publish(shop.PartitionKey(productID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(shop.EventStockChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) publishInvoice(pub EventPublisher, eventType string, inv shop.Invoice) {
	if pub == nil {
		return
	}
	lines := make([]shop.CartItem, 0, len(inv.Items))
	for _, it := range inv.Items {
		lines = append(lines, shop.CartItem{ProductID: it.ProductID, Qty: it.Qty})
	}
	var payload any
	if eventType == shop.EventInvoiceIssued {
		payload = shop.InvoiceIssuedPayload{InvoiceID: inv.ID, UserID: inv.UserID, Items: lines, Total: inv.Total}
	} else {
		payload = shop.InvoiceAmendedPayload{InvoiceID: inv.ID, Items: lines, Total: inv.Total}
	}
	ev := shop.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: inv.ID,
		Payload:       kafkax.MustMarshal(payload),
	}
	pub.Publish(shop.PartitionKey(inv.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func mergeLine(c *shop.Cart, productID string, qty int) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Qty += qty
			return
		}
	}
	c.Items = append(c.Items, shop.CartItem{ProductID: productID, Qty: qty})
}
