package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/retailops/checkout-api/internal/shop"
)

// memStore backs the orchestrator tests: one in-memory implementation of
// the ledger and both aggregate stores, with the same error contract as
// the pgx repos.
type memStore struct {
	mu       sync.Mutex
	products map[string]*shop.Product
	carts    map[string]shop.Cart // by user id
	invoices map[string]shop.Invoice
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]*shop.Product{},
		carts:    map[string]shop.Cart{},
		invoices: map[string]shop.Invoice{},
	}
}

func (m *memStore) addProduct(id, name, price string, stock int, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = &shop.Product{
		ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock, Status: active,
	}
}

func (m *memStore) stockOf(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *memStore) retire(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id].Status = false
}

// ---- ProductLedger ----

func (m *memStore) Reserve(_ context.Context, productID string, qty int) (decimal.Decimal, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	switch {
	case !ok:
		return decimal.Zero, 0, fmt.Errorf("%w: product %s", shop.ErrNotFound, productID)
	case !p.Status:
		return decimal.Zero, 0, fmt.Errorf("%w: product %s", shop.ErrUnavailable, productID)
	case p.Stock < qty:
		return decimal.Zero, 0, fmt.Errorf("%w: product %s has %d, need %d", shop.ErrInsufficientStock, productID, p.Stock, qty)
	}
	p.Stock -= qty
	return p.Price, p.Stock, nil
}

func (m *memStore) Release(_ context.Context, productID string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return 0, fmt.Errorf("%w: product %s", shop.ErrNotFound, productID)
	}
	p.Stock += qty
	return p.Stock, nil
}

func (m *memStore) Restore(_ context.Context, productID string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	switch {
	case !ok:
		return 0, fmt.Errorf("%w: product %s", shop.ErrNotFound, productID)
	case p.Stock < qty:
		return 0, fmt.Errorf("%w: product %s has %d, need %d back", shop.ErrInsufficientStock, productID, p.Stock, qty)
	}
	p.Stock -= qty
	return p.Stock, nil
}

func (m *memStore) PriceOf(_ context.Context, productID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: product %s", shop.ErrNotFound, productID)
	}
	return p.Price, nil
}

// ---- CartStore ----

func (m *memStore) Get(_ context.Context, userID string) (shop.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return shop.Cart{}, fmt.Errorf("%w: cart for user %s", shop.ErrNotFound, userID)
	}
	c.Items = append([]shop.CartItem(nil), c.Items...)
	return c, nil
}

func (m *memStore) View(_ context.Context, userID string) (shop.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return shop.CartView{}, fmt.Errorf("%w: cart for user %s", shop.ErrNotFound, userID)
	}
	v := shop.CartView{UserID: userID, Total: c.Total}
	for _, it := range c.Items {
		p := m.products[it.ProductID]
		v.Items = append(v.Items, shop.LineView{ProductID: it.ProductID, Name: p.Name, Qty: it.Qty, Price: p.Price})
	}
	return v, nil
}

func (m *memStore) Save(_ context.Context, c shop.Cart) (shop.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, exists := m.carts[c.UserID]
	if c.Version == 0 && exists {
		return shop.Cart{}, fmt.Errorf("%w: user %s already has a cart", shop.ErrConflict, c.UserID)
	}
	if c.Version != 0 && (!exists || stored.Version != c.Version) {
		return shop.Cart{}, fmt.Errorf("%w: cart %s was modified concurrently", shop.ErrConflict, c.ID)
	}
	c.Version++
	c.Items = append([]shop.CartItem(nil), c.Items...)
	m.carts[c.UserID] = c
	return c, nil
}

func (m *memStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[userID]; !ok {
		return fmt.Errorf("%w: cart for user %s", shop.ErrNotFound, userID)
	}
	delete(m.carts, userID)
	return nil
}

// ---- InvoiceStore ----

// memInvoices adapts memStore to InvoiceStore; the Get signatures of the
// two store interfaces collide on a single receiver.
type memInvoices struct{ *memStore }

func (m memInvoices) Get(ctx context.Context, invoiceID string) (shop.Invoice, error) {
	return m.getInvoice(ctx, invoiceID)
}

func (m *memStore) getInvoice(_ context.Context, invoiceID string) (shop.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return shop.Invoice{}, fmt.Errorf("%w: invoice %s", shop.ErrNotFound, invoiceID)
	}
	inv.Items = append([]shop.InvoiceItem(nil), inv.Items...)
	return inv, nil
}

func (m *memStore) Issue(_ context.Context, inv shop.Invoice, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv.Items = append([]shop.InvoiceItem(nil), inv.Items...)
	m.invoices[inv.ID] = inv
	for userID, c := range m.carts {
		if c.ID == cartID {
			delete(m.carts, userID)
		}
	}
	return nil
}

func (m *memStore) Replace(_ context.Context, inv shop.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[inv.ID]; !ok {
		return fmt.Errorf("%w: invoice %s", shop.ErrNotFound, inv.ID)
	}
	inv.Items = append([]shop.InvoiceItem(nil), inv.Items...)
	m.invoices[inv.ID] = inv
	return nil
}

func (m *memStore) ListByUser(_ context.Context, userID string) ([]shop.InvoiceView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []shop.InvoiceView
	for _, inv := range m.invoices {
		if inv.UserID != userID {
			continue
		}
		v := shop.InvoiceView{ID: inv.ID, UserID: inv.UserID, Total: inv.Total, Date: inv.Date}
		for _, it := range inv.Items {
			name := it.ProductID
			if p, ok := m.products[it.ProductID]; ok {
				name = p.Name
			}
			v.Items = append(v.Items, shop.LineView{ProductID: it.ProductID, Name: name, Qty: it.Qty, Price: it.UnitPrice})
		}
		out = append(out, v)
	}
	return out, nil
}
