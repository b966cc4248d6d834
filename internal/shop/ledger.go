package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Ledger owns the authoritative stock counters. All reservation traffic
// goes through Reserve/Release; nothing else mutates stock.
type Ledger struct{ DB *pgxpool.Pool }

// Reserve decrements stock by qty in one conditional update, so two
// concurrent reservations can never both pass a stale stock check. Returns
// the product's current price (captured for total computation) and the
// stock remaining after the decrement.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) (decimal.Decimal, int, error) {
	var (
		price     decimal.Decimal
		remaining int
	)
	err := l.DB.QueryRow(ctx, `
		UPDATE products
		   SET stock = stock - $2, updated_at = now()
		 WHERE id = $1 AND status AND stock >= $2
		RETURNING price, stock`, productID, qty).Scan(&price, &remaining)
	if err == nil {
		return price, remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, 0, err
	}

	// The conditional update missed; work out which precondition failed.
	var (
		status bool
		stock  int
	)
	err = l.DB.QueryRow(ctx, `SELECT status, stock FROM products WHERE id=$1`, productID).Scan(&status, &stock)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return decimal.Zero, 0, fmt.Errorf("%w: product %s", ErrNotFound, productID)
	case err != nil:
		return decimal.Zero, 0, err
	case !status:
		return decimal.Zero, 0, fmt.Errorf("%w: product %s", ErrUnavailable, productID)
	default:
		return decimal.Zero, 0, fmt.Errorf("%w: product %s has %d, need %d", ErrInsufficientStock, productID, stock, qty)
	}
}

// Release hands qty back to the product's stock. It has no memory of which
// reservation it undoes; callers must pass exactly the quantity they
// reserved. Returns the stock after the increment.
func (l *Ledger) Release(ctx context.Context, productID string, qty int) (int, error) {
	var remaining int
	err := l.DB.QueryRow(ctx, `
		UPDATE products
		   SET stock = stock + $2, updated_at = now()
		 WHERE id = $1
		RETURNING stock`, productID, qty).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: product %s", ErrNotFound, productID)
	}
	return remaining, err
}

// Restore re-takes qty that a Release just handed back. Unlike Reserve it
// ignores the product's status: undoing a release is not a new
// reservation, and a product retired after invoicing must still accept
// its own stock back.
func (l *Ledger) Restore(ctx context.Context, productID string, qty int) (int, error) {
	var remaining int
	err := l.DB.QueryRow(ctx, `
		UPDATE products
		   SET stock = stock - $2, updated_at = now()
		 WHERE id = $1 AND stock >= $2
		RETURNING stock`, productID, qty).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	var stock int
	err = l.DB.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, productID).Scan(&stock)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return 0, fmt.Errorf("%w: product %s", ErrNotFound, productID)
	case err != nil:
		return 0, err
	default:
		return 0, fmt.Errorf("%w: product %s has %d, need %d back", ErrInsufficientStock, productID, stock, qty)
	}
}

// PriceOf is a read-only price lookup, used to recompute totals when the
// reservation is already held.
func (l *Ledger) PriceOf(ctx context.Context, productID string) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := l.DB.QueryRow(ctx, `SELECT price FROM products WHERE id=$1`, productID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: product %s", ErrNotFound, productID)
	}
	return price, err
}
