package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InvoiceRepo struct{ DB *pgxpool.Pool }

// Issue writes the invoice and deletes the source cart in one transaction.
// This is the conversion boundary: stock reserved by the cart becomes
// reserved by the invoice with no ledger mutation.
func (r *InvoiceRepo) Issue(ctx context.Context, inv Invoice, cartID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `INSERT INTO invoices(id, user_id, total, date) VALUES ($1,$2,$3,$4)`,
		inv.ID, inv.UserID, inv.Total, inv.Date); err != nil {
		return err
	}
	for _, it := range inv.Items {
		if _, err := tx.Exec(ctx, `INSERT INTO invoice_items(invoice_id, product_id, qty, unit_price) VALUES ($1,$2,$3,$4)`,
			inv.ID, it.ProductID, it.Qty, it.UnitPrice); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id=$1`, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *InvoiceRepo) Get(ctx context.Context, invoiceID string) (Invoice, error) {
	var inv Invoice
	err := r.DB.QueryRow(ctx, `SELECT id, user_id, total, date FROM invoices WHERE id=$1`, invoiceID).
		Scan(&inv.ID, &inv.UserID, &inv.Total, &inv.Date)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, fmt.Errorf("%w: invoice %s", ErrNotFound, invoiceID)
	}
	if err != nil {
		return Invoice{}, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, qty, unit_price FROM invoice_items
		 WHERE invoice_id=$1 ORDER BY id`, invoiceID)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ProductID, &it.Qty, &it.UnitPrice); err != nil {
			return Invoice{}, err
		}
		inv.Items = append(inv.Items, it)
	}
	return inv, rows.Err()
}

// Replace swaps the invoice's line items wholesale and updates total and
// date. The ledger work around it belongs to the orchestrator.
func (r *InvoiceRepo) Replace(ctx context.Context, inv Invoice) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `UPDATE invoices SET total=$2, date=$3 WHERE id=$1`, inv.ID, inv.Total, inv.Date)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %s", ErrNotFound, inv.ID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id=$1`, inv.ID); err != nil {
		return err
	}
	for _, it := range inv.Items {
		if _, err := tx.Exec(ctx, `INSERT INTO invoice_items(invoice_id, product_id, qty, unit_price) VALUES ($1,$2,$3,$4)`,
			inv.ID, it.ProductID, it.Qty, it.UnitPrice); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListByUser returns the user's invoices with lines resolved to product
// names. Prices come from the invoice snapshot, not the ledger.
func (r *InvoiceRepo) ListByUser(ctx context.Context, userID string) ([]InvoiceView, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, user_id, total, date FROM invoices WHERE user_id=$1 ORDER BY date DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InvoiceView
	for rows.Next() {
		var v InvoiceView
		if err := rows.Scan(&v.ID, &v.UserID, &v.Total, &v.Date); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		lines, err := r.DB.Query(ctx, `
			SELECT ii.product_id, p.name, ii.qty, ii.unit_price
			  FROM invoice_items ii
			  JOIN products p ON p.id = ii.product_id
			 WHERE ii.invoice_id = $1
			 ORDER BY ii.id`, out[i].ID)
		if err != nil {
			return nil, err
		}
		for lines.Next() {
			var ln LineView
			if err := lines.Scan(&ln.ProductID, &ln.Name, &ln.Qty, &ln.Price); err != nil {
				lines.Close()
				return nil, err
			}
			out[i].Items = append(out[i].Items, ln)
		}
		lines.Close()
		if err := lines.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
