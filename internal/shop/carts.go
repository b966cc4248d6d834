package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CartRepo struct{ DB *pgxpool.Pool }

// Get returns the user's cart with its lines.
func (r *CartRepo) Get(ctx context.Context, userID string) (Cart, error) {
	var c Cart
	err := r.DB.QueryRow(ctx, `SELECT id, user_id, total, version FROM carts WHERE user_id=$1`, userID).
		Scan(&c.ID, &c.UserID, &c.Total, &c.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cart{}, fmt.Errorf("%w: cart for user %s", ErrNotFound, userID)
	}
	if err != nil {
		return Cart{}, err
	}

	rows, err := r.DB.Query(ctx, `SELECT product_id, qty FROM cart_items WHERE cart_id=$1 ORDER BY product_id`, c.ID)
	if err != nil {
		return Cart{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.ProductID, &it.Qty); err != nil {
			return Cart{}, err
		}
		c.Items = append(c.Items, it)
	}
	return c, rows.Err()
}

// Save upserts the cart and replaces its lines in one transaction.
// Version 0 means a fresh cart: the unique user_id constraint rejects a
// duplicate with ErrConflict. A version mismatch on update means another
// request mutated the same user's cart in the meantime and is also
// rejected with ErrConflict.
func (r *CartRepo) Save(ctx context.Context, c Cart) (Cart, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Cart{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if c.Version == 0 {
		_, err = tx.Exec(ctx, `INSERT INTO carts(id, user_id, total, version) VALUES ($1,$2,$3,1)`,
			c.ID, c.UserID, c.Total)
		if isUniqueViolation(err) {
			return Cart{}, fmt.Errorf("%w: user %s already has a cart", ErrConflict, c.UserID)
		}
		if err != nil {
			return Cart{}, err
		}
	} else {
		ct, err := tx.Exec(ctx, `
			UPDATE carts SET total=$2, version=version+1, updated_at=now()
			 WHERE id=$1 AND version=$3`, c.ID, c.Total, c.Version)
		if err != nil {
			return Cart{}, err
		}
		if ct.RowsAffected() == 0 {
			return Cart{}, fmt.Errorf("%w: cart %s was modified concurrently", ErrConflict, c.ID)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, c.ID); err != nil {
		return Cart{}, err
	}
	for _, it := range c.Items {
		if _, err := tx.Exec(ctx, `INSERT INTO cart_items(cart_id, product_id, qty) VALUES ($1,$2,$3)`,
			c.ID, it.ProductID, it.Qty); err != nil {
			return Cart{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Cart{}, err
	}
	c.Version++
	return c, nil
}

func (r *CartRepo) Delete(ctx context.Context, userID string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM carts WHERE user_id=$1`, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: cart for user %s", ErrNotFound, userID)
	}
	return nil
}

// View resolves the cart's lines to product name and current price.
func (r *CartRepo) View(ctx context.Context, userID string) (CartView, error) {
	var (
		v      CartView
		cartID string
	)
	err := r.DB.QueryRow(ctx, `SELECT id, user_id, total FROM carts WHERE user_id=$1`, userID).
		Scan(&cartID, &v.UserID, &v.Total)
	if errors.Is(err, pgx.ErrNoRows) {
		return CartView{}, fmt.Errorf("%w: cart for user %s", ErrNotFound, userID)
	}
	if err != nil {
		return CartView{}, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT ci.product_id, p.name, ci.qty, p.price
		  FROM cart_items ci
		  JOIN products p ON p.id = ci.product_id
		 WHERE ci.cart_id = $1
		 ORDER BY ci.product_id`, cartID)
	if err != nil {
		return CartView{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var ln LineView
		if err := rows.Scan(&ln.ProductID, &ln.Name, &ln.Qty, &ln.Price); err != nil {
			return CartView{}, err
		}
		v.Items = append(v.Items, ln)
	}
	return v, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
