package shop

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ProductRepo is the administrative catalog surface. Stock mutations for
// reservations go through the Ledger, never through here.
type ProductRepo struct{ DB *pgxpool.Pool }

func (r *ProductRepo) Create(ctx context.Context, name, description, brand string, price decimal.Decimal, stock int) (Product, error) {
	p := Product{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Brand:       brand,
		Price:       price,
		Stock:       stock,
		Status:      true,
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, brand, price, stock, status)
		VALUES ($1,$2,$3,$4,$5,$6,TRUE)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Brand, p.Price, p.Stock).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// List returns active products only.
func (r *ProductRepo) List(ctx context.Context) ([]Product, error) {
	return r.query(ctx, `
		SELECT id, name, description, brand, price, stock, status, created_at, updated_at
		  FROM products WHERE status ORDER BY name`)
}

// LowStock returns active products with stock at or below the threshold.
func (r *ProductRepo) LowStock(ctx context.Context, threshold int) ([]Product, error) {
	return r.query(ctx, `
		SELECT id, name, description, brand, price, stock, status, created_at, updated_at
		  FROM products WHERE status AND stock <= $1 ORDER BY stock, name`, threshold)
}

// ByIDs resolves a set of product ids, used to hydrate the Redis low-stock
// set for listing.
func (r *ProductRepo) ByIDs(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `
		SELECT id, name, description, brand, price, stock, status, created_at, updated_at
		  FROM products WHERE id = ANY($1) ORDER BY stock, name`, ids)
}

func (r *ProductRepo) query(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Brand, &p.Price, &p.Stock, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
