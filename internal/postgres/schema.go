package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	brand       TEXT NOT NULL DEFAULT '',
	price       NUMERIC(12,2) NOT NULL CHECK (price >= 0),
	stock       INTEGER NOT NULL CHECK (stock >= 0),
	status      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS carts (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL UNIQUE,
	total      NUMERIC(12,2) NOT NULL DEFAULT 0,
	version    INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS cart_items (
	cart_id    UUID NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
	product_id UUID NOT NULL REFERENCES products(id),
	qty        INTEGER NOT NULL CHECK (qty >= 1),
	PRIMARY KEY (cart_id, product_id)
);

CREATE TABLE IF NOT EXISTS invoices (
	id      UUID PRIMARY KEY,
	user_id TEXT NOT NULL,
	total   NUMERIC(12,2) NOT NULL DEFAULT 0,
	date    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS invoices_user_idx ON invoices(user_id);

CREATE TABLE IF NOT EXISTS invoice_items (
	id         BIGSERIAL PRIMARY KEY,
	invoice_id UUID NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
	product_id UUID NOT NULL REFERENCES products(id),
	qty        INTEGER NOT NULL CHECK (qty >= 1),
	unit_price NUMERIC(12,2) NOT NULL
);
CREATE INDEX IF NOT EXISTS invoice_items_invoice_idx ON invoice_items(invoice_id);
`

// Migrate creates the schema if it is not there yet. Statements are all
// idempotent, so running it at every startup is safe.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}
