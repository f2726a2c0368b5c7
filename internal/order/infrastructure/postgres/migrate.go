package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		sku        TEXT NOT NULL,
		price      NUMERIC(12,2) NOT NULL,
		image_url  TEXT NOT NULL DEFAULT '',
		active     BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		product_id TEXT PRIMARY KEY REFERENCES products(id),
		available  INT NOT NULL CHECK (available >= 0),
		reserved   INT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id               TEXT PRIMARY KEY,
		order_number     TEXT NOT NULL UNIQUE,
		user_id          TEXT NOT NULL,
		status           TEXT NOT NULL,
		payment_status   TEXT NOT NULL,
		subtotal         NUMERIC(12,2) NOT NULL,
		tax_amount       NUMERIC(12,2) NOT NULL,
		shipping_amount  NUMERIC(12,2) NOT NULL,
		discount_amount  NUMERIC(12,2) NOT NULL,
		total_amount     NUMERIC(12,2) NOT NULL,
		shipping_address TEXT NOT NULL,
		billing_address  TEXT NOT NULL,
		payment_method   TEXT NOT NULL,
		notes            TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL,
		completed_at     TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS orders_user_idx ON orders (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id              BIGSERIAL PRIMARY KEY,
		order_id        TEXT NOT NULL REFERENCES orders(id),
		product_id      TEXT NOT NULL,
		product_name    TEXT NOT NULL,
		sku             TEXT NOT NULL,
		image_url       TEXT NOT NULL DEFAULT '',
		unit_price      NUMERIC(12,2) NOT NULL,
		quantity        INT NOT NULL CHECK (quantity > 0),
		subtotal        NUMERIC(12,2) NOT NULL,
		tax_amount      NUMERIC(12,2) NOT NULL,
		discount_amount NUMERIC(12,2) NOT NULL,
		total           NUMERIC(12,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_history (
		id         BIGSERIAL PRIMARY KEY,
		order_id   TEXT NOT NULL REFERENCES orders(id),
		status     TEXT NOT NULL,
		comment    TEXT NOT NULL DEFAULT '',
		actor_id   TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id             TEXT PRIMARY KEY,
		order_id       TEXT NOT NULL REFERENCES orders(id),
		amount         NUMERIC(12,2) NOT NULL,
		method         TEXT NOT NULL,
		provider       TEXT NOT NULL,
		transaction_id TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL,
		response       JSONB,
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id             BIGSERIAL PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id   TEXT NOT NULL,
		type           TEXT NOT NULL,
		payload        JSONB NOT NULL,
		headers        JSONB,
		traceparent    TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL DEFAULT 'pending',
		relay_id       TEXT,
		lease_until    TIMESTAMPTZ,
		retry_count    INT NOT NULL DEFAULT 0,
		last_error     TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the lifecycle tables when they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
