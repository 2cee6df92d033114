package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		price NUMERIC(12,4) NOT NULL,
		stock_quantity INT NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		deleted_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS locations (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS pdpa_consents (
		id UUID PRIMARY KEY,
		consent_type TEXT NOT NULL DEFAULT 'order_processing',
		anonymized_identifier TEXT NOT NULL UNIQUE,
		wording_hash TEXT NOT NULL,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		consented_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		invoice_number TEXT NOT NULL UNIQUE,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		customer_phone TEXT,
		subtotal NUMERIC(12,4) NOT NULL,
		tax_amount NUMERIC(12,4) NOT NULL DEFAULT 0,
		total_amount NUMERIC(12,4) NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		location_id UUID REFERENCES locations(id),
		pdpa_consent_id UUID REFERENCES pdpa_consents(id),
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products(id),
		product_name TEXT NOT NULL,
		quantity INT NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(12,4) NOT NULL,
		subtotal NUMERIC(12,4) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS orders_status_idx ON orders (status)`,
	`CREATE INDEX IF NOT EXISTS orders_created_at_idx ON orders (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS order_items_order_idx ON order_items (order_id)`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
