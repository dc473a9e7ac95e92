package postgres

import (
	"context"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id          TEXT PRIMARY KEY,
		status      TEXT NOT NULL DEFAULT 'pending',
		total       NUMERIC(30, 8) NOT NULL,
		currency    TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS order_notes (
		id          UUID PRIMARY KEY,
		order_id    TEXT NOT NULL REFERENCES orders(id),
		note        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_order_notes_order_id ON order_notes(order_id, created_at)`,
}

// Migrate membuat tabel yang dibutuhkan gateway kalau belum ada.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
