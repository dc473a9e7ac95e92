package orders

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrUnknownStatus: status di DB bukan salah satu status yang dikenal gateway.
	ErrUnknownStatus = errors.New("unknown order status")
)

// DB dipenuhi oleh *pgxpool.Pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type Repo struct{ DB DB }

func (r *Repo) Get(ctx context.Context, orderID string) (Order, error) {
	var (
		o     Order
		s     string
		total string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, status, total::text, currency, created_at, updated_at
		FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &s, &total, &o.Currency, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: %s", ErrNotFound, orderID)
	}
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(s)
	if !o.Status.Valid() {
		return Order{}, fmt.Errorf("%w: order %s has %q", ErrUnknownStatus, orderID, s)
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return Order{}, fmt.Errorf("order %s total: %w", orderID, err)
	}
	return o, nil
}

// UpdateStatus: conditional write, hanya berhasil kalau status sekarang masih `from`.
// Return applied=false kalau kalah race (status sudah berubah duluan); note tidak ditulis.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, from, to Status, note string) (applied bool, err error) {
	if !CanTransition(from, to) {
		return false, fmt.Errorf("invalid transition %s -> %s", from, to)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE orders SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2`, orderID, string(from), string(to))
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() != 1 {
		return false, nil
	}

	msg := fmt.Sprintf("Order status changed from %s to %s.", from, to)
	if note != "" {
		msg = note + " " + msg
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_notes(id, order_id, note)
		VALUES ($1, $2, $3)`, uuid.NewString(), orderID, msg); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repo) AddNote(ctx context.Context, orderID, note string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO order_notes(id, order_id, note)
		VALUES ($1, $2, $3)`, uuid.NewString(), orderID, note)
	return err
}

func (r *Repo) ListNotes(ctx context.Context, orderID string) ([]Note, error) {
	rows, err := r.DB.Query(ctx, `SELECT id::text, order_id, note, created_at
                                FROM order_notes WHERE order_id=$1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Note, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
