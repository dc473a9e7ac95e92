// Package schedule keeps one recurring payment check per order and hands out the checks
// that are due.
package schedule

import (
	"context"
	"time"
)

// Scheduler registers and cancels the recurring check for an order.
type Scheduler interface {
	Ensure(ctx context.Context, orderID string) error
	Cancel(ctx context.Context, orderID string) error
}

// Claimer returns due order ids and pushes each one's next run forward by one interval,
// so a check is handed to exactly one caller per interval.
type Claimer interface {
	Claim(ctx context.Context, now time.Time, limit int) ([]string, error)
}
