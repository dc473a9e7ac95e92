package schedule

import (
	"context"
	"log/slog"
	"time"
)

// Runner claims due checks on every tick and hands them to Dispatch.
type Runner struct {
	Claimer  Claimer
	Dispatch func(ctx context.Context, orderID string) error
	Tick     time.Duration
	Batch    int
	Logger   *slog.Logger
	Now      func() time.Time
}

func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce returns the number of checks dispatched. Errors are logged; a failed dispatch is
// picked up again one interval later.
func (r *Runner) RunOnce(ctx context.Context) int {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	ids, err := r.Claimer.Claim(ctx, now(), r.Batch)
	if err != nil {
		logger.ErrorContext(ctx, "claim due checks", "err", err)
	}

	n := 0
	for _, id := range ids {
		if err := r.Dispatch(ctx, id); err != nil {
			logger.ErrorContext(ctx, "dispatch payment check", "order_id", id, "err", err)
			continue
		}
		n++
	}
	return n
}
