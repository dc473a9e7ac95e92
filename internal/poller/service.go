// Package poller moves due payment checks through Kafka: the schedule runner dispatches
// PaymentCheckRequested events and a consumer pool runs the check for each one.
package poller

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/gateway"
	kafkax "github.com/ariefcatur/go-mixpay-gateway.git/internal/kafka"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/mixpay"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/orders"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/redisx"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"log/slog"
	"time"
)

type Checker interface {
	CheckPayment(ctx context.Context, orderID string) (gateway.Result, error)
}

type Deduper interface {
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

type Service struct {
	Checker     Checker
	Dedup       Deduper
	Producer    gateway.Publisher // publish mixpay.payment.check
	ServiceName string
	Logger      *slog.Logger
	Now         func() time.Time
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Dispatch dipasang sebagai schedule.Runner.Dispatch.
func (s *Service) Dispatch(ctx context.Context, orderID string) error {
	now := s.now().UTC()
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventPaymentCheckRequested,
		EventVersion:  1,
		OccurredAt:    now,
		Producer:      s.ServiceName,
		TraceID:       uuid.NewString(),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(orders.PaymentCheckRequestedPayload{OrderID: orderID, DueAt: now.Unix()}),
	}
	s.Producer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventPaymentCheckRequested)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	return nil
}

// HandleCheckRequested: dipasang sebagai handler consumer.
func (s *Service) HandleCheckRequested(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventPaymentCheckRequested {
		return nil
	} // ignore

	// 2) decode payload
	p, err := kafkax.UnwrapPayload[orders.PaymentCheckRequestedPayload](env.Payload)
	if err != nil {
		return err
	}

	// 3) dedup via Redis (pakai event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, "poller", env.EventID)
	claimed := false
	if first, err := s.Dedup.SetNX(ctx, dkey, redisx.TTLDedup); err != nil {
		s.logger().WarnContext(ctx, "dedup unavailable", "event_id", env.EventID, "err", err)
	} else if !first {
		return nil
	} else {
		claimed = true
	}

	// 4) fetch + reconcile
	ctx = gateway.WithTraceID(ctx, env.TraceID)
	res, err := s.Checker.CheckPayment(ctx, p.OrderID)
	switch {
	case errors.Is(err, mixpay.ErrUpstreamUnavailable):
		// provider down: skip cycle, schedule tetap jalan
		s.logger().InfoContext(ctx, "payment check skipped", "order_id", p.OrderID, "err", err)
		return nil
	case errors.Is(err, orders.ErrNotFound), errors.Is(err, orders.ErrUnknownStatus):
		s.logger().WarnContext(ctx, "payment check dropped", "order_id", p.OrderID, "err", err)
		return nil
	case err != nil:
		// lepas dedup key supaya redelivery bisa mencoba lagi
		if claimed {
			if derr := s.Dedup.Del(ctx, dkey); derr != nil {
				s.logger().WarnContext(ctx, "dedup release failed", "event_id", env.EventID, "err", derr)
			}
		}
		return fmt.Errorf("check payment %s: %w", p.OrderID, err)
	}
	s.logger().DebugContext(ctx, "payment checked",
		"order_id", p.OrderID, "before", res.Before, "after", res.After,
		"outcome", res.Outcome, "stop_polling", res.StopPolling)
	return nil
}
