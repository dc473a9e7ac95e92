package gateway

import (
	"context"
	"fmt"
	kafkax "github.com/ariefcatur/go-mixpay-gateway.git/internal/kafka"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/mixpay"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/orders"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

type Outcome string

const (
	OutcomeAck     Outcome = "ACK"
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFail    Outcome = "FAIL"
)

type Decision struct {
	Next        orders.Status
	Outcome     Outcome
	StopPolling bool
}

// Decide maps a provider report onto the next order status. Reports only move an order
// forward: "failed" while pending leaves the order alone since the customer may still pay,
// "failed" while processing parks it on-hold because funds may be in transit.
func Decide(current orders.Status, report mixpay.StatusReport) Decision {
	switch {
	case report.Status == mixpay.StatusPending && current == orders.StatusPending:
		return Decision{Next: orders.StatusProcessing, Outcome: OutcomeAck}
	case report.Status == mixpay.StatusSuccess && (current == orders.StatusPending || current == orders.StatusProcessing):
		return Decision{Next: orders.StatusCompleted, Outcome: OutcomeSuccess, StopPolling: true}
	case report.Status == mixpay.StatusFailed && current == orders.StatusProcessing:
		return Decision{Next: orders.StatusOnHold, Outcome: OutcomeAck, StopPolling: true}
	default:
		return Decision{Next: current, Outcome: OutcomeFail}
	}
}

type Result struct {
	OrderID     string
	Before      orders.Status
	After       orders.Status
	Outcome     Outcome
	Applied     bool
	StopPolling bool
}

// Reconcile is the single entry point for callback and poll: it re-reads the order, decides,
// and writes the transition conditionally on the status it read. A concurrent writer that got
// there first wins; this call then reports FAIL and leaves the rest to the winner.
func (g *Gateway) Reconcile(ctx context.Context, orderID string, report mixpay.StatusReport) (Result, error) {
	o, err := g.Orders.Get(ctx, orderID)
	if err != nil {
		return Result{OrderID: orderID, Outcome: OutcomeFail}, err
	}
	before := o.Status
	res := Result{OrderID: orderID, Before: before, After: before, Outcome: OutcomeFail}

	if err := g.Orders.AddNote(ctx, orderID, fmt.Sprintf("MixPay status: %s, order status before update: %s", report.Status, before)); err != nil {
		g.logger().WarnContext(ctx, "add order note", "order_id", orderID, "err", err)
	}

	d := Decide(before, report)
	res.Outcome = d.Outcome
	if d.Next != before {
		applied, err := g.Orders.UpdateStatus(ctx, orderID, before, d.Next, g.transitionNote(d.Next, report))
		if err != nil {
			return Result{OrderID: orderID, Before: before, After: before, Outcome: OutcomeFail}, fmt.Errorf("update order %s: %w", orderID, err)
		}
		if !applied {
			g.logger().InfoContext(ctx, "status transition lost race", "order_id", orderID, "from", before, "to", d.Next)
			res.Outcome = OutcomeFail
			g.debugOut(report, res)
			return res, nil
		}
		res.Applied = true
		res.After = d.Next
		g.publishStatusChanged(ctx, report, res)
	}

	if d.StopPolling {
		res.StopPolling = true
		if err := g.Schedule.Cancel(ctx, orderID); err != nil {
			g.logger().WarnContext(ctx, "cancel payment check", "order_id", orderID, "err", err)
		}
	}

	g.logger().InfoContext(ctx, "order reconciled",
		"order_id", orderID, "provider_status", report.Status,
		"before", before, "after", res.After, "outcome", res.Outcome)
	g.debugOut(report, res)
	return res, nil
}

func (g *Gateway) transitionNote(to orders.Status, report mixpay.StatusReport) string {
	switch to {
	case orders.StatusProcessing:
		return "Order is processing."
	case orders.StatusCompleted:
		return "Order has been paid."
	case orders.StatusOnHold:
		note := "Order is failed. Please contact " + g.Settings.SupportEmail
		if report.FailureReason != "" {
			note += " (reason: " + report.FailureReason + ")"
		}
		return note + "."
	}
	return ""
}

func (g *Gateway) publishStatusChanged(ctx context.Context, report mixpay.StatusReport, res Result) {
	if g.Events == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderStatusChanged,
		EventVersion:  1,
		OccurredAt:    g.now().UTC(),
		Producer:      g.Service,
		TraceID:       TraceID(ctx),
		CorrelationID: res.OrderID,
		Payload: kafkax.MustMarshal(orders.OrderStatusChangedPayload{
			OrderID:        res.OrderID,
			From:           res.Before,
			To:             res.After,
			ProviderStatus: report.Status,
			Outcome:        string(res.Outcome),
		}),
	}
	g.Events.Publish(orders.PartitionKey(res.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (g *Gateway) debugOut(report mixpay.StatusReport, res Result) {
	if g.Debug == nil {
		return
	}
	g.Debug.Post("mixpay_callback", map[string]any{
		"payments_result_data": report,
		"status_before_update": res.Before,
		"order_status":         res.After,
	})
}
