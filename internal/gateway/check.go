package gateway

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/orders"
	"strings"
)

// HandleCallback processes a provider webhook. The callback body only identifies the
// payment; the status is always re-fetched, so repeated deliveries are harmless.
func (g *Gateway) HandleCallback(ctx context.Context, providerOrderID, payeeID string) (Result, error) {
	orderID := strings.TrimPrefix(providerOrderID, g.Settings.InvoicePrefix)
	if orderID == "" {
		return Result{Outcome: OutcomeFail}, fmt.Errorf("callback without order id")
	}
	if payeeID != g.Settings.PayeeID {
		return Result{OrderID: orderID, Outcome: OutcomeFail}, fmt.Errorf("%w: %q", ErrPayeeMismatch, payeeID)
	}

	report, err := g.Fetcher.FetchStatus(ctx, providerOrderID, payeeID)
	if err != nil {
		return Result{OrderID: orderID, Outcome: OutcomeFail}, err
	}
	return g.Reconcile(ctx, orderID, report)
}

// CheckPayment is the body of the recurring poll for one order.
func (g *Gateway) CheckPayment(ctx context.Context, orderID string) (Result, error) {
	o, err := g.Orders.Get(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) || errors.Is(err, orders.ErrUnknownStatus) {
		g.cancelCheck(ctx, orderID)
		return Result{OrderID: orderID, Outcome: OutcomeFail, StopPolling: true}, err
	}
	if err != nil {
		return Result{OrderID: orderID, Outcome: OutcomeFail}, err
	}
	if !o.Status.Polling() {
		g.cancelCheck(ctx, orderID)
		return Result{OrderID: orderID, Before: o.Status, After: o.Status, Outcome: OutcomeFail, StopPolling: true}, nil
	}

	report, err := g.Fetcher.FetchStatus(ctx, g.ProviderOrderID(orderID), g.Settings.PayeeID)
	if err != nil {
		return Result{OrderID: orderID, Before: o.Status, After: o.Status, Outcome: OutcomeFail}, err
	}
	return g.Reconcile(ctx, orderID, report)
}

func (g *Gateway) cancelCheck(ctx context.Context, orderID string) {
	if err := g.Schedule.Cancel(ctx, orderID); err != nil {
		g.logger().WarnContext(ctx, "cancel payment check", "order_id", orderID, "err", err)
	}
}
