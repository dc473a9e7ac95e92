package gateway

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/orders"
	"net/url"
	"strconv"
	"strings"
)

const (
	maxHoldStockMinutes = 240
	expirySafetySeconds = 30
	amountPlaces        = 8
)

// ProcessPayment builds the redirect for an order and registers the fallback status check.
func (g *Gateway) ProcessPayment(ctx context.Context, orderID string) (string, error) {
	o, err := g.Orders.Get(ctx, orderID)
	if err != nil {
		return "", err
	}

	link, paid, err := g.buildPaymentURL(ctx, o)
	if err != nil {
		return "", err
	}
	if paid {
		return link, nil
	}

	if err := g.Schedule.Ensure(ctx, orderID); err != nil {
		g.logger().ErrorContext(ctx, "schedule payment check", "order_id", orderID, "err", err)
	}
	return link, nil
}

// BuildPaymentURL returns the MixPay pay-page URL for o. Zero-total orders are completed on
// the spot and the shop's return URL is returned instead.
func (g *Gateway) BuildPaymentURL(ctx context.Context, o orders.Order) (string, error) {
	link, _, err := g.buildPaymentURL(ctx, o)
	return link, err
}

func (g *Gateway) buildPaymentURL(ctx context.Context, o orders.Order) (link string, paid bool, err error) {
	if o.Status != orders.StatusCompleted {
		if err := g.Orders.AddNote(ctx, o.ID, "Customer is being redirected to MixPay..."); err != nil {
			g.logger().WarnContext(ctx, "add order note", "order_id", o.ID, "err", err)
		}
	}

	amount := o.Total.Round(amountPlaces)
	switch amount.Sign() {
	case -1:
		return "", false, fmt.Errorf("%w: order %s total %s", ErrInvalidAmount, o.ID, o.Total)
	case 0:
		if err := g.completeZeroAmount(ctx, o); err != nil {
			return "", false, err
		}
		return g.returnURL(o.ID), true, nil
	}

	args := url.Values{}
	if g.Settings.ManageStock {
		expiredAt, err := g.checkStockHold(ctx, o)
		if err != nil {
			return "", false, err
		}
		args.Set("expiredTimestamp", strconv.FormatInt(expiredAt, 10))
	}

	if !o.Status.Polling() {
		return "", false, fmt.Errorf("%w: order %s is %s", ErrOrderNotPayable, o.ID, o.Status)
	}

	args.Set("payeeId", g.Settings.PayeeID)
	args.Set("orderId", g.ProviderOrderID(o.ID))
	args.Set("store_name", g.Settings.StoreDomain)
	args.Set("settlementAssetId", g.Settings.SettlementAssetID)
	args.Set("quoteAssetId", strings.ToLower(o.Currency))
	args.Set("quoteAmount", amount.StringFixed(amountPlaces))
	args.Set("returnTo", g.returnURL(o.ID))
	args.Set("failedReturnTo", g.failedReturnURL(o.ID))
	args.Set("callbackUrl", g.Settings.CallbackURL)
	return g.Settings.PayLink + "?" + args.Encode(), false, nil
}

func (g *Gateway) completeZeroAmount(ctx context.Context, o orders.Order) error {
	if o.Status == orders.StatusCompleted {
		return nil
	}
	if !orders.CanTransition(o.Status, orders.StatusCompleted) {
		return fmt.Errorf("%w: order %s is %s", ErrOrderNotPayable, o.ID, o.Status)
	}
	applied, err := g.Orders.UpdateStatus(ctx, o.ID, o.Status, orders.StatusCompleted, "The order amount is zero.")
	if err != nil {
		return fmt.Errorf("complete order %s: %w", o.ID, err)
	}
	if applied {
		return nil
	}

	// kalah race: hanya anggap lunas kalau penulis lain juga menyelesaikan order
	cur, err := g.Orders.Get(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("complete order %s: %w", o.ID, err)
	}
	if cur.Status != orders.StatusCompleted {
		return fmt.Errorf("%w: order %s is %s", ErrOrderNotPayable, o.ID, cur.Status)
	}
	return nil
}

// checkStockHold returns the provider-side expiry (unix seconds) for an order whose stock is
// held, cancelling the order when the hold has already elapsed.
func (g *Gateway) checkStockHold(ctx context.Context, o orders.Order) (int64, error) {
	minutes := g.Settings.HoldStockMinutes
	if minutes <= 0 {
		minutes = 1
	}
	minutes = min(minutes, maxHoldStockMinutes)
	expiredAt := o.CreatedAt.Unix() + int64(minutes)*60 - expirySafetySeconds

	if o.Status != orders.StatusPending {
		return 0, fmt.Errorf("%w: order %s is %s", ErrOrderExpired, o.ID, o.Status)
	}
	if expiredAt <= g.now().Unix() {
		if _, err := g.Orders.UpdateStatus(ctx, o.ID, orders.StatusPending, orders.StatusCancelled, "Unpaid order cancelled - time limit reached."); err != nil {
			g.logger().ErrorContext(ctx, "cancel expired order", "order_id", o.ID, "err", err)
		}
		return 0, fmt.Errorf("%w: order %s", ErrOrderExpired, o.ID)
	}
	return expiredAt, nil
}

func (g *Gateway) returnURL(orderID string) string {
	return strings.ReplaceAll(g.Settings.ReturnURL, "{order_id}", url.PathEscape(orderID))
}

func (g *Gateway) failedReturnURL(orderID string) string {
	return strings.ReplaceAll(g.Settings.FailedReturnURL, "{order_id}", url.PathEscape(orderID))
}
