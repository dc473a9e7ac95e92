package gateway

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/mixpay"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestHandleCallback_StripsPrefixAndRefetches(t *testing.T) {
	store := newFakeOrders(order("77", orders.StatusProcessing, "5"))
	fetcher := &fakeFetcher{report: mixpay.StatusReport{Status: mixpay.StatusSuccess}}
	g, sched, _ := newTestGateway(store, fetcher)
	ctx := context.Background()
	require.NoError(t, sched.Ensure(ctx, "77"))

	res, err := g.HandleCallback(ctx, "WC-WORDPRESS-77", "payee-1")
	require.NoError(t, err)

	assert.Equal(t, "WC-WORDPRESS-77", fetcher.lastID)
	assert.Equal(t, "payee-1", fetcher.lastPay)
	assert.Equal(t, "77", res.OrderID)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, orders.StatusCompleted, store.status("77"))
	assert.False(t, sched.Scheduled("77"))

	// provider redelivers the same callback
	res, err = g.HandleCallback(ctx, "WC-WORDPRESS-77", "payee-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFail, res.Outcome)
	assert.Equal(t, orders.StatusCompleted, store.status("77"))
}

func TestHandleCallback_PayeeMismatch(t *testing.T) {
	store := newFakeOrders(order("78", orders.StatusPending, "5"))
	fetcher := &fakeFetcher{report: mixpay.StatusReport{Status: mixpay.StatusSuccess}}
	g, _, _ := newTestGateway(store, fetcher)

	res, err := g.HandleCallback(context.Background(), "WC-WORDPRESS-78", "someone-else")
	require.ErrorIs(t, err, ErrPayeeMismatch)
	assert.Equal(t, OutcomeFail, res.Outcome)
	assert.Zero(t, fetcher.calls)
	assert.Equal(t, orders.StatusPending, store.status("78"))
}

func TestHandleCallback_UpstreamUnavailable(t *testing.T) {
	store := newFakeOrders(order("79", orders.StatusPending, "5"))
	fetcher := &fakeFetcher{err: fmt.Errorf("%w: status 502", mixpay.ErrUpstreamUnavailable)}
	g, _, _ := newTestGateway(store, fetcher)

	res, err := g.HandleCallback(context.Background(), "WC-WORDPRESS-79", "payee-1")
	require.ErrorIs(t, err, mixpay.ErrUpstreamUnavailable)
	assert.Equal(t, OutcomeFail, res.Outcome)
	assert.Equal(t, orders.StatusPending, store.status("79"))
}

func TestHandleCallback_EmptyOrderID(t *testing.T) {
	g, _, _ := newTestGateway(newFakeOrders(), &fakeFetcher{})

	_, err := g.HandleCallback(context.Background(), "WC-WORDPRESS-", "payee-1")
	require.Error(t, err)
}

func TestCheckPayment_FetchesWithPrefixedID(t *testing.T) {
	store := newFakeOrders(order("90", orders.StatusPending, "5"))
	fetcher := &fakeFetcher{report: mixpay.StatusReport{Status: mixpay.StatusPending}}
	g, sched, _ := newTestGateway(store, fetcher)
	ctx := context.Background()
	require.NoError(t, sched.Ensure(ctx, "90"))

	res, err := g.CheckPayment(ctx, "90")
	require.NoError(t, err)

	assert.Equal(t, "WC-WORDPRESS-90", fetcher.lastID)
	assert.Equal(t, "payee-1", fetcher.lastPay)
	assert.Equal(t, OutcomeAck, res.Outcome)
	assert.Equal(t, orders.StatusProcessing, store.status("90"))
	assert.True(t, sched.Scheduled("90"))
}

func TestCheckPayment_UpstreamUnavailable_KeepsSchedule(t *testing.T) {
	store := newFakeOrders(order("91", orders.StatusProcessing, "5"))
	fetcher := &fakeFetcher{err: mixpay.ErrUpstreamUnavailable}
	g, sched, _ := newTestGateway(store, fetcher)
	ctx := context.Background()
	require.NoError(t, sched.Ensure(ctx, "91"))

	_, err := g.CheckPayment(ctx, "91")
	require.ErrorIs(t, err, mixpay.ErrUpstreamUnavailable)
	assert.True(t, sched.Scheduled("91"))
	assert.Equal(t, orders.StatusProcessing, store.status("91"))
}

func TestCheckPayment_TerminalOrder_CancelsWithoutFetch(t *testing.T) {
	for _, s := range []orders.Status{orders.StatusCompleted, orders.StatusCancelled, orders.StatusOnHold} {
		store := newFakeOrders(order("92", s, "5"))
		fetcher := &fakeFetcher{}
		g, sched, _ := newTestGateway(store, fetcher)
		ctx := context.Background()
		require.NoError(t, sched.Ensure(ctx, "92"))

		res, err := g.CheckPayment(ctx, "92")
		require.NoError(t, err)
		assert.True(t, res.StopPolling)
		assert.False(t, sched.Scheduled("92"))
		assert.Zero(t, fetcher.calls)
	}
}

func TestCheckPayment_MissingOrder_Cancels(t *testing.T) {
	g, sched, _ := newTestGateway(newFakeOrders(), &fakeFetcher{})
	ctx := context.Background()
	require.NoError(t, sched.Ensure(ctx, "93"))

	_, err := g.CheckPayment(ctx, "93")
	require.ErrorIs(t, err, orders.ErrNotFound)
	assert.False(t, sched.Scheduled("93"))
}

func TestCallbackAndPoll_ReachSameStatus(t *testing.T) {
	for _, s := range []orders.Status{orders.StatusPending, orders.StatusProcessing} {
		for _, r := range []string{mixpay.StatusPending, mixpay.StatusSuccess, mixpay.StatusFailed} {
			viaCallback := newFakeOrders(order("1", s, "5"))
			g1, _, _ := newTestGateway(viaCallback, &fakeFetcher{report: mixpay.StatusReport{Status: r}})
			_, err := g1.HandleCallback(context.Background(), "WC-WORDPRESS-1", "payee-1")
			require.NoError(t, err)

			viaPoll := newFakeOrders(order("1", s, "5"))
			g2, _, _ := newTestGateway(viaPoll, &fakeFetcher{report: mixpay.StatusReport{Status: r}})
			_, err = g2.CheckPayment(context.Background(), "1")
			require.NoError(t, err)

			assert.Equalf(t, viaCallback.status("1"), viaPoll.status("1"), "start=%s report=%s", s, r)
		}
	}
}

func TestCheckPayment_UnknownStatus_Cancels(t *testing.T) {
	store := newFakeOrders(order("94", orders.Status("refunded"), "5"))
	fetcher := &fakeFetcher{}
	g, sched, _ := newTestGateway(store, fetcher)
	ctx := context.Background()
	require.NoError(t, sched.Ensure(ctx, "94"))

	res, err := g.CheckPayment(ctx, "94")
	require.ErrorIs(t, err, orders.ErrUnknownStatus)
	assert.True(t, res.StopPolling)
	assert.False(t, sched.Scheduled("94"))
	assert.Zero(t, fetcher.calls)
}
