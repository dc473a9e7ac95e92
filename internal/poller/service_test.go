package poller

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/gateway"
	kafkax "github.com/ariefcatur/go-mixpay-gateway.git/internal/kafka"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/mixpay"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

type fakeChecker struct {
	mu     sync.Mutex
	calls  []string
	traces []string
	err    error
}

func (f *fakeChecker) CheckPayment(ctx context.Context, orderID string) (gateway.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, orderID)
	f.traces = append(f.traces, gateway.TraceID(ctx))
	return gateway.Result{OrderID: orderID, Outcome: gateway.OutcomeAck}, f.err
}

type memDedup struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func (d *memDedup) SetNX(_ context.Context, key string, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	if d.keys == nil {
		d.keys = map[string]bool{}
	}
	if d.keys[key] {
		return false, nil
	}
	d.keys[key] = true
	return true, nil
}

func (d *memDedup) Del(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, key)
	return nil
}

type capture struct {
	mu   sync.Mutex
	msgs []kafkago.Message
}

func (c *capture) Publish(key, value []byte, headers ...kafkago.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, kafkago.Message{Key: key, Value: value, Headers: headers})
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newService(ch *fakeChecker, d *memDedup) (*Service, *capture) {
	pub := &capture{}
	return &Service{
		Checker:     ch,
		Dedup:       d,
		Producer:    pub,
		ServiceName: "mixpay-poller-test",
		Now:         func() time.Time { return fixedNow },
	}, pub
}

func TestDispatch_PublishesCheckRequested(t *testing.T) {
	s, pub := newService(&fakeChecker{}, &memDedup{})

	require.NoError(t, s.Dispatch(context.Background(), "42"))
	require.Len(t, pub.msgs, 1)

	m := pub.msgs[0]
	assert.Equal(t, []byte("42"), m.Key)
	assert.Equal(t, "x-event-type", m.Headers[0].Key)
	assert.Equal(t, orders.EventPaymentCheckRequested, string(m.Headers[0].Value))

	var env orders.Envelope
	require.NoError(t, json.Unmarshal(m.Value, &env))
	assert.Equal(t, orders.EventPaymentCheckRequested, env.EventType)
	assert.Equal(t, "42", env.CorrelationID)
	assert.NotEmpty(t, env.EventID)
	assert.NotEmpty(t, env.TraceID)

	p, err := kafkax.UnwrapPayload[orders.PaymentCheckRequestedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentCheckRequestedPayload{OrderID: "42", DueAt: fixedNow.Unix()}, p)
}

func TestHandleCheckRequested_RunsCheckOncePerEvent(t *testing.T) {
	ch := &fakeChecker{}
	s, pub := newService(ch, &memDedup{})
	ctx := context.Background()
	require.NoError(t, s.Dispatch(ctx, "7"))

	require.NoError(t, s.HandleCheckRequested(ctx, pub.msgs[0]))
	require.NoError(t, s.HandleCheckRequested(ctx, pub.msgs[0]), "redelivery")
	assert.Equal(t, []string{"7"}, ch.calls)

	// dispatch berikutnya punya event_id baru
	require.NoError(t, s.Dispatch(ctx, "7"))
	require.NoError(t, s.HandleCheckRequested(ctx, pub.msgs[1]))
	assert.Equal(t, []string{"7", "7"}, ch.calls)
}

func TestHandleCheckRequested_DedupDownStillChecks(t *testing.T) {
	ch := &fakeChecker{}
	s, pub := newService(ch, &memDedup{err: errors.New("redis down")})
	ctx := context.Background()
	require.NoError(t, s.Dispatch(ctx, "8"))

	require.NoError(t, s.HandleCheckRequested(ctx, pub.msgs[0]))
	assert.Equal(t, []string{"8"}, ch.calls)
}

func TestHandleCheckRequested_SkipsExpectedFailures(t *testing.T) {
	for _, e := range []error{mixpay.ErrUpstreamUnavailable, orders.ErrNotFound, orders.ErrUnknownStatus} {
		ch := &fakeChecker{err: e}
		s, pub := newService(ch, &memDedup{})
		ctx := context.Background()
		require.NoError(t, s.Dispatch(ctx, "9"))

		assert.NoError(t, s.HandleCheckRequested(ctx, pub.msgs[0]))
		assert.Len(t, ch.calls, 1)
	}
}

func TestHandleCheckRequested_OtherErrorsAllowRedelivery(t *testing.T) {
	ch := &fakeChecker{err: errors.New("db gone")}
	s, pub := newService(ch, &memDedup{})
	ctx := context.Background()
	require.NoError(t, s.Dispatch(ctx, "10"))

	assert.Error(t, s.HandleCheckRequested(ctx, pub.msgs[0]))

	// redelivery setelah error tetap diproses
	ch.err = nil
	require.NoError(t, s.HandleCheckRequested(ctx, pub.msgs[0]))
	assert.Equal(t, []string{"10", "10"}, ch.calls)

	// setelah sukses, redelivery di-skip
	require.NoError(t, s.HandleCheckRequested(ctx, pub.msgs[0]))
	assert.Len(t, ch.calls, 2)
}

func TestHandleCheckRequested_PropagatesTraceID(t *testing.T) {
	ch := &fakeChecker{}
	s, pub := newService(ch, &memDedup{})
	ctx := context.Background()
	require.NoError(t, s.Dispatch(ctx, "11"))

	var env orders.Envelope
	require.NoError(t, json.Unmarshal(pub.msgs[0].Value, &env))
	require.NoError(t, s.HandleCheckRequested(ctx, pub.msgs[0]))
	assert.Equal(t, []string{env.TraceID}, ch.traces)
}

func TestHandleCheckRequested_IgnoresOtherEvents(t *testing.T) {
	ch := &fakeChecker{}
	s, _ := newService(ch, &memDedup{})
	ev := orders.Envelope{EventID: "e1", EventType: orders.EventOrderStatusChanged, Payload: json.RawMessage(`{}`)}

	require.NoError(t, s.HandleCheckRequested(context.Background(), kafkago.Message{Value: kafkax.MustMarshal(ev)}))
	assert.Empty(t, ch.calls)
}

func TestHandleCheckRequested_MalformedMessage(t *testing.T) {
	s, _ := newService(&fakeChecker{}, &memDedup{})

	assert.Error(t, s.HandleCheckRequested(context.Background(), kafkago.Message{Value: []byte("{nope")}))
}
