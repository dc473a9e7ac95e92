package gateway

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/mixpay"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/orders"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/schedule"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"sync"
	"time"
)

type fakeOrders struct {
	mu     sync.Mutex
	orders map[string]orders.Order
	notes  map[string][]string

	// beforeUpdate runs inside UpdateStatus before the compare, to simulate a racing writer.
	beforeUpdate func(o *orders.Order)
}

func newFakeOrders(os ...orders.Order) *fakeOrders {
	f := &fakeOrders{orders: map[string]orders.Order{}, notes: map[string][]string{}}
	for _, o := range os {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrders) Get(_ context.Context, id string) (orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return orders.Order{}, fmt.Errorf("%w: %s", orders.ErrNotFound, id)
	}
	if !o.Status.Valid() {
		return orders.Order{}, fmt.Errorf("%w: %s", orders.ErrUnknownStatus, o.Status)
	}
	return o, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id string, from, to orders.Status, note string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !orders.CanTransition(from, to) {
		return false, fmt.Errorf("invalid transition %s -> %s", from, to)
	}
	o, ok := f.orders[id]
	if !ok {
		return false, orders.ErrNotFound
	}
	if f.beforeUpdate != nil {
		f.beforeUpdate(&o)
		f.beforeUpdate = nil
	}
	if o.Status != from {
		f.orders[id] = o
		return false, nil
	}
	o.Status = to
	f.orders[id] = o
	f.notes[id] = append(f.notes[id], note)
	return true, nil
}

func (f *fakeOrders) AddNote(_ context.Context, id, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[id] = append(f.notes[id], note)
	return nil
}

func (f *fakeOrders) status(id string) orders.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id].Status
}

type fakeFetcher struct {
	mu      sync.Mutex
	report  mixpay.StatusReport
	err     error
	calls   int
	lastID  string
	lastPay string
}

func (f *fakeFetcher) FetchStatus(_ context.Context, orderID, payeeID string) (mixpay.StatusReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastID, f.lastPay = orderID, payeeID
	if f.err != nil {
		return mixpay.StatusReport{}, f.err
	}
	r := f.report
	r.OrderID, r.PayeeID = orderID, payeeID
	return r, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (p *fakePublisher) Publish(_, value []byte, _ ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, value)
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testSettings() Settings {
	return Settings{
		PayLink:           "https://mixpay.me/pay",
		PayeeID:           "payee-1",
		SettlementAssetID: "settle-usdt",
		InvoicePrefix:     "WC-WORDPRESS-",
		StoreDomain:       "shop.example",
		CallbackURL:       "https://shop.example/mixpay/callback",
		ReturnURL:         "https://shop.example/checkout/order-received/{order_id}/",
		FailedReturnURL:   "https://shop.example/my-account/view-order/{order_id}/",
		SupportEmail:      "bd@mixpay.me",
		HoldStockMinutes:  60,
	}
}

func newTestGateway(store *fakeOrders, fetcher *fakeFetcher) (*Gateway, *schedule.Memory, *fakePublisher) {
	sched := schedule.NewMemory(time.Minute)
	sched.Now = func() time.Time { return testNow }
	pub := &fakePublisher{}
	g := &Gateway{
		Orders:   store,
		Fetcher:  fetcher,
		Schedule: sched,
		Events:   pub,
		Settings: testSettings(),
		Service:  "mixpay-gateway-test",
		Now:      func() time.Time { return testNow },
	}
	return g, sched, pub
}

func order(id string, status orders.Status, total string) orders.Order {
	return orders.Order{
		ID:        id,
		Status:    status,
		Total:     decimal.RequireFromString(total),
		Currency:  "USD",
		CreatedAt: testNow.Add(-5 * time.Minute),
	}
}
