// Package gateway connects checkout to MixPay: it builds payment links and reconciles
// provider payment results with local order status.
package gateway

import (
	"context"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/config"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/mixpay"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/orders"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/schedule"
	kafkago "github.com/segmentio/kafka-go"
	"log/slog"
	"time"
)

type OrderStore interface {
	Get(ctx context.Context, orderID string) (orders.Order, error)
	// UpdateStatus writes `to` only if the stored status is still `from`.
	UpdateStatus(ctx context.Context, orderID string, from, to orders.Status, note string) (bool, error)
	AddNote(ctx context.Context, orderID, note string) error
}

type StatusFetcher interface {
	FetchStatus(ctx context.Context, orderID, payeeID string) (mixpay.StatusReport, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type DebugSink interface {
	Post(key string, data any)
}

type Settings struct {
	PayLink           string
	PayeeID           string
	SettlementAssetID string
	InvoicePrefix     string
	StoreDomain       string
	CallbackURL       string
	ReturnURL         string
	FailedReturnURL   string
	SupportEmail      string
	ManageStock       bool
	HoldStockMinutes  int
}

func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		PayLink:           cfg.MixPay.PayLink,
		PayeeID:           cfg.MixPay.PayeeID,
		SettlementAssetID: cfg.MixPay.SettlementAssetID,
		InvoicePrefix:     cfg.MixPay.InvoicePrefix,
		StoreDomain:       cfg.Store.Domain,
		CallbackURL:       cfg.Store.CallbackURL(),
		ReturnURL:         cfg.Store.ReturnURL,
		FailedReturnURL:   cfg.Store.FailedReturnURL,
		SupportEmail:      cfg.MixPay.SupportEmail,
		ManageStock:       cfg.Store.ManageStock,
		HoldStockMinutes:  cfg.Store.HoldStockMinutes,
	}
}

type Gateway struct {
	Orders   OrderStore
	Fetcher  StatusFetcher
	Schedule schedule.Scheduler
	Events   Publisher // optional
	Debug    DebugSink // optional
	Settings Settings
	Service  string
	Logger   *slog.Logger
	Now      func() time.Time
}

func (g *Gateway) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

func (g *Gateway) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

// ProviderOrderID is the order id as known to MixPay.
func (g *Gateway) ProviderOrderID(orderID string) string {
	return g.Settings.InvoicePrefix + orderID
}
