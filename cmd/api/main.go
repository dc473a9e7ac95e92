package main

import (
	"context"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/assets"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/config"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/gateway"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-mixpay-gateway.git/internal/kafka"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/mixpay"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/orders"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/postgres"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/redisx"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/schedule"
	"github.com/joho/godotenv"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer: status event stream
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatus, 1024)
	prod.Start(ctx)

	// MixPay
	client := mixpay.NewClient(cfg.MixPay.APIURL, cfg.MixPay.HTTPTimeout)
	catalog := assets.NewCatalog(client, &redisx.Store{RDB: rdb}, cfg.MixPay.AssetsTTL)
	catalog.FetchTimeout = cfg.MixPay.HTTPTimeout

	repo := &orders.Repo{DB: db}
	gw := &gateway.Gateway{
		Orders:   repo,
		Fetcher:  client,
		Schedule: schedule.NewRedis(rdb, cfg.Poll.Interval),
		Events:   prod,
		Debug:    mixpay.NewDebugSink(cfg.MixPay.DebugURL, cfg.MixPay.Debug, cfg.MixPay.HTTPTimeout),
		Settings: gateway.SettingsFromConfig(cfg),
		Service:  cfg.ServiceName,
		Logger:   logger,
	}
	if cfg.MixPay.PayeeID == "" {
		logger.Warn("PAYEE_ID is empty; callbacks will be rejected")
	}

	router := httpx.NewRouter()
	gh := &httpx.GatewayHandler{
		Payments:     gw,
		Assets:       catalog,
		Notes:        repo,
		CallbackPath: cfg.Store.CallbackPath,
		Currency:     cfg.Store.Currency,
		Logger:       logger,
	}
	gh.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		logger.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	prod.WaitClosed() // drain
	cancel()
}
