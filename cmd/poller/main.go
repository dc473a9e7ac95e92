package main

import (
	"context"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/config"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/gateway"
	kafkax "github.com/ariefcatur/go-mixpay-gateway.git/internal/kafka"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/mixpay"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/orders"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/poller"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/postgres"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/redisx"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/schedule"
	"github.com/joho/godotenv"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	service := cfg.ServiceName + "-poller"
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", service)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producers: check dispatch & status events (dua topic berbeda)
	pCheck := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentCheck, 1024)
	pCheck.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatus, 1024)
	pStatus.Start(ctx)

	sched := schedule.NewRedis(rdb, cfg.Poll.Interval)
	gw := &gateway.Gateway{
		Orders:   &orders.Repo{DB: db},
		Fetcher:  mixpay.NewClient(cfg.MixPay.APIURL, cfg.MixPay.HTTPTimeout),
		Schedule: sched,
		Events:   pStatus,
		Debug:    mixpay.NewDebugSink(cfg.MixPay.DebugURL, cfg.MixPay.Debug, cfg.MixPay.HTTPTimeout),
		Settings: gateway.SettingsFromConfig(cfg),
		Service:  service,
		Logger:   logger,
	}

	// Service
	svc := &poller.Service{
		Checker:     gw,
		Dedup:       &redisx.Store{RDB: rdb},
		Producer:    pCheck,
		ServiceName: service,
		Logger:      logger,
	}

	// Runner: claim checks yang sudah due -> publish ke topic
	runner := &schedule.Runner{
		Claimer:  sched,
		Dispatch: svc.Dispatch,
		Tick:     cfg.Poll.Tick,
		Batch:    cfg.Poll.Batch,
		Logger:   logger,
	}
	go runner.Run(ctx)

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.Poll.Group, orders.TopicPaymentCheck, cfg.Poll.Workers)
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("check consumer started", "group", cfg.Poll.Group, "topic", orders.TopicPaymentCheck, "workers", cfg.Poll.Workers)
		if err := cons.Start(ctx, svc.HandleCheckRequested); err != nil {
			logger.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down poller...")
	cancel()
	<-done
	pCheck.Close()
	pStatus.Close()
	pCheck.WaitClosed()
	pStatus.WaitClosed()
}
