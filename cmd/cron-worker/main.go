package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/easelhouse/paintsip-backend/internal/bookings"
	"github.com/easelhouse/paintsip-backend/internal/cron"
	"github.com/easelhouse/paintsip-backend/internal/events"
	"github.com/easelhouse/paintsip-backend/internal/payouts"
	"github.com/easelhouse/paintsip-backend/internal/users"
	"github.com/easelhouse/paintsip-backend/pkg/config"
	"github.com/easelhouse/paintsip-backend/pkg/db"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
	"github.com/easelhouse/paintsip-backend/pkg/metrics"
	"github.com/easelhouse/paintsip-backend/pkg/migrate"
	"github.com/easelhouse/paintsip-backend/pkg/outbox"
	"github.com/easelhouse/paintsip-backend/pkg/redis"
	pkgstripe "github.com/easelhouse/paintsip-backend/pkg/stripe"
)

// A crashed worker holds the lock for at most this long.
const lockTTL = 30 * time.Minute

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg = logger.FromConfig("cron-worker", cfg.App)

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient, stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+envOrLocal(cfg.App.Env)), lockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"service_kind": cfg.Service.Kind,
		"interval":     cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, stripeClient *pkgstripe.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	bookingRepo := bookings.NewRepository(conn)

	lifecycle, err := bookings.NewLifecycle(bookings.LifecycleParams{
		Repo:    bookingRepo,
		Tx:      dbClient,
		Outbox:  outboxSvc,
		Metrics: metrics.NewBookingMetrics(prometheus.DefaultRegisterer),
		Logger:  logg,
	})
	if err != nil {
		return nil, fmt.Errorf("booking lifecycle: %w", err)
	}
	payoutsSvc, err := payouts.NewService(payouts.ServiceParams{
		Users:  users.NewRepository(conn),
		Stripe: stripeClient,
		Tx:     dbClient,
		Outbox: outboxSvc,
		Config: cfg.Stripe,
		Logger: logg,
	})
	if err != nil {
		return nil, fmt.Errorf("payouts service: %w", err)
	}

	eventLifecycle, err := cron.NewEventLifecycleJob(cron.EventLifecycleJobParams{
		Logger: logg,
		Events: events.NewRepository(conn),
	})
	if err != nil {
		return nil, err
	}
	staleCheckout, err := cron.NewStaleCheckoutJob(cron.StaleCheckoutJobParams{
		Logger:     logg,
		Bookings:   bookingRepo,
		Lifecycle:  lifecycle,
		PendingTTL: cfg.Checkout.PendingBookingTTL,
	})
	if err != nil {
		return nil, err
	}
	accountSync, err := cron.NewAccountSyncJob(cron.AccountSyncJobParams{
		Logger:    logg,
		Payouts:   payoutsSvc,
		MaxAge:    cfg.Cron.AccountSyncMaxAge,
		BatchSize: cfg.Cron.AccountSyncBatch,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		DB:           dbClient,
		Repository:   outbox.NewRepository(conn),
		DLQ:          outbox.NewDLQRepository(conn),
		Retention:    cfg.Outbox.Retention,
		DLQRetention: cfg.Outbox.DLQRetention,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(eventLifecycle, staleCheckout, accountSync, retention)
}

func envOrLocal(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
