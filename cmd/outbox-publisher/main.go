package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/easelhouse/paintsip-backend/pkg/config"
	"github.com/easelhouse/paintsip-backend/pkg/db"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
	"github.com/easelhouse/paintsip-backend/pkg/metrics"
	"github.com/easelhouse/paintsip-backend/pkg/migrate"
	"github.com/easelhouse/paintsip-backend/pkg/outbox"
	"github.com/easelhouse/paintsip-backend/pkg/outbox/publisher"
	"github.com/easelhouse/paintsip-backend/pkg/outbox/registry"
	"github.com/easelhouse/paintsip-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

func main() {
	boot := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		boot.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind
	logg := logger.FromConfig(serviceKind, cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

// run owns every connection for the life of the dispatcher and closes them
// in reverse order on return.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeWith(logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer closeWith(logg, "pubsub", pubsubClient.Close)

	conn := dbClient.DB()
	dispatcher, err := publisher.New(publisher.Params{
		Config:     cfg.Outbox,
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(conn),
		DLQ:        outbox.NewDLQRepository(conn),
		Registry:   eventRegistry,
		Topics:     publisher.GCPTopics(pubsubClient.Publisher),
		Metrics:    metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		Readiness: map[string]publisher.Pinger{
			"database": dbClient.Ping,
			"pubsub":   pubsubClient.Ping,
		},
	})
	if err != nil {
		return fmt.Errorf("outbox dispatcher: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"service_kind": cfg.Service.Kind,
		"topics":       eventRegistry.Topics(),
	})
	logg.Info(ctx, "starting outbox publisher")

	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func closeWith(logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}
