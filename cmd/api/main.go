package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/easelhouse/paintsip-backend/api"
	"github.com/easelhouse/paintsip-backend/api/controllers"
	"github.com/easelhouse/paintsip-backend/api/routes"
	"github.com/easelhouse/paintsip-backend/internal/auth"
	"github.com/easelhouse/paintsip-backend/internal/bookings"
	"github.com/easelhouse/paintsip-backend/internal/canvases"
	checkoutsvc "github.com/easelhouse/paintsip-backend/internal/checkout"
	"github.com/easelhouse/paintsip-backend/internal/dashboard"
	"github.com/easelhouse/paintsip-backend/internal/events"
	"github.com/easelhouse/paintsip-backend/internal/media"
	"github.com/easelhouse/paintsip-backend/internal/payouts"
	"github.com/easelhouse/paintsip-backend/internal/users"
	stripewebhook "github.com/easelhouse/paintsip-backend/internal/webhooks/stripe"
	"github.com/easelhouse/paintsip-backend/pkg/auth/session"
	"github.com/easelhouse/paintsip-backend/pkg/config"
	"github.com/easelhouse/paintsip-backend/pkg/db"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
	"github.com/easelhouse/paintsip-backend/pkg/metrics"
	"github.com/easelhouse/paintsip-backend/pkg/migrate"
	"github.com/easelhouse/paintsip-backend/pkg/outbox"
	"github.com/easelhouse/paintsip-backend/pkg/redis"
	"github.com/easelhouse/paintsip-backend/pkg/storage/gcs"
	pkgstripe "github.com/easelhouse/paintsip-backend/pkg/stripe"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.FromConfig("api", cfg.App)

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

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := buildDeps(cfg, logg, registry, dbClient, redisClient, stripeClient, gcsClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	server := api.NewServer(cfg, os.Getenv("PORT"), routes.NewRouter(*deps))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"addr":       server.Addr,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}

func buildDeps(
	cfg *config.Config,
	logg *logger.Logger,
	registry *prometheus.Registry,
	dbClient *db.Client,
	redisClient *redis.Client,
	stripeClient *pkgstripe.Client,
	gcsClient *gcs.Client,
) (*routes.Deps, error) {
	conn := dbClient.DB()
	bookingMetrics := metrics.NewBookingMetrics(registry)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	userRepo := users.NewRepository(conn)
	eventRepo := events.NewRepository(conn)
	bookingRepo := bookings.NewRepository(conn)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	payoutsService, err := payouts.NewService(payouts.ServiceParams{
		Users:  userRepo,
		Stripe: stripeClient,
		Tx:     dbClient,
		Outbox: outboxSvc,
		Config: cfg.Stripe,
		Logger: logg,
	})
	if err != nil {
		return nil, fmt.Errorf("payouts service: %w", err)
	}

	eventsService, err := events.NewService(events.ServiceParams{
		Events:   eventRepo,
		Bookings: bookingRepo,
		Tx:       dbClient,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("events service: %w", err)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Events:    eventRepo,
		Bookings:  bookingRepo,
		Tx:        dbClient,
		Stripe:    stripeClient,
		Outbox:    outboxSvc,
		Metrics:   bookingMetrics,
		Logger:    logg,
		PublicURL: cfg.App.PublicURL,
		Currency:  cfg.Stripe.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("checkout service: %w", err)
	}

	bookingsService, err := bookings.NewService(bookingRepo)
	if err != nil {
		return nil, fmt.Errorf("bookings service: %w", err)
	}

	dashboardService, err := dashboard.NewService(dashboard.ServiceParams{
		Events:   eventRepo,
		Bookings: bookingRepo,
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard service: %w", err)
	}

	canvasService, err := canvases.NewService(canvases.NewRepository(conn), logg)
	if err != nil {
		return nil, fmt.Errorf("canvas service: %w", err)
	}

	mediaService, err := media.NewService(gcsClient, cfg.Media, logg, nil)
	if err != nil {
		return nil, fmt.Errorf("media service: %w", err)
	}

	lifecycle, err := bookings.NewLifecycle(bookings.LifecycleParams{
		Repo:    bookingRepo,
		Tx:      dbClient,
		Outbox:  outboxSvc,
		Metrics: bookingMetrics,
		Logger:  logg,
	})
	if err != nil {
		return nil, fmt.Errorf("booking lifecycle: %w", err)
	}

	platformWebhook, err := stripewebhook.NewService(stripewebhook.ServiceParams{Lifecycle: lifecycle, Logger: logg})
	if err != nil {
		return nil, fmt.Errorf("stripe webhook service: %w", err)
	}
	connectWebhook, err := stripewebhook.NewConnectService(stripewebhook.ConnectServiceParams{Accounts: payoutsService, Logger: logg})
	if err != nil {
		return nil, fmt.Errorf("stripe connect webhook service: %w", err)
	}
	platformGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, stripewebhook.DefaultEventTTL, "stripe-platform")
	if err != nil {
		return nil, fmt.Errorf("stripe webhook guard: %w", err)
	}
	connectGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, stripewebhook.DefaultEventTTL, "stripe-connect")
	if err != nil {
		return nil, fmt.Errorf("stripe connect webhook guard: %w", err)
	}

	return &routes.Deps{
		Config:   cfg,
		Logger:   logg,
		Registry: registry,
		Metrics:  bookingMetrics,
		Redis:    redisClient,
		Sessions: sessionManager,
		Ready: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Auth:      authService,
		Payouts:   payoutsService,
		Events:    eventsService,
		Checkout:  checkoutService,
		Bookings:  bookingsService,
		Dashboard: dashboardService,
		Canvases:  canvasService,
		Media:     mediaService,
		PlatformWebhook: routes.Webhook{
			Service: platformWebhook,
			Secret:  stripeClient.WebhookSecret,
			Guard:   platformGuard,
		},
		ConnectWebhook: routes.Webhook{
			Service: connectWebhook,
			Secret:  stripeClient.ConnectWebhookSecret,
			Guard:   connectGuard,
		},
	}, nil
}
