package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/easelhouse/paintsip-backend/api/controllers"
	webhookcontrollers "github.com/easelhouse/paintsip-backend/api/controllers/webhooks"
	"github.com/easelhouse/paintsip-backend/api/middleware"
	"github.com/easelhouse/paintsip-backend/internal/auth"
	"github.com/easelhouse/paintsip-backend/internal/bookings"
	"github.com/easelhouse/paintsip-backend/internal/canvases"
	checkoutsvc "github.com/easelhouse/paintsip-backend/internal/checkout"
	"github.com/easelhouse/paintsip-backend/internal/dashboard"
	"github.com/easelhouse/paintsip-backend/internal/events"
	"github.com/easelhouse/paintsip-backend/internal/media"
	"github.com/easelhouse/paintsip-backend/internal/payouts"
	"github.com/easelhouse/paintsip-backend/pkg/auth/session"
	"github.com/easelhouse/paintsip-backend/pkg/config"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
	"github.com/easelhouse/paintsip-backend/pkg/metrics"
	pkgredis "github.com/easelhouse/paintsip-backend/pkg/redis"
)

// Webhook is one verified Stripe endpoint.
type Webhook struct {
	Service webhookcontrollers.StripeWebhookService
	Secret  func() string
	Guard   webhookcontrollers.StripeWebhookGuard
}

// Deps carries everything the HTTP surface is built from.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.BookingMetrics
	Redis    *pkgredis.Client
	Sessions session.AccessSessionChecker
	Ready    map[string]controllers.Pinger

	Auth      auth.Service
	Payouts   payouts.Service
	Events    events.Service
	Checkout  checkoutsvc.Service
	Bookings  bookings.Service
	Dashboard dashboard.Service
	Canvases  canvases.Service
	Media     media.Service

	PlatformWebhook Webhook
	ConnectWebhook  Webhook
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.CORS(cfg.App.AllowedOrigins()),
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.Ready, logg))
	})
	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{Registry: d.Registry}))
	}

	var (
		rateStore        middleware.RateLimitStore
		idempotencyStore pkgredis.IdempotencyStore
	)
	if d.Redis != nil {
		rateStore = d.Redis
		idempotencyStore = d.Redis
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(webhookcontrollers.StripeWebhookParams{
				Endpoint: webhookcontrollers.EndpointPlatform,
				Service:  d.PlatformWebhook.Service,
				Secret:   d.PlatformWebhook.Secret,
				Guard:    d.PlatformWebhook.Guard,
				Metrics:  d.Metrics,
				Logger:   logg,
			}))
			r.Post("/stripe-connect", webhookcontrollers.StripeWebhook(webhookcontrollers.StripeWebhookParams{
				Endpoint: webhookcontrollers.EndpointConnect,
				Service:  d.ConnectWebhook.Service,
				Secret:   d.ConnectWebhook.Secret,
				Guard:    d.ConnectWebhook.Guard,
				Metrics:  d.Metrics,
				Logger:   logg,
			}))
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(middleware.LoginRateLimitPolicy(cfg.AuthRateLimit), rateStore, logg)).
				Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.With(middleware.AuthRateLimit(middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit), rateStore, logg)).
				Post("/register", controllers.AuthRegister(d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
		})

		// Guest-facing routes.
		r.Group(func(r chi.Router) {
			r.With(middleware.Idempotency(idempotencyStore, middleware.CheckoutIdempotencyTTL, logg)).
				Post("/checkout", controllers.Checkout(d.Checkout, logg))
			r.Get("/public/events", controllers.PublicEventsList(d.Events, logg))
			r.Get("/public/events/{slug}", controllers.PublicEventGet(d.Events, logg))
			r.Get("/public/bookings/success", controllers.CheckoutConfirmation(d.Checkout, logg))
			r.Get("/canvases", controllers.CanvasesList(d.Canvases, logg))
		})

		// Host routes.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))

			r.Get("/stripe/account-status", controllers.AccountStatus(d.Payouts, logg))
			r.Post("/stripe/account-session", controllers.AccountSession(d.Payouts, logg))

			r.Route("/events", func(r chi.Router) {
				r.Get("/", controllers.EventsList(d.Events, logg))
				r.Post("/", controllers.EventCreate(d.Events, logg))
				r.Get("/calendar", controllers.EventsCalendar(d.Events, logg))
				r.Get("/{eventId}", controllers.EventGet(d.Events, logg))
				r.Patch("/{eventId}", controllers.EventUpdate(d.Events, logg))
				r.Delete("/{eventId}", controllers.EventDelete(d.Events, logg))
			})

			r.Get("/dashboard", controllers.Dashboard(d.Dashboard, logg))
			r.Get("/bookings", controllers.HostBookings(d.Bookings, logg))
			r.Post("/canvases", controllers.CanvasCreate(d.Canvases, logg))
			r.Post("/canvases/import", controllers.CanvasesImport(d.Canvases, logg))
			r.Post("/uploads", controllers.MediaUpload(d.Media, logg))
		})
	})

	return r
}
