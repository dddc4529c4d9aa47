package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/easelhouse/paintsip-backend/api/responses"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
	pkgstripe "github.com/easelhouse/paintsip-backend/pkg/stripe"
)

// Endpoint labels used for metrics and logs.
const (
	EndpointPlatform = "platform"
	EndpointConnect  = "connect"
)

// maxPayloadBytes matches Stripe's documented upper bound for event payloads.
const maxPayloadBytes = 512 << 10

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

// StripeWebhookGuard drops redelivered event ids.
type StripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type webhookMetrics interface {
	IncWebhook(endpoint, eventType, outcome string)
}

// StripeWebhookParams wires one Stripe webhook endpoint.
type StripeWebhookParams struct {
	Endpoint string
	Service  StripeWebhookService
	Secret   func() string
	Guard    StripeWebhookGuard
	Metrics  webhookMetrics
	Logger   *logger.Logger
}

type receivedResponse struct {
	Received bool `json:"received"`
}

// StripeWebhook verifies the Stripe-Signature header and hands the event to the
// service. Redelivered event ids are acknowledged without reprocessing; a handler
// failure releases the id so Stripe's retry is processed.
func StripeWebhook(params StripeWebhookParams) http.HandlerFunc {
	logg := params.Logger
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if params.Service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if params.Secret == nil || params.Secret() == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook secret not configured"))
			return
		}
		if params.Guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "Missing stripe-signature header"))
			return
		}

		event, err := pkgstripe.ConstructEvent(payload, sigHeader, params.Secret())
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "Webhook signature verification failed"))
			return
		}

		if logg != nil {
			ctx = logg.WithStripeEvent(ctx, event.ID, string(event.Type))
		}
		eventType := string(event.Type)

		alreadyProcessed, err := params.Guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			params.count(eventType, "duplicate")
			responses.WriteSuccess(w, receivedResponse{Received: true})
			return
		}

		if err := params.Service.HandleEvent(ctx, &event); err != nil {
			if delErr := params.Guard.Delete(ctx, event.ID); delErr != nil && logg != nil {
				logg.Error(ctx, "stripe.webhook.release_failed", delErr)
			}
			params.count(eventType, "failed")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		params.count(eventType, "processed")
		if logg != nil {
			logg.Info(logg.WithField(ctx, "endpoint", params.Endpoint), "stripe.webhook.processed")
		}
		responses.WriteSuccess(w, receivedResponse{Received: true})
	}
}

func (p StripeWebhookParams) count(eventType, outcome string) {
	if p.Metrics != nil {
		p.Metrics.IncWebhook(p.Endpoint, eventType, outcome)
	}
}
