package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/easelhouse/paintsip-backend/internal/bookings"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
	"github.com/easelhouse/paintsip-backend/pkg/outbox"
)

// accountSyncer is the slice of the payouts service the Connect endpoint drives.
type accountSyncer interface {
	SyncAccount(ctx context.Context, acct *stripe.Account, actor *outbox.ActorRef) error
	Disconnect(ctx context.Context, accountID string) error
}

type ServiceParams struct {
	Lifecycle bookings.Lifecycle
	Logger    *logger.Logger
}

// Service applies platform webhook events to bookings.
type Service struct {
	lifecycle bookings.Lifecycle
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Lifecycle == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "booking lifecycle required")
	}
	return &Service{
		lifecycle: params.Lifecycle,
		logg:      params.Logger,
	}, nil
}

// HandleEvent dispatches a verified platform event. Unknown types are logged
// and acknowledged.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		var paymentIntentID *string
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			id := session.PaymentIntent.ID
			paymentIntentID = &id
		}
		_, err := s.lifecycle.CheckoutCompleted(ctx, session.ID, string(session.PaymentStatus), paymentIntentID)
		return err
	case stripe.EventTypeCheckoutSessionExpired:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		_, err := s.lifecycle.CheckoutExpired(ctx, session.ID)
		return err
	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge")
		}
		if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
			s.warn(ctx, "stripe.webhook.charge_without_payment_intent")
			return nil
		}
		_, err := s.lifecycle.ChargeRefunded(ctx, charge.PaymentIntent.ID)
		return err
	default:
		s.info(ctx, "stripe.webhook.ignored")
		return nil
	}
}

func (s *Service) info(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}

type ConnectServiceParams struct {
	Accounts accountSyncer
	Logger   *logger.Logger
}

// ConnectService applies Connect webhook events to cached host account state.
type ConnectService struct {
	accounts accountSyncer
	logg     *logger.Logger
}

func NewConnectService(params ConnectServiceParams) (*ConnectService, error) {
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account syncer required")
	}
	return &ConnectService{
		accounts: params.Accounts,
		logg:     params.Logger,
	}, nil
}

func (s *ConnectService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeAccountUpdated:
		var acct stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &acct); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode account")
		}
		return s.accounts.SyncAccount(ctx, &acct, outbox.SystemActor(outbox.ActorSourceWebhook))
	case stripe.EventTypeAccountApplicationDeauthorized:
		if event.Account == "" {
			if s.logg != nil {
				s.logg.Warn(ctx, "stripe.connect.deauthorized_without_account")
			}
			return nil
		}
		return s.accounts.Disconnect(ctx, event.Account)
	default:
		if s.logg != nil {
			s.logg.Info(ctx, "stripe.connect.ignored")
		}
		return nil
	}
}
