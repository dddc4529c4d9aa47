package bookings

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
	"github.com/easelhouse/paintsip-backend/pkg/metrics"
	"github.com/easelhouse/paintsip-backend/pkg/outbox"
	"github.com/easelhouse/paintsip-backend/pkg/outbox/payloads"
)

// PaymentStatusPaid is the checkout session payment status that settles a booking.
const PaymentStatusPaid = "paid"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Outcome reports whether a notification changed a booking.
type Outcome struct {
	Applied bool
	Booking *models.Booking
}

// Lifecycle applies provider notifications to booking status.
type Lifecycle interface {
	CheckoutCompleted(ctx context.Context, sessionID, paymentStatus string, paymentIntentID *string) (Outcome, error)
	CheckoutExpired(ctx context.Context, sessionID string) (Outcome, error)
	ChargeRefunded(ctx context.Context, paymentIntentID string) (Outcome, error)
	ExpireStale(ctx context.Context, booking models.Booking) (Outcome, error)
}

type LifecycleParams struct {
	Repo    *Repository
	Tx      txRunner
	Outbox  outbox.Emitter
	Metrics *metrics.BookingMetrics
	Logger  *logger.Logger
}

type lifecycle struct {
	repo    *Repository
	tx      txRunner
	outbox  outbox.Emitter
	metrics *metrics.BookingMetrics
	logg    *logger.Logger
}

func NewLifecycle(params LifecycleParams) (Lifecycle, error) {
	if params.Repo == nil {
		return nil, errors.New("bookings repository required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	return &lifecycle{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// CheckoutCompleted settles the booking for a session when the provider
// reports it paid. Replays and unpaid completions are no-ops.
func (l *lifecycle) CheckoutCompleted(ctx context.Context, sessionID, paymentStatus string, paymentIntentID *string) (Outcome, error) {
	if sessionID == "" {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id required")
	}
	if paymentStatus != PaymentStatusPaid {
		l.info(ctx, "booking.checkout_completed.unpaid", map[string]any{
			"checkout_session_id": sessionID,
			"payment_status":      paymentStatus,
		})
		return Outcome{}, nil
	}
	return l.transition(ctx, enums.BookingStatusPaid, enums.EventBookingPaid, "", func(repo *Repository) (int64, *models.Booking, error) {
		n, err := repo.MarkPaidBySession(ctx, sessionID, paymentIntentID)
		if err != nil || n == 0 {
			return n, nil, err
		}
		b, err := repo.FindBySessionID(ctx, sessionID)
		return n, b, err
	}, map[string]any{"checkout_session_id": sessionID})
}

// CheckoutExpired cancels the booking only while it is still PENDING.
func (l *lifecycle) CheckoutExpired(ctx context.Context, sessionID string) (Outcome, error) {
	if sessionID == "" {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id required")
	}
	return l.transition(ctx, enums.BookingStatusCanceled, enums.EventBookingCanceled, "checkout_expired", func(repo *Repository) (int64, *models.Booking, error) {
		n, err := repo.CancelPendingBySession(ctx, sessionID)
		if err != nil || n == 0 {
			return n, nil, err
		}
		b, err := repo.FindBySessionID(ctx, sessionID)
		return n, b, err
	}, map[string]any{"checkout_session_id": sessionID})
}

// ChargeRefunded moves a PAID booking to REFUNDED.
func (l *lifecycle) ChargeRefunded(ctx context.Context, paymentIntentID string) (Outcome, error) {
	if paymentIntentID == "" {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	return l.transition(ctx, enums.BookingStatusRefunded, enums.EventBookingRefunded, "", func(repo *Repository) (int64, *models.Booking, error) {
		n, err := repo.RefundByPaymentIntent(ctx, paymentIntentID)
		if err != nil || n == 0 {
			return n, nil, err
		}
		b, err := repo.FindByPaymentIntentID(ctx, paymentIntentID)
		return n, b, err
	}, map[string]any{"payment_intent_id": paymentIntentID})
}

// ExpireStale cancels an abandoned PENDING booking found by the sweep job.
func (l *lifecycle) ExpireStale(ctx context.Context, booking models.Booking) (Outcome, error) {
	return l.transition(ctx, enums.BookingStatusCanceled, enums.EventBookingCanceled, "stale_checkout", func(repo *Repository) (int64, *models.Booking, error) {
		n, err := repo.CancelPendingByID(ctx, booking.ID)
		if err != nil || n == 0 {
			return n, nil, err
		}
		b, err := repo.FindByID(ctx, booking.ID)
		return n, b, err
	}, map[string]any{"booking_id": booking.ID.String()})
}

type applyFunc func(repo *Repository) (int64, *models.Booking, error)

func (l *lifecycle) transition(
	ctx context.Context,
	to enums.BookingStatus,
	eventType enums.OutboxEventType,
	reason string,
	apply applyFunc,
	fields map[string]any,
) (Outcome, error) {
	var out Outcome
	err := l.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, booking, err := apply(l.repo.WithTx(tx))
		if err != nil {
			return err
		}
		if n == 0 || booking == nil {
			return nil
		}
		out = Outcome{Applied: true, Booking: booking}
		return l.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         outbox.SystemActor(outbox.ActorSourceWebhook),
			Data:          EventPayload(booking, reason),
		})
	})
	if err != nil {
		return Outcome{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("apply booking transition to %s", to))
	}

	l.metrics.IncTransition(to.String(), out.Applied)
	fields["target_status"] = to.String()
	fields["applied"] = out.Applied
	if out.Booking != nil {
		fields["booking_id"] = out.Booking.ID.String()
	}
	l.info(ctx, "booking.transition", fields)
	return out, nil
}

func (l *lifecycle) info(ctx context.Context, msg string, fields map[string]any) {
	if l.logg == nil {
		return
	}
	l.logg.Info(l.logg.WithFields(ctx, fields), msg)
}

// EventPayload builds the outbox payload for a booking lifecycle event.
func EventPayload(b *models.Booking, reason string) payloads.BookingEvent {
	return payloads.BookingEvent{
		BookingID:         b.ID,
		EventID:           b.EventID,
		Status:            b.Status,
		Quantity:          b.Quantity,
		AmountPaidCents:   b.AmountPaidCents,
		PurchaserEmail:    b.PurchaserEmail,
		CheckoutSessionID: b.CheckoutSessionID,
		PaymentIntentID:   b.PaymentIntentID,
		Reason:            reason,
	}
}
