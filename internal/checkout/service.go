package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/easelhouse/paintsip-backend/internal/bookings"
	"github.com/easelhouse/paintsip-backend/internal/events"
	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
	"github.com/easelhouse/paintsip-backend/pkg/metrics"
	"github.com/easelhouse/paintsip-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SessionCreator opens hosted checkout sessions.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Input is a guest's request for tickets.
type Input struct {
	EventID        uuid.UUID `json:"event_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"required,min=1,max=10"`
	PurchaserName  string    `json:"purchaser_name" validate:"required,min=2,max=100"`
	PurchaserEmail string    `json:"purchaser_email" validate:"required,email,max=254"`
}

// Result points the guest at the hosted checkout page.
type Result struct {
	URL       string    `json:"url"`
	SessionID string    `json:"session_id"`
	BookingID uuid.UUID `json:"booking_id"`
}

// Confirmation is the success-page summary for a checkout session.
type Confirmation struct {
	BookingID       uuid.UUID           `json:"booking_id"`
	Status          enums.BookingStatus `json:"status"`
	Quantity        int                 `json:"quantity"`
	AmountPaidCents int64               `json:"amount_paid_cents"`
	PurchaserName   string              `json:"purchaser_name"`
	PurchaserEmail  string              `json:"purchaser_email"`
	EventTitle      string              `json:"event_title"`
	EventSlug       string              `json:"event_slug"`
	StartDateTime   time.Time           `json:"start_date_time"`
	LocationName    string              `json:"location_name"`
	Address         string              `json:"address"`
	City            string              `json:"city"`
	State           string              `json:"state"`
}

type Service interface {
	Create(ctx context.Context, input Input) (*Result, error)
	Confirmation(ctx context.Context, sessionID string) (*Confirmation, error)
}

type ServiceParams struct {
	Events    *events.Repository
	Bookings  *bookings.Repository
	Tx        txRunner
	Stripe    SessionCreator
	Outbox    outbox.Emitter
	Metrics   *metrics.BookingMetrics
	Logger    *logger.Logger
	PublicURL string
	Currency  string
	Clock     func() time.Time
}

type service struct {
	events    *events.Repository
	bookings  *bookings.Repository
	tx        txRunner
	stripe    SessionCreator
	outbox    outbox.Emitter
	metrics   *metrics.BookingMetrics
	logg      *logger.Logger
	publicURL string
	currency  string
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Events == nil {
		return nil, errors.New("events repository required")
	}
	if params.Bookings == nil {
		return nil, errors.New("bookings repository required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner required")
	}
	if params.Stripe == nil {
		return nil, errors.New("checkout session creator required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	if strings.TrimSpace(params.PublicURL) == "" {
		return nil, errors.New("public url required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "usd"
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		events:    params.Events,
		bookings:  params.Bookings,
		tx:        params.Tx,
		stripe:    params.Stripe,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      params.Logger,
		publicURL: strings.TrimRight(params.PublicURL, "/"),
		currency:  currency,
		now:       clock,
	}, nil
}

// Create reserves a PENDING booking and opens a hosted checkout session for it.
// The event row is locked while the paid count is read and the booking is
// written, so concurrent checkouts for one event are serialized. PENDING
// bookings hold no seats: two of them for the last seat can both be paid.
func (s *service) Create(ctx context.Context, input Input) (*Result, error) {
	var (
		event   *models.Event
		booking *models.Booking
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		event, err = s.events.WithTx(tx).FindByIDForUpdate(ctx, input.EventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "Event not found")
			}
			return err
		}
		bookingsRepo := s.bookings.WithTx(tx)
		sold, err := bookingsRepo.SoldCount(ctx, event.ID)
		if err != nil {
			return err
		}
		if _, err := Guard(event, sold, input.Quantity, s.now()); err != nil {
			return err
		}

		booking = &models.Booking{
			ID:              uuid.New(),
			EventID:         event.ID,
			PurchaserName:   strings.TrimSpace(input.PurchaserName),
			PurchaserEmail:  strings.ToLower(strings.TrimSpace(input.PurchaserEmail)),
			Quantity:        input.Quantity,
			AmountPaidCents: event.TicketPriceCents * int64(input.Quantity),
			Status:          enums.BookingStatusPending,
		}
		if err := bookingsRepo.Create(ctx, booking); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCreated,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         outbox.SystemActor(outbox.ActorSourceGuest),
			Data:          bookings.EventPayload(booking, ""),
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			s.metrics.IncCheckout("rejected")
			return nil, typed
		}
		s.metrics.IncCheckout("failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve booking")
	}

	ctx = s.withLogFields(ctx, event, booking)
	session, err := s.stripe.CreateCheckoutSession(ctx, s.sessionParams(event, booking))
	if err != nil {
		s.metrics.IncCheckout("failed")
		s.abandon(ctx, booking, "checkout_session_failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	if session == nil || session.ID == "" {
		s.metrics.IncCheckout("failed")
		s.abandon(ctx, booking, "checkout_session_failed")
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout session missing id")
	}
	if err := s.bookings.SetCheckoutSession(ctx, booking.ID, session.ID); err != nil {
		s.metrics.IncCheckout("failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link checkout session")
	}

	s.metrics.IncCheckout("created")
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "checkout_session_id", session.ID), "checkout.session.created")
	}
	return &Result{URL: session.URL, SessionID: session.ID, BookingID: booking.ID}, nil
}

func (s *service) Confirmation(ctx context.Context, sessionID string) (*Confirmation, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}
	booking, err := s.bookings.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load booking")
	}
	event, err := s.events.FindByID(ctx, booking.EventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	return &Confirmation{
		BookingID:       booking.ID,
		Status:          booking.Status,
		Quantity:        booking.Quantity,
		AmountPaidCents: booking.AmountPaidCents,
		PurchaserName:   booking.PurchaserName,
		PurchaserEmail:  booking.PurchaserEmail,
		EventTitle:      event.Title,
		EventSlug:       event.Slug,
		StartDateTime:   event.StartDateTime,
		LocationName:    event.LocationName,
		Address:         event.Address,
		City:            event.City,
		State:           event.State,
	}, nil
}

func (s *service) sessionParams(event *models.Event, booking *models.Booking) *stripe.CheckoutSessionParams {
	noun := "ticket"
	if booking.Quantity > 1 {
		noun = "tickets"
	}
	images := []string{}
	if event.CanvasImageURL != nil && *event.CanvasImageURL != "" {
		images = append(images, *event.CanvasImageURL)
	}
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.currency),
					UnitAmount: stripe.Int64(event.TicketPriceCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(event.Title),
						Description: stripe.String(fmt.Sprintf("%d %s for %s", booking.Quantity, noun, event.Title)),
						Images:      stripe.StringSlice(images),
					},
				},
				Quantity: stripe.Int64(int64(booking.Quantity)),
			},
		},
		CustomerEmail: stripe.String(booking.PurchaserEmail),
		SuccessURL:    stripe.String(s.publicURL + "/booking/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:     stripe.String(s.publicURL + "/e/" + event.Slug + "?canceled=true"),
	}
	params.AddMetadata("booking_id", booking.ID.String())
	params.AddMetadata("event_id", event.ID.String())
	params.AddMetadata("purchaser_name", booking.PurchaserName)
	return params
}

// abandon cancels a booking whose checkout session could not be opened.
func (s *service) abandon(ctx context.Context, booking *models.Booking, reason string) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := s.bookings.WithTx(tx).CancelPendingByID(ctx, booking.ID)
		if err != nil || n == 0 {
			return err
		}
		canceled := *booking
		canceled.Status = enums.BookingStatusCanceled
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCanceled,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         outbox.SystemActor(outbox.ActorSourceGuest),
			Data:          bookings.EventPayload(&canceled, reason),
		})
	})
	if err != nil && s.logg != nil {
		s.logg.Error(ctx, "checkout.abandon_failed", err)
	}
}

func (s *service) withLogFields(ctx context.Context, event *models.Event, booking *models.Booking) context.Context {
	if s.logg == nil {
		return ctx
	}
	ctx = s.logg.WithEventID(ctx, event.ID.String())
	return s.logg.WithBookingID(ctx, booking.ID.String())
}
