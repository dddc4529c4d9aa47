package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/easelhouse/paintsip-backend/internal/bookings"
	"github.com/easelhouse/paintsip-backend/internal/events"
	"github.com/easelhouse/paintsip-backend/pkg/db"
	"github.com/easelhouse/paintsip-backend/pkg/db/dbtest"
	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/easelhouse/paintsip-backend/pkg/outbox"
)

type stubSessions struct {
	params *stripe.CheckoutSessionParams
	err    error
	empty  bool
	calls  int
}

func (s *stubSessions) CreateCheckoutSession(_ context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.calls++
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	if s.empty {
		return nil, nil
	}
	id := fmt.Sprintf("cs_test_%d", s.calls)
	return &stripe.CheckoutSession{ID: id, URL: "https://checkout.stripe.test/" + id}, nil
}

var checkoutNow = time.Date(2026, 7, 1, 15, 0, 0, 0, time.UTC)

func newCheckout(t *testing.T) (*gorm.DB, *stubSessions, Service) {
	t.Helper()
	conn := dbtest.Open(t)
	sessions := &stubSessions{}
	svc, err := NewService(ServiceParams{
		Events:    events.NewRepository(conn),
		Bookings:  bookings.NewRepository(conn),
		Tx:        db.NewFromConn(conn),
		Stripe:    sessions,
		Outbox:    outbox.NewService(outbox.NewRepository(conn), nil),
		PublicURL: "https://paintsip.test/",
		Clock:     func() time.Time { return checkoutNow },
	})
	require.NoError(t, err)
	return conn, sessions, svc
}

func seedEvent(t *testing.T, conn *gorm.DB, capacity int, status enums.EventStatus) *models.Event {
	t.Helper()
	img := "https://cdn.paintsip.test/starry.jpg"
	event := &models.Event{
		HostID:           uuid.New(),
		Title:            "Starry Night",
		Slug:             "starry-night-" + uuid.NewString()[:8],
		StartDateTime:    checkoutNow.Add(5 * 24 * time.Hour),
		LocationName:     "Studio",
		Address:          "1 Main Street",
		City:             "Austin",
		State:            "TX",
		Zip:              "78701",
		TicketPriceCents: 4500,
		Capacity:         capacity,
		SalesCutoffHours: 48,
		CanvasImageURL:   &img,
		Status:           status,
	}
	require.NoError(t, events.NewRepository(conn).Create(context.Background(), event))
	return event
}

func seedPaid(t *testing.T, conn *gorm.DB, eventID uuid.UUID, qty int) {
	t.Helper()
	require.NoError(t, bookings.NewRepository(conn).Create(context.Background(), &models.Booking{
		EventID:         eventID,
		PurchaserName:   "Earlier Guest",
		PurchaserEmail:  "earlier@example.com",
		Quantity:        qty,
		AmountPaidCents: int64(qty) * 4500,
		Status:          enums.BookingStatusPaid,
	}))
}

func TestCreateLastSeatCreatesPendingBooking(t *testing.T) {
	conn, sessions, svc := newCheckout(t)
	event := seedEvent(t, conn, 10, enums.EventStatusPublished)
	seedPaid(t, conn, event.ID, 9)

	res, err := svc.Create(context.Background(), Input{
		EventID:        event.ID,
		Quantity:       1,
		PurchaserName:  "Ana Guest",
		PurchaserEmail: "Ana@Example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_test_1", res.URL)

	var booking models.Booking
	require.NoError(t, conn.First(&booking, "id = ?", res.BookingID).Error)
	assert.Equal(t, enums.BookingStatusPending, booking.Status)
	assert.Equal(t, int64(4500), booking.AmountPaidCents)
	assert.Equal(t, "ana@example.com", booking.PurchaserEmail)
	require.NotNil(t, booking.CheckoutSessionID)
	assert.Equal(t, "cs_test_1", *booking.CheckoutSessionID)

	p := sessions.params
	require.NotNil(t, p)
	assert.Equal(t, "payment", *p.Mode)
	assert.Equal(t, int64(4500), *p.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, int64(1), *p.LineItems[0].Quantity)
	assert.Equal(t, "usd", *p.LineItems[0].PriceData.Currency)
	assert.Equal(t, "1 ticket for Starry Night", *p.LineItems[0].PriceData.ProductData.Description)
	assert.Equal(t, "https://paintsip.test/booking/success?session_id={CHECKOUT_SESSION_ID}", *p.SuccessURL)
	assert.Equal(t, "https://paintsip.test/e/"+event.Slug+"?canceled=true", *p.CancelURL)
	assert.Equal(t, res.BookingID.String(), p.Metadata["booking_id"])

	var created int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventBookingCreated).Count(&created).Error)
	assert.Equal(t, int64(1), created)
}

func TestCreateOverCapacityCitesRemaining(t *testing.T) {
	conn, sessions, svc := newCheckout(t)
	event := seedEvent(t, conn, 10, enums.EventStatusPublished)
	seedPaid(t, conn, event.ID, 8)

	_, err := svc.Create(context.Background(), Input{EventID: event.ID, Quantity: 3, PurchaserName: "Ana", PurchaserEmail: "a@example.com"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, "Only 2 tickets remaining", typed.Message())
	assert.Equal(t, 0, sessions.calls)

	var count int64
	require.NoError(t, conn.Model(&models.Booking{}).Where("status = ?", enums.BookingStatusPending).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestCreatePendingBookingsDoNotConsumeInventory(t *testing.T) {
	conn, _, svc := newCheckout(t)
	event := seedEvent(t, conn, 2, enums.EventStatusPublished)
	ctx := context.Background()

	first, err := svc.Create(ctx, Input{EventID: event.ID, Quantity: 2, PurchaserName: "Ana", PurchaserEmail: "a@example.com"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, Input{EventID: event.ID, Quantity: 2, PurchaserName: "Bo", PurchaserEmail: "b@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	seedPaid(t, conn, event.ID, 2)
	_, err = svc.Create(ctx, Input{EventID: event.ID, Quantity: 1, PurchaserName: "Cy", PurchaserEmail: "c@example.com"})
	require.Error(t, err)
	assert.Equal(t, "Only 0 tickets remaining", pkgerrors.As(err).Message())
}

func TestCreateUnknownOrUnpublishedEvent(t *testing.T) {
	conn, _, svc := newCheckout(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{EventID: uuid.New(), Quantity: 1, PurchaserName: "Ana", PurchaserEmail: "a@example.com"})
	require.Error(t, err)
	assert.Equal(t, 400, pkgerrors.MetadataFor(pkgerrors.As(err).Code()).HTTPStatus)

	draft := seedEvent(t, conn, 10, enums.EventStatusDraft)
	_, err = svc.Create(ctx, Input{EventID: draft.ID, Quantity: 1, PurchaserName: "Ana", PurchaserEmail: "a@example.com"})
	require.Error(t, err)
	assert.Equal(t, msgNotAvailable, pkgerrors.As(err).Message())
}

func TestCreateProviderFailureCancelsBooking(t *testing.T) {
	conn, sessions, svc := newCheckout(t)
	sessions.err = errors.New("stripe: rate limited sk_test_secret")
	event := seedEvent(t, conn, 10, enums.EventStatusPublished)

	_, err := svc.Create(context.Background(), Input{EventID: event.ID, Quantity: 2, PurchaserName: "Ana", PurchaserEmail: "a@example.com"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
	assert.Equal(t, 500, pkgerrors.MetadataFor(typed.Code()).HTTPStatus)

	var booking models.Booking
	require.NoError(t, conn.Where("event_id = ?", event.ID).First(&booking).Error)
	assert.Equal(t, enums.BookingStatusCanceled, booking.Status)
}

func TestCreateEmptyProviderSessionCancelsBooking(t *testing.T) {
	conn, sessions, svc := newCheckout(t)
	sessions.empty = true
	event := seedEvent(t, conn, 10, enums.EventStatusPublished)

	res, err := svc.Create(context.Background(), Input{EventID: event.ID, Quantity: 1, PurchaserName: "Ana", PurchaserEmail: "a@example.com"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	var booking models.Booking
	require.NoError(t, conn.Where("event_id = ?", event.ID).First(&booking).Error)
	assert.Equal(t, enums.BookingStatusCanceled, booking.Status)
	assert.Nil(t, booking.CheckoutSessionID)
}

func TestConfirmation(t *testing.T) {
	conn, _, svc := newCheckout(t)
	ctx := context.Background()
	event := seedEvent(t, conn, 10, enums.EventStatusPublished)
	res, err := svc.Create(ctx, Input{EventID: event.ID, Quantity: 2, PurchaserName: "Ana", PurchaserEmail: "a@example.com"})
	require.NoError(t, err)

	conf, err := svc.Confirmation(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, res.BookingID, conf.BookingID)
	assert.Equal(t, "Starry Night", conf.EventTitle)
	assert.Equal(t, int64(9000), conf.AmountPaidCents)

	_, err = svc.Confirmation(ctx, "cs_unknown")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
