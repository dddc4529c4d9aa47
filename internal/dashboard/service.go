// Package dashboard assembles the host's landing summary.
package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/easelhouse/paintsip-backend/internal/bookings"
	"github.com/easelhouse/paintsip-backend/internal/events"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/easelhouse/paintsip-backend/pkg/money"
)

const (
	upcomingLimit = 5
	recentLimit   = 5
)

// Summary is the dashboard payload.
type Summary struct {
	TotalEvents     int64                     `json:"total_events"`
	PublishedEvents int64                     `json:"published_events"`
	PaidBookings    int64                     `json:"paid_bookings"`
	TicketsSold     int64                     `json:"tickets_sold"`
	RevenueCents    int64                     `json:"revenue_cents"`
	Revenue         decimal.Decimal           `json:"revenue"`
	RevenueDisplay  string                    `json:"revenue_display"`
	UpcomingEvents  []events.EventSummary     `json:"upcoming_events"`
	RecentBookings  []bookings.HostBookingDTO `json:"recent_bookings"`
}

type Service interface {
	Summary(ctx context.Context, hostID uuid.UUID) (*Summary, error)
}

type ServiceParams struct {
	Events   *events.Repository
	Bookings *bookings.Repository
	Clock    func() time.Time
}

type service struct {
	events   *events.Repository
	bookings *bookings.Repository
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Events == nil {
		return nil, errors.New("events repository required")
	}
	if params.Bookings == nil {
		return nil, errors.New("bookings repository required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{events: params.Events, bookings: params.Bookings, now: clock}, nil
}

func (s *service) Summary(ctx context.Context, hostID uuid.UUID) (*Summary, error) {
	if hostID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	counts, err := s.events.StatusCounts(ctx, hostID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count events")
	}
	var total int64
	for _, n := range counts {
		total += n
	}

	totals, err := s.bookings.HostTotals(ctx, hostID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum bookings")
	}

	upcoming, err := s.events.ListPublishedUpcoming(ctx, hostID, s.now().UTC(), upcomingLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list upcoming events")
	}
	ids := make([]uuid.UUID, 0, len(upcoming))
	for i := range upcoming {
		ids = append(ids, upcoming[i].ID)
	}
	sold, err := s.bookings.SoldCounts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count tickets")
	}
	summaries := make([]events.EventSummary, 0, len(upcoming))
	for i := range upcoming {
		summaries = append(summaries, events.EventSummary{
			EventDTO:    events.FromModel(&upcoming[i]),
			TicketsSold: sold[upcoming[i].ID],
		})
	}

	paid := enums.BookingStatusPaid
	recent, err := s.bookings.ListForHost(ctx, hostID, &paid, recentLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list recent bookings")
	}

	return &Summary{
		TotalEvents:     total,
		PublishedEvents: counts[enums.EventStatusPublished],
		PaidBookings:    totals.PaidBookings,
		TicketsSold:     totals.TicketsSold,
		RevenueCents:    totals.RevenueCents,
		Revenue:         money.FromCents(totals.RevenueCents),
		RevenueDisplay:  money.FormatUSD(totals.RevenueCents),
		UpcomingEvents:  summaries,
		RecentBookings:  bookings.FromHostRows(recent),
	}, nil
}
