package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easelhouse/paintsip-backend/internal/bookings"
	"github.com/easelhouse/paintsip-backend/pkg/db"
	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
)

const slugAttempts = 3

// editableColumns lists what a host may change in each status. Keys outside
// the set are dropped silently.
var editableColumns = map[enums.EventStatus]map[string]bool{
	enums.EventStatusDraft: {
		"status": true, "title": true, "description": true, "start_date_time": true,
		"end_date_time": true, "location_name": true, "address": true, "city": true,
		"state": true, "zip": true, "ticket_price_cents": true, "capacity": true,
		"sales_cutoff_hours": true, "refund_policy_text": true, "canvas_image_url": true,
	},
	enums.EventStatusPublished: {
		"status": true, "description": true, "refund_policy_text": true,
	},
	enums.EventStatusEnded:    {},
	enums.EventStatusCanceled: {},
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service covers host event management and the public event views.
type Service interface {
	Create(ctx context.Context, hostID uuid.UUID, input CreateEventInput) (*EventDTO, error)
	ListForHost(ctx context.Context, hostID uuid.UUID) ([]EventSummary, error)
	Get(ctx context.Context, hostID, eventID uuid.UUID) (*EventDetail, error)
	Update(ctx context.Context, hostID, eventID uuid.UUID, input UpdateEventInput) (*EventDTO, error)
	Delete(ctx context.Context, hostID, eventID uuid.UUID) error
	Calendar(ctx context.Context, hostID uuid.UUID) ([]CalendarEntry, error)
	ListPublic(ctx context.Context) ([]PublicEvent, error)
	GetPublic(ctx context.Context, slug string) (*PublicEventDetail, error)
}

type ServiceParams struct {
	Events   *Repository
	Bookings *bookings.Repository
	Tx       txRunner
	Logger   *logger.Logger
	Clock    func() time.Time
}

type service struct {
	events   *Repository
	bookings *bookings.Repository
	tx       txRunner
	logg     *logger.Logger
	now      func() time.Time
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
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		events:   params.Events,
		bookings: params.Bookings,
		tx:       params.Tx,
		logg:     params.Logger,
		now:      clock,
	}, nil
}

func (s *service) Create(ctx context.Context, hostID uuid.UUID, input CreateEventInput) (*EventDTO, error) {
	now := s.now().UTC()
	if !input.StartDateTime.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Event must be in the future").
			WithDetails(map[string]string{"start_date_time": "must be in the future"})
	}
	if input.EndDateTime != nil && !input.EndDateTime.After(input.StartDateTime) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "End time must be after start time").
			WithDetails(map[string]string{"end_date_time": "must be after start_date_time"})
	}

	cutoff := DefaultSalesCutoffHours
	if input.SalesCutoffHours != nil {
		cutoff = *input.SalesCutoffHours
	}
	status := enums.EventStatusDraft
	if input.Status != nil {
		status = *input.Status
	}
	event := &models.Event{
		ID:               uuid.New(),
		HostID:           hostID,
		CanvasID:         blankToNil(input.CanvasID),
		Title:            strings.TrimSpace(input.Title),
		Description:      blankToNil(input.Description),
		StartDateTime:    input.StartDateTime.UTC(),
		EndDateTime:      utcPtr(input.EndDateTime),
		LocationName:     strings.TrimSpace(input.LocationName),
		Address:          strings.TrimSpace(input.Address),
		City:             strings.TrimSpace(input.City),
		State:            strings.ToUpper(strings.TrimSpace(input.State)),
		Zip:              strings.TrimSpace(input.Zip),
		TicketPriceCents: input.TicketPriceCents,
		Capacity:         input.Capacity,
		SalesCutoffHours: cutoff,
		RefundPolicyText: blankToNil(input.RefundPolicyText),
		CanvasImageURL:   blankToNil(input.CanvasImageURL),
		Status:           status,
	}

	base := Slugify(event.Title)
	slug := base
	exists, err := s.events.SlugExists(ctx, slug)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check slug")
	}
	if exists {
		slug = withTimeSuffix(base, now)
	}

	for attempt := 0; ; attempt++ {
		event.Slug = slug
		err = s.events.Create(ctx, event)
		if err == nil {
			break
		}
		if !db.IsUniqueViolation(err, "") || attempt+1 >= slugAttempts {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create event")
		}
		slug = withTimeSuffix(base, now.Add(time.Duration(attempt+1)*time.Millisecond))
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"event_id": event.ID.String(),
			"host_id":  hostID.String(),
			"slug":     event.Slug,
		}), "event.created")
	}
	dto := FromModel(event)
	return &dto, nil
}

func (s *service) ListForHost(ctx context.Context, hostID uuid.UUID) ([]EventSummary, error) {
	rows, err := s.events.ListForHost(ctx, hostID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list events")
	}
	sold, err := s.bookings.SoldCounts(ctx, eventIDs(rows))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count tickets sold")
	}
	out := make([]EventSummary, 0, len(rows))
	for i := range rows {
		out = append(out, EventSummary{EventDTO: FromModel(&rows[i]), TicketsSold: sold[rows[i].ID]})
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, hostID, eventID uuid.UUID) (*EventDetail, error) {
	event, err := s.loadOwned(ctx, hostID, eventID)
	if err != nil {
		return nil, err
	}
	paid, err := s.bookings.ListPaidForEvent(ctx, eventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list paid bookings")
	}
	sold := 0
	for _, b := range paid {
		sold += b.Quantity
	}
	return &EventDetail{
		EventSummary: EventSummary{EventDTO: FromModel(event), TicketsSold: sold},
		Bookings:     bookings.FromModels(paid),
	}, nil
}

// Update applies the editable subset of input. Capacity may not drop below
// the number of tickets already paid for.
func (s *service) Update(ctx context.Context, hostID, eventID uuid.UUID, input UpdateEventInput) (*EventDTO, error) {
	var updated *models.Event
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		events := s.events.WithTx(tx)
		current, err := events.FindByIDForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Event not found")
			}
			return err
		}
		if current.HostID != hostID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Event not found")
		}

		allowed := editableColumns[current.Status]
		fields := map[string]any{}
		for column, value := range input.columns() {
			if allowed[column] {
				fields[column] = value
			}
		}
		if err := s.checkUpdate(ctx, s.bookings.WithTx(tx), current, input, fields); err != nil {
			return err
		}

		updated, err = events.Update(ctx, eventID, fields)
		return err
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update event")
	}
	dto := FromModel(updated)
	return &dto, nil
}

func (s *service) checkUpdate(ctx context.Context, bookingsRepo *bookings.Repository, current *models.Event, input UpdateEventInput, fields map[string]any) error {
	start := current.StartDateTime
	if _, ok := fields["start_date_time"]; ok {
		start = input.StartDateTime.UTC()
		if !start.After(s.now().UTC()) {
			return pkgerrors.New(pkgerrors.CodeValidation, "Event must be in the future").
				WithDetails(map[string]string{"start_date_time": "must be in the future"})
		}
	}
	if _, ok := fields["end_date_time"]; ok {
		if !input.EndDateTime.After(start) {
			return pkgerrors.New(pkgerrors.CodeValidation, "End time must be after start time").
				WithDetails(map[string]string{"end_date_time": "must be after start_date_time"})
		}
	}
	if status, ok := fields["status"]; ok && !status.(enums.EventStatus).IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "Invalid event status")
	}
	if _, ok := fields["capacity"]; ok {
		sold, err := bookingsRepo.SoldCount(ctx, current.ID)
		if err != nil {
			return err
		}
		if *input.Capacity < sold {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Capacity cannot be less than tickets sold (%d)", sold)).
				WithDetails(map[string]any{"capacity": *input.Capacity, "tickets_sold": sold})
		}
	}
	return nil
}

func (s *service) Delete(ctx context.Context, hostID, eventID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		events := s.events.WithTx(tx)
		event, err := events.FindOwned(ctx, hostID, eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Event not found")
			}
			return err
		}
		sold, err := s.bookings.WithTx(tx).SoldCount(ctx, event.ID)
		if err != nil {
			return err
		}
		if sold > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "Cannot delete event with paid bookings")
		}
		if err := events.DeleteUnpaidBookings(ctx, event.ID); err != nil {
			return err
		}
		return events.Delete(ctx, event.ID)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete event")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithEventID(ctx, eventID.String()), "event.deleted")
	}
	return nil
}

func (s *service) Calendar(ctx context.Context, hostID uuid.UUID) ([]CalendarEntry, error) {
	rows, err := s.events.ListCalendar(ctx, hostID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list calendar")
	}
	sold, err := s.bookings.SoldCounts(ctx, eventIDs(rows))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count tickets sold")
	}
	out := make([]CalendarEntry, 0, len(rows))
	for _, e := range rows {
		out = append(out, CalendarEntry{
			ID:            e.ID,
			Title:         e.Title,
			StartDateTime: e.StartDateTime,
			Status:        e.Status,
			City:          e.City,
			TicketsSold:   sold[e.ID],
			Capacity:      e.Capacity,
		})
	}
	return out, nil
}

func (s *service) ListPublic(ctx context.Context) ([]PublicEvent, error) {
	rows, err := s.events.ListPublishedUpcoming(ctx, uuid.Nil, s.now().UTC(), 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list public events")
	}
	sold, err := s.bookings.SoldCounts(ctx, eventIDs(rows))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count tickets sold")
	}
	out := make([]PublicEvent, 0, len(rows))
	for i := range rows {
		out = append(out, toPublic(&rows[i], sold[rows[i].ID]))
	}
	return out, nil
}

func (s *service) GetPublic(ctx context.Context, slug string) (*PublicEventDetail, error) {
	event, err := s.events.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	if event.Status != enums.EventStatusPublished {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Event not found")
	}
	sold, err := s.bookings.SoldCount(ctx, event.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count tickets sold")
	}
	closeAt := event.SalesCloseAt()
	return &PublicEventDetail{
		PublicEvent:      toPublic(event, sold),
		Address:          event.Address,
		Zip:              event.Zip,
		Capacity:         event.Capacity,
		TicketsSold:      sold,
		RefundPolicyText: event.RefundPolicyText,
		SalesCloseAt:     closeAt,
		SalesOpen:        s.now().Before(closeAt) && Remaining(event.Capacity, sold) > 0,
	}, nil
}

func (s *service) loadOwned(ctx context.Context, hostID, eventID uuid.UUID) (*models.Event, error) {
	event, err := s.events.FindOwned(ctx, hostID, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	return event, nil
}

func eventIDs(rows []models.Event) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, e := range rows {
		ids = append(ids, e.ID)
	}
	return ids
}

func blankToNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
