package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/easelhouse/paintsip-backend/internal/bookings"
	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
	"github.com/easelhouse/paintsip-backend/pkg/money"
)

// DefaultSalesCutoffHours applies when a new event omits the cutoff.
const DefaultSalesCutoffHours = 48

// CreateEventInput is the host's request to create an event.
type CreateEventInput struct {
	Title            string             `json:"title" validate:"required,min=3,max=100"`
	Description      *string            `json:"description" validate:"omitempty,max=2000"`
	StartDateTime    time.Time          `json:"start_date_time" validate:"required"`
	EndDateTime      *time.Time         `json:"end_date_time"`
	LocationName     string             `json:"location_name" validate:"required,min=2,max=200"`
	Address          string             `json:"address" validate:"required,min=5,max=300"`
	City             string             `json:"city" validate:"required,min=2,max=100"`
	State            string             `json:"state" validate:"required,len=2,alpha"`
	Zip              string             `json:"zip" validate:"required,uszip"`
	TicketPriceCents int64              `json:"ticket_price_cents" validate:"min=0,max=100000"`
	Capacity         int                `json:"capacity" validate:"required,min=1,max=1000"`
	SalesCutoffHours *int               `json:"sales_cutoff_hours" validate:"omitempty,min=0,max=168"`
	RefundPolicyText *string            `json:"refund_policy_text" validate:"omitempty,max=1000"`
	CanvasImageURL   *string            `json:"canvas_image_url" validate:"omitempty,url"`
	CanvasID         *string            `json:"canvas_id" validate:"omitempty,max=100"`
	Status           *enums.EventStatus `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED ENDED CANCELED"`
}

// UpdateEventInput carries a partial edit; nil fields are untouched.
type UpdateEventInput struct {
	Title            *string            `json:"title" validate:"omitempty,min=3,max=100"`
	Description      *string            `json:"description" validate:"omitempty,max=2000"`
	StartDateTime    *time.Time         `json:"start_date_time"`
	EndDateTime      *time.Time         `json:"end_date_time"`
	LocationName     *string            `json:"location_name" validate:"omitempty,min=2,max=200"`
	Address          *string            `json:"address" validate:"omitempty,min=5,max=300"`
	City             *string            `json:"city" validate:"omitempty,min=2,max=100"`
	State            *string            `json:"state" validate:"omitempty,len=2,alpha"`
	Zip              *string            `json:"zip" validate:"omitempty,uszip"`
	TicketPriceCents *int64             `json:"ticket_price_cents" validate:"omitempty,min=0,max=100000"`
	Capacity         *int               `json:"capacity" validate:"omitempty,min=1,max=1000"`
	SalesCutoffHours *int               `json:"sales_cutoff_hours" validate:"omitempty,min=0,max=168"`
	RefundPolicyText *string            `json:"refund_policy_text" validate:"omitempty,max=1000"`
	CanvasImageURL   *string            `json:"canvas_image_url" validate:"omitempty,url"`
	Status           *enums.EventStatus `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED ENDED CANCELED"`
}

// columns maps the set fields to their database columns.
func (in UpdateEventInput) columns() map[string]any {
	out := map[string]any{}
	if in.Title != nil {
		out["title"] = *in.Title
	}
	if in.Description != nil {
		out["description"] = *in.Description
	}
	if in.StartDateTime != nil {
		out["start_date_time"] = in.StartDateTime.UTC()
	}
	if in.EndDateTime != nil {
		out["end_date_time"] = in.EndDateTime.UTC()
	}
	if in.LocationName != nil {
		out["location_name"] = *in.LocationName
	}
	if in.Address != nil {
		out["address"] = *in.Address
	}
	if in.City != nil {
		out["city"] = *in.City
	}
	if in.State != nil {
		out["state"] = *in.State
	}
	if in.Zip != nil {
		out["zip"] = *in.Zip
	}
	if in.TicketPriceCents != nil {
		out["ticket_price_cents"] = *in.TicketPriceCents
	}
	if in.Capacity != nil {
		out["capacity"] = *in.Capacity
	}
	if in.SalesCutoffHours != nil {
		out["sales_cutoff_hours"] = *in.SalesCutoffHours
	}
	if in.RefundPolicyText != nil {
		out["refund_policy_text"] = *in.RefundPolicyText
	}
	if in.CanvasImageURL != nil {
		out["canvas_image_url"] = *in.CanvasImageURL
	}
	if in.Status != nil {
		out["status"] = *in.Status
	}
	return out
}

// EventDTO is the host-facing event representation.
type EventDTO struct {
	ID               uuid.UUID         `json:"id"`
	HostID           uuid.UUID         `json:"host_id"`
	CanvasID         *string           `json:"canvas_id,omitempty"`
	Title            string            `json:"title"`
	Slug             string            `json:"slug"`
	Description      *string           `json:"description,omitempty"`
	StartDateTime    time.Time         `json:"start_date_time"`
	EndDateTime      *time.Time        `json:"end_date_time,omitempty"`
	LocationName     string            `json:"location_name"`
	Address          string            `json:"address"`
	City             string            `json:"city"`
	State            string            `json:"state"`
	Zip              string            `json:"zip"`
	TicketPriceCents int64             `json:"ticket_price_cents"`
	Capacity         int               `json:"capacity"`
	SalesCutoffHours int               `json:"sales_cutoff_hours"`
	RefundPolicyText *string           `json:"refund_policy_text,omitempty"`
	CanvasImageURL   *string           `json:"canvas_image_url,omitempty"`
	Status           enums.EventStatus `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// EventSummary is an event with its paid ticket count.
type EventSummary struct {
	EventDTO
	TicketsSold int `json:"tickets_sold"`
}

// EventDetail adds the paid bookings for the owner view.
type EventDetail struct {
	EventSummary
	Bookings []bookings.BookingDTO `json:"bookings"`
}

// CalendarEntry is the compact calendar projection.
type CalendarEntry struct {
	ID            uuid.UUID         `json:"id"`
	Title         string            `json:"title"`
	StartDateTime time.Time         `json:"start_date_time"`
	Status        enums.EventStatus `json:"status"`
	City          string            `json:"city"`
	TicketsSold   int               `json:"tickets_sold"`
	Capacity      int               `json:"capacity"`
}

// PublicEvent is the listing shape shown to guests.
type PublicEvent struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	Description      *string    `json:"description,omitempty"`
	StartDateTime    time.Time  `json:"start_date_time"`
	EndDateTime      *time.Time `json:"end_date_time,omitempty"`
	LocationName     string     `json:"location_name"`
	City             string     `json:"city"`
	State            string     `json:"state"`
	TicketPriceCents int64      `json:"ticket_price_cents"`
	PriceDisplay     string     `json:"price_display"`
	CanvasImageURL   *string    `json:"canvas_image_url,omitempty"`
	Remaining        int        `json:"remaining"`
}

// PublicEventDetail is the event page shown to guests.
type PublicEventDetail struct {
	PublicEvent
	Address          string    `json:"address"`
	Zip              string    `json:"zip"`
	Capacity         int       `json:"capacity"`
	TicketsSold      int       `json:"tickets_sold"`
	RefundPolicyText *string   `json:"refund_policy_text,omitempty"`
	SalesCloseAt     time.Time `json:"sales_close_at"`
	SalesOpen        bool      `json:"sales_open"`
}

func FromModel(e *models.Event) EventDTO {
	return EventDTO{
		ID:               e.ID,
		HostID:           e.HostID,
		CanvasID:         e.CanvasID,
		Title:            e.Title,
		Slug:             e.Slug,
		Description:      e.Description,
		StartDateTime:    e.StartDateTime,
		EndDateTime:      e.EndDateTime,
		LocationName:     e.LocationName,
		Address:          e.Address,
		City:             e.City,
		State:            e.State,
		Zip:              e.Zip,
		TicketPriceCents: e.TicketPriceCents,
		Capacity:         e.Capacity,
		SalesCutoffHours: e.SalesCutoffHours,
		RefundPolicyText: e.RefundPolicyText,
		CanvasImageURL:   e.CanvasImageURL,
		Status:           e.Status,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func toPublic(e *models.Event, sold int) PublicEvent {
	return PublicEvent{
		ID:               e.ID,
		Title:            e.Title,
		Slug:             e.Slug,
		Description:      e.Description,
		StartDateTime:    e.StartDateTime,
		EndDateTime:      e.EndDateTime,
		LocationName:     e.LocationName,
		City:             e.City,
		State:            e.State,
		TicketPriceCents: e.TicketPriceCents,
		PriceDisplay:     money.FormatUSD(e.TicketPriceCents),
		CanvasImageURL:   e.CanvasImageURL,
		Remaining:        Remaining(e.Capacity, sold),
	}
}

// Remaining is capacity minus sold, floored at zero.
func Remaining(capacity, sold int) int {
	if sold >= capacity {
		return 0
	}
	return capacity - sold
}
