package bookings

import (
	"time"

	"github.com/google/uuid"

	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
)

// BookingDTO is the host-facing view of a booking.
type BookingDTO struct {
	ID                uuid.UUID           `json:"id"`
	EventID           uuid.UUID           `json:"event_id"`
	PurchaserName     string              `json:"purchaser_name"`
	PurchaserEmail    string              `json:"purchaser_email"`
	Quantity          int                 `json:"quantity"`
	AmountPaidCents   int64               `json:"amount_paid_cents"`
	Status            enums.BookingStatus `json:"status"`
	CheckoutSessionID *string             `json:"checkout_session_id,omitempty"`
	PaymentIntentID   *string             `json:"payment_intent_id,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// HostBookingDTO adds the owning event's title and start time.
type HostBookingDTO struct {
	BookingDTO
	EventTitle         string    `json:"event_title"`
	EventStartDateTime time.Time `json:"event_start_date_time"`
}

func FromModel(b *models.Booking) BookingDTO {
	return BookingDTO{
		ID:                b.ID,
		EventID:           b.EventID,
		PurchaserName:     b.PurchaserName,
		PurchaserEmail:    b.PurchaserEmail,
		Quantity:          b.Quantity,
		AmountPaidCents:   b.AmountPaidCents,
		Status:            b.Status,
		CheckoutSessionID: b.CheckoutSessionID,
		PaymentIntentID:   b.PaymentIntentID,
		CreatedAt:         b.CreatedAt,
	}
}

func FromModels(rows []models.Booking) []BookingDTO {
	out := make([]BookingDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}

func FromHostRows(rows []HostBooking) []HostBookingDTO {
	out := make([]HostBookingDTO, 0, len(rows))
	for i := range rows {
		out = append(out, HostBookingDTO{
			BookingDTO:         FromModel(&rows[i].Booking),
			EventTitle:         rows[i].EventTitle,
			EventStartDateTime: rows[i].EventStartDateTime,
		})
	}
	return out
}
