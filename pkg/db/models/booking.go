package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/easelhouse/paintsip-backend/pkg/enums"
)

// Booking is one purchase of one or more seats for an event.
type Booking struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID           uuid.UUID           `gorm:"column:event_id;type:uuid;not null;index"`
	PurchaserName     string              `gorm:"column:purchaser_name;not null"`
	PurchaserEmail    string              `gorm:"column:purchaser_email;not null"`
	Quantity          int                 `gorm:"column:quantity;not null"`
	AmountPaidCents   int64               `gorm:"column:amount_paid_cents;not null"`
	Status            enums.BookingStatus `gorm:"column:status;type:text;not null;default:PENDING"`
	CheckoutSessionID *string             `gorm:"column:checkout_session_id;uniqueIndex"`
	PaymentIntentID   *string             `gorm:"column:payment_intent_id;index"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
