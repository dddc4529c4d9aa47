package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/easelhouse/paintsip-backend/pkg/enums"
)

// BookingEvent is shared by every booking lifecycle event.
type BookingEvent struct {
	BookingID         uuid.UUID           `json:"booking_id"`
	EventID           uuid.UUID           `json:"event_id"`
	Status            enums.BookingStatus `json:"status"`
	Quantity          int                 `json:"quantity"`
	AmountPaidCents   int64               `json:"amount_paid_cents"`
	PurchaserEmail    string              `json:"purchaser_email"`
	CheckoutSessionID *string             `json:"checkout_session_id,omitempty"`
	PaymentIntentID   *string             `json:"payment_intent_id,omitempty"`
	Reason            string              `json:"reason,omitempty"`
}

// HostAccountStatusChangedEvent is emitted when a host's cached Connect status moves.
type HostAccountStatusChangedEvent struct {
	UserID          uuid.UUID              `json:"user_id"`
	StripeAccountID string                 `json:"stripe_account_id,omitempty"`
	PreviousStatus  enums.OnboardingStatus `json:"previous_status"`
	Status          enums.OnboardingStatus `json:"status"`
	ChargesEnabled  bool                   `json:"charges_enabled"`
	PayoutsEnabled  bool                   `json:"payouts_enabled"`
	Disconnected    bool                   `json:"disconnected"`
	SyncedAt        time.Time              `json:"synced_at"`
}
