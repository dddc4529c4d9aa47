package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/easelhouse/paintsip-backend/pkg/enums"
)

// User is a host who runs events and receives payouts through a connected account.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string     `gorm:"column:name;not null"`
	Email        string     `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`

	StripeAccountID        *string                `gorm:"column:stripe_account_id;uniqueIndex"`
	StripeOnboardingStatus enums.OnboardingStatus `gorm:"column:stripe_onboarding_status;type:text;not null;default:NOT_STARTED"`
	StripeDetailsSubmitted bool                   `gorm:"column:stripe_details_submitted;not null;default:false"`
	StripeChargesEnabled   bool                   `gorm:"column:stripe_charges_enabled;not null;default:false"`
	StripePayoutsEnabled   bool                   `gorm:"column:stripe_payouts_enabled;not null;default:false"`
	StripeRequirements     datatypes.JSON         `gorm:"column:stripe_requirements;type:jsonb"`
	StripeDisabledReason   *string                `gorm:"column:stripe_disabled_reason"`
	StripeLastSyncedAt     *time.Time             `gorm:"column:stripe_last_synced_at"`
	StripeDisconnectedAt   *time.Time             `gorm:"column:stripe_disconnected_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
