package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID                     uuid.UUID              `json:"id"`
	Name                   string                 `json:"name"`
	Email                  string                 `json:"email"`
	LastLoginAt            *time.Time             `json:"last_login_at,omitempty"`
	StripeAccountID        *string                `json:"stripe_account_id,omitempty"`
	StripeOnboardingStatus enums.OnboardingStatus `json:"stripe_onboarding_status"`
	CreatedAt              time.Time              `json:"created_at"`
	UpdatedAt              time.Time              `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
}

// StripeSnapshot is the cached connected-account state written back after a sync.
type StripeSnapshot struct {
	Status           enums.OnboardingStatus
	DetailsSubmitted bool
	ChargesEnabled   bool
	PayoutsEnabled   bool
	Requirements     datatypes.JSON
	DisabledReason   *string
	SyncedAt         time.Time
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:                     u.ID,
		Name:                   u.Name,
		Email:                  u.Email,
		LastLoginAt:            u.LastLoginAt,
		StripeAccountID:        u.StripeAccountID,
		StripeOnboardingStatus: u.StripeOnboardingStatus,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
}

func (dto CreateUserDTO) ToModel() *models.User {
	return &models.User{
		ID:                     uuid.New(),
		Name:                   strings.TrimSpace(dto.Name),
		Email:                  NormalizeEmail(dto.Email),
		PasswordHash:           dto.PasswordHash,
		StripeOnboardingStatus: enums.OnboardingStatusNotStarted,
	}
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
