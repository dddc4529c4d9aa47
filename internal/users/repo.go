package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
)

// Repository persists host accounts and their cached Stripe Connect state.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) first(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) update(ctx context.Context, id uuid.UUID, values map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(values).Error
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail matches on the normalized address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", NormalizeEmail(email))
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByStripeAccountID resolves the host that owns a connected account.
func (r *Repository) FindByStripeAccountID(ctx context.Context, accountID string) (*models.User, error) {
	return r.first(ctx, "stripe_account_id = ?", accountID)
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, id, map[string]any{"last_login_at": at})
}

// UpdatePasswordHash stores a hash re-encoded under new argon2 parameters.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.update(ctx, id, map[string]any{"password_hash": hash})
}

// AttachStripeAccount sets the connected account only when none is stored
// yet. It reports false when another request won the race.
func (r *Repository) AttachStripeAccount(ctx context.Context, id uuid.UUID, accountID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND stripe_account_id IS NULL", id).
		Updates(map[string]any{
			"stripe_account_id":        accountID,
			"stripe_onboarding_status": enums.OnboardingStatusNotStarted,
			"stripe_disconnected_at":   nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SaveStripeSnapshot overwrites the cached connected-account state.
func (r *Repository) SaveStripeSnapshot(ctx context.Context, id uuid.UUID, snap StripeSnapshot) error {
	return r.update(ctx, id, map[string]any{
		"stripe_onboarding_status": snap.Status,
		"stripe_details_submitted": snap.DetailsSubmitted,
		"stripe_charges_enabled":   snap.ChargesEnabled,
		"stripe_payouts_enabled":   snap.PayoutsEnabled,
		"stripe_requirements":      snap.Requirements,
		"stripe_disabled_reason":   snap.DisabledReason,
		"stripe_last_synced_at":    snap.SyncedAt,
	})
}

// MarkStripeDisconnected records that the host revoked platform access. The
// account id is cleared so the next session request provisions a new one.
func (r *Repository) MarkStripeDisconnected(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"stripe_account_id":        nil,
		"stripe_onboarding_status": enums.OnboardingStatusNotStarted,
		"stripe_details_submitted": false,
		"stripe_charges_enabled":   false,
		"stripe_payouts_enabled":   false,
		"stripe_disabled_reason":   nil,
		"stripe_disconnected_at":   at,
		"stripe_last_synced_at":    at,
	})
}

// ListStripeSyncCandidates returns connected hosts whose cached state is
// older than staleBefore and not yet COMPLETE, oldest first.
func (r *Repository) ListStripeSyncCandidates(ctx context.Context, staleBefore time.Time, limit int) ([]models.User, error) {
	var rows []models.User
	err := r.db.WithContext(ctx).
		Where("stripe_account_id IS NOT NULL AND stripe_disconnected_at IS NULL").
		Where("stripe_onboarding_status <> ?", enums.OnboardingStatusComplete).
		Where("stripe_last_synced_at IS NULL OR stripe_last_synced_at < ?", staleBefore).
		Order("stripe_last_synced_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
