package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/easelhouse/paintsip-backend/internal/users"
	"github.com/easelhouse/paintsip-backend/pkg/config"
	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
	"github.com/easelhouse/paintsip-backend/pkg/outbox"
	"github.com/easelhouse/paintsip-backend/pkg/outbox/payloads"
)

// StripeGateway is the slice of the provider client used for connected accounts.
type StripeGateway interface {
	CreateAccount(ctx context.Context, params *stripe.AccountParams) (*stripe.Account, error)
	GetAccount(ctx context.Context, accountID string) (*stripe.Account, error)
	CreateAccountSession(ctx context.Context, params *stripe.AccountSessionParams) (*stripe.AccountSession, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AccountStatus is the cached connected-account view returned to hosts.
type AccountStatus struct {
	AccountID        *string                `json:"account_id"`
	OnboardingStatus enums.OnboardingStatus `json:"onboarding_status"`
	DetailsSubmitted bool                   `json:"details_submitted"`
	ChargesEnabled   bool                   `json:"charges_enabled"`
	PayoutsEnabled   bool                   `json:"payouts_enabled"`
	Requirements     datatypes.JSON         `json:"requirements"`
	DisabledReason   *string                `json:"disabled_reason"`
	LastSyncedAt     *time.Time             `json:"last_synced_at"`
}

// Service owns connected-account provisioning and the cached onboarding status.
type Service interface {
	GetAccountStatus(ctx context.Context, userID uuid.UUID) (*AccountStatus, error)
	CreateAccountSession(ctx context.Context, userID uuid.UUID, mode enums.AccountSessionMode) (string, error)
	EnsureConnectedAccount(ctx context.Context, userID uuid.UUID) (string, error)
	SyncAccount(ctx context.Context, acct *stripe.Account, actor *outbox.ActorRef) error
	Disconnect(ctx context.Context, accountID string) error
	RefreshStale(ctx context.Context, staleBefore time.Time, limit int) (int, error)
}

type ServiceParams struct {
	Users  *users.Repository
	Stripe StripeGateway
	Tx     txRunner
	Outbox outbox.Emitter
	Config config.StripeConfig
	Logger *logger.Logger
	Clock  func() time.Time
}

type service struct {
	users  *users.Repository
	stripe StripeGateway
	tx     txRunner
	outbox outbox.Emitter
	cfg    config.StripeConfig
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, errors.New("users repository required")
	}
	if params.Stripe == nil {
		return nil, errors.New("stripe gateway required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		users:  params.Users,
		stripe: params.Stripe,
		tx:     params.Tx,
		outbox: params.Outbox,
		cfg:    params.Config,
		logg:   params.Logger,
		now:    clock,
	}, nil
}

// GetAccountStatus refreshes the cache from the provider when an account exists
// and returns the stored row.
func (s *service) GetAccountStatus(ctx context.Context, userID uuid.UUID) (*AccountStatus, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.StripeAccountID == nil || *user.StripeAccountID == "" {
		return statusFromUser(user), nil
	}

	acct, err := s.stripe.GetAccount(ctx, *user.StripeAccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve connected account")
	}
	actor := &outbox.ActorRef{UserID: &user.ID, Source: outbox.ActorSourceHost}
	if err := s.syncUser(ctx, user, acct, actor); err != nil {
		return nil, err
	}

	refreshed, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return statusFromUser(refreshed), nil
}

func (s *service) CreateAccountSession(ctx context.Context, userID uuid.UUID, mode enums.AccountSessionMode) (string, error) {
	accountID, err := s.EnsureConnectedAccount(ctx, userID)
	if err != nil {
		return "", err
	}
	if !mode.IsValid() {
		mode = enums.AccountSessionModeOnboarding
	}

	session, err := s.stripe.CreateAccountSession(ctx, BuildSessionParams(accountID, mode))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account session")
	}
	if session == nil || session.ClientSecret == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "account session missing client secret")
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"user_id":           userID.String(),
			"stripe_account_id": accountID,
			"session_mode":      mode.String(),
		})
		s.logg.Info(ctx, "stripe.account_session.created")
	}
	return session.ClientSecret, nil
}

// EnsureConnectedAccount returns the host's connected account, creating an
// Express account on first use.
func (s *service) EnsureConnectedAccount(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.StripeAccountID != nil && *user.StripeAccountID != "" {
		return *user.StripeAccountID, nil
	}

	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(user.Email),
		BusinessProfile: &stripe.AccountBusinessProfileParams{
			URL:                stripe.String(s.cfg.BusinessURL),
			ProductDescription: stripe.String(s.cfg.ProductDescription),
		},
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.AddMetadata("user_id", user.ID.String())

	acct, err := s.stripe.CreateAccount(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create connected account")
	}
	if acct == nil || acct.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "connected account missing id")
	}

	attached, err := s.users.AttachStripeAccount(ctx, user.ID, acct.ID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist connected account")
	}
	if attached {
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "stripe_account_id", acct.ID), "stripe.account.created")
		}
		return acct.ID, nil
	}

	// A concurrent request stored its account first; use that one.
	winner, err := s.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if winner.StripeAccountID == nil {
		return "", pkgerrors.New(pkgerrors.CodeConflict, "connected account provisioning raced")
	}
	if s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"orphan_account_id": acct.ID,
			"stripe_account_id": *winner.StripeAccountID,
		}), "stripe.account.orphaned")
	}
	return *winner.StripeAccountID, nil
}

// SyncAccount writes provider account state back to the owning host. Accounts
// with no matching host are ignored.
func (s *service) SyncAccount(ctx context.Context, acct *stripe.Account, actor *outbox.ActorRef) error {
	if acct == nil || acct.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	user, err := s.users.FindByStripeAccountID(ctx, acct.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "stripe_account_id", acct.ID), "stripe.account.unknown")
			}
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load host by account")
	}
	return s.syncUser(ctx, user, acct, actor)
}

// Disconnect handles a host revoking platform access.
func (s *service) Disconnect(ctx context.Context, accountID string) error {
	if accountID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	user, err := s.users.FindByStripeAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load host by account")
	}

	now := s.now().UTC()
	previous := user.StripeOnboardingStatus
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).MarkStripeDisconnected(ctx, user.ID, now); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventHostAccountStatusChanged,
			AggregateType: enums.AggregateHostAccount,
			AggregateID:   user.ID,
			Actor:         outbox.SystemActor(outbox.ActorSourceWebhook),
			OccurredAt:    now,
			Data: payloads.HostAccountStatusChangedEvent{
				UserID:          user.ID,
				StripeAccountID: accountID,
				PreviousStatus:  previous,
				Status:          enums.OnboardingStatusNotStarted,
				Disconnected:    true,
				SyncedAt:        now,
			},
		})
	})
}

// RefreshStale resyncs hosts whose cached status is older than staleBefore.
// Provider failures for one host are logged and do not stop the batch.
func (s *service) RefreshStale(ctx context.Context, staleBefore time.Time, limit int) (int, error) {
	candidates, err := s.users.ListStripeSyncCandidates(ctx, staleBefore, limit)
	if err != nil {
		return 0, err
	}
	refreshed := 0
	for i := range candidates {
		user := &candidates[i]
		acct, err := s.stripe.GetAccount(ctx, *user.StripeAccountID)
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
					"stripe_account_id": *user.StripeAccountID,
					"error":             err.Error(),
				}), "stripe.account.refresh_failed")
			}
			continue
		}
		if err := s.syncUser(ctx, user, acct, outbox.SystemActor(outbox.ActorSourceCron)); err != nil {
			return refreshed, err
		}
		refreshed++
	}
	return refreshed, nil
}

func (s *service) syncUser(ctx context.Context, user *models.User, acct *stripe.Account, actor *outbox.ActorRef) error {
	snap := SnapshotFromAccount(acct)
	status, rule := deriveWithRule(snap)
	reqs, err := requirementsJSON(snap.Requirements)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode requirements")
	}
	var disabled *string
	if snap.DisabledReason != "" {
		reason := snap.DisabledReason
		disabled = &reason
	}
	now := s.now().UTC()
	previous := user.StripeOnboardingStatus
	changed := previous != status ||
		user.StripeChargesEnabled != snap.ChargesEnabled ||
		user.StripePayoutsEnabled != snap.PayoutsEnabled

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).SaveStripeSnapshot(ctx, user.ID, users.StripeSnapshot{
			Status:           status,
			DetailsSubmitted: snap.DetailsSubmitted,
			ChargesEnabled:   snap.ChargesEnabled,
			PayoutsEnabled:   snap.PayoutsEnabled,
			Requirements:     datatypes.JSON(reqs),
			DisabledReason:   disabled,
			SyncedAt:         now,
		}); err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventHostAccountStatusChanged,
			AggregateType: enums.AggregateHostAccount,
			AggregateID:   user.ID,
			Actor:         actor,
			OccurredAt:    now,
			Data: payloads.HostAccountStatusChangedEvent{
				UserID:          user.ID,
				StripeAccountID: acct.ID,
				PreviousStatus:  previous,
				Status:          status,
				ChargesEnabled:  snap.ChargesEnabled,
				PayoutsEnabled:  snap.PayoutsEnabled,
				SyncedAt:        now,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist onboarding status")
	}
	if changed && s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"user_id":           user.ID.String(),
			"stripe_account_id": acct.ID,
			"previous_status":   previous.String(),
			"status":            status.String(),
			"status_rule":       rule,
		}), "stripe.account.status_changed")
	}
	return nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

func statusFromUser(u *models.User) *AccountStatus {
	reqs := u.StripeRequirements
	if len(reqs) == 0 {
		reqs = datatypes.JSON(`null`)
	}
	return &AccountStatus{
		AccountID:        u.StripeAccountID,
		OnboardingStatus: u.StripeOnboardingStatus,
		DetailsSubmitted: u.StripeDetailsSubmitted,
		ChargesEnabled:   u.StripeChargesEnabled,
		PayoutsEnabled:   u.StripePayoutsEnabled,
		Requirements:     reqs,
		DisabledReason:   u.StripeDisabledReason,
		LastSyncedAt:     u.StripeLastSyncedAt,
	}
}
