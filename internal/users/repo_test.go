package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/easelhouse/paintsip-backend/pkg/db/dbtest"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{Name: " Ana ", Email: "Ana@Example.com ", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, "Ana", user.Name)

	found, err := repo.FindByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, enums.OnboardingStatusNotStarted, found.StripeOnboardingStatus)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, byID.StripeAccountID)
}

func TestAttachStripeAccountOnlyOnce(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	user, err := repo.Create(ctx, CreateUserDTO{Name: "Host", Email: "host@example.com", PasswordHash: "hash"})
	require.NoError(t, err)

	ok, err := repo.AttachStripeAccount(ctx, user.ID, "acct_1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AttachStripeAccount(ctx, user.ID, "acct_2")
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.FindByStripeAccountID(ctx, "acct_1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestSaveSnapshotAndSyncCandidates(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	stale, err := repo.Create(ctx, CreateUserDTO{Name: "Stale", Email: "stale@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	fresh, err := repo.Create(ctx, CreateUserDTO{Name: "Fresh", Email: "fresh@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, CreateUserDTO{Name: "None", Email: "none@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = repo.AttachStripeAccount(ctx, stale.ID, "acct_stale")
	require.NoError(t, err)
	_, err = repo.AttachStripeAccount(ctx, fresh.ID, "acct_fresh")
	require.NoError(t, err)

	require.NoError(t, repo.SaveStripeSnapshot(ctx, fresh.ID, StripeSnapshot{
		Status:       enums.OnboardingStatusInProgress,
		Requirements: datatypes.JSON(`{"currently_due":[]}`),
		SyncedAt:     now,
	}))

	rows, err := repo.ListStripeSyncCandidates(ctx, now.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.ID, rows[0].ID)

	require.NoError(t, repo.MarkStripeDisconnected(ctx, stale.ID, now))
	rows, err = repo.ListStripeSyncCandidates(ctx, now.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, fresh.ID, rows[0].ID)

	got, err := repo.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OnboardingStatusNotStarted, got.StripeOnboardingStatus)
	assert.Nil(t, got.StripeAccountID)
	assert.NotNil(t, got.StripeDisconnectedAt)
}
