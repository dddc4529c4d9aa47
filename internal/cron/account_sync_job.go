package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/easelhouse/paintsip-backend/pkg/logger"
)

const (
	defaultAccountSyncMaxAge = 6 * time.Hour
	defaultAccountSyncBatch  = 50
)

type AccountSyncJobParams struct {
	Logger    *logger.Logger
	Payouts   accountRefresher
	MaxAge    time.Duration
	BatchSize int
}

// NewAccountSyncJob builds the job that refreshes cached connected account
// status for hosts whose last sync is older than MaxAge.
func NewAccountSyncJob(params AccountSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payouts == nil {
		return nil, fmt.Errorf("payouts service required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultAccountSyncMaxAge
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultAccountSyncBatch
	}
	return &accountSyncJob{
		logg:    params.Logger,
		payouts: params.Payouts,
		maxAge:  maxAge,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type accountSyncJob struct {
	logg    *logger.Logger
	payouts accountRefresher
	maxAge  time.Duration
	batch   int
	now     func() time.Time
}

func (j *accountSyncJob) Name() string { return "account-status-sync" }

func (j *accountSyncJob) Run(ctx context.Context) error {
	staleBefore := j.now().UTC().Add(-j.maxAge)
	refreshed, err := j.payouts.RefreshStale(ctx, staleBefore, j.batch)
	if err != nil {
		return fmt.Errorf("refresh account status: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"stale_before": staleBefore,
		"refreshed":    refreshed,
	}), "account status sync complete")
	return nil
}
