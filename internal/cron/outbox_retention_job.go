package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easelhouse/paintsip-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultDLQRetention    = 90 * 24 * time.Hour
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	// DLQ is optional; without it parked rows are kept forever.
	DLQ          dlqRetentionRepo
	Retention    time.Duration
	DLQRetention time.Duration
}

// NewOutboxRetentionJob prunes published outbox rows and, when a DLQ
// repository is given, old dead-letter rows. Unpublished rows are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	return &outboxRetentionJob{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		dlq:          params.DLQ,
		retention:    positiveOr(params.Retention, defaultOutboxRetention),
		dlqRetention: positiveOr(params.DLQRetention, defaultDLQRetention),
		now:          time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	repo         outboxRetentionRepo
	dlq          dlqRetentionRepo
	retention    time.Duration
	dlqRetention time.Duration
	now          func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.retention)
	dlqCutoff := now.Add(-j.dlqRetention)

	var published, parked int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if published, err = j.repo.DeletePublishedBefore(tx, cutoff); err != nil {
			return fmt.Errorf("published rows: %w", err)
		}
		if j.dlq == nil {
			return nil
		}
		if parked, err = j.dlq.DeleteFailedBefore(tx, dlqCutoff); err != nil {
			return fmt.Errorf("dlq rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":            cutoff,
		"published_deleted": published,
		"dlq_cutoff":        dlqCutoff,
		"dlq_deleted":       parked,
	}), "cron.outbox_retention_done")
	return nil
}

func positiveOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
