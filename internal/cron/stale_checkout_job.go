package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/easelhouse/paintsip-backend/pkg/logger"
)

const (
	defaultPendingTTL = 25 * time.Hour
	staleSweepBatch   = 200
)

type StaleCheckoutJobParams struct {
	Logger     *logger.Logger
	Bookings   stalePendingReader
	Lifecycle  staleExpirer
	PendingTTL time.Duration
	BatchSize  int
}

// NewStaleCheckoutJob builds the sweep that cancels PENDING bookings whose
// checkout sessions can no longer complete. Stripe sessions expire after 24h,
// so the default TTL leaves an hour for the expiry webhook to arrive first.
func NewStaleCheckoutJob(params StaleCheckoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if params.Lifecycle == nil {
		return nil, fmt.Errorf("booking lifecycle required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = staleSweepBatch
	}
	return &staleCheckoutJob{
		logg:      params.Logger,
		bookings:  params.Bookings,
		lifecycle: params.Lifecycle,
		ttl:       ttl,
		batch:     batch,
		now:       time.Now,
	}, nil
}

type staleCheckoutJob struct {
	logg      *logger.Logger
	bookings  stalePendingReader
	lifecycle staleExpirer
	ttl       time.Duration
	batch     int
	now       func() time.Time
}

func (j *staleCheckoutJob) Name() string { return "stale-checkout-sweep" }

func (j *staleCheckoutJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.bookings.ListStalePending(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query stale bookings: %w", err)
	}

	var errs error
	canceled := 0
	for _, booking := range stale {
		out, err := j.lifecycle.ExpireStale(ctx, booking)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire booking %s: %w", booking.ID, err))
			continue
		}
		if out.Applied {
			canceled++
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"scanned":  len(stale),
		"canceled": canceled,
		"failures": len(multierr.Errors(errs)),
	}), "stale checkout sweep complete")
	return errs
}
