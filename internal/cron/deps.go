package cron

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/easelhouse/paintsip-backend/internal/bookings"
	"github.com/easelhouse/paintsip-backend/pkg/db/models"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEnder interface {
	EndElapsed(ctx context.Context, now time.Time) (int64, error)
}

type stalePendingReader interface {
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error)
}

type staleExpirer interface {
	ExpireStale(ctx context.Context, booking models.Booking) (bookings.Outcome, error)
}

type accountRefresher interface {
	RefreshStale(ctx context.Context, staleBefore time.Time, limit int) (int, error)
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteFailedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}
