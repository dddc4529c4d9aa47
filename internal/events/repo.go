package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
)

// Repository persists hosted events.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// FindByIDForUpdate loads the event holding a row lock until the transaction ends.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&event, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// FindOwned loads an event only when hostID owns it.
func (r *Repository) FindOwned(ctx context.Context, hostID, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Where("id = ? AND host_id = ?", id, hostID).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Event{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// ListForHost returns the host's events, latest start first.
func (r *Repository) ListForHost(ctx context.Context, hostID uuid.UUID) ([]models.Event, error) {
	var rows []models.Event
	err := r.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("start_date_time DESC").
		Find(&rows).Error
	return rows, err
}

// ListCalendar returns the host's events in start order.
func (r *Repository) ListCalendar(ctx context.Context, hostID uuid.UUID) ([]models.Event, error) {
	var rows []models.Event
	err := r.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("start_date_time ASC").
		Find(&rows).Error
	return rows, err
}

// ListPublishedUpcoming returns published events starting after now, soonest
// first. A zero hostID lists across all hosts.
func (r *Repository) ListPublishedUpcoming(ctx context.Context, hostID uuid.UUID, now time.Time, limit int) ([]models.Event, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND start_date_time > ?", enums.EventStatusPublished, now)
	if hostID != uuid.Nil {
		q = q.Where("host_id = ?", hostID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.Event
	err := q.Order("start_date_time ASC").Find(&rows).Error
	return rows, err
}

// Update writes the given columns and returns the refreshed row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Event, error) {
	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		if err := r.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return nil, err
		}
	}
	return r.FindByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Event{}, "id = ?", id).Error
}

// DeleteUnpaidBookings removes bookings that never settled so the event row can go.
func (r *Repository) DeleteUnpaidBookings(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("event_id = ? AND status <> ?", eventID, enums.BookingStatusPaid).
		Delete(&models.Booking{}).Error
}

// StatusCounts returns the number of the host's events per status.
func (r *Repository) StatusCounts(ctx context.Context, hostID uuid.UUID) (map[enums.EventStatus]int64, error) {
	type row struct {
		Status enums.EventStatus
		Total  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Select("status, COUNT(*) AS total").
		Where("host_id = ?", hostID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.EventStatus]int64, len(rows))
	for _, rw := range rows {
		out[rw.Status] = rw.Total
	}
	return out, nil
}

// EndElapsed moves PUBLISHED events whose end (or start when no end is set)
// is before now to ENDED.
func (r *Repository) EndElapsed(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("status = ?", enums.EventStatusPublished).
		Where("COALESCE(end_date_time, start_date_time) < ?", now).
		Updates(map[string]any{
			"status":     enums.EventStatusEnded,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}
