package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
)

// Repository persists bookings. Status changes go through conditional updates
// so concurrent notifications cannot move a booking backwards.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if booking.Status == "" {
		booking.Status = enums.BookingStatusPending
	}
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *Repository) FindBySessionID(ctx context.Context, sessionID string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Where("checkout_session_id = ?", sessionID).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *Repository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// SetCheckoutSession links a pending booking to its hosted checkout session.
func (r *Repository) SetCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		UpdateColumn("checkout_session_id", sessionID).Error
}

// MarkPaidBySession moves a PENDING booking to PAID and records the payment intent.
// It returns the number of rows changed; zero means nothing was pending.
func (r *Repository) MarkPaidBySession(ctx context.Context, sessionID string, paymentIntentID *string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("checkout_session_id = ? AND status = ?", sessionID, enums.BookingStatusPending).
		Updates(map[string]any{
			"status":            enums.BookingStatusPaid,
			"payment_intent_id": paymentIntentID,
			"updated_at":        time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// CancelPendingBySession cancels a booking only while it is still PENDING.
func (r *Repository) CancelPendingBySession(ctx context.Context, sessionID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("checkout_session_id = ? AND status = ?", sessionID, enums.BookingStatusPending).
		Updates(map[string]any{
			"status":     enums.BookingStatusCanceled,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// RefundByPaymentIntent marks PAID bookings for the payment intent as REFUNDED.
func (r *Repository) RefundByPaymentIntent(ctx context.Context, paymentIntentID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("payment_intent_id = ? AND status = ?", paymentIntentID, enums.BookingStatusPaid).
		Updates(map[string]any{
			"status":     enums.BookingStatusRefunded,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// CancelPendingByID cancels one booking if it is still PENDING.
func (r *Repository) CancelPendingByID(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, enums.BookingStatusPending).
		Updates(map[string]any{
			"status":     enums.BookingStatusCanceled,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// ListStalePending returns PENDING bookings created before cutoff, oldest first.
func (r *Repository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	var rows []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.BookingStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// SoldCount sums quantity across PAID bookings for one event.
func (r *Repository) SoldCount(ctx context.Context, eventID uuid.UUID) (int, error) {
	var sold int64
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("event_id = ? AND status = ?", eventID, enums.BookingStatusPaid).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sold).Error
	return int(sold), err
}

type soldRow struct {
	EventID uuid.UUID
	Sold    int64
}

// SoldCounts returns PAID quantity per event; events without sales are absent.
func (r *Repository) SoldCounts(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	var rows []soldRow
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Select("event_id, COALESCE(SUM(quantity), 0) AS sold").
		Where("event_id IN ? AND status = ?", eventIDs, enums.BookingStatusPaid).
		Group("event_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.EventID] = int(row.Sold)
	}
	return out, nil
}

// ListPaidForEvent returns PAID bookings for an event, newest first.
func (r *Repository) ListPaidForEvent(ctx context.Context, eventID uuid.UUID) ([]models.Booking, error) {
	var rows []models.Booking
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID, enums.BookingStatusPaid).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// HostBooking is a booking joined with the owning event's display fields.
type HostBooking struct {
	models.Booking
	EventTitle         string    `gorm:"column:event_title"`
	EventStartDateTime time.Time `gorm:"column:event_start_date_time"`
}

// ListForHost returns bookings across the host's events, newest first.
func (r *Repository) ListForHost(ctx context.Context, hostID uuid.UUID, status *enums.BookingStatus, limit int) ([]HostBooking, error) {
	q := r.db.WithContext(ctx).
		Table("bookings").
		Select("bookings.*, events.title AS event_title, events.start_date_time AS event_start_date_time").
		Joins("JOIN events ON events.id = bookings.event_id").
		Where("events.host_id = ?", hostID)
	if status != nil {
		q = q.Where("bookings.status = ?", *status)
	}
	var rows []HostBooking
	err := q.Order("bookings.created_at DESC").Limit(limit).Scan(&rows).Error
	return rows, err
}

// HostTotals aggregates PAID bookings across a host's events.
type HostTotals struct {
	PaidBookings int64
	TicketsSold  int64
	RevenueCents int64
}

func (r *Repository) HostTotals(ctx context.Context, hostID uuid.UUID) (HostTotals, error) {
	var totals HostTotals
	err := r.db.WithContext(ctx).
		Table("bookings").
		Select("COUNT(bookings.id) AS paid_bookings, COALESCE(SUM(bookings.quantity), 0) AS tickets_sold, COALESCE(SUM(bookings.amount_paid_cents), 0) AS revenue_cents").
		Joins("JOIN events ON events.id = bookings.event_id").
		Where("events.host_id = ? AND bookings.status = ?", hostID, enums.BookingStatusPaid).
		Scan(&totals).Error
	return totals, err
}
