package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/easelhouse/paintsip-backend/pkg/enums"
)

// Event is a ticketed painting session owned by a host.
type Event struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	HostID           uuid.UUID         `gorm:"column:host_id;type:uuid;not null;index"`
	CanvasID         *string           `gorm:"column:canvas_id"`
	Title            string            `gorm:"column:title;not null"`
	Slug             string            `gorm:"column:slug;not null;uniqueIndex"`
	Description      *string           `gorm:"column:description"`
	StartDateTime    time.Time         `gorm:"column:start_date_time;not null"`
	EndDateTime      *time.Time        `gorm:"column:end_date_time"`
	LocationName     string            `gorm:"column:location_name;not null"`
	Address          string            `gorm:"column:address;not null"`
	City             string            `gorm:"column:city;not null"`
	State            string            `gorm:"column:state;not null"`
	Zip              string            `gorm:"column:zip;not null"`
	TicketPriceCents int64             `gorm:"column:ticket_price_cents;not null"`
	Capacity         int               `gorm:"column:capacity;not null"`
	SalesCutoffHours int               `gorm:"column:sales_cutoff_hours;not null;default:48"`
	RefundPolicyText *string           `gorm:"column:refund_policy_text"`
	CanvasImageURL   *string           `gorm:"column:canvas_image_url"`
	Status           enums.EventStatus `gorm:"column:status;type:text;not null;default:DRAFT"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// SalesCloseAt is the instant after which checkout is refused.
func (e Event) SalesCloseAt() time.Time {
	return e.StartDateTime.Add(-time.Duration(e.SalesCutoffHours) * time.Hour)
}
