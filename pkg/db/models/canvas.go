package models

import (
	"time"

	"github.com/lib/pq"
)

// Canvas is a reference painting hosts can attach to an event.
type Canvas struct {
	ID        string         `gorm:"column:id;type:text;primaryKey"`
	Name      string         `gorm:"column:name;not null"`
	ImageURL  string         `gorm:"column:image_url;not null"`
	Tags      pq.StringArray `gorm:"column:tags;type:text[];not null;default:'{}'"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (Canvas) TableName() string { return "canvases" }
