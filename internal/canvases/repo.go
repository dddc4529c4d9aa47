package canvases

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easelhouse/paintsip-backend/pkg/db/models"
)

// Repository persists the canvas catalog.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// List returns every canvas ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Canvas, error) {
	var rows []models.Canvas
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.Canvas, error) {
	var c models.Canvas
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Create(ctx context.Context, c *models.Canvas) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// Upsert inserts c or overwrites the name, image and tags of the canvas with
// the same id.
func (r *Repository) Upsert(ctx context.Context, c *models.Canvas) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "image_url", "tags", "updated_at"}),
	}).Create(c).Error
}
