package canvases

import (
	"time"

	"github.com/easelhouse/paintsip-backend/pkg/db/models"
)

// CanvasInput describes one canvas in a create or import request.
type CanvasInput struct {
	Name     string   `json:"name" validate:"required,min=1,max=120"`
	ImageURL string   `json:"image_url" validate:"required,url"`
	Tags     []string `json:"tags" validate:"omitempty,max=20,dive,min=1,max=40"`
}

// ImportRequest is the bulk import payload.
type ImportRequest struct {
	Canvases []CanvasInput `json:"canvases" validate:"required,min=1,max=500,dive"`
}

type CanvasDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

func FromModel(c *models.Canvas) CanvasDTO {
	tags := []string(c.Tags)
	if tags == nil {
		tags = []string{}
	}
	return CanvasDTO{
		ID:        c.ID,
		Name:      c.Name,
		ImageURL:  c.ImageURL,
		Tags:      tags,
		CreatedAt: c.CreatedAt,
	}
}

func FromModels(rows []models.Canvas) []CanvasDTO {
	out := make([]CanvasDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
