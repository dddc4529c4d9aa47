package canvases

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"

	"github.com/easelhouse/paintsip-backend/pkg/db"
	"github.com/easelhouse/paintsip-backend/pkg/db/models"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
)

// MsgInvalidImport is the single message for any malformed import payload.
const MsgInvalidImport = "Invalid canvas data format"

var (
	whitespace = regexp.MustCompile(`\s+`)
	validate   = validator.New()
)

type Service interface {
	List(ctx context.Context) ([]CanvasDTO, error)
	Create(ctx context.Context, input CanvasInput) (*CanvasDTO, error)
	Import(ctx context.Context, req ImportRequest) (int, error)
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("canvas repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// CanvasID derives the catalog id from a canvas name.
func CanvasID(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

func (s *service) List(ctx context.Context) ([]CanvasDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list canvases")
	}
	return FromModels(rows), nil
}

func (s *service) Create(ctx context.Context, input CanvasInput) (*CanvasDTO, error) {
	c := toModel(input)
	if c.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Name is required")
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "A canvas with this name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create canvas")
	}
	dto := FromModel(c)
	return &dto, nil
}

// Import upserts every canvas keyed by its derived id. The whole payload is
// rejected when any entry is malformed; individual write failures are skipped
// and left out of the returned count.
func (s *service) Import(ctx context.Context, req ImportRequest) (int, error) {
	if err := validate.Struct(req); err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, MsgInvalidImport)
	}
	imported := 0
	for _, input := range req.Canvases {
		c := toModel(input)
		if c.ID == "" {
			return imported, pkgerrors.New(pkgerrors.CodeValidation, MsgInvalidImport)
		}
		if err := s.repo.Upsert(ctx, c); err != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
					"canvas_id": c.ID,
					"error":     err.Error(),
				}), "canvas.import.skipped")
			}
			continue
		}
		imported++
	}
	return imported, nil
}

func toModel(input CanvasInput) *models.Canvas {
	tags := make(pq.StringArray, 0, len(input.Tags))
	for _, t := range input.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return &models.Canvas{
		ID:       CanvasID(input.Name),
		Name:     strings.TrimSpace(input.Name),
		ImageURL: strings.TrimSpace(input.ImageURL),
		Tags:     tags,
	}
}
