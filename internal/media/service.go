package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/easelhouse/paintsip-backend/pkg/config"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
)

const (
	msgInvalidType = "Invalid file type. Please upload an image."
	msgNoFile      = "No file provided"
)

type uploader interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error)
}

// UploadInput is one image posted by a host.
type UploadInput struct {
	UserID       uuid.UUID
	FileName     string
	DeclaredType string
	Body         io.Reader
}

// UploadOutput is the stored object's public location.
type UploadOutput struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	SizeBytes   int    `json:"size_bytes"`
}

// Service exposes image uploads.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	MaxBytes() int64
}

type service struct {
	storage uploader
	cfg     config.MediaConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService constructs a media service backed by the provided object store.
func NewService(storage uploader, cfg config.MediaConfig, logg *logger.Logger, clock func() time.Time) (Service, error) {
	if storage == nil {
		return nil, fmt.Errorf("object storage required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &service{storage: storage, cfg: cfg, logg: logg, now: clock}, nil
}

// TooLargeMessage is the rejection shown when an upload exceeds limit bytes.
func TooLargeMessage(limit int64) string {
	return fmt.Sprintf("File too large. Maximum size is %dMB.", limit>>20)
}

func (s *service) MaxBytes() int64 {
	return s.cfg.MaxUploadBytes()
}

// Upload validates, optionally downsizes, and stores an image under
// canvas-{userId}-{unix}.{ext}.
func (s *service) Upload(ctx context.Context, input UploadInput) (*UploadOutput, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgNoFile)
	}

	limit := s.MaxBytes()
	data, err := io.ReadAll(io.LimitReader(input.Body, limit+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgNoFile)
	}
	if int64(len(data)) > limit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, TooLargeMessage(limit))
	}

	contentType, kind, err := classify(data, input.DeclaredType)
	if err != nil {
		return nil, err
	}

	if kind.resizable {
		data, err = s.fit(data, kind)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, msgInvalidType)
		}
	}

	key := fmt.Sprintf("canvas-%s-%d.%s", input.UserID, s.now().Unix(), kind.ext)
	url, err := s.storage.Upload(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"object":       key,
			"content_type": contentType,
			"size_bytes":   len(data),
		}), "media.uploaded")
	}
	return &UploadOutput{URL: url, Key: key, ContentType: contentType, SizeBytes: len(data)}, nil
}

// fit shrinks images larger than the configured bounds. Images already within
// bounds are stored byte for byte.
func (s *service) fit(data []byte, kind imageKind) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	maxW, maxH := s.cfg.ImageMaxWidth, s.cfg.ImageMaxHeight
	if maxW <= 0 || maxH <= 0 {
		return data, nil
	}
	b := img.Bounds()
	if b.Dx() <= maxW && b.Dy() <= maxH {
		return data, nil
	}

	resized := imaging.Fit(img, maxW, maxH, imaging.Lanczos)
	quality := s.cfg.ImageQuality
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, kind.format, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
