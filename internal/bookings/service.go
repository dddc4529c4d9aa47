package bookings

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/easelhouse/paintsip-backend/pkg/enums"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// ListQuery filters a host's booking list.
type ListQuery struct {
	Status string
	Limit  int
}

// Service serves host-facing booking reads.
type Service interface {
	ListForHost(ctx context.Context, hostID uuid.UUID, q ListQuery) ([]HostBookingDTO, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("bookings repository required")
	}
	return &service{repo: repo}, nil
}

// ListForHost returns bookings across every event the host owns, newest first.
func (s *service) ListForHost(ctx context.Context, hostID uuid.UUID, q ListQuery) ([]HostBookingDTO, error) {
	if hostID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	limit := q.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 1 || limit > MaxListLimit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "limit must be between 1 and 100").
			WithDetails(map[string]any{"field": "limit", "min": 1, "max": MaxListLimit})
	}

	var status *enums.BookingStatus
	if raw := strings.ToUpper(strings.TrimSpace(q.Status)); raw != "" {
		parsed, err := enums.ParseBookingStatus(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid booking status").
				WithDetails(map[string]any{"field": "status", "value": q.Status})
		}
		status = &parsed
	}

	rows, err := s.repo.ListForHost(ctx, hostID, status, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bookings")
	}
	return FromHostRows(rows), nil
}
