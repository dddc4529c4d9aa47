package controllers

import (
	"net/http"

	"github.com/easelhouse/paintsip-backend/api/responses"
	"github.com/easelhouse/paintsip-backend/api/validators"
	"github.com/easelhouse/paintsip-backend/internal/bookings"
	"github.com/easelhouse/paintsip-backend/internal/dashboard"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
)

// Dashboard returns the host's summary numbers.
func Dashboard(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}
		hostID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Summary(r.Context(), hostID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// HostBookings lists bookings across the host's events, filtered by ?status and ?limit.
func HostBookings(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}
		hostID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", bookings.DefaultListLimit, 1, bookings.MaxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForHost(r.Context(), hostID, bookings.ListQuery{
			Status: r.URL.Query().Get("status"),
			Limit:  limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
