package controllers

import (
	"net/http"

	"github.com/easelhouse/paintsip-backend/api/responses"
	"github.com/easelhouse/paintsip-backend/api/validators"
	checkoutsvc "github.com/easelhouse/paintsip-backend/internal/checkout"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
)

// Checkout reserves a PENDING booking and returns the hosted checkout URL.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutsvc.Input
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// CheckoutConfirmation looks up a booking by checkout session id for the
// success page.
func CheckoutConfirmation(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sessionID := validators.SanitizeString(r.URL.Query().Get("session_id"), 255)
		confirmation, err := svc.Confirmation(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, confirmation)
	}
}
