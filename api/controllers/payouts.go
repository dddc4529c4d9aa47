package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/easelhouse/paintsip-backend/api/middleware"
	"github.com/easelhouse/paintsip-backend/api/responses"
	"github.com/easelhouse/paintsip-backend/internal/payouts"
	"github.com/easelhouse/paintsip-backend/pkg/enums"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
)

// AccountStatus returns the caller's connected-account status, refreshed from Stripe
// when an account exists.
func AccountStatus(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.GetAccountStatus(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}

type accountSessionRequest struct {
	Mode string `json:"mode"`
}

// AccountSession provisions the connected account if needed and returns an
// embedded-components client secret. A missing or malformed body means onboarding.
func AccountSession(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body accountSessionRequest
		_ = decodeOptionalJSON(r, &body)

		secret, err := svc.CreateAccountSession(r.Context(), userID, enums.ParseAccountSessionMode(body.Mode))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"client_secret": secret})
	}
}

func requireUser(r *http.Request) (uuid.UUID, error) {
	userID := middleware.UserUUIDFromContext(r.Context())
	if userID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized")
	}
	return userID, nil
}
