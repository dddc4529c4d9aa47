package controllers

import (
	"net/http"

	"github.com/easelhouse/paintsip-backend/api/responses"
	"github.com/easelhouse/paintsip-backend/api/validators"
	"github.com/easelhouse/paintsip-backend/internal/canvases"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
)

func CanvasesList(svc canvases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "canvas service unavailable"))
			return
		}
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func CanvasCreate(svc canvases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "canvas service unavailable"))
			return
		}
		var body canvases.CanvasInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// CanvasesImport upserts a batch of canvases. Payload problems of any kind
// surface as one message; the service validates the decoded batch.
func CanvasesImport(svc canvases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "canvas service unavailable"))
			return
		}
		var body canvases.ImportRequest
		if err := decodeOptionalJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, canvases.MsgInvalidImport))
			return
		}
		count, err := svc.Import(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"count": count})
	}
}
