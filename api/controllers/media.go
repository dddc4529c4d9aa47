package controllers

import (
	"errors"
	"net/http"

	"github.com/easelhouse/paintsip-backend/api/responses"
	"github.com/easelhouse/paintsip-backend/internal/media"
	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
)

// multipart framing on top of the file itself
const multipartOverhead = 64 << 10

// MediaUpload accepts a multipart "file" field and stores it as a canvas image.
func MediaUpload(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, svc.MaxBytes()+multipartOverhead)
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			switch {
			case errors.As(err, &tooLarge):
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, media.TooLargeMessage(svc.MaxBytes())))
			default:
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "No file provided"))
			}
			return
		}
		defer file.Close()

		out, err := svc.Upload(r.Context(), media.UploadInput{
			UserID:       userID,
			FileName:     header.Filename,
			DeclaredType: header.Header.Get("Content-Type"),
			Body:         file,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}
