package media

import (
	"mime"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	pkgerrors "github.com/easelhouse/paintsip-backend/pkg/errors"
)

type imageKind struct {
	ext    string
	format imaging.Format
	// resizable kinds are decoded and fit to the configured bounds before upload
	resizable bool
}

var allowedImageTypes = map[string]imageKind{
	"image/jpeg": {ext: "jpg", format: imaging.JPEG, resizable: true},
	"image/png":  {ext: "png", format: imaging.PNG, resizable: true},
	"image/webp": {ext: "webp"},
	"image/gif":  {ext: "gif"},
}

// mimeAliases folds legacy spellings browsers still send.
var mimeAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
	"image/x-png": "image/png",
}

// classify trusts the bytes over the client: the sniffed type must be an
// allowed image, and a declared type, when present, must agree with it.
func classify(data []byte, declared string) (string, imageKind, error) {
	detected := normalizeMime(mimetype.Detect(data).String())
	kind, ok := allowedImageTypes[detected]
	if !ok {
		return "", imageKind{}, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidType).
			WithDetails(map[string]any{"detected": detected})
	}
	if d := normalizeMime(declared); d != "" && d != detected {
		return "", imageKind{}, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidType).
			WithDetails(map[string]any{"declared": d, "detected": detected})
	}
	return detected, kind, nil
}

// normalizeMime drops parameters, lowercases, and folds aliases. Unparseable
// input yields "".
func normalizeMime(value string) string {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(value))
	if err != nil {
		return ""
	}
	mediaType = strings.ToLower(mediaType)
	if canonical, ok := mimeAliases[mediaType]; ok {
		return canonical
	}
	return mediaType
}
