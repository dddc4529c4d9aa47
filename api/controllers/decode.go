package controllers

import (
	"encoding/json"
	"io"
	"net/http"
)

const maxOptionalBody = 1 << 16

// decodeOptionalJSON fills dest from the body when one is present. Errors are
// returned for callers that care; an empty body leaves dest untouched.
func decodeOptionalJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxOptionalBody))
	if err != nil || len(raw) == 0 {
		return err
	}
	return json.Unmarshal(raw, dest)
}
