package shared

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"pulse/internal/transport/http/api"
)

// DecodeJSON reads the request body into out. An empty body leaves out
// untouched.
func DecodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Decode decodes the body and answers 400 on failure. It reports whether the
// handler may continue.
func Decode(w http.ResponseWriter, r *http.Request, requestID string, out any) bool {
	if err := DecodeJSON(r, out); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request payload too large", requestID)
			return false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return false
	}
	return true
}
