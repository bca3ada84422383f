package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// DefaultAlertMessage is shown when a failure carries no usable message.
const DefaultAlertMessage = "An error occurred. Please try again."

// Error is a non-2xx response from the backend.
type Error struct {
	Operation string
	Status    int
	Message   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: backend returned %d: %s", e.Operation, e.Status, e.Message)
}

func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// UserMessage returns the text suitable for the alert banner.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return DefaultAlertMessage
}

// errorMessage extracts a readable message from an error body. The backend
// answers with a bare string, a {"message": ...} object or plain text.
func errorMessage(body []byte, status int) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return http.StatusText(status)
	}

	var asString string
	if err := json.Unmarshal([]byte(trimmed), &asString); err == nil && strings.TrimSpace(asString) != "" {
		return asString
	}

	var asObject struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(trimmed), &asObject); err == nil {
		if asObject.Message != "" {
			return asObject.Message
		}
		if asObject.Error != "" {
			return asObject.Error
		}
		return http.StatusText(status)
	}

	if strings.HasPrefix(trimmed, "<") {
		return http.StatusText(status)
	}
	return trimmed
}
