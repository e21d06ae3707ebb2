package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/brettbeeson/notsolong/internal/shared"
)

// Error is a non-2xx response from the backend, carrying the status code and
// whatever the backend put in the body.
type Error struct {
	Status int
	Detail string
	Fields map[string][]string
}

// parseError builds an [*Error] from a response body.
//
// The backend returns either {"detail": "..."} or a field-keyed validation
// payload like {"email": ["This field is required."]}. Anything else is kept
// as a bare status error.
func parseError(status int, body []byte) *Error {
	apiErr := &Error{Status: status}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}

	if raw, ok := payload["detail"]; ok {
		var detail string
		if err := json.Unmarshal(raw, &detail); err == nil {
			apiErr.Detail = detail
			delete(payload, "detail")
		}
	}

	for field, raw := range payload {
		var messages []string
		if err := json.Unmarshal(raw, &messages); err == nil && len(messages) > 0 {
			if apiErr.Fields == nil {
				apiErr.Fields = map[string][]string{}
			}
			apiErr.Fields[field] = messages
			continue
		}
		var message string
		if err := json.Unmarshal(raw, &message); err == nil && message != "" {
			if apiErr.Fields == nil {
				apiErr.Fields = map[string][]string{}
			}
			apiErr.Fields[field] = []string{message}
		}
	}

	return apiErr
}

// Error returns the backend's message humanized for display: the detail
// string when present, otherwise the first field error prefixed with the
// field name ("display_name" becomes "Display name").
func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	for field, messages := range e.Fields {
		if len(messages) == 0 {
			continue
		}
		if label := shared.FieldLabel(field); label != "" {
			return fmt.Sprintf("%s: %s", label, messages[0])
		}
		return messages[0]
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// IsStatus reports whether err is an [*Error] with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// ErrorMessage returns a user-facing message for any error, falling back to
// the given default for nil or unrecognized errors.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}
