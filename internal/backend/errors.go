package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEventNotFound is wrapped by GetEvent when the backend answers 404.
	ErrEventNotFound = errors.New("event not found")

	// ErrEmptyID is returned when a call needs an id or slug and got none.
	ErrEmptyID = errors.New("empty id")
)

// ErrorPayload is the structured error body the backend sends with non-2xx responses.
type ErrorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// APIError is returned for every non-2xx backend response.
type APIError struct {
	Status   int
	Endpoint string
	Payload  *ErrorPayload

	// err is an optional sentinel the error unwraps to (e.g. ErrEventNotFound).
	err error
}

func (e *APIError) Error() string {
	if msg := e.Message(); msg != "" {
		return msg
	}
	return fmt.Sprintf("API error (%d)", e.Status)
}

// Message returns the human-readable payload message, or "" when the
// backend sent none.
func (e *APIError) Message() string {
	if e.Payload == nil {
		return ""
	}
	if m := strings.TrimSpace(e.Payload.Message); m != "" {
		return m
	}
	return strings.TrimSpace(e.Payload.Error)
}

func (e *APIError) Unwrap() error {
	return e.err
}

// newAPIError builds an APIError from a status and raw response body. A body
// that is not a JSON object with a message leaves Payload nil.
func newAPIError(endpoint string, status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Endpoint: endpoint}

	var p ErrorPayload
	if err := json.Unmarshal(body, &p); err == nil {
		if strings.TrimSpace(p.Message) != "" || strings.TrimSpace(p.Error) != "" {
			apiErr.Payload = &p
		}
	}
	return apiErr
}

// StatusOf returns the backend HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
