package crm

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the lead API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("crm: %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("crm: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Transient reports whether the failure is worth a manual retry.
func (e *APIError) Transient() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an
// APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
