package rest

import (
	"errors"
	"fmt"
)

// APIError is a request the backend rejected with a human-readable reason.
// Anything that fails without one (transport failure, timeout, opaque 5xx)
// is a connectivity error and escalates differently at the caller.
type APIError struct {
	Status  int    // HTTP status code
	Message string // backend-supplied reason, empty when none was given
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// AppMessage returns the backend-supplied reason. The notification store
// keys its error taxonomy off this.
func (e *APIError) AppMessage() string {
	return e.Message
}

// IsConnectivity reports whether err should be treated as a connectivity
// failure rather than an application-level rejection.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	var ae *APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return false
	}
	return true
}
