package gateway

import (
	"errors"
	"fmt"
)

// Gateway error taxonomy
var (
	// ErrNotFound indicates that the entity does not exist on the server
	ErrNotFound = errors.New("entity not found on server")

	// ErrNetworkUnavailable indicates that the server cannot be reached
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrTimeout indicates that the request did not complete in time
	ErrTimeout = errors.New("remote request timed out")

	// ErrVersionConflict indicates that the entity moved past the expected version
	// between fetch and submit
	ErrVersionConflict = errors.New("remote version conflict")

	// ErrUnauthorized indicates that the server refused the device credentials
	ErrUnauthorized = errors.New("unauthorized")
)

// RejectedError сервер явно отказал в применении мутации (например, ошибка валидации).
// Повторять такую мутацию бессмысленно.
type RejectedError struct {
	Reason string
}

// Error implements error.
func (e *RejectedError) Error() string {
	return fmt.Sprintf("remote rejected mutation: %s", e.Reason)
}

// Rejected creates a RejectedError.
func Rejected(reason string) error {
	return &RejectedError{Reason: reason}
}

// IsRejected reports whether err is a RejectedError and returns its reason.
func IsRejected(err error) (string, bool) {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Reason, true
	}
	return "", false
}

// IsRetryable reports whether a failed call may succeed if repeated later.
// Everything except explicit rejection is retryable, including unknown errors:
// refused credentials are fixed out of band and must not drop queued work.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	_, rejected := IsRejected(err)
	return !rejected
}
