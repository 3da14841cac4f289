package services

import (
	"errors"
	"fmt"
)

// The gateway classifies every failure into exactly one of these.
//
//   - ErrUnauthenticated: no token present, authenticated endpoint attempted.
//     Fails fast, never reaches the network, not retryable by the user.
//   - ErrUnauthorized: server rejected the token (401). The session has
//     already been torn down by the time a caller sees this; treat it as
//     terminal for the current operation, not retryable.
//   - ValidationError: local pre-flight check failed; no network call made.
//   - RequestError: non-2xx other than 401, with the server's detail message
//     when one was provided.
//   - NetworkError: no response obtained (DNS, timeout, offline). The only
//     class eligible for user-initiated retry.
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrUnauthorized    = errors.New("session expired or revoked")
)

// ValidationError rejects a user intent before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// RequestError is a non-2xx response, carrying the server-provided message
// when the body had a structured detail field.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.Status, e.Message)
}

// NetworkError wraps a transport failure where no HTTP response arrived.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsRetryable reports whether the user may sensibly retry the same
// operation without changing anything.
func IsRetryable(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
