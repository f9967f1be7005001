package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrMalformedResponse = errors.New("malformed recommendation response")
	ErrNotFound          = errors.New("not found")
	ErrSuperseded        = errors.New("superseded by a newer search")
	ErrUnauthorized      = errors.New("unauthorized")
)

// ValidationError is returned for bad caller input, before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// MalformedResponseError means the backend payload cannot be rendered.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error { return ErrMalformedResponse }

// Malformed builds a MalformedResponseError.
func Malformed(format string, args ...any) error {
	return &MalformedResponseError{Reason: fmt.Sprintf(format, args...)}
}

// NetworkError wraps a transport failure talking to the backend.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx answer from the backend.
type ServerError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
}

// Retryable reports whether a new attempt may succeed.
func (e *ServerError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
