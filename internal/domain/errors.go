package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrSessionClosed is returned by an editing session after it has been torn down
	ErrSessionClosed = errors.New("editing session closed")
)

// SessionNotOpenError indicates an operation on a PRD that has no open editing session
type SessionNotOpenError struct {
	PRDID string
}

func (e *SessionNotOpenError) Error() string {
	return "no open editing session for prd " + e.PRDID
}

// StatusCode implements HTTPError
func (e *SessionNotOpenError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match against ErrNotFound
func (e *SessionNotOpenError) Is(target error) bool {
	return target == ErrNotFound
}
