// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level error kinds. Every *Error carries exactly one of them.
	ErrorBadRequest   = errors.New("bad request")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorConflict     = errors.New("conflict")
	ErrorInternal     = errors.New("internal error")

	// Auth errors (invalid or malformed access token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Error is a service failure that is safe to show to a client.
//
// Kind is one of the service-level sentinels above, Message is the text a
// client may see and Err keeps the underlying cause for server-side logs.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BadRequest builds a client input error.
func BadRequest(msg string) error {
	return &Error{Kind: ErrorBadRequest, Message: msg}
}

// Unauthorized builds an authentication failure.
func Unauthorized(msg string) error {
	return &Error{Kind: ErrorUnauthorized, Message: msg}
}

// Conflict builds a uniqueness failure.
func Conflict(msg string) error {
	return &Error{Kind: ErrorConflict, Message: msg}
}

// Internal wraps a server-side failure. msg is the generic description shown
// to the client, err is logged but never returned over the wire.
func Internal(msg string, err error) error {
	return &Error{Kind: ErrorInternal, Message: msg, Err: err}
}

// Message returns the client-safe text of err. Errors that did not originate
// from the service layer collapse to the generic internal message.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrorInternal.Error()
}
