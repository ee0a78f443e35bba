// Package shared holds the error taxonomy used on both sides of the sync
// boundary.
package shared

import (
	"errors"
	"fmt"
)

var (

	// common errors
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")

	// auth-specific errors
	ErrInvalidToken            = errors.New("invalid token")
	ErrInvalidAuthHeaderFormat = errors.New("invalid auth header format")
	ErrInvalidEmailPassword    = errors.New("invalid email/password")
	ErrEmailAlreadyExists      = errors.New("email already exists")
	ErrNoUserID                = errors.New("no user id")

	// sync-specific errors
	ErrTableNotSyncable = errors.New("table not allowed for sync")
	ErrOwnershipDenied  = errors.New("record owned by another user")
)

// TransportError wraps a network-level failure talking to the remote store.
// Records affected by a TransportError stay dirty and are retried on a later
// cycle.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport error: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError is an explicit refusal from the remote store (authorization,
// ownership, validation). Retrying without changing the request will not
// succeed.
type RejectedError struct {
	StatusCode int
	Reason     string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected by remote (status %d): %s", e.StatusCode, e.Reason)
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRejected reports whether err is (or wraps) a RejectedError.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
