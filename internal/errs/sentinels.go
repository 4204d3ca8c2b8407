// Package errs contains sentinel errors shared by the storage, service and web layers.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks an expected absence: token, user, secret or object key.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials is returned when a username/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrEmailUnconfirmed is returned on login before the confirmation link was used.
	ErrEmailUnconfirmed = errors.New("email has not been confirmed")

	// ErrTokenInvalid covers unknown, consumed and expired tokens alike.
	ErrTokenInvalid = errors.New("token invalid or expired")

	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already in use")

	// ErrWrongPassword is returned by a password change when the current password is wrong.
	ErrWrongPassword = errors.New("incorrect current password")

	// ErrValidation marks rejected user input (empty or oversized message, mismatched fields).
	ErrValidation = errors.New("validation failed")

	// ErrUpstream wraps any failure of an external collaborator (database, object store,
	// secret store, email service, model endpoint).
	ErrUpstream = errors.New("upstream service failure")
)

// Upstream wraps err so that errors.Is(err, ErrUpstream) holds while keeping the cause.
func Upstream(op, target string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s %s: %w", ErrUpstream, op, target, err)
}

// ValidationError carries the user-facing reason of a rejected input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return ErrValidation.Error() + ": " + e.Reason }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validation builds an ErrValidation with a user-facing reason.
func Validation(reason string) error {
	return &ValidationError{Reason: reason}
}
