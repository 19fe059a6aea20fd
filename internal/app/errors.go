package app

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// login failures cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrEmailAlreadyExists is returned when registering an email that is
	// already taken.
	ErrEmailAlreadyExists = errors.New("email already registered")

	// ErrInvalidToken is returned when a session token is malformed, expired,
	// or references a user that no longer exists.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrForbidden is returned when the caller's role does not permit the
	// operation.
	ErrForbidden = errors.New("access denied")

	// ErrClassNotFound is returned when a class does not exist OR is owned by
	// another teacher. The two cases are indistinguishable on purpose: a
	// request against a foreign class must not confirm that it exists.
	ErrClassNotFound = errors.New("class not found")

	// ErrStudentNotFound is returned when an enrollment target does not exist
	// or is not a student account.
	ErrStudentNotFound = errors.New("student not found")

	// ErrStudentNotInClass is returned when the referenced student is not
	// enrolled in the (already ownership-checked) class.
	ErrStudentNotInClass = errors.New("student not found in this class")
)

// ValidationError reports a field-level constraint violation. Nothing is
// persisted when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
