package core

import (
	"errors"
	"fmt"
)

// Validation reasons. Callers wrap them in a ValidationError naming the field.
var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyCategory      = errors.New("empty category")
	ErrCategoryTooLong    = errors.New("category too long (max 100 characters)")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmptyName          = errors.New("empty name")
	ErrNameTooLong        = errors.New("name too long (max 100 characters)")
	ErrEmptyPassword      = errors.New("empty password")
	ErrPasswordTooLong    = errors.New("password too long (max 72 bytes)")
	ErrInvalidPage        = errors.New("page must be at least 1")
	ErrInvalidLimit       = errors.New("limit out of range")
	ErrInvalidRange       = errors.New("start date is after end date")
)

var (
	// ErrInvalidCredentials is returned for both an unknown email and a wrong
	// password so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")

	// ErrUnknownSubject means a token verified but its subject no longer exists.
	ErrUnknownSubject = errors.New("token subject not found")

	// ErrNotFound covers both a missing record and one owned by someone else.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports malformed input on a single field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid builds a ValidationError for field.
func Invalid(field string, reason error) error {
	return &ValidationError{Field: field, Err: reason}
}

// StorageError wraps a failure of the backing store. The core never retries it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// StorageFailure wraps err as a StorageError unless it is nil or already a
// domain error the caller must see unchanged.
func StorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateEmail) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
