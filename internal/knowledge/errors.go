package knowledge

import (
	"errors"
	"fmt"
)

var (
	ErrNoReferences = errors.New("event must reference at least one location, character, player or item")
	ErrEmptyQuery   = errors.New("query must not be empty")
	// ErrIdentityMismatch is returned when a player exists but belongs to a
	// different external identity.
	ErrIdentityMismatch = errors.New("player belongs to another identity")
)

// ValidationError reports input that was rejected before anything was
// written.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Err: fmt.Errorf(format, args...)}
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
