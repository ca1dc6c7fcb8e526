package settlement

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrUnauthorized      = errors.New("not a party to this settlement")
	// ErrNotFoundOrUnauthorized doesn't tell a missing group apart from an inaccessible one.
	ErrNotFoundOrUnauthorized = errors.New("settlement group not found or not accessible")
)

type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(reason, args...)}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
