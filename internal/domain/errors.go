package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when no progress record exists for a user.
	ErrUserNotFound = errors.New("user not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrStoreUnavailable wraps failures of the user or question stores.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreError marks err as a collaborator failure while keeping it inspectable.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStoreUnavailable, err))
}
