package services

import (
	"errors"
	"fmt"

	"yatube.dev/yatube/repository"
)

var (
	ErrNotFound           = repository.ErrNotFound
	ErrPermission         = errors.New("permission denied")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError reports a rejected input field. Handlers re-render the
// form with Message next to Field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
