package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationMissing is returned when no rate configuration snapshot is supplied.
	ErrConfigurationMissing = errors.New("pricing: rate configuration missing")
	// ErrInvalidInput is returned when a request or configuration field is out of range.
	ErrInvalidInput = errors.New("pricing: invalid input")
)

// InputError names the field that failed validation. It unwraps to ErrInvalidInput.
type InputError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *InputError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput.Error(), e.Field, e.Reason)
}

// Unwrap exposes ErrInvalidInput to errors.Is.
func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, reason string) error {
	return &InputError{Field: field, Reason: reason}
}

// FieldOf returns the offending field name when err carries an InputError.
func FieldOf(err error) (string, bool) {
	var inputErr *InputError
	if errors.As(err, &inputErr) && inputErr != nil {
		return inputErr.Field, true
	}
	return "", false
}
