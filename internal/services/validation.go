package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// newValidator returns a validator that compares decimals numerically.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return toSnake(field.Name)
	})
	return v
}

// validationError wraps validator output with sentinel and the first offending field name.
func validationError(sentinel error, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return &FieldError{sentinel: sentinel, Field: first.Field(), Rule: first.Tag()}
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

// FieldError names the command field that failed validation.
type FieldError struct {
	sentinel error
	Field    string
	Rule     string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %s failed %s", e.sentinel, e.Field, e.Rule)
}

func (e *FieldError) Unwrap() error { return e.sentinel }

func fieldError(sentinel error, field, rule string) error {
	return &FieldError{sentinel: sentinel, Field: field, Rule: rule}
}

func toSnake(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			prevUpper := runes[i-1] >= 'A' && runes[i-1] <= 'Z'
			if prevLower || (prevUpper && nextLower) || (runes[i-1] >= '0' && runes[i-1] <= '9') {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
