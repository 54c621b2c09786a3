// Package money renders decimal amounts for API responses.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is used when the configured code is empty.
const DefaultCurrency = "INR"

// Formatter renders amounts with the currency symbol for a locale.
type Formatter struct {
	unit    currency.Unit
	printer *message.Printer
}

// NewFormatter parses an ISO 4217 code. The locale falls back to English (India).
func NewFormatter(code string, locale string) (*Formatter, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("money: unknown currency %q: %w", code, err)
	}
	tag := language.Make("en-IN")
	if strings.TrimSpace(locale) != "" {
		parsed, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("money: invalid locale %q: %w", locale, err)
		}
		tag = parsed
	}
	return &Formatter{unit: unit, printer: message.NewPrinter(tag)}, nil
}

// MustFormatter panics when NewFormatter fails. Intended for constants known at build time.
func MustFormatter(code, locale string) *Formatter {
	f, err := NewFormatter(code, locale)
	if err != nil {
		panic(err)
	}
	return f
}

// Code returns the ISO currency code.
func (f *Formatter) Code() string {
	if f == nil {
		return DefaultCurrency
	}
	return f.unit.String()
}

// Format renders the amount rounded to two decimals with the currency symbol.
func (f *Formatter) Format(amount decimal.Decimal) string {
	if f == nil {
		return Amount(amount)
	}
	value := amount.Round(2).InexactFloat64()
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(value)))
}

// Amount renders the plain two-decimal string used in JSON payloads.
func Amount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// Parse reads a JSON amount string. Empty input yields zero.
func Parse(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: invalid amount %q: %w", raw, err)
	}
	return value, nil
}
