// Package textutil cleans free text supplied by customers and partners before it is stored.
package textutil

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// PlainText strips all markup, unescapes entities and collapses runs of whitespace.
func PlainText(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	cleaned := html.UnescapeString(strictPolicy.Sanitize(value))
	return strings.Join(strings.Fields(cleaned), " ")
}

// Truncate limits value to max runes. A non-positive max leaves the value untouched.
func Truncate(value string, max int) string {
	if max <= 0 || utf8.RuneCountInString(value) <= max {
		return value
	}
	runes := []rune(value)
	return strings.TrimSpace(string(runes[:max]))
}

// Clean applies PlainText followed by Truncate.
func Clean(value string, max int) string {
	return Truncate(PlainText(value), max)
}

// NormalizeKey lower-cases and trims an identifier such as a status or role.
func NormalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
