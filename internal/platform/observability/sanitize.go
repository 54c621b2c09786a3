package observability

import (
	"strings"
	"unicode"
)

// clean drops control characters and truncates to limit runes so values are safe to log.
func clean(value string, limit int) string {
	var b strings.Builder
	n := 0
	for _, r := range value {
		if n >= limit {
			break
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// SanitizeRoute cleans a route or path for logging.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return clean(route, 180)
}

// SanitizeMethod cleans an HTTP method for logging.
func SanitizeMethod(method string) string {
	return clean(method, 10)
}

// SanitizeUserID bounds identifiers written to logs.
func SanitizeUserID(uid string) string {
	return clean(uid, 64)
}
