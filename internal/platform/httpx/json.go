package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultBodyLimit bounds request bodies when a handler does not choose its own limit.
const DefaultBodyLimit = 64 * 1024

var (
	// ErrEmptyBody is returned when a JSON body is required but absent.
	ErrEmptyBody = errors.New("request body is required")
	// ErrBodyTooLarge is returned when the body exceeds the configured limit.
	ErrBodyTooLarge = errors.New("request body exceeds allowed size")
)

// WriteJSON writes payload with the given status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ReadBody reads at most limit bytes from the request body.
func ReadBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, ErrEmptyBody
	}
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrBodyTooLarge
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, ErrEmptyBody
	}
	return data, nil
}

// DecodeJSON reads and unmarshals a bounded JSON body into dst, writing the matching error
// response on failure. A value of the wrong type is reported as invalid_input naming its key.
// It reports whether decoding succeeded.
func DecodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	ctx := r.Context()
	body, err := ReadBody(r, limit)
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		WriteError(ctx, w, NewError("payload_too_large", err.Error(), http.StatusRequestEntityTooLarge))
		return false
	case err != nil:
		WriteError(ctx, w, NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			message := fmt.Sprintf("%s has an invalid value", typeErr.Field)
			WriteError(ctx, w, NewError("invalid_input", message, http.StatusBadRequest).WithDetail("field", typeErr.Field))
			return false
		}
		WriteError(ctx, w, NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return false
	}
	return true
}
