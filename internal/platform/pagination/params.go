// Package pagination parses page size and opaque cursor tokens for list endpoints.
package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/parcelrate/api/internal/domain"
)

const (
	// DefaultPageSize applies when the client omits pageSize.
	DefaultPageSize = 20
	// MaxPageSize caps pageSize.
	MaxPageSize = 100
)

var (
	ErrInvalidPageSize  = errors.New("pagination: invalid pageSize")
	ErrInvalidPageToken = errors.New("pagination: invalid pageToken")
)

// FromRequest reads pageSize and pageToken from the query string.
func FromRequest(r *http.Request) (domain.Pagination, error) {
	query := r.URL.Query()
	size := DefaultPageSize
	if raw := strings.TrimSpace(query.Get("pageSize")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			return domain.Pagination{}, fmt.Errorf("%w: must be a positive integer", ErrInvalidPageSize)
		}
		size = min(value, MaxPageSize)
	}

	token := strings.TrimSpace(query.Get("pageToken"))
	if _, err := DecodeToken(token); err != nil {
		return domain.Pagination{}, err
	}
	return domain.Pagination{PageSize: size, PageToken: token}, nil
}

// Normalize clamps page size into [1, MaxPageSize].
func Normalize(p domain.Pagination) domain.Pagination {
	switch {
	case p.PageSize <= 0:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}
