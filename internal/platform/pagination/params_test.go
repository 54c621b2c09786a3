package pagination

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/parcelrate/api/internal/domain"
)

func TestFromRequestDefaults(t *testing.T) {
	p, err := FromRequest(httptest.NewRequest("GET", "/orders", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PageSize != DefaultPageSize || p.PageToken != "" {
		t.Fatalf("unexpected params %+v", p)
	}
}

func TestFromRequestClampsPageSize(t *testing.T) {
	p, err := FromRequest(httptest.NewRequest("GET", "/orders?pageSize=500", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PageSize != MaxPageSize {
		t.Fatalf("expected clamp to %d, got %d", MaxPageSize, p.PageSize)
	}
}

func TestFromRequestRejectsBadInput(t *testing.T) {
	cases := map[string]error{
		"/orders?pageSize=abc":     ErrInvalidPageSize,
		"/orders?pageSize=0":       ErrInvalidPageSize,
		"/orders?pageToken=%%%%":   ErrInvalidPageToken,
		"/orders?pageToken=e30":    ErrInvalidPageToken,
	}
	for target, want := range cases {
		_, err := FromRequest(httptest.NewRequest("GET", target, nil))
		if !errors.Is(err, want) {
			t.Errorf("%s: expected %v, got %v", target, want, err)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	cursor := Cursor{CreatedAt: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC), ID: "01HZX"}
	token := EncodeToken(cursor)
	if token == "" {
		t.Fatalf("expected token")
	}
	decoded, err := DecodeToken(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.CreatedAt.Equal(cursor.CreatedAt) || decoded.ID != cursor.ID {
		t.Fatalf("unexpected cursor %+v", decoded)
	}
	if EncodeToken(Cursor{}) != "" {
		t.Fatalf("expected empty token for zero cursor")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize(domain.Pagination{}).PageSize; got != DefaultPageSize {
		t.Fatalf("expected default, got %d", got)
	}
	if got := Normalize(domain.Pagination{PageSize: 1000}).PageSize; got != MaxPageSize {
		t.Fatalf("expected max, got %d", got)
	}
}
