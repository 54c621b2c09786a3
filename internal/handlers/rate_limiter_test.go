package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterRefillsOverTime(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	limiter := newRateLimiter(2, func() time.Time { return now })

	if !limiter.Allow("a") || !limiter.Allow("a") {
		t.Fatalf("expected burst of two")
	}
	if limiter.Allow("a") {
		t.Fatalf("expected third call to be refused")
	}

	now = now.Add(30 * time.Second)
	if !limiter.Allow("a") {
		t.Fatalf("expected one token after half a minute")
	}
	if limiter.Allow("a") {
		t.Fatalf("expected bucket to be empty again")
	}
}

func TestRateLimiterDisabledAndSweep(t *testing.T) {
	if newRateLimiter(0, nil) != nil {
		t.Fatalf("expected nil limiter when disabled")
	}

	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	limiter := newRateLimiter(1, func() time.Time { return now }).(*keyedRateLimiter)
	limiter.Allow("idle")
	now = now.Add(limiterIdleTTL + time.Second)
	limiter.Allow("fresh")

	if _, ok := limiter.store["idle"]; ok {
		t.Fatalf("expected idle bucket to be swept")
	}
	if len(limiter.store) != 1 {
		t.Fatalf("expected one bucket, got %d", len(limiter.store))
	}
}

func TestRateLimitKeyPrefersIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/quotes", nil)
	req.RemoteAddr = "192.0.2.10:4431"
	if key := rateLimitKey(req); key != "ip:192.0.2.10" {
		t.Fatalf("unexpected anonymous key %s", key)
	}
	if key := rateLimitKey(withIdentity(req, "cust-1")); key != "uid:cust-1" {
		t.Fatalf("unexpected identity key %s", key)
	}
}
