package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveQuoteCountsOutcomes(t *testing.T) {
	reg := New("test")
	reg.ObserveQuote("quote", OutcomeOK, 472)
	reg.ObserveQuote("quote", OutcomeOK, 1947)
	reg.ObserveQuote("booking", OutcomeInvalidInput, 0)

	if got := testutil.ToFloat64(reg.quotesTotal.WithLabelValues("quote", OutcomeOK)); got != 2 {
		t.Fatalf("expected 2 ok quotes, got %v", got)
	}
	if got := testutil.ToFloat64(reg.quotesTotal.WithLabelValues("booking", OutcomeInvalidInput)); got != 1 {
		t.Fatalf("expected 1 invalid booking, got %v", got)
	}
	if count := testutil.CollectAndCount(reg.quoteAmount); count != 1 {
		t.Fatalf("expected histogram series only for ok path, got %d", count)
	}
}

func TestNilRegistryIsNoop(t *testing.T) {
	var reg *Registry
	reg.ObserveQuote("quote", OutcomeOK, 1)
	reg.ObserveOrderPlaced("Local", "cod")
	reg.ObserveStatusTransition("delivered")
	reg.ObserveConfigUpdate()

	called := false
	h := reg.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatalf("expected pass-through")
	}
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	reg := New("test")
	router := chi.NewRouter()
	router.Use(reg.Middleware)
	router.Get("/orders/{orderID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/"+id, nil))
	}

	if got := testutil.ToFloat64(reg.requestsTotal.WithLabelValues(http.MethodGet, "/orders/{orderID}", "404")); got != 3 {
		t.Fatalf("expected 3 requests on pattern, got %v", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	reg := New("test")
	reg.ObserveConfigUpdate()

	rr := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "test_pricing_config_updates_total 1") {
		t.Fatalf("expected config update counter in output")
	}
}
