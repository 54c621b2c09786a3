package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/platform/money"
	"github.com/parcelrate/api/internal/pricing"
	"github.com/parcelrate/api/internal/services"
)

func quoteRouter(h *QuoteHandlers) http.Handler {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func TestQuoteHandlersQuote(t *testing.T) {
	var captured services.QuoteCommand
	svc := &stubPricingService{
		quoteFn: func(_ context.Context, cmd services.QuoteCommand) (services.ChargeBreakdown, error) {
			captured = cmd
			return services.ChargeBreakdown{
				Path:          domain.PricingPathQuote,
				ConfigVersion: 3,
				Pickup:        decimal.RequireFromString("100"),
				Delivery:      decimal.RequireFromString("300"),
				Subtotal:      decimal.RequireFromString("400"),
				GST:           decimal.RequireFromString("72"),
				Total:         decimal.RequireFromString("472"),
			}, nil
		},
	}
	handler := quoteRouter(NewQuoteHandlers(svc, WithQuoteFormatter(money.MustFormatter("INR", ""))))

	body := `{"origin":"City","distance_km":3,"weight_kg":"2","dimensions":{"length_cm":10,"width_cm":10,"height_cm":10},"declared_value":1000,"payment_mode":"COD"}`
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Shipment.Origin != domain.OriginCity || captured.Shipment.PaymentMode != domain.PaymentModeCOD {
		t.Fatalf("expected normalised origin and mode, got %+v", captured.Shipment)
	}
	if !captured.Shipment.Weight.Equal(decimal.NewFromInt(2)) || !captured.Shipment.Dimensions.Height.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected decoded measures %+v", captured.Shipment)
	}

	quote, _ := decodeBody(t, rr.Body.Bytes())["quote"].(map[string]any)
	if quote["total"] != "472.00" || quote["gst"] != "72.00" || quote["pickup"] != "100.00" {
		t.Fatalf("unexpected amounts %v", quote)
	}
	if quote["currency"] != "INR" || !strings.Contains(quote["formatted_total"].(string), "472.00") {
		t.Fatalf("unexpected currency rendering %v", quote)
	}
	if quote["config_version"] != float64(3) || quote["path"] != "quote" {
		t.Fatalf("unexpected metadata %v", quote)
	}
}

func TestQuoteHandlersQuoteErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		field  string
	}{
		{"invalid weight", &pricing.InputError{Field: "weight", Reason: "must be positive"}, http.StatusBadRequest, "invalid_input", "weight"},
		{"no tariff", services.ErrConfigurationMissing, http.StatusServiceUnavailable, "pricing_unavailable", ""},
		{"unexpected", errNotStubbed, http.StatusInternalServerError, "internal_error", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubPricingService{
				quoteFn: func(context.Context, services.QuoteCommand) (services.ChargeBreakdown, error) {
					return services.ChargeBreakdown{}, tc.err
				},
			}
			rr := httptest.NewRecorder()
			quoteRouter(NewQuoteHandlers(svc)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(`{"origin":"city"}`)))

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			body := decodeBody(t, rr.Body.Bytes())
			if body["error"] != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, body["error"])
			}
			if tc.field != "" && body["field"] != tc.field {
				t.Fatalf("expected field %s, got %v", tc.field, body["field"])
			}
		})
	}
}

func TestQuoteHandlersRejectsMalformedBody(t *testing.T) {
	rr := httptest.NewRecorder()
	quoteRouter(NewQuoteHandlers(&stubPricingService{})).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(`{"weight_kg":`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestQuoteHandlersNamesNonNumericFields(t *testing.T) {
	cases := []struct {
		name   string
		target string
		body   string
		field  string
	}{
		{"weight", "/quotes", `{"origin":"city","weight_kg":"abc"}`, "weight_kg"},
		{"nested dimension", "/quotes", `{"weight_kg":2,"dimensions":{"length_cm":"ten"}}`, "dimensions.length_cm"},
		{"boolean flag", "/quotes", `{"weight_kg":2,"oda":"yes"}`, "oda"},
		{"booking declared value", "/quotes:booking", `{"zone_id":"zone-metro","weight_kg":2,"declared_value":[1]}`, "declared_value"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			quoteRouter(NewQuoteHandlers(&stubPricingService{})).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, tc.target, strings.NewReader(tc.body)))

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			body := decodeBody(t, rr.Body.Bytes())
			if body["error"] != "invalid_input" || body["field"] != tc.field {
				t.Fatalf("expected invalid_input on %s, got %v", tc.field, body)
			}
		})
	}
}

func TestQuoteHandlersBookingQuote(t *testing.T) {
	var captured services.BookingQuoteCommand
	svc := &stubPricingService{
		bookingFn: func(_ context.Context, cmd services.BookingQuoteCommand) (services.BookingQuote, error) {
			captured = cmd
			return services.BookingQuote{
				Zone: services.Zone{ID: "zone-metro", Name: "Metro", BaseRate: decimal.NewFromInt(50), DeliveryDays: 2, Active: true},
				Breakdown: services.ChargeBreakdown{
					Path:  domain.PricingPathBooking,
					Total: decimal.RequireFromString("1003"),
					Weighting: &domain.BookingWeighting{
						BillableWeight: decimal.NewFromInt(5),
						VolumeCubicM:   decimal.RequireFromString("0.001"),
						WeightCost:     decimal.NewFromInt(250),
						VolumeCost:     decimal.RequireFromString("0.5"),
					},
				},
				EstimatedDelivery: time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC),
			}, nil
		},
	}

	body := `{"zone_id":" zone-metro ","quantity":2,"weight_kg":5,"payment_mode":"prepaid"}`
	rr := httptest.NewRecorder()
	quoteRouter(NewQuoteHandlers(svc)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/quotes:booking", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ZoneID != "zone-metro" || captured.Quantity != 2 || captured.Shipment.PaymentMode != domain.PaymentModePrepaid {
		t.Fatalf("unexpected command %+v", captured)
	}
	payload := decodeBody(t, rr.Body.Bytes())
	if payload["estimated_delivery"] != "2024-03-07" {
		t.Fatalf("unexpected eta %v", payload["estimated_delivery"])
	}
	quote := payload["quote"].(map[string]any)
	if quote["total"] != "1003.00" {
		t.Fatalf("unexpected total %v", quote["total"])
	}
	weighting := quote["weighting"].(map[string]any)
	if weighting["weight_cost"] != "250.00" || weighting["volume_applied"] != false {
		t.Fatalf("unexpected weighting %v", weighting)
	}
	zone := payload["zone"].(map[string]any)
	if zone["name"] != "Metro" || zone["base_rate"] != "50.00" {
		t.Fatalf("unexpected zone %v", zone)
	}
}

func TestQuoteHandlersRateLimit(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	svc := &stubPricingService{
		quoteFn: func(context.Context, services.QuoteCommand) (services.ChargeBreakdown, error) {
			return services.ChargeBreakdown{}, nil
		},
	}
	handler := quoteRouter(NewQuoteHandlers(svc, WithQuoteRateLimit(2, func() time.Time { return now })))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(`{}`))
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if send("10.0.0.1:5000") != http.StatusOK || send("10.0.0.1:5001") != http.StatusOK {
		t.Fatalf("expected first two requests to pass")
	}
	if code := send("10.0.0.1:5002"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	if code := send("10.0.0.2:5000"); code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", code)
	}
}
