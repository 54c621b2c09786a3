package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/services"
)

func publicRouter(h *PublicHandlers) http.Handler {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func TestPublicHandlersListZones(t *testing.T) {
	zones := &stubZoneService{zones: []services.Zone{
		{ID: "zone-metro", Name: "Metro", BaseRate: decimal.NewFromInt(50), DeliveryDays: 2, Active: true},
	}}

	rr := httptest.NewRecorder()
	publicRouter(NewPublicHandlers(zones, nil)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/zones", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if zones.lastList == nil || !*zones.lastList {
		t.Fatalf("expected active-only listing")
	}
	items := decodeBody(t, rr.Body.Bytes())["items"].([]any)
	first := items[0].(map[string]any)
	if first["name"] != "Metro" || first["base_rate"] != "50.00" || first["delivery_days"] != float64(2) {
		t.Fatalf("unexpected zone payload %v", first)
	}
	if rr.Header().Get("Cache-Control") == "" {
		t.Fatalf("expected cache header on public zones")
	}
}

func TestPublicHandlersTrack(t *testing.T) {
	picked := handlerNow.Add(2 * time.Hour)
	var captured string
	orders := &stubOrderService{
		trackFn: func(_ context.Context, reference string) (services.TrackingView, error) {
			captured = reference
			if reference != "aaaa0503240001" {
				return services.TrackingView{}, services.ErrOrderNotFound
			}
			return services.TrackingView{
				Reference:         "AAAA0503240001",
				Status:            domain.DeliveryStatusPickedUp,
				ZoneName:          "Metro",
				DestinationCity:   "Kolkata",
				EstimatedDelivery: time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC),
				Timeline:          []services.TimelineEntry{{Status: domain.DeliveryStatusPending, Label: "Order Placed", Completed: true}},
				Events: []services.DeliveryEvent{
					{Status: domain.DeliveryStatusPickedUp, Location: "Pune hub", ActorID: "partner-9", ActorRole: "partner", OccurredAt: picked},
				},
			}, nil
		},
	}
	handler := publicRouter(NewPublicHandlers(nil, orders))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/track/aaaa0503240001", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if captured != "aaaa0503240001" {
		t.Fatalf("unexpected reference passed %q", captured)
	}
	body := decodeBody(t, rr.Body.Bytes())
	if body["status"] != "picked_up" || body["destination_city"] != "Kolkata" || body["estimated_delivery"] != "2024-03-07" {
		t.Fatalf("unexpected tracking payload %v", body)
	}
	event := body["events"].([]any)[0].(map[string]any)
	if _, leaked := event["actor_id"]; leaked {
		t.Fatalf("actor id must not be exposed publicly: %v", event)
	}
	if event["location"] != "Pune hub" {
		t.Fatalf("unexpected event %v", event)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/track/UNKNOWN", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestPublicHandlersUnavailableServices(t *testing.T) {
	handler := publicRouter(NewPublicHandlers(nil, nil))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/zones", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
