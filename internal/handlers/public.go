package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/parcelrate/api/internal/platform/httpx"
	"github.com/parcelrate/api/internal/services"
)

// PublicHandlers serves unauthenticated catalogue and tracking reads.
type PublicHandlers struct {
	zones  services.ZoneService
	orders services.OrderService
}

// NewPublicHandlers constructs the /public endpoints.
func NewPublicHandlers(zones services.ZoneService, orders services.OrderService) *PublicHandlers {
	return &PublicHandlers{zones: zones, orders: orders}
}

// Routes registers the /public endpoints.
func (h *PublicHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/zones", h.listZones)
	r.Get("/track/{reference}", h.track)
}

type zoneListResponse struct {
	Items []zonePayload `json:"items"`
}

type trackingResponse struct {
	Reference         string                 `json:"reference"`
	Status            string                 `json:"status"`
	ZoneName          string                 `json:"zone_name"`
	DestinationCity   string                 `json:"destination_city,omitempty"`
	EstimatedDelivery string                 `json:"estimated_delivery,omitempty"`
	DeliveredAt       string                 `json:"delivered_at,omitempty"`
	Timeline          []timelineEntryPayload `json:"timeline"`
	Events            []deliveryEventPayload `json:"events"`
}

func (h *PublicHandlers) listZones(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.zones == nil {
		writeUnavailable(ctx, w, "zone")
		return
	}
	zones, err := h.zones.List(ctx, true)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	httpx.WriteJSON(w, http.StatusOK, zoneListResponse{Items: buildZoneList(zones)})
}

func (h *PublicHandlers) track(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	reference := strings.TrimSpace(chi.URLParam(r, "reference"))
	if reference == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "reference is required", http.StatusBadRequest))
		return
	}

	view, err := h.orders.Track(ctx, reference)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, trackingResponse{
		Reference:         view.Reference,
		Status:            string(view.Status),
		ZoneName:          view.ZoneName,
		DestinationCity:   view.DestinationCity,
		EstimatedDelivery: formatDate(view.EstimatedDelivery),
		DeliveredAt:       formatTimePtr(view.DeliveredAt),
		Timeline:          buildTimelinePayload(view.Timeline),
		Events:            buildEventPayloads(view.Events, false),
	})
}
