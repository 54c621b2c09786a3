package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/parcelrate/api/internal/platform/httpx"
	"github.com/parcelrate/api/internal/services"
)

const maxZoneBodySize = 4 * 1024

type zoneResponse struct {
	Zone zonePayload `json:"zone"`
}

type seedZonesResponse struct {
	Created int `json:"created"`
}

type createZoneRequest struct {
	Name         string          `json:"name"`
	BaseRate     numeric `json:"base_rate"`
	DeliveryDays int     `json:"delivery_days"`
	Active       *bool   `json:"active"`
}

type updateZoneRequest struct {
	Name         *string  `json:"name"`
	BaseRate     *numeric `json:"base_rate"`
	DeliveryDays *int     `json:"delivery_days"`
	Active       *bool    `json:"active"`
}

func (h *AdminHandlers) listZones(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.zones == nil {
		writeUnavailable(ctx, w, "zone")
		return
	}
	activeOnly := false
	if raw := strings.TrimSpace(r.URL.Query().Get("active")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_input", "active must be true or false", http.StatusBadRequest).WithDetail("field", "active"))
			return
		}
		activeOnly = value
	}

	zones, err := h.zones.List(ctx, activeOnly)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, zoneListResponse{Items: buildZoneList(zones)})
}

func (h *AdminHandlers) getZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.zones == nil {
		writeUnavailable(ctx, w, "zone")
		return
	}
	zoneID, ok := requirePathParam(w, r, "zoneID", "zone id")
	if !ok {
		return
	}
	zone, err := h.zones.Get(ctx, zoneID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, zoneResponse{Zone: buildZonePayload(zone)})
}

func (h *AdminHandlers) createZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.zones == nil {
		writeUnavailable(ctx, w, "zone")
		return
	}
	var req createZoneRequest
	if !httpx.DecodeJSON(w, r, maxZoneBodySize, &req) {
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	zone, err := h.zones.Create(ctx, services.CreateZoneCommand{
		Name:         req.Name,
		BaseRate:     req.BaseRate.Decimal,
		DeliveryDays: req.DeliveryDays,
		Active:       active,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, zoneResponse{Zone: buildZonePayload(zone)})
}

func (h *AdminHandlers) updateZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.zones == nil {
		writeUnavailable(ctx, w, "zone")
		return
	}
	zoneID, ok := requirePathParam(w, r, "zoneID", "zone id")
	if !ok {
		return
	}
	var req updateZoneRequest
	if !httpx.DecodeJSON(w, r, maxZoneBodySize, &req) {
		return
	}

	zone, err := h.zones.Update(ctx, services.UpdateZoneCommand{
		ZoneID:       zoneID,
		Name:         req.Name,
		BaseRate:     optionalNumeric(req.BaseRate),
		DeliveryDays: req.DeliveryDays,
		Active:       req.Active,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, zoneResponse{Zone: buildZonePayload(zone)})
}

func (h *AdminHandlers) deleteZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.zones == nil {
		writeUnavailable(ctx, w, "zone")
		return
	}
	zoneID, ok := requirePathParam(w, r, "zoneID", "zone id")
	if !ok {
		return
	}
	if err := h.zones.Delete(ctx, zoneID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandlers) seedZones(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.zones == nil {
		writeUnavailable(ctx, w, "zone")
		return
	}
	created, err := h.zones.SeedDefaults(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, seedZonesResponse{Created: created})
}
