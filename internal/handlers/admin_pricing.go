package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/parcelrate/api/internal/platform/httpx"
	"github.com/parcelrate/api/internal/platform/money"
	"github.com/parcelrate/api/internal/services"
)

const (
	maxPricingBodySize  = 16 * 1024
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type rateConfigPayload struct {
	Version         int    `json:"version"`
	GSTRate         string `json:"gst_rate"`
	PickupCity      string `json:"pickup_city"`
	PickupCityODA   string `json:"pickup_city_oda"`
	CityTier1       string `json:"city_tier1"`
	CityTier2       string `json:"city_tier2"`
	RegionalBase    string `json:"regional_base"`
	RegionalPerKg   string `json:"regional_per_kg"`
	NationwideBase  string `json:"nationwide_base"`
	NationwidePerKg string `json:"nationwide_per_kg"`
	ODASurcharge    string `json:"oda_surcharge"`
	MinWeight       string `json:"min_weight"`
	VolumeRate      string `json:"volume_rate"`
	CancellationFee string `json:"cancellation_fee"`
	BookingPickup   string `json:"booking_pickup"`
	ExtraPerKg      string `json:"extra_per_kg"`
	InsuranceRate   string `json:"insurance_rate"`
	CODFeeRate      string `json:"cod_fee_rate"`
	CardFeeRate     string `json:"card_fee_rate"`
	UpdatedAt       string `json:"updated_at,omitempty"`
	UpdatedBy       string `json:"updated_by,omitempty"`
}

type rateConfigResponse struct {
	Tariff rateConfigPayload `json:"tariff"`
}

type rateConfigHistoryResponse struct {
	Items []rateConfigPayload `json:"items"`
}

type seedPricingResponse struct {
	Created bool              `json:"created"`
	Tariff  rateConfigPayload `json:"tariff"`
}

type updatePricingRequest struct {
	ExpectedVersion int     `json:"expected_version"`
	GSTRate         numeric `json:"gst_rate"`
	PickupCity      numeric `json:"pickup_city"`
	PickupCityODA   numeric `json:"pickup_city_oda"`
	CityTier1       numeric `json:"city_tier1"`
	CityTier2       numeric `json:"city_tier2"`
	RegionalBase    numeric `json:"regional_base"`
	RegionalPerKg   numeric `json:"regional_per_kg"`
	NationwideBase  numeric `json:"nationwide_base"`
	NationwidePerKg numeric `json:"nationwide_per_kg"`
	ODASurcharge    numeric `json:"oda_surcharge"`
	MinWeight       numeric `json:"min_weight"`
	VolumeRate      numeric `json:"volume_rate"`
	CancellationFee numeric `json:"cancellation_fee"`
	BookingPickup   numeric `json:"booking_pickup"`
	ExtraPerKg      numeric `json:"extra_per_kg"`
	InsuranceRate   numeric `json:"insurance_rate"`
	CODFeeRate      numeric `json:"cod_fee_rate"`
	CardFeeRate     numeric `json:"card_fee_rate"`
}

func buildRateConfigPayload(cfg services.RateConfig) rateConfigPayload {
	return rateConfigPayload{
		Version:         cfg.Version,
		GSTRate:         cfg.GSTRate.String(),
		PickupCity:      money.Amount(cfg.PickupCity),
		PickupCityODA:   money.Amount(cfg.PickupCityODA),
		CityTier1:       money.Amount(cfg.CityTier1),
		CityTier2:       money.Amount(cfg.CityTier2),
		RegionalBase:    money.Amount(cfg.RegionalBase),
		RegionalPerKg:   money.Amount(cfg.RegionalPerKg),
		NationwideBase:  money.Amount(cfg.NationwideBase),
		NationwidePerKg: money.Amount(cfg.NationwidePerKg),
		ODASurcharge:    money.Amount(cfg.ODASurcharge),
		MinWeight:       cfg.MinWeight.String(),
		VolumeRate:      money.Amount(cfg.VolumeRate),
		CancellationFee: money.Amount(cfg.CancellationFee),
		BookingPickup:   money.Amount(cfg.BookingPickup),
		ExtraPerKg:      money.Amount(cfg.ExtraPerKg),
		InsuranceRate:   cfg.InsuranceRate.String(),
		CODFeeRate:      cfg.CODFeeRate.String(),
		CardFeeRate:     cfg.CardFeeRate.String(),
		UpdatedAt:       formatTime(cfg.UpdatedAt),
		UpdatedBy:       cfg.UpdatedBy,
	}
}

func (h *AdminHandlers) getPricing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.tariff == nil {
		writeUnavailable(ctx, w, "pricing")
		return
	}
	cfg, err := h.tariff.Active(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rateConfigResponse{Tariff: buildRateConfigPayload(cfg)})
}

func (h *AdminHandlers) updatePricing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.tariff == nil {
		writeUnavailable(ctx, w, "pricing")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req updatePricingRequest
	if !httpx.DecodeJSON(w, r, maxPricingBodySize, &req) {
		return
	}

	cfg, err := h.tariff.Update(ctx, services.UpdateRateConfigCommand{
		ExpectedVersion: req.ExpectedVersion,
		GSTRate:         req.GSTRate.Decimal,
		PickupCity:      req.PickupCity.Decimal,
		PickupCityODA:   req.PickupCityODA.Decimal,
		CityTier1:       req.CityTier1.Decimal,
		CityTier2:       req.CityTier2.Decimal,
		RegionalBase:    req.RegionalBase.Decimal,
		RegionalPerKg:   req.RegionalPerKg.Decimal,
		NationwideBase:  req.NationwideBase.Decimal,
		NationwidePerKg: req.NationwidePerKg.Decimal,
		ODASurcharge:    req.ODASurcharge.Decimal,
		MinWeight:       req.MinWeight.Decimal,
		VolumeRate:      req.VolumeRate.Decimal,
		CancellationFee: req.CancellationFee.Decimal,
		BookingPickup:   req.BookingPickup.Decimal,
		ExtraPerKg:      req.ExtraPerKg.Decimal,
		InsuranceRate:   req.InsuranceRate.Decimal,
		CODFeeRate:      req.CODFeeRate.Decimal,
		CardFeeRate:     req.CardFeeRate.Decimal,
		ActorID:         identity.UID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rateConfigResponse{Tariff: buildRateConfigPayload(cfg)})
}

func (h *AdminHandlers) pricingHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.tariff == nil {
		writeUnavailable(ctx, w, "pricing")
		return
	}

	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_input", "limit must be a positive integer", http.StatusBadRequest).WithDetail("field", "limit"))
			return
		}
		limit = min(value, maxHistoryLimit)
	}

	configs, err := h.tariff.History(ctx, limit)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	items := make([]rateConfigPayload, 0, len(configs))
	for _, cfg := range configs {
		items = append(items, buildRateConfigPayload(cfg))
	}
	httpx.WriteJSON(w, http.StatusOK, rateConfigHistoryResponse{Items: items})
}

func (h *AdminHandlers) seedPricing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.tariff == nil {
		writeUnavailable(ctx, w, "pricing")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	cfg, created, err := h.tariff.SeedDefaults(ctx, identity.UID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, seedPricingResponse{Created: created, Tariff: buildRateConfigPayload(cfg)})
}
