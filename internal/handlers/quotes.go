package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/parcelrate/api/internal/platform/httpx"
	"github.com/parcelrate/api/internal/platform/money"
	"github.com/parcelrate/api/internal/services"
)

const maxQuoteBodySize = 16 * 1024

// QuoteHandlers serves the anonymous pricing endpoints.
type QuoteHandlers struct {
	pricing   services.PricingService
	formatter *money.Formatter
	limiter   rateLimiter
}

// QuoteOption customises QuoteHandlers.
type QuoteOption func(*QuoteHandlers)

// WithQuoteFormatter sets the currency formatter used for formatted_total.
func WithQuoteFormatter(formatter *money.Formatter) QuoteOption {
	return func(h *QuoteHandlers) {
		h.formatter = formatter
	}
}

// WithQuoteRateLimit caps quote requests per caller per minute. Zero disables the limit.
func WithQuoteRateLimit(perMinute int, clock func() time.Time) QuoteOption {
	return func(h *QuoteHandlers) {
		h.limiter = newRateLimiter(perMinute, clock)
	}
}

// NewQuoteHandlers constructs the quote endpoints.
func NewQuoteHandlers(pricing services.PricingService, opts ...QuoteOption) *QuoteHandlers {
	h := &QuoteHandlers{pricing: pricing}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers POST /quotes and POST /quotes:booking.
func (h *QuoteHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	limited := r.With(throttle(h.limiter))
	limited.Post("/quotes", h.quote)
	limited.Post("/quotes:booking", h.bookingQuote)
}

type quoteResponse struct {
	Quote breakdownPayload `json:"quote"`
}

type bookingQuoteRequest struct {
	shipmentRequestPayload
	ZoneID   string `json:"zone_id"`
	Quantity int    `json:"quantity"`
}

type bookingQuoteResponse struct {
	Zone              zonePayload      `json:"zone"`
	Quote             breakdownPayload `json:"quote"`
	EstimatedDelivery string           `json:"estimated_delivery"`
}

func (h *QuoteHandlers) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.pricing == nil {
		writeUnavailable(ctx, w, "pricing")
		return
	}

	var req shipmentRequestPayload
	if !httpx.DecodeJSON(w, r, maxQuoteBodySize, &req) {
		return
	}

	breakdown, err := h.pricing.Quote(ctx, services.QuoteCommand{Shipment: req.toDomain()})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, quoteResponse{Quote: buildBreakdownPayload(breakdown, h.formatter)})
}

func (h *QuoteHandlers) bookingQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.pricing == nil {
		writeUnavailable(ctx, w, "pricing")
		return
	}

	var req bookingQuoteRequest
	if !httpx.DecodeJSON(w, r, maxQuoteBodySize, &req) {
		return
	}

	result, err := h.pricing.QuoteBooking(ctx, services.BookingQuoteCommand{
		Shipment: req.toDomain(),
		ZoneID:   strings.TrimSpace(req.ZoneID),
		Quantity: req.Quantity,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, bookingQuoteResponse{
		Zone:              buildZonePayload(result.Zone),
		Quote:             buildBreakdownPayload(result.Breakdown, h.formatter),
		EstimatedDelivery: formatDate(result.EstimatedDelivery),
	})
}
