package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/parcelrate/api/internal/platform/auth"
	"github.com/parcelrate/api/internal/platform/httpx"
	"github.com/parcelrate/api/internal/platform/money"
	"github.com/parcelrate/api/internal/platform/pagination"
	"github.com/parcelrate/api/internal/services"
)

const (
	maxOrderBodySize       = 32 * 1024
	maxOrderCancelBodySize = 4 * 1024
)

// OrderHandlers exposes order endpoints for authenticated customers.
type OrderHandlers struct {
	authn       *auth.Authenticator
	orders      services.OrderService
	formatter   *money.Formatter
	idempotency func(http.Handler) http.Handler
}

// OrderOption customises OrderHandlers.
type OrderOption func(*OrderHandlers)

// WithOrderFormatter sets the currency formatter used in order payloads.
func WithOrderFormatter(formatter *money.Formatter) OrderOption {
	return func(h *OrderHandlers) {
		h.formatter = formatter
	}
}

// WithOrderIdempotency guards order placement with the given middleware.
func WithOrderIdempotency(mw func(http.Handler) http.Handler) OrderOption {
	return func(h *OrderHandlers) {
		h.idempotency = mw
	}
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, opts ...OrderOption) *OrderHandlers {
	h := &OrderHandlers{authn: authn, orders: orders}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	place := http.Handler(http.HandlerFunc(h.placeOrder))
	if h.idempotency != nil {
		place = h.idempotency(place)
	}
	r.Method(http.MethodPost, "/", place)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Get("/{orderID}/timeline", h.getTimeline)
	r.Post("/{orderID}:cancel", h.cancelOrder)
}

type placeOrderRequest struct {
	ZoneID      string                 `json:"zone_id"`
	Sender      partyPayload           `json:"sender"`
	Receiver    partyPayload           `json:"receiver"`
	Shipment    shipmentRequestPayload `json:"shipment"`
	Quantity    int                    `json:"quantity"`
	Description string                 `json:"description"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type timelineResponse struct {
	Reference string                 `json:"reference"`
	Status    string                 `json:"status"`
	Timeline  []timelineEntryPayload `json:"timeline"`
}

func (h *OrderHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req placeOrderRequest
	if !httpx.DecodeJSON(w, r, maxOrderBodySize, &req) {
		return
	}

	order, err := h.orders.Place(ctx, services.PlaceOrderCommand{
		CustomerID:  identity.UID,
		ZoneID:      strings.TrimSpace(req.ZoneID),
		Sender:      req.Sender.toDomain(),
		Receiver:    req.Receiver.toDomain(),
		Shipment:    req.Shipment.toDomain(),
		Quantity:    req.Quantity,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/orders/"+order.ID)
	httpx.WriteJSON(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order, h.formatter)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	pager, ok := parsePagination(w, r)
	if !ok {
		return
	}

	page, err := h.orders.ListForCustomer(ctx, identity.UID, pager)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderList(page, h.formatter))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	orderID, ok := requirePathParam(w, r, "orderID", "order id")
	if !ok {
		return
	}

	order, err := h.orders.Get(ctx, services.GetOrderCommand{OrderID: orderID, ActorID: identity.UID, Staff: isStaff(identity)})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order, h.formatter)})
}

func (h *OrderHandlers) getTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	orderID, ok := requirePathParam(w, r, "orderID", "order id")
	if !ok {
		return
	}

	cmd := services.GetOrderCommand{OrderID: orderID, ActorID: identity.UID, Staff: isStaff(identity)}
	order, err := h.orders.Get(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	timeline, err := h.orders.Timeline(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, timelineResponse{
		Reference: order.Reference,
		Status:    string(order.Status),
		Timeline:  buildTimelinePayload(timeline),
	})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	orderID, ok := requirePathParam(w, r, "orderID", "order id")
	if !ok {
		return
	}

	var req cancelOrderRequest
	if !decodeOptionalJSON(w, r, maxOrderCancelBodySize, &req) {
		return
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderID:    orderID,
		CustomerID: identity.UID,
		Reason:     req.Reason,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order, h.formatter)})
}

// parsePagination reads pageSize and pageToken, writing a 400 naming the bad parameter.
func parsePagination(w http.ResponseWriter, r *http.Request) (services.Pagination, bool) {
	pager, err := pagination.FromRequest(r)
	if err == nil {
		return pager, true
	}
	field := "page_token"
	if errors.Is(err, pagination.ErrInvalidPageSize) {
		field = "page_size"
	}
	httpx.WriteError(r.Context(), w, httpx.NewError("invalid_input", err.Error(), http.StatusBadRequest).WithDetail("field", field))
	return services.Pagination{}, false
}

func requirePathParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	value := strings.TrimSpace(chi.URLParam(r, name))
	if value == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", label+" is required", http.StatusBadRequest))
		return "", false
	}
	return value, true
}
