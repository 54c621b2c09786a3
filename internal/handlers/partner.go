package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/platform/auth"
	"github.com/parcelrate/api/internal/platform/httpx"
	"github.com/parcelrate/api/internal/platform/money"
	"github.com/parcelrate/api/internal/services"
)

const (
	maxStatusBodySize   = 8 * 1024
	webhookActorDefault = "partner-webhook"
)

// PartnerHandlers lets delivery partners report progress on the orders they carry.
type PartnerHandlers struct {
	authn     *auth.Authenticator
	orders    services.OrderService
	formatter *money.Formatter
}

// NewPartnerHandlers constructs the /partner endpoints.
func NewPartnerHandlers(authn *auth.Authenticator, orders services.OrderService, formatter *money.Formatter) *PartnerHandlers {
	return &PartnerHandlers{authn: authn, orders: orders, formatter: formatter}
}

// Routes registers the /partner endpoints.
func (h *PartnerHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth(auth.RolePartner, auth.RoleAdmin))
	}
	r.Get("/orders", h.listOrders)
	r.Post("/orders/{orderID}/status", h.updateStatus)
}

type statusUpdateRequest struct {
	Status   string `json:"status"`
	Location string `json:"location"`
	Note     string `json:"note"`
}

func (h *PartnerHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	pager, ok := parsePagination(w, r)
	if !ok {
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	query := r.URL.Query()
	page, err := h.orders.ListAll(ctx, services.OrderFilter{
		Status:     domain.DeliveryStatus(strings.ToLower(strings.TrimSpace(query.Get("status")))),
		ZoneID:     strings.TrimSpace(query.Get("zone_id")),
		PartnerID:  assignedPartner(identity),
		Pagination: pager,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderList(page, h.formatter))
}

func (h *PartnerHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
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

	var req statusUpdateRequest
	if !httpx.DecodeJSON(w, r, maxStatusBodySize, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(ctx, services.UpdateOrderStatusCommand{
		OrderID:   orderID,
		Status:    domain.DeliveryStatus(req.Status),
		Location:  req.Location,
		Note:      req.Note,
		ActorID:   identity.UID,
		ActorRole: identity.PrimaryRole(),
		PartnerID: assignedPartner(identity),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order, h.formatter)})
}

// assignedPartner scopes partner callers to the orders assigned to them. Admins see every order.
func assignedPartner(identity *auth.Identity) string {
	if identity.HasRole(auth.RoleAdmin) {
		return ""
	}
	return identity.UID
}

// WebhookHandlers accepts signed status callbacks from delivery partner systems.
type WebhookHandlers struct {
	orders services.OrderService
}

// NewWebhookHandlers constructs the /webhooks endpoints. Signature checks are applied by the router.
func NewWebhookHandlers(orders services.OrderService) *WebhookHandlers {
	return &WebhookHandlers{orders: orders}
}

// Routes registers the /webhooks endpoints.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/partner-status", h.partnerStatus)
}

type partnerStatusRequest struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Location  string `json:"location"`
	Note      string `json:"note"`
	PartnerID string `json:"partner_id"`
}

type partnerStatusResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

func (h *WebhookHandlers) partnerStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}

	var req partnerStatusRequest
	if !httpx.DecodeJSON(w, r, maxStatusBodySize, &req) {
		return
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_input", "reference is required", http.StatusBadRequest).WithDetail("field", "reference"))
		return
	}
	actor := strings.TrimSpace(req.PartnerID)
	if actor == "" {
		actor = webhookActorDefault
	}

	order, err := h.orders.UpdateStatus(ctx, services.UpdateOrderStatusCommand{
		Reference: reference,
		Status:    domain.DeliveryStatus(req.Status),
		Location:  req.Location,
		Note:      req.Note,
		ActorID:   actor,
		ActorRole: auth.RolePartner,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, partnerStatusResponse{
		Reference: order.Reference,
		Status:    string(order.Status),
		UpdatedAt: formatTime(order.UpdatedAt),
	})
}
