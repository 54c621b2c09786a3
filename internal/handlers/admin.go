package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/parcelrate/api/internal/platform/auth"
	"github.com/parcelrate/api/internal/platform/money"
	"github.com/parcelrate/api/internal/services"
)

// AdminHandlers serves the staff console: tariff, zones, orders and the support desk.
type AdminHandlers struct {
	authn     *auth.Authenticator
	tariff    services.RateConfigService
	zones     services.ZoneService
	orders    services.OrderService
	support   services.SupportService
	formatter *money.Formatter
}

// AdminDeps bundles the services behind the admin endpoints. Nil services answer 503.
type AdminDeps struct {
	Authenticator *auth.Authenticator
	RateConfigs   services.RateConfigService
	Zones         services.ZoneService
	Orders        services.OrderService
	Support       services.SupportService
	Formatter     *money.Formatter
}

// NewAdminHandlers constructs the /admin endpoints.
func NewAdminHandlers(deps AdminDeps) *AdminHandlers {
	return &AdminHandlers{
		authn:     deps.Authenticator,
		tariff:    deps.RateConfigs,
		zones:     deps.Zones,
		orders:    deps.Orders,
		support:   deps.Support,
		formatter: deps.Formatter,
	}
}

// Routes registers the /admin endpoints. Every route requires the admin role.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth(auth.RoleAdmin))
	}

	r.Get("/pricing", h.getPricing)
	r.Put("/pricing", h.updatePricing)
	r.Get("/pricing/history", h.pricingHistory)
	r.Post("/pricing:seed", h.seedPricing)

	r.Get("/zones", h.listZones)
	r.Post("/zones", h.createZone)
	r.Post("/zones:seed", h.seedZones)
	r.Get("/zones/{zoneID}", h.getZone)
	r.Patch("/zones/{zoneID}", h.updateZone)
	r.Delete("/zones/{zoneID}", h.deleteZone)

	r.Get("/orders", h.listOrders)
	r.Get("/orders:unassigned", h.listUnassignedOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Get("/orders/{orderID}/events", h.orderEvents)
	r.Post("/orders/{orderID}/status", h.updateOrderStatus)
	r.Post("/orders/{orderID}/payment", h.updatePayment)
	r.Post("/orders/{orderID}:assign", h.assignPartner)
	r.Post("/orders/{orderID}:invoice", h.issueInvoice)
	r.Get("/reports/orders", h.orderReport)

	r.Get("/support/tickets", h.listTickets)
	r.Get("/support/tickets/{ticketID}", h.getTicket)
	r.Post("/support/tickets/{ticketID}:reply", h.replyTicket)
	r.Post("/support/tickets/{ticketID}/status", h.updateTicketStatus)
}
