package handlers

import (
	"net/http"
	"strings"
	"time"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/platform/httpx"
	"github.com/parcelrate/api/internal/platform/money"
	"github.com/parcelrate/api/internal/services"
)

type paymentUpdateRequest struct {
	Status string `json:"status"`
}

type orderEventsResponse struct {
	Items []deliveryEventPayload `json:"items"`
}

type assignPartnerRequest struct {
	PartnerID string `json:"partner_id"`
}

type monthlyRevenuePayload struct {
	Month   string `json:"month"`
	Orders  int    `json:"orders"`
	Revenue string `json:"revenue"`
}

type zoneRevenuePayload struct {
	ZoneID   string `json:"zone_id"`
	ZoneName string `json:"zone_name"`
	Orders   int    `json:"orders"`
	Revenue  string `json:"revenue"`
}

type partnerLoadPayload struct {
	PartnerID string `json:"partner_id"`
	Orders    int    `json:"orders"`
}

type orderReportResponse struct {
	GeneratedAt    string                  `json:"generated_at"`
	TotalOrders    int                     `json:"total_orders"`
	StatusCounts   map[string]int          `json:"status_counts"`
	TotalRevenue   string                  `json:"total_revenue"`
	Unassigned     int                     `json:"unassigned"`
	Invoiced       int                     `json:"invoiced"`
	RevenueByMonth []monthlyRevenuePayload `json:"revenue_by_month"`
	TopZones       []zoneRevenuePayload    `json:"top_zones"`
	TopPartners    []partnerLoadPayload    `json:"top_partners"`
}

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	pager, ok := parsePagination(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()

	var invoiced *bool
	switch strings.ToLower(strings.TrimSpace(query.Get("invoice"))) {
	case "":
	case "issued":
		issued := true
		invoiced = &issued
	case "pending":
		pending := false
		invoiced = &pending
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_input", "invoice must be issued or pending", http.StatusBadRequest).WithDetail("field", "invoice"))
		return
	}

	page, err := h.orders.ListAll(ctx, services.OrderFilter{
		Status:     domain.DeliveryStatus(strings.ToLower(strings.TrimSpace(query.Get("status")))),
		ZoneID:     strings.TrimSpace(query.Get("zone_id")),
		CustomerID: strings.TrimSpace(query.Get("customer_id")),
		PartnerID:  strings.TrimSpace(query.Get("partner_id")),
		Invoiced:   invoiced,
		Pagination: pager,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderList(page, h.formatter))
}

func (h *AdminHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	orderID, ok := requirePathParam(w, r, "orderID", "order id")
	if !ok {
		return
	}
	order, err := h.orders.Get(ctx, services.GetOrderCommand{OrderID: orderID, Staff: true})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order, h.formatter)})
}

func (h *AdminHandlers) orderEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	orderID, ok := requirePathParam(w, r, "orderID", "order id")
	if !ok {
		return
	}
	events, err := h.orders.Events(ctx, orderID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderEventsResponse{Items: buildEventPayloads(events, true)})
}

func (h *AdminHandlers) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
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
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order, h.formatter)})
}

func (h *AdminHandlers) updatePayment(w http.ResponseWriter, r *http.Request) {
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
	var req paymentUpdateRequest
	if !httpx.DecodeJSON(w, r, maxStatusBodySize, &req) {
		return
	}

	order, err := h.orders.UpdatePaymentStatus(ctx, services.UpdatePaymentStatusCommand{
		OrderID: orderID,
		Status:  domain.PaymentStatus(req.Status),
		ActorID: identity.UID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order, h.formatter)})
}

func (h *AdminHandlers) listUnassignedOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	pager, ok := parsePagination(w, r)
	if !ok {
		return
	}
	page, err := h.orders.ListUnassigned(ctx, pager)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderList(page, h.formatter))
}

func (h *AdminHandlers) assignPartner(w http.ResponseWriter, r *http.Request) {
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
	var req assignPartnerRequest
	if !httpx.DecodeJSON(w, r, maxStatusBodySize, &req) {
		return
	}

	order, err := h.orders.AssignPartner(ctx, services.AssignPartnerCommand{
		OrderID:   orderID,
		PartnerID: req.PartnerID,
		ActorID:   identity.UID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order, h.formatter)})
}

func (h *AdminHandlers) issueInvoice(w http.ResponseWriter, r *http.Request) {
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

	order, err := h.orders.IssueInvoice(ctx, services.IssueInvoiceCommand{OrderID: orderID, ActorID: identity.UID})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order, h.formatter)})
}

// orderReport accepts optional from/to dates (YYYY-MM-DD). The to date is inclusive.
func (h *AdminHandlers) orderReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	query := r.URL.Query()
	var cmd services.OrderReportCommand
	for _, field := range []string{"from", "to"} {
		raw := strings.TrimSpace(query.Get(field))
		if raw == "" {
			continue
		}
		day, err := time.Parse(dateLayout, raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_input", field+" must be a date (YYYY-MM-DD)", http.StatusBadRequest).WithDetail("field", field))
			return
		}
		if field == "from" {
			cmd.From = day
		} else {
			cmd.To = day.AddDate(0, 0, 1)
		}
	}

	report, err := h.orders.Report(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderReport(report))
}

func buildOrderReport(report services.OrderReport) orderReportResponse {
	resp := orderReportResponse{
		GeneratedAt:    formatTime(report.GeneratedAt),
		TotalOrders:    report.TotalOrders,
		StatusCounts:   make(map[string]int, len(report.StatusCounts)),
		TotalRevenue:   money.Amount(report.TotalRevenue),
		Unassigned:     report.Unassigned,
		Invoiced:       report.Invoiced,
		RevenueByMonth: make([]monthlyRevenuePayload, 0, len(report.RevenueByMonth)),
		TopZones:       make([]zoneRevenuePayload, 0, len(report.TopZones)),
		TopPartners:    make([]partnerLoadPayload, 0, len(report.TopPartners)),
	}
	for status, count := range report.StatusCounts {
		resp.StatusCounts[string(status)] = count
	}
	for _, month := range report.RevenueByMonth {
		resp.RevenueByMonth = append(resp.RevenueByMonth, monthlyRevenuePayload{Month: month.Month, Orders: month.Orders, Revenue: money.Amount(month.Revenue)})
	}
	for _, zone := range report.TopZones {
		resp.TopZones = append(resp.TopZones, zoneRevenuePayload{ZoneID: zone.ZoneID, ZoneName: zone.ZoneName, Orders: zone.Orders, Revenue: money.Amount(zone.Revenue)})
	}
	for _, partner := range report.TopPartners {
		resp.TopPartners = append(resp.TopPartners, partnerLoadPayload{PartnerID: partner.PartnerID, Orders: partner.Orders})
	}
	return resp
}
