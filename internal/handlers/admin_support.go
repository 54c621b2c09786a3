package handlers

import (
	"net/http"
	"strings"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/platform/httpx"
	"github.com/parcelrate/api/internal/services"
)

const staffReplyRole = "staff"

type ticketStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandlers) listTickets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.support == nil {
		writeUnavailable(ctx, w, "support")
		return
	}
	pager, ok := parsePagination(w, r)
	if !ok {
		return
	}
	status := domain.TicketStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))))

	page, err := h.support.ListAll(ctx, status, pager)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildTicketList(page))
}

func (h *AdminHandlers) getTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.support == nil {
		writeUnavailable(ctx, w, "support")
		return
	}
	ticketID, ok := requirePathParam(w, r, "ticketID", "ticket id")
	if !ok {
		return
	}
	ticket, err := h.support.Get(ctx, services.GetTicketCommand{TicketID: ticketID, Staff: true})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ticketResponse{Ticket: buildTicketPayload(ticket)})
}

func (h *AdminHandlers) replyTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.support == nil {
		writeUnavailable(ctx, w, "support")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	ticketID, ok := requirePathParam(w, r, "ticketID", "ticket id")
	if !ok {
		return
	}
	var req replyTicketRequest
	if !httpx.DecodeJSON(w, r, maxTicketBodySize, &req) {
		return
	}

	ticket, err := h.support.Reply(ctx, services.ReplyTicketCommand{
		TicketID:   ticketID,
		AuthorID:   identity.UID,
		AuthorRole: staffReplyRole,
		Message:    req.Message,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ticketResponse{Ticket: buildTicketPayload(ticket)})
}

func (h *AdminHandlers) updateTicketStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.support == nil {
		writeUnavailable(ctx, w, "support")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	ticketID, ok := requirePathParam(w, r, "ticketID", "ticket id")
	if !ok {
		return
	}
	var req ticketStatusRequest
	if !httpx.DecodeJSON(w, r, maxTicketBodySize, &req) {
		return
	}

	ticket, err := h.support.UpdateStatus(ctx, services.UpdateTicketStatusCommand{
		TicketID: ticketID,
		Status:   req.Status,
		ActorID:  identity.UID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ticketResponse{Ticket: buildTicketPayload(ticket)})
}
