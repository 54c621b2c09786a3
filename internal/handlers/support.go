package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parcelrate/api/internal/platform/auth"
	"github.com/parcelrate/api/internal/platform/httpx"
	"github.com/parcelrate/api/internal/services"
)

const maxTicketBodySize = 16 * 1024

// SupportHandlers lets customers raise and follow up on tickets.
type SupportHandlers struct {
	authn   *auth.Authenticator
	support services.SupportService
}

// NewSupportHandlers constructs the /support endpoints.
func NewSupportHandlers(authn *auth.Authenticator, support services.SupportService) *SupportHandlers {
	return &SupportHandlers{authn: authn, support: support}
}

// Routes registers the /support endpoints.
func (h *SupportHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Post("/tickets", h.openTicket)
	r.Get("/tickets", h.listTickets)
	r.Get("/tickets/{ticketID}", h.getTicket)
	r.Post("/tickets/{ticketID}:reply", h.reply)
}

type openTicketRequest struct {
	Email    string `json:"email"`
	OrderRef string `json:"order_ref"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Priority string `json:"priority"`
}

type replyTicketRequest struct {
	Message string `json:"message"`
}

func (h *SupportHandlers) openTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.support == nil {
		writeUnavailable(ctx, w, "support")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req openTicketRequest
	if !httpx.DecodeJSON(w, r, maxTicketBodySize, &req) {
		return
	}
	email := req.Email
	if email == "" {
		email = identity.Email
	}

	ticket, err := h.support.Open(ctx, services.OpenTicketCommand{
		CustomerID: identity.UID,
		Email:      email,
		OrderRef:   req.OrderRef,
		Subject:    req.Subject,
		Message:    req.Message,
		Category:   req.Category,
		Priority:   req.Priority,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, ticketResponse{Ticket: buildTicketPayload(ticket)})
}

func (h *SupportHandlers) listTickets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.support == nil {
		writeUnavailable(ctx, w, "support")
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

	page, err := h.support.ListForCustomer(ctx, identity.UID, pager)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildTicketList(page))
}

func (h *SupportHandlers) getTicket(w http.ResponseWriter, r *http.Request) {
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

	ticket, err := h.support.Get(ctx, services.GetTicketCommand{TicketID: ticketID, ActorID: identity.UID})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ticketResponse{Ticket: buildTicketPayload(ticket)})
}

func (h *SupportHandlers) reply(w http.ResponseWriter, r *http.Request) {
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
		AuthorRole: auth.RoleCustomer,
		Message:    req.Message,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ticketResponse{Ticket: buildTicketPayload(ticket)})
}
