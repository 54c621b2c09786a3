package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/platform/auth"
	"github.com/parcelrate/api/internal/services"
)

func sampleTicket() services.SupportTicket {
	return services.SupportTicket{
		ID:         "tkt-001",
		Number:     "TKT240305A1B2",
		CustomerID: "cust-1",
		Subject:    "Where is my parcel?",
		Message:    "It was due yesterday.",
		Category:   domain.TicketCategoryDelivery,
		Status:     domain.TicketStatusOpen,
		Priority:   domain.TicketPriorityNormal,
		CreatedAt:  handlerNow,
	}
}

func supportRouter(h *SupportHandlers) http.Handler {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func TestSupportHandlersOpenTicket(t *testing.T) {
	var captured services.OpenTicketCommand
	svc := &stubSupportService{
		openFn: func(_ context.Context, cmd services.OpenTicketCommand) (services.SupportTicket, error) {
			captured = cmd
			return sampleTicket(), nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/tickets", strings.NewReader(`{"subject":"Where is my parcel?","message":"It was due yesterday.","category":"delivery","order_ref":"aaaa0503240001"}`))
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "cust-1", Email: "asha@example.com", Roles: []string{auth.RoleCustomer}}))

	rr := httptest.NewRecorder()
	supportRouter(NewSupportHandlers(nil, svc)).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.CustomerID != "cust-1" || captured.Email != "asha@example.com" || captured.OrderRef != "aaaa0503240001" {
		t.Fatalf("unexpected command %+v", captured)
	}
	ticket := decodeBody(t, rr.Body.Bytes())["ticket"].(map[string]any)
	if ticket["number"] != "TKT240305A1B2" || ticket["status"] != "open" {
		t.Fatalf("unexpected ticket payload %v", ticket)
	}
}

func TestSupportHandlersOpenTicketValidation(t *testing.T) {
	svc := &stubSupportService{
		openFn: func(context.Context, services.OpenTicketCommand) (services.SupportTicket, error) {
			return services.SupportTicket{}, fmt.Errorf("%w: subject required", services.ErrTicketInvalidInput)
		},
	}
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/tickets", strings.NewReader(`{"message":"hi"}`)), "cust-1")
	rr := httptest.NewRecorder()
	supportRouter(NewSupportHandlers(nil, svc)).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSupportHandlersReplyAsCustomer(t *testing.T) {
	var captured services.ReplyTicketCommand
	svc := &stubSupportService{
		replyFn: func(_ context.Context, cmd services.ReplyTicketCommand) (services.SupportTicket, error) {
			captured = cmd
			if cmd.TicketID == "tkt-closed" {
				return services.SupportTicket{}, services.ErrTicketInvalidState
			}
			ticket := sampleTicket()
			ticket.Replies = []domain.TicketReply{{AuthorID: cmd.AuthorID, AuthorRole: cmd.AuthorRole, Message: cmd.Message, CreatedAt: handlerNow}}
			return ticket, nil
		},
	}
	handler := supportRouter(NewSupportHandlers(nil, svc))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withIdentity(httptest.NewRequest(http.MethodPost, "/tickets/tkt-001:reply", strings.NewReader(`{"message":"Any update?"}`)), "cust-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.AuthorRole != auth.RoleCustomer || captured.AuthorID != "cust-1" || captured.TicketID != "tkt-001" {
		t.Fatalf("unexpected reply command %+v", captured)
	}
	replies := decodeBody(t, rr.Body.Bytes())["ticket"].(map[string]any)["replies"].([]any)
	if len(replies) != 1 {
		t.Fatalf("expected one reply, got %d", len(replies))
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, withIdentity(httptest.NewRequest(http.MethodPost, "/tickets/tkt-closed:reply", strings.NewReader(`{"message":"hello?"}`)), "cust-1"))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestSupportHandlersGetTicketScopedToCustomer(t *testing.T) {
	var captured services.GetTicketCommand
	svc := &stubSupportService{
		getFn: func(_ context.Context, cmd services.GetTicketCommand) (services.SupportTicket, error) {
			captured = cmd
			return services.SupportTicket{}, services.ErrTicketNotFound
		},
	}
	rr := httptest.NewRecorder()
	supportRouter(NewSupportHandlers(nil, svc)).ServeHTTP(rr, withIdentity(httptest.NewRequest(http.MethodGet, "/tickets/tkt-009", nil), "cust-2"))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if captured.ActorID != "cust-2" || captured.Staff {
		t.Fatalf("unexpected read command %+v", captured)
	}
}
