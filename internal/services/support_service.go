package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/platform/pagination"
	"github.com/parcelrate/api/internal/platform/textutil"
	"github.com/parcelrate/api/internal/repositories"
)

const (
	ticketNumberPrefix = "TKT"
	maxSubjectLength   = 200
	maxMessageLength   = 5000
)

// SupportServiceDeps bundles collaborators for NewSupportService.
type SupportServiceDeps struct {
	Tickets     repositories.SupportTicketRepository
	Clock       func() time.Time
	IDGenerator func() string
	// NumberSuffix returns the random part of a ticket number.
	NumberSuffix func() string
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type supportService struct {
	tickets   repositories.SupportTicketRepository
	validate  *validator.Validate
	clock     func() time.Time
	newID     func() string
	newSuffix func() string
	logger    func(context.Context, string, map[string]any)
}

var _ SupportService = (*supportService)(nil)

// NewSupportService constructs a SupportService.
func NewSupportService(deps SupportServiceDeps) (SupportService, error) {
	if deps.Tickets == nil {
		return nil, errors.New("support service: ticket repository is required")
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	suffix := deps.NumberSuffix
	if suffix == nil {
		suffix = ulidSuffix
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &supportService{
		tickets:   deps.Tickets,
		validate:  newValidator(),
		clock:     utcClock(deps.Clock),
		newID:     idGen,
		newSuffix: suffix,
		logger:    logger,
	}, nil
}

func (s *supportService) Open(ctx context.Context, cmd OpenTicketCommand) (SupportTicket, error) {
	cmd.CustomerID = strings.TrimSpace(cmd.CustomerID)
	cmd.Email = strings.TrimSpace(cmd.Email)
	cmd.OrderRef = strings.ToUpper(strings.TrimSpace(cmd.OrderRef))
	cmd.Subject = textutil.PlainText(cmd.Subject)
	cmd.Message = textutil.PlainText(cmd.Message)
	cmd.Category = textutil.NormalizeKey(cmd.Category)
	cmd.Priority = textutil.NormalizeKey(cmd.Priority)
	if err := s.validate.Struct(cmd); err != nil {
		return SupportTicket{}, validationError(ErrTicketInvalidInput, err)
	}

	category := domain.TicketCategory(cmd.Category)
	if category == "" {
		category = domain.TicketCategoryGeneral
	}
	priority := domain.TicketPriority(cmd.Priority)
	if priority == "" {
		priority = domain.TicketPriorityNormal
	}

	now := s.clock()
	ticket := SupportTicket{
		ID:         s.newID(),
		Number:     FormatTicketNumber(now, s.newSuffix()),
		CustomerID: cmd.CustomerID,
		Email:      cmd.Email,
		OrderRef:   cmd.OrderRef,
		Subject:    cmd.Subject,
		Message:    cmd.Message,
		Category:   category,
		Status:     domain.TicketStatusOpen,
		Priority:   priority,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.tickets.Insert(ctx, ticket); err != nil {
		return SupportTicket{}, mapRepositoryError(err, nil, nil)
	}
	s.logger(ctx, "support.ticket_opened", map[string]any{
		"ticketId": ticket.ID,
		"number":   ticket.Number,
		"category": string(category),
		"priority": string(priority),
	})
	return ticket, nil
}

func (s *supportService) Get(ctx context.Context, cmd GetTicketCommand) (SupportTicket, error) {
	ticketID := strings.TrimSpace(cmd.TicketID)
	if ticketID == "" {
		return SupportTicket{}, fieldError(ErrTicketInvalidInput, "ticket_id", "required")
	}
	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return SupportTicket{}, mapRepositoryError(err, ErrTicketNotFound, nil)
	}
	if !cmd.Staff && ticket.CustomerID != strings.TrimSpace(cmd.ActorID) {
		return SupportTicket{}, fmt.Errorf("%w: %s", ErrTicketNotFound, ticketID)
	}
	return ticket, nil
}

func (s *supportService) ListForCustomer(ctx context.Context, customerID string, pager Pagination) (domain.CursorPage[SupportTicket], error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.CursorPage[SupportTicket]{}, fieldError(ErrTicketInvalidInput, "customer_id", "required")
	}
	return s.list(ctx, repositories.TicketListFilter{CustomerID: customerID, Pagination: pager})
}

func (s *supportService) ListAll(ctx context.Context, status domain.TicketStatus, pager Pagination) (domain.CursorPage[SupportTicket], error) {
	if status != "" && !knownTicketStatus(status) {
		return domain.CursorPage[SupportTicket]{}, fieldError(ErrTicketInvalidInput, "status", "oneof")
	}
	return s.list(ctx, repositories.TicketListFilter{Status: status, Pagination: pager})
}

func (s *supportService) list(ctx context.Context, filter repositories.TicketListFilter) (domain.CursorPage[SupportTicket], error) {
	page, err := s.tickets.List(ctx, filter)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.CursorPage[SupportTicket]{}, fieldError(ErrTicketInvalidInput, "page_token", "format")
		}
		return domain.CursorPage[SupportTicket]{}, mapRepositoryError(err, nil, nil)
	}
	return page, nil
}

// Reply appends a message. Customers may only reply to their own tickets, and the first staff
// reply moves an open ticket to in_progress.
func (s *supportService) Reply(ctx context.Context, cmd ReplyTicketCommand) (SupportTicket, error) {
	cmd.AuthorRole = textutil.NormalizeKey(cmd.AuthorRole)
	cmd.Message = textutil.PlainText(cmd.Message)
	if err := s.validate.Struct(cmd); err != nil {
		return SupportTicket{}, validationError(ErrTicketInvalidInput, err)
	}

	staff := cmd.AuthorRole != "customer"
	ticket, err := s.Get(ctx, GetTicketCommand{TicketID: cmd.TicketID, ActorID: cmd.AuthorID, Staff: staff})
	if err != nil {
		return SupportTicket{}, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return SupportTicket{}, fmt.Errorf("%w: ticket is closed", ErrTicketInvalidState)
	}

	now := s.clock()
	ticket.Replies = append(ticket.Replies, domain.TicketReply{
		AuthorID:   strings.TrimSpace(cmd.AuthorID),
		AuthorRole: cmd.AuthorRole,
		Message:    cmd.Message,
		CreatedAt:  now,
	})
	if staff && ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusInProgress
	}
	ticket.UpdatedAt = now

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return SupportTicket{}, mapRepositoryError(err, ErrTicketNotFound, nil)
	}
	s.logger(ctx, "support.ticket_replied", map[string]any{
		"ticketId": ticket.ID,
		"role":     cmd.AuthorRole,
		"status":   string(ticket.Status),
	})
	return ticket, nil
}

// UpdateStatus is staff only. Closed tickets cannot be reopened.
func (s *supportService) UpdateStatus(ctx context.Context, cmd UpdateTicketStatusCommand) (SupportTicket, error) {
	cmd.Status = textutil.NormalizeKey(cmd.Status)
	if err := s.validate.Struct(cmd); err != nil {
		return SupportTicket{}, validationError(ErrTicketInvalidInput, err)
	}

	ticket, err := s.Get(ctx, GetTicketCommand{TicketID: cmd.TicketID, Staff: true})
	if err != nil {
		return SupportTicket{}, err
	}
	target := domain.TicketStatus(cmd.Status)
	if ticket.Status == domain.TicketStatusClosed && target != domain.TicketStatusClosed {
		return SupportTicket{}, fmt.Errorf("%w: ticket is closed", ErrTicketInvalidState)
	}
	if ticket.Status == target {
		return ticket, nil
	}

	now := s.clock()
	ticket.Status = target
	ticket.UpdatedAt = now
	switch target {
	case domain.TicketStatusResolved, domain.TicketStatusClosed:
		if ticket.ResolvedAt == nil {
			ticket.ResolvedAt = &now
		}
	default:
		ticket.ResolvedAt = nil
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return SupportTicket{}, mapRepositoryError(err, ErrTicketNotFound, nil)
	}
	s.logger(ctx, "support.ticket_status", map[string]any{
		"ticketId": ticket.ID,
		"status":   string(target),
		"actor":    strings.TrimSpace(cmd.ActorID),
	})
	return ticket, nil
}

// FormatTicketNumber renders TKT + YYMMDD + suffix.
func FormatTicketNumber(at time.Time, suffix string) string {
	return ticketNumberPrefix + at.Format("060102") + strings.ToUpper(suffix)
}

func ulidSuffix() string {
	id := ulid.Make().String()
	return id[len(id)-4:]
}

func knownTicketStatus(status domain.TicketStatus) bool {
	switch status {
	case domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed:
		return true
	}
	return false
}
