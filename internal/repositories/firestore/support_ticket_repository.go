package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/parcelrate/api/internal/domain"
	pfirestore "github.com/parcelrate/api/internal/platform/firestore"
	"github.com/parcelrate/api/internal/platform/pagination"
	"github.com/parcelrate/api/internal/repositories"
)

const supportTicketsCollection = "support_tickets"

type ticketReplyDocument struct {
	AuthorID   string    `firestore:"author_id"`
	AuthorRole string    `firestore:"author_role"`
	Message    string    `firestore:"message"`
	CreatedAt  time.Time `firestore:"created_at"`
}

type supportTicketDocument struct {
	Number     string                `firestore:"number"`
	CustomerID string                `firestore:"customer_id"`
	Email      string                `firestore:"email,omitempty"`
	OrderRef   string                `firestore:"order_ref,omitempty"`
	Subject    string                `firestore:"subject"`
	Message    string                `firestore:"message"`
	Category   string                `firestore:"category"`
	Status     string                `firestore:"status"`
	Priority   string                `firestore:"priority"`
	Replies    []ticketReplyDocument `firestore:"replies"`
	CreatedAt  time.Time             `firestore:"created_at"`
	UpdatedAt  time.Time             `firestore:"updated_at"`
	ResolvedAt *time.Time            `firestore:"resolved_at,omitempty"`
}

// SupportTicketRepository stores tickets with their replies embedded in the ticket document.
type SupportTicketRepository struct {
	tickets *pfirestore.Collection[supportTicketDocument]
}

var _ repositories.SupportTicketRepository = (*SupportTicketRepository)(nil)

// NewSupportTicketRepository constructs a Firestore-backed ticket repository.
func NewSupportTicketRepository(provider *pfirestore.Provider) (*SupportTicketRepository, error) {
	if provider == nil {
		return nil, errors.New("support ticket repository requires firestore provider")
	}
	return &SupportTicketRepository{tickets: pfirestore.NewCollection[supportTicketDocument](provider, supportTicketsCollection)}, nil
}

// Insert creates a ticket.
func (r *SupportTicketRepository) Insert(ctx context.Context, ticket domain.SupportTicket) error {
	return r.tickets.Create(ctx, ticket.ID, encodeTicket(ticket))
}

// Update overwrites an existing ticket.
func (r *SupportTicketRepository) Update(ctx context.Context, ticket domain.SupportTicket) error {
	if _, err := r.tickets.Get(ctx, ticket.ID); err != nil {
		return err
	}
	return r.tickets.Set(ctx, ticket.ID, encodeTicket(ticket))
}

// FindByID loads a ticket.
func (r *SupportTicketRepository) FindByID(ctx context.Context, ticketID string) (domain.SupportTicket, error) {
	doc, err := r.tickets.Get(ctx, ticketID)
	if err != nil {
		return domain.SupportTicket{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List pages through tickets newest first.
func (r *SupportTicketRepository) List(ctx context.Context, filter repositories.TicketListFilter) (domain.CursorPage[domain.SupportTicket], error) {
	pager := pagination.Normalize(filter.Pagination)
	cursor, err := pagination.DecodeToken(pager.PageToken)
	if err != nil {
		return domain.CursorPage[domain.SupportTicket]{}, err
	}
	docs, err := r.tickets.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.CustomerID != "" {
			q = q.Where("customer_id", "==", filter.CustomerID)
		}
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		q = q.OrderBy("created_at", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if !cursor.IsZero() {
			q = q.StartAfter(cursor.CreatedAt, cursor.ID)
		}
		return q.Limit(pager.PageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.SupportTicket]{}, err
	}

	page := domain.CursorPage[domain.SupportTicket]{}
	for i, doc := range docs {
		if i == pager.PageSize {
			last := page.Items[len(page.Items)-1]
			page.NextPageToken = pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		page.Items = append(page.Items, doc.Data.toDomain(doc.ID))
	}
	return page, nil
}

func encodeTicket(t domain.SupportTicket) supportTicketDocument {
	replies := make([]ticketReplyDocument, 0, len(t.Replies))
	for _, reply := range t.Replies {
		replies = append(replies, ticketReplyDocument{
			AuthorID:   reply.AuthorID,
			AuthorRole: reply.AuthorRole,
			Message:    reply.Message,
			CreatedAt:  reply.CreatedAt.UTC(),
		})
	}
	return supportTicketDocument{
		Number:     t.Number,
		CustomerID: t.CustomerID,
		Email:      t.Email,
		OrderRef:   t.OrderRef,
		Subject:    t.Subject,
		Message:    t.Message,
		Category:   string(t.Category),
		Status:     string(t.Status),
		Priority:   string(t.Priority),
		Replies:    replies,
		CreatedAt:  t.CreatedAt.UTC(),
		UpdatedAt:  t.UpdatedAt.UTC(),
		ResolvedAt: utcPtr(t.ResolvedAt),
	}
}

func (d supportTicketDocument) toDomain(id string) domain.SupportTicket {
	var replies []domain.TicketReply
	for _, reply := range d.Replies {
		replies = append(replies, domain.TicketReply{
			AuthorID:   reply.AuthorID,
			AuthorRole: reply.AuthorRole,
			Message:    reply.Message,
			CreatedAt:  reply.CreatedAt.UTC(),
		})
	}
	return domain.SupportTicket{
		ID:         id,
		Number:     d.Number,
		CustomerID: d.CustomerID,
		Email:      d.Email,
		OrderRef:   d.OrderRef,
		Subject:    d.Subject,
		Message:    d.Message,
		Category:   domain.TicketCategory(d.Category),
		Status:     domain.TicketStatus(d.Status),
		Priority:   domain.TicketPriority(d.Priority),
		Replies:    replies,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
		ResolvedAt: utcPtr(d.ResolvedAt),
	}
}
