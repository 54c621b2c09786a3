package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/parcelrate/api/internal/domain"
	pfirestore "github.com/parcelrate/api/internal/platform/firestore"
	"github.com/parcelrate/api/internal/platform/pagination"
	"github.com/parcelrate/api/internal/repositories"
)

const (
	ordersCollection      = "orders"
	orderEventsCollection = "events"
)

type orderDocument struct {
	Reference         string            `firestore:"reference"`
	CustomerID        string            `firestore:"customer_id"`
	ZoneID            string            `firestore:"zone_id"`
	ZoneName          string            `firestore:"zone_name"`
	Sender            partyDocument     `firestore:"sender"`
	Receiver          partyDocument     `firestore:"receiver"`
	Description       string            `firestore:"description,omitempty"`
	Shipment          shipmentDocument  `firestore:"shipment"`
	Quantity          int               `firestore:"quantity"`
	Breakdown         breakdownDocument `firestore:"breakdown"`
	Status            string            `firestore:"status"`
	StatusVersion     int               `firestore:"status_version"`
	PaymentStatus     string            `firestore:"payment_status"`
	CancellationFee   string            `firestore:"cancellation_fee"`
	CancelReason      string            `firestore:"cancel_reason,omitempty"`
	PartnerID         string            `firestore:"partner_id"`
	AssignedAt        *time.Time        `firestore:"assigned_at,omitempty"`
	InvoiceNumber     string            `firestore:"invoice_number,omitempty"`
	InvoiceDate       *time.Time        `firestore:"invoice_date,omitempty"`
	InvoiceGenerated  bool              `firestore:"invoice_generated"`
	EstimatedDelivery time.Time         `firestore:"estimated_delivery"`
	CreatedAt         time.Time         `firestore:"created_at"`
	UpdatedAt         time.Time         `firestore:"updated_at"`
	PickedUpAt        *time.Time        `firestore:"picked_up_at,omitempty"`
	DeliveredAt       *time.Time        `firestore:"delivered_at,omitempty"`
	CancelledAt       *time.Time        `firestore:"cancelled_at,omitempty"`
	PaidAt            *time.Time        `firestore:"paid_at,omitempty"`
}

type deliveryEventDocument struct {
	Status     string    `firestore:"status"`
	Location   string    `firestore:"location,omitempty"`
	Note       string    `firestore:"note,omitempty"`
	ActorID    string    `firestore:"actor_id"`
	ActorRole  string    `firestore:"actor_role"`
	OccurredAt time.Time `firestore:"occurred_at"`
}

// OrderRepository stores orders in the orders collection with delivery events in a per-order
// subcollection.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.Collection[orderDocument]
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewCollection[orderDocument](provider, ordersCollection),
	}, nil
}

// Insert creates the order and its initial event atomically.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order, event *domain.DeliveryEvent) error {
	ref, err := r.orders.Doc(ctx, order.ID)
	if err != nil {
		return err
	}
	doc := encodeOrder(order)
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(ref, doc); err != nil {
			return err
		}
		if event != nil {
			return tx.Create(ref.Collection(orderEventsCollection).Doc(event.ID), encodeEvent(*event))
		}
		return nil
	})
}

// Update writes the order when the stored status version still matches.
func (r *OrderRepository) Update(ctx context.Context, update repositories.OrderUpdate) error {
	ref, err := r.orders.Doc(ctx, update.Order.ID)
	if err != nil {
		return err
	}
	doc := encodeOrder(update.Order)
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if pfirestore.IsNotFoundCode(err) {
				return pfirestore.NotFound("orders.update", err)
			}
			return err
		}
		current, err := pfirestore.Decode[orderDocument](snap)
		if err != nil {
			return err
		}
		if current.Data.StatusVersion != update.ExpectedVersion {
			return pfirestore.Conflict("orders.update", fmt.Errorf("order %s version is %d, expected %d", update.Order.ID, current.Data.StatusVersion, update.ExpectedVersion))
		}
		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		if update.Event != nil {
			return tx.Create(ref.Collection(orderEventsCollection).Doc(update.Event.ID), encodeEvent(*update.Event))
		}
		return nil
	})
}

// FindByID loads one order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID)
}

// FindByReference looks an order up by its public reference number.
func (r *OrderRepository) FindByReference(ctx context.Context, reference string) (domain.Order, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("reference", "==", reference).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, pfirestore.NotFound("orders.find_by_reference", fmt.Errorf("reference %s not found", reference))
	}
	return docs[0].Data.toDomain(docs[0].ID)
}

// List pages through orders newest first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	pager := pagination.Normalize(filter.Pagination)
	cursor, err := pagination.DecodeToken(pager.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.CustomerID != "" {
			q = q.Where("customer_id", "==", filter.CustomerID)
		}
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		if filter.ZoneID != "" {
			q = q.Where("zone_id", "==", filter.ZoneID)
		}
		switch {
		case filter.Unassigned:
			q = q.Where("partner_id", "==", "")
		case filter.PartnerID != "":
			q = q.Where("partner_id", "==", filter.PartnerID)
		}
		if filter.Invoiced != nil {
			q = q.Where("invoice_generated", "==", *filter.Invoiced)
		}
		q = q.OrderBy("created_at", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if !cursor.IsZero() {
			q = q.StartAfter(cursor.CreatedAt, cursor.ID)
		}
		return q.Limit(pager.PageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	page := domain.CursorPage[domain.Order]{}
	for i, doc := range docs {
		if i == pager.PageSize {
			last := page.Items[len(page.Items)-1]
			page.NextPageToken = pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		order, err := doc.Data.toDomain(doc.ID)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		page.Items = append(page.Items, order)
	}
	return page, nil
}

// ExistsForZone reports whether any order references the zone.
func (r *OrderRepository) ExistsForZone(ctx context.Context, zoneID string) (bool, error) {
	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("zone_id", "==", zoneID).Limit(1)
	})
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// ListEvents returns the order's delivery events oldest first.
func (r *OrderRepository) ListEvents(ctx context.Context, orderID string) ([]domain.DeliveryEvent, error) {
	ref, err := r.orders.Doc(ctx, orderID)
	if err != nil {
		return nil, err
	}
	iter := ref.Collection(orderEventsCollection).OrderBy("occurred_at", firestore.Asc).Documents(ctx)
	docs, err := pfirestore.Collect[deliveryEventDocument](ctx, iter, "orders.events")
	if err != nil {
		return nil, err
	}
	events := make([]domain.DeliveryEvent, 0, len(docs))
	for _, doc := range docs {
		events = append(events, doc.Data.toDomain(doc.ID, orderID))
	}
	return events, nil
}

func encodeOrder(o domain.Order) orderDocument {
	return orderDocument{
		Reference:         o.Reference,
		CustomerID:        o.CustomerID,
		ZoneID:            o.ZoneID,
		ZoneName:          o.ZoneName,
		Sender:            encodeParty(o.Sender),
		Receiver:          encodeParty(o.Receiver),
		Description:       o.Description,
		Shipment:          encodeShipment(o.Shipment),
		Quantity:          o.Quantity,
		Breakdown:         encodeBreakdown(o.Breakdown),
		Status:            string(o.Status),
		StatusVersion:     o.StatusVersion,
		PaymentStatus:     string(o.PaymentStatus),
		CancellationFee:   decimalString(o.CancellationFee),
		CancelReason:      o.CancelReason,
		PartnerID:         o.PartnerID,
		AssignedAt:        utcPtr(o.AssignedAt),
		InvoiceNumber:     o.InvoiceNumber,
		InvoiceDate:       utcPtr(o.InvoiceDate),
		InvoiceGenerated:  o.Invoiced(),
		EstimatedDelivery: o.EstimatedDelivery.UTC(),
		CreatedAt:         o.CreatedAt.UTC(),
		UpdatedAt:         o.UpdatedAt.UTC(),
		PickedUpAt:        utcPtr(o.PickedUpAt),
		DeliveredAt:       utcPtr(o.DeliveredAt),
		CancelledAt:       utcPtr(o.CancelledAt),
		PaidAt:            utcPtr(o.PaidAt),
	}
}

func (d orderDocument) toDomain(id string) (domain.Order, error) {
	var r decimalReader
	order := domain.Order{
		ID:                id,
		Reference:         d.Reference,
		CustomerID:        d.CustomerID,
		ZoneID:            d.ZoneID,
		ZoneName:          d.ZoneName,
		Sender:            d.Sender.toDomain(),
		Receiver:          d.Receiver.toDomain(),
		Description:       d.Description,
		Shipment:          d.Shipment.toDomain(&r),
		Quantity:          d.Quantity,
		Breakdown:         d.Breakdown.toDomain(&r),
		Status:            domain.DeliveryStatus(d.Status),
		StatusVersion:     d.StatusVersion,
		PaymentStatus:     domain.PaymentStatus(d.PaymentStatus),
		CancellationFee:   r.read("cancellation_fee", d.CancellationFee),
		CancelReason:      d.CancelReason,
		PartnerID:         d.PartnerID,
		AssignedAt:        utcPtr(d.AssignedAt),
		InvoiceNumber:     d.InvoiceNumber,
		InvoiceDate:       utcPtr(d.InvoiceDate),
		EstimatedDelivery: d.EstimatedDelivery.UTC(),
		CreatedAt:         d.CreatedAt.UTC(),
		UpdatedAt:         d.UpdatedAt.UTC(),
		PickedUpAt:        utcPtr(d.PickedUpAt),
		DeliveredAt:       utcPtr(d.DeliveredAt),
		CancelledAt:       utcPtr(d.CancelledAt),
		PaidAt:            utcPtr(d.PaidAt),
	}
	if r.err != nil {
		return domain.Order{}, fmt.Errorf("orders %s: %w", id, r.err)
	}
	return order, nil
}

func encodeEvent(e domain.DeliveryEvent) deliveryEventDocument {
	return deliveryEventDocument{
		Status:     string(e.Status),
		Location:   e.Location,
		Note:       e.Note,
		ActorID:    e.ActorID,
		ActorRole:  e.ActorRole,
		OccurredAt: e.OccurredAt.UTC(),
	}
}

func (d deliveryEventDocument) toDomain(id, orderID string) domain.DeliveryEvent {
	return domain.DeliveryEvent{
		ID:         id,
		OrderID:    orderID,
		Status:     domain.DeliveryStatus(d.Status),
		Location:   d.Location,
		Note:       d.Note,
		ActorID:    d.ActorID,
		ActorRole:  d.ActorRole,
		OccurredAt: d.OccurredAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return timePtr(*t)
}
