package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/platform/pagination"
	"github.com/parcelrate/api/internal/platform/textutil"
	"github.com/parcelrate/api/internal/pricing"
	"github.com/parcelrate/api/internal/repositories"
)

const (
	orderCounterID       = "orders"
	defaultReferencePfx  = "AAAA"
	maxDescriptionLength = 500
	maxNoteLength        = 500
	maxPartnerIDLength   = 128
	invoicePrefix        = "INV-"
)

// orderTransitions lists the forward moves allowed from each status. Cancellation is handled
// separately and is allowed from any non-terminal status.
var orderTransitions = map[domain.DeliveryStatus][]domain.DeliveryStatus{
	domain.DeliveryStatusPending:   {domain.DeliveryStatusPickedUp},
	domain.DeliveryStatusPickedUp:  {domain.DeliveryStatusInTransit},
	domain.DeliveryStatusInTransit: {domain.DeliveryStatusDelivered},
}

// customerCancellable lists statuses a customer may cancel from.
var customerCancellable = map[domain.DeliveryStatus]bool{
	domain.DeliveryStatusPending:  true,
	domain.DeliveryStatusPickedUp: true,
}

// OrderServiceDeps bundles collaborators for NewOrderService.
type OrderServiceDeps struct {
	Orders          repositories.OrderRepository
	Zones           repositories.ZoneRepository
	Counters        repositories.CounterRepository
	Configs         RateConfigSource
	Events          EventPublisher
	Metrics         Metrics
	ReferencePrefix string
	Clock           func() time.Time
	IDGenerator     func() string
	Logger          func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders   repositories.OrderRepository
	zones    repositories.ZoneRepository
	counters repositories.CounterRepository
	configs  RateConfigSource
	events   EventPublisher
	metrics  Metrics
	prefix   string
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

var _ OrderService = (*orderService)(nil)

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Zones == nil {
		return nil, errors.New("order service: zone repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}
	if deps.Configs == nil {
		return nil, errors.New("order service: rate config source is required")
	}

	prefix := strings.ToUpper(strings.TrimSpace(deps.ReferencePrefix))
	if prefix == "" {
		prefix = defaultReferencePfx
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}

	return &orderService{
		orders:   deps.Orders,
		zones:    deps.Zones,
		counters: deps.Counters,
		configs:  deps.Configs,
		events:   deps.Events,
		metrics:  metrics,
		prefix:   prefix,
		clock:    utcClock(deps.Clock),
		newID:    idGen,
		logger:   logger,
	}, nil
}

// Place prices the shipment on the booking path and persists it as a pending order.
func (s *orderService) Place(ctx context.Context, cmd PlaceOrderCommand) (Order, error) {
	customerID := strings.TrimSpace(cmd.CustomerID)
	if customerID == "" {
		return Order{}, fieldError(ErrOrderInvalidInput, "customer_id", "required")
	}
	sender, err := cleanParty("sender", cmd.Sender)
	if err != nil {
		return Order{}, err
	}
	receiver, err := cleanParty("receiver", cmd.Receiver)
	if err != nil {
		return Order{}, err
	}
	if !cmd.Shipment.PaymentMode.Valid() {
		return Order{}, &pricing.InputError{Field: "payment_mode", Reason: "must be one of cod, card, prepaid"}
	}

	cfg, err := s.configs.Current(ctx)
	if err != nil {
		return Order{}, err
	}
	zone, err := activeZone(ctx, s.zones, cmd.ZoneID)
	if err != nil {
		return Order{}, err
	}

	shipment := cmd.Shipment
	shipment.Description = textutil.Clean(shipment.Description, maxDescriptionLength)
	breakdown, err := pricing.Book(domain.BookingRequest{
		Shipment:     shipment,
		ZoneBaseRate: zone.BaseRate,
		Quantity:     cmd.Quantity,
	}, cfg)
	if err != nil {
		return Order{}, err
	}

	now := s.clock()
	reference, err := s.nextReference(ctx, now)
	if err != nil {
		return Order{}, err
	}

	order := Order{
		ID:                s.newID(),
		Reference:         reference,
		CustomerID:        customerID,
		ZoneID:            zone.ID,
		ZoneName:          zone.Name,
		Sender:            sender,
		Receiver:          receiver,
		Description:       textutil.Clean(cmd.Description, maxDescriptionLength),
		Shipment:          shipment,
		Quantity:          cmd.Quantity,
		Breakdown:         breakdown,
		Status:            domain.DeliveryStatusPending,
		StatusVersion:     1,
		PaymentStatus:     domain.PaymentStatusPending,
		CancellationFee:   decimal.Zero,
		EstimatedDelivery: pricing.EstimateDelivery(now, zone.DeliveryDays),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if shipment.PaymentMode == domain.PaymentModePrepaid {
		order.PaymentStatus = domain.PaymentStatusPaid
		order.PaidAt = &now
	}

	placed := &DeliveryEvent{
		ID:         s.newID(),
		OrderID:    order.ID,
		Status:     domain.DeliveryStatusPending,
		Note:       "Order placed",
		ActorID:    customerID,
		ActorRole:  "customer",
		OccurredAt: now,
	}
	if err := s.orders.Insert(ctx, order, placed); err != nil {
		return Order{}, mapRepositoryError(err, nil, ErrOrderConflict)
	}

	s.metrics.ObserveOrderPlaced(zone.Name, string(shipment.PaymentMode))
	s.logger(ctx, "order.placed", map[string]any{
		"orderId":   order.ID,
		"reference": order.Reference,
		"zone":      zone.Name,
		"total":     breakdown.Total.StringFixed(2),
	})
	publish(ctx, s.events, s.logger, DomainEvent{
		Type:        EventOrderPlaced,
		AggregateID: order.ID,
		Reference:   order.Reference,
		ActorID:     customerID,
		OccurredAt:  now,
		Data: map[string]any{
			"zoneId":      zone.ID,
			"total":       breakdown.Total.StringFixed(2),
			"paymentMode": string(shipment.PaymentMode),
		},
	})
	return order, nil
}

func (s *orderService) Get(ctx context.Context, cmd GetOrderCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fieldError(ErrOrderInvalidInput, "order_id", "required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, mapRepositoryError(err, ErrOrderNotFound, nil)
	}
	// Other customers' orders are reported as missing rather than forbidden.
	if !cmd.Staff && order.CustomerID != strings.TrimSpace(cmd.ActorID) {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return order, nil
}

// Track looks an order up by its public reference.
func (s *orderService) Track(ctx context.Context, reference string) (TrackingView, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if reference == "" {
		return TrackingView{}, fieldError(ErrOrderInvalidInput, "reference", "required")
	}
	order, err := s.orders.FindByReference(ctx, reference)
	if err != nil {
		return TrackingView{}, mapRepositoryError(err, ErrOrderNotFound, nil)
	}
	events, err := s.orders.ListEvents(ctx, order.ID)
	if err != nil {
		return TrackingView{}, mapRepositoryError(err, nil, nil)
	}
	return TrackingView{
		Reference:         order.Reference,
		Status:            order.Status,
		ZoneName:          order.ZoneName,
		DestinationCity:   order.Receiver.City,
		EstimatedDelivery: order.EstimatedDelivery,
		DeliveredAt:       order.DeliveredAt,
		Timeline:          BuildTimeline(order, events),
		Events:            events,
	}, nil
}

func (s *orderService) ListForCustomer(ctx context.Context, customerID string, pager Pagination) (domain.CursorPage[Order], error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.CursorPage[Order]{}, fieldError(ErrOrderInvalidInput, "customer_id", "required")
	}
	return s.list(ctx, repositories.OrderListFilter{CustomerID: customerID, Pagination: pager})
}

func (s *orderService) ListAll(ctx context.Context, filter OrderFilter) (domain.CursorPage[Order], error) {
	if filter.Status != "" && !knownStatus(filter.Status) {
		return domain.CursorPage[Order]{}, fieldError(ErrOrderInvalidInput, "status", "oneof")
	}
	return s.list(ctx, repositories.OrderListFilter{
		CustomerID: strings.TrimSpace(filter.CustomerID),
		Status:     filter.Status,
		ZoneID:     strings.TrimSpace(filter.ZoneID),
		PartnerID:  strings.TrimSpace(filter.PartnerID),
		Invoiced:   filter.Invoiced,
		Pagination: filter.Pagination,
	})
}

// ListUnassigned returns orders that no delivery partner has been assigned to yet.
func (s *orderService) ListUnassigned(ctx context.Context, pager Pagination) (domain.CursorPage[Order], error) {
	return s.list(ctx, repositories.OrderListFilter{Unassigned: true, Pagination: pager})
}

func (s *orderService) list(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[Order], error) {
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.CursorPage[Order]{}, fieldError(ErrOrderInvalidInput, "page_token", "format")
		}
		return domain.CursorPage[Order]{}, mapRepositoryError(err, nil, nil)
	}
	return page, nil
}

// UpdateStatus applies a partner or admin status report. The order is addressed by ID or reference.
func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error) {
	target := domain.DeliveryStatus(textutil.NormalizeKey(string(cmd.Status)))
	if !knownStatus(target) || target == domain.DeliveryStatusPending {
		return Order{}, fieldError(ErrOrderInvalidInput, "status", "oneof")
	}
	actorID := strings.TrimSpace(cmd.ActorID)
	if actorID == "" {
		return Order{}, fieldError(ErrOrderInvalidInput, "actor_id", "required")
	}

	order, err := s.lookup(ctx, cmd.OrderID, cmd.Reference)
	if err != nil {
		return Order{}, err
	}
	// Orders assigned elsewhere are reported as missing to the partner.
	if partnerID := strings.TrimSpace(cmd.PartnerID); partnerID != "" && order.PartnerID != partnerID {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, order.ID)
	}
	if order.Status.IsTerminal() || (target != domain.DeliveryStatusCancelled && !allowedTransition(order.Status, target)) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidState, order.Status, target)
	}

	now := s.clock()
	expected := order.StatusVersion
	applyStatus(&order, target, now)
	if target == domain.DeliveryStatusCancelled {
		order.CancelReason = textutil.Clean(cmd.Note, maxNoteLength)
	}

	event := &DeliveryEvent{
		ID:         s.newID(),
		OrderID:    order.ID,
		Status:     target,
		Location:   textutil.Clean(cmd.Location, 200),
		Note:       textutil.Clean(cmd.Note, maxNoteLength),
		ActorID:    actorID,
		ActorRole:  textutil.NormalizeKey(cmd.ActorRole),
		OccurredAt: now,
	}
	if err := s.save(ctx, order, expected, event); err != nil {
		return Order{}, err
	}
	s.afterTransition(ctx, order, event)
	return order, nil
}

// Cancel lets a customer cancel an order that has not yet left the pickup stage. A cancellation
// after pickup carries the configured cancellation fee.
func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	order, err := s.Get(ctx, GetOrderCommand{OrderID: cmd.OrderID, ActorID: cmd.CustomerID})
	if err != nil {
		return Order{}, err
	}
	if !customerCancellable[order.Status] {
		return Order{}, fmt.Errorf("%w: cannot cancel order in status %s", ErrOrderInvalidState, order.Status)
	}

	fee := decimal.Zero
	if order.Status == domain.DeliveryStatusPickedUp {
		cfg, err := s.configs.Current(ctx)
		if err != nil {
			return Order{}, err
		}
		fee = cfg.CancellationFee.Round(2)
	}

	now := s.clock()
	expected := order.StatusVersion
	applyStatus(&order, domain.DeliveryStatusCancelled, now)
	order.CancellationFee = fee
	order.CancelReason = textutil.Clean(cmd.Reason, maxNoteLength)

	event := &DeliveryEvent{
		ID:         s.newID(),
		OrderID:    order.ID,
		Status:     domain.DeliveryStatusCancelled,
		Note:       order.CancelReason,
		ActorID:    order.CustomerID,
		ActorRole:  "customer",
		OccurredAt: now,
	}
	if err := s.save(ctx, order, expected, event); err != nil {
		return Order{}, err
	}
	s.afterTransition(ctx, order, event)
	return order, nil
}

func (s *orderService) UpdatePaymentStatus(ctx context.Context, cmd UpdatePaymentStatusCommand) (Order, error) {
	target := domain.PaymentStatus(textutil.NormalizeKey(string(cmd.Status)))
	switch target {
	case domain.PaymentStatusPending, domain.PaymentStatusPaid, domain.PaymentStatusRefunded:
	default:
		return Order{}, fieldError(ErrOrderInvalidInput, "payment_status", "oneof")
	}

	order, err := s.Get(ctx, GetOrderCommand{OrderID: cmd.OrderID, Staff: true})
	if err != nil {
		return Order{}, err
	}
	if order.PaymentStatus == target {
		return Order{}, fmt.Errorf("%w: payment already %s", ErrOrderInvalidState, target)
	}
	if target == domain.PaymentStatusRefunded && order.PaymentStatus != domain.PaymentStatusPaid {
		return Order{}, fmt.Errorf("%w: only paid orders can be refunded", ErrOrderInvalidState)
	}

	now := s.clock()
	expected := order.StatusVersion
	order.PaymentStatus = target
	order.StatusVersion++
	order.UpdatedAt = now
	if target == domain.PaymentStatusPaid {
		order.PaidAt = &now
	}
	if err := s.save(ctx, order, expected, nil); err != nil {
		return Order{}, err
	}
	s.logger(ctx, "order.payment_status", map[string]any{
		"orderId": order.ID,
		"status":  string(target),
		"actor":   strings.TrimSpace(cmd.ActorID),
	})
	return order, nil
}

// AssignPartner hands an open order to a delivery partner. Reassigning replaces the partner.
func (s *orderService) AssignPartner(ctx context.Context, cmd AssignPartnerCommand) (Order, error) {
	partnerID := strings.TrimSpace(cmd.PartnerID)
	switch {
	case partnerID == "":
		return Order{}, fieldError(ErrOrderInvalidInput, "partner_id", "required")
	case len(partnerID) > maxPartnerIDLength:
		return Order{}, fieldError(ErrOrderInvalidInput, "partner_id", "max")
	}

	order, err := s.Get(ctx, GetOrderCommand{OrderID: cmd.OrderID, Staff: true})
	if err != nil {
		return Order{}, err
	}
	if order.Status.IsTerminal() {
		return Order{}, fmt.Errorf("%w: cannot assign order in status %s", ErrOrderInvalidState, order.Status)
	}
	if order.PartnerID == partnerID {
		return order, nil
	}

	now := s.clock()
	expected := order.StatusVersion
	previous := order.PartnerID
	order.PartnerID = partnerID
	order.AssignedAt = &now
	order.StatusVersion++
	order.UpdatedAt = now
	if err := s.save(ctx, order, expected, nil); err != nil {
		return Order{}, err
	}

	s.logger(ctx, "order.partner_assigned", map[string]any{
		"orderId":   order.ID,
		"reference": order.Reference,
		"partnerId": partnerID,
		"previous":  previous,
		"actor":     strings.TrimSpace(cmd.ActorID),
	})
	publish(ctx, s.events, s.logger, DomainEvent{
		Type:        EventOrderAssigned,
		AggregateID: order.ID,
		Reference:   order.Reference,
		ActorID:     strings.TrimSpace(cmd.ActorID),
		OccurredAt:  now,
		Data:        map[string]any{"partnerId": partnerID, "previousPartnerId": previous},
	})
	return order, nil
}

// IssueInvoice numbers the order's invoice INV-<reference>. An order that already has an invoice is
// returned unchanged.
func (s *orderService) IssueInvoice(ctx context.Context, cmd IssueInvoiceCommand) (Order, error) {
	order, err := s.Get(ctx, GetOrderCommand{OrderID: cmd.OrderID, Staff: true})
	if err != nil {
		return Order{}, err
	}
	if order.Invoiced() {
		return order, nil
	}

	now := s.clock()
	expected := order.StatusVersion
	order.InvoiceNumber = invoicePrefix + order.Reference
	order.InvoiceDate = &now
	order.StatusVersion++
	order.UpdatedAt = now
	if err := s.save(ctx, order, expected, nil); err != nil {
		return Order{}, err
	}

	s.logger(ctx, "order.invoiced", map[string]any{
		"orderId": order.ID,
		"invoice": order.InvoiceNumber,
		"actor":   strings.TrimSpace(cmd.ActorID),
	})
	publish(ctx, s.events, s.logger, DomainEvent{
		Type:        EventOrderInvoiced,
		AggregateID: order.ID,
		Reference:   order.Reference,
		ActorID:     strings.TrimSpace(cmd.ActorID),
		OccurredAt:  now,
		Data:        map[string]any{"invoiceNumber": order.InvoiceNumber, "total": order.Breakdown.Total.StringFixed(2)},
	})
	return order, nil
}

func (s *orderService) Events(ctx context.Context, orderID string) ([]DeliveryEvent, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fieldError(ErrOrderInvalidInput, "order_id", "required")
	}
	events, err := s.orders.ListEvents(ctx, orderID)
	if err != nil {
		return nil, mapRepositoryError(err, ErrOrderNotFound, nil)
	}
	return events, nil
}

func (s *orderService) Timeline(ctx context.Context, cmd GetOrderCommand) ([]TimelineEntry, error) {
	order, err := s.Get(ctx, cmd)
	if err != nil {
		return nil, err
	}
	events, err := s.orders.ListEvents(ctx, order.ID)
	if err != nil {
		return nil, mapRepositoryError(err, nil, nil)
	}
	return BuildTimeline(order, events), nil
}

func (s *orderService) lookup(ctx context.Context, orderID, reference string) (Order, error) {
	if id := strings.TrimSpace(orderID); id != "" {
		return s.Get(ctx, GetOrderCommand{OrderID: id, Staff: true})
	}
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if reference == "" {
		return Order{}, fieldError(ErrOrderInvalidInput, "order_id", "required")
	}
	order, err := s.orders.FindByReference(ctx, reference)
	if err != nil {
		return Order{}, mapRepositoryError(err, ErrOrderNotFound, nil)
	}
	return order, nil
}

func (s *orderService) save(ctx context.Context, order Order, expected int, event *DeliveryEvent) error {
	err := s.orders.Update(ctx, repositories.OrderUpdate{Order: order, ExpectedVersion: expected, Event: event})
	return mapRepositoryError(err, ErrOrderNotFound, ErrOrderConflict)
}

func (s *orderService) afterTransition(ctx context.Context, order Order, event *DeliveryEvent) {
	s.metrics.ObserveStatusTransition(string(order.Status))
	s.logger(ctx, "order.status_changed", map[string]any{
		"orderId":   order.ID,
		"reference": order.Reference,
		"status":    string(order.Status),
		"actor":     event.ActorID,
	})

	eventType := EventOrderStatusChanged
	data := map[string]any{"status": string(order.Status), "location": event.Location}
	if order.Status == domain.DeliveryStatusCancelled {
		eventType = EventOrderCancelled
		data["cancellationFee"] = order.CancellationFee.StringFixed(2)
	}
	publish(ctx, s.events, s.logger, DomainEvent{
		Type:        eventType,
		AggregateID: order.ID,
		Reference:   order.Reference,
		ActorID:     event.ActorID,
		OccurredAt:  event.OccurredAt,
		Data:        data,
	})
}

// nextReference builds PREFIX + DDMMYY + the order sequence, zero padded to at least four digits.
func (s *orderService) nextReference(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, orderCounterID, 1)
	if err != nil {
		return "", mapRepositoryError(err, nil, nil)
	}
	return FormatReference(s.prefix, now, seq), nil
}

// FormatReference renders an order reference number.
func FormatReference(prefix string, at time.Time, seq int64) string {
	return fmt.Sprintf("%s%s%04d", prefix, at.Format("020106"), seq)
}

func applyStatus(order *Order, target domain.DeliveryStatus, now time.Time) {
	order.Status = target
	order.StatusVersion++
	order.UpdatedAt = now
	switch target {
	case domain.DeliveryStatusPickedUp:
		order.PickedUpAt = &now
	case domain.DeliveryStatusDelivered:
		order.DeliveredAt = &now
	case domain.DeliveryStatusCancelled:
		order.CancelledAt = &now
	}
}

func allowedTransition(from, to domain.DeliveryStatus) bool {
	for _, candidate := range orderTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func knownStatus(status domain.DeliveryStatus) bool {
	switch status {
	case domain.DeliveryStatusPending, domain.DeliveryStatusPickedUp, domain.DeliveryStatusInTransit,
		domain.DeliveryStatusDelivered, domain.DeliveryStatusCancelled:
		return true
	}
	return false
}

func cleanParty(role string, p domain.Party) (domain.Party, error) {
	cleaned := domain.Party{
		Name:       textutil.Clean(p.Name, 100),
		Phone:      strings.TrimSpace(p.Phone),
		Email:      strings.TrimSpace(p.Email),
		Address:    textutil.Clean(p.Address, 500),
		City:       textutil.Clean(p.City, 100),
		State:      textutil.Clean(p.State, 100),
		PostalCode: strings.TrimSpace(p.PostalCode),
	}
	switch {
	case cleaned.Name == "":
		return domain.Party{}, fieldError(ErrOrderInvalidInput, role+".name", "required")
	case cleaned.Phone == "":
		return domain.Party{}, fieldError(ErrOrderInvalidInput, role+".phone", "required")
	case cleaned.Address == "":
		return domain.Party{}, fieldError(ErrOrderInvalidInput, role+".address", "required")
	}
	return cleaned, nil
}
