package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/platform/pagination"
	"github.com/parcelrate/api/internal/pricing"
	"github.com/parcelrate/api/internal/repositories"
)

var testNow = time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type repoErr struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e repoErr) Error() string {
	switch {
	case e.notFound:
		return "not found"
	case e.conflict:
		return "conflict"
	default:
		return "unavailable"
	}
}

func (e repoErr) IsNotFound() bool    { return e.notFound }
func (e repoErr) IsConflict() bool    { return e.conflict }
func (e repoErr) IsUnavailable() bool { return e.unavailable }

var (
	errNotFound    error = repoErr{notFound: true}
	errConflict    error = repoErr{conflict: true}
	errUnavailable error = repoErr{unavailable: true}
)

var _ repositories.RepositoryError = repoErr{}

type memoryRateConfigs struct {
	mu         sync.Mutex
	active     *domain.RateConfig
	history    []domain.RateConfig
	activeErr  error
	reads      int
	publishErr error
}

func (m *memoryRateConfigs) Active(context.Context) (domain.RateConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.activeErr != nil {
		return domain.RateConfig{}, m.activeErr
	}
	if m.active == nil {
		return domain.RateConfig{}, errNotFound
	}
	return *m.active, nil
}

func (m *memoryRateConfigs) Publish(_ context.Context, cfg domain.RateConfig, expected int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	current := 0
	if m.active != nil {
		current = m.active.Version
	}
	if current != expected {
		return errConflict
	}
	m.active = &cfg
	m.history = append([]domain.RateConfig{cfg}, m.history...)
	return nil
}

func (m *memoryRateConfigs) History(_ context.Context, limit int) ([]domain.RateConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.history) {
		limit = len(m.history)
	}
	return append([]domain.RateConfig(nil), m.history[:limit]...), nil
}

func seededConfigs() *memoryRateConfigs {
	cfg := pricing.DefaultRateConfig()
	cfg.Version = 1
	return &memoryRateConfigs{active: &cfg, history: []domain.RateConfig{cfg}}
}

type memoryZones struct {
	zones map[string]domain.Zone
	err   error
}

func newMemoryZones(zones ...domain.Zone) *memoryZones {
	m := &memoryZones{zones: map[string]domain.Zone{}}
	for _, zone := range zones {
		m.zones[zone.ID] = zone
	}
	return m
}

func (m *memoryZones) List(_ context.Context, filter repositories.ZoneFilter) ([]domain.Zone, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Zone, 0, len(m.zones))
	for _, zone := range m.zones {
		if filter.ActiveOnly && !zone.Active {
			continue
		}
		out = append(out, zone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryZones) FindByID(_ context.Context, zoneID string) (domain.Zone, error) {
	if m.err != nil {
		return domain.Zone{}, m.err
	}
	zone, ok := m.zones[zoneID]
	if !ok {
		return domain.Zone{}, errNotFound
	}
	return zone, nil
}

func (m *memoryZones) Insert(_ context.Context, zone domain.Zone) error {
	if _, ok := m.zones[zone.ID]; ok {
		return errConflict
	}
	m.zones[zone.ID] = zone
	return nil
}

func (m *memoryZones) Update(_ context.Context, zone domain.Zone) error {
	if _, ok := m.zones[zone.ID]; !ok {
		return errNotFound
	}
	m.zones[zone.ID] = zone
	return nil
}

func (m *memoryZones) Delete(_ context.Context, zoneID string) error {
	if _, ok := m.zones[zoneID]; !ok {
		return errNotFound
	}
	delete(m.zones, zoneID)
	return nil
}

func metroZone() domain.Zone {
	return domain.Zone{
		ID:           "zone-metro",
		Name:         "Metro",
		BaseRate:     decimal.NewFromInt(50),
		DeliveryDays: 2,
		Active:       true,
	}
}

type memoryOrders struct {
	orders    map[string]domain.Order
	events    map[string][]domain.DeliveryEvent
	insertErr error
	updates   int
}

func newMemoryOrders() *memoryOrders {
	return &memoryOrders{orders: map[string]domain.Order{}, events: map[string][]domain.DeliveryEvent{}}
}

func (m *memoryOrders) Insert(_ context.Context, order domain.Order, event *domain.DeliveryEvent) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, ok := m.orders[order.ID]; ok {
		return errConflict
	}
	m.orders[order.ID] = order
	if event != nil {
		m.events[order.ID] = append(m.events[order.ID], *event)
	}
	return nil
}

func (m *memoryOrders) Update(_ context.Context, update repositories.OrderUpdate) error {
	current, ok := m.orders[update.Order.ID]
	if !ok {
		return errNotFound
	}
	if current.StatusVersion != update.ExpectedVersion {
		return errConflict
	}
	m.updates++
	m.orders[update.Order.ID] = update.Order
	if update.Event != nil {
		m.events[update.Order.ID] = append(m.events[update.Order.ID], *update.Event)
	}
	return nil
}

func (m *memoryOrders) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, errNotFound
	}
	return order, nil
}

func (m *memoryOrders) FindByReference(_ context.Context, reference string) (domain.Order, error) {
	for _, order := range m.orders {
		if order.Reference == reference {
			return order, nil
		}
	}
	return domain.Order{}, errNotFound
}

func (m *memoryOrders) List(_ context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if filter.Pagination.PageToken != "" {
		if _, err := pagination.DecodeToken(filter.Pagination.PageToken); err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
	}
	var items []domain.Order
	for _, order := range m.orders {
		if filter.CustomerID != "" && order.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.ZoneID != "" && order.ZoneID != filter.ZoneID {
			continue
		}
		if filter.Unassigned && order.PartnerID != "" {
			continue
		}
		if !filter.Unassigned && filter.PartnerID != "" && order.PartnerID != filter.PartnerID {
			continue
		}
		if filter.Invoiced != nil && order.Invoiced() != *filter.Invoiced {
			continue
		}
		items = append(items, order)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return domain.CursorPage[domain.Order]{Items: items}, nil
}

func (m *memoryOrders) ExistsForZone(_ context.Context, zoneID string) (bool, error) {
	for _, order := range m.orders {
		if order.ZoneID == zoneID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryOrders) ListEvents(_ context.Context, orderID string) ([]domain.DeliveryEvent, error) {
	return append([]domain.DeliveryEvent(nil), m.events[orderID]...), nil
}

type memoryTickets struct {
	tickets map[string]domain.SupportTicket
	filters []repositories.TicketListFilter
}

func newMemoryTickets() *memoryTickets {
	return &memoryTickets{tickets: map[string]domain.SupportTicket{}}
}

func (m *memoryTickets) Insert(_ context.Context, ticket domain.SupportTicket) error {
	if _, ok := m.tickets[ticket.ID]; ok {
		return errConflict
	}
	m.tickets[ticket.ID] = ticket
	return nil
}

func (m *memoryTickets) Update(_ context.Context, ticket domain.SupportTicket) error {
	if _, ok := m.tickets[ticket.ID]; !ok {
		return errNotFound
	}
	m.tickets[ticket.ID] = ticket
	return nil
}

func (m *memoryTickets) FindByID(_ context.Context, ticketID string) (domain.SupportTicket, error) {
	ticket, ok := m.tickets[ticketID]
	if !ok {
		return domain.SupportTicket{}, errNotFound
	}
	return ticket, nil
}

func (m *memoryTickets) List(_ context.Context, filter repositories.TicketListFilter) (domain.CursorPage[domain.SupportTicket], error) {
	m.filters = append(m.filters, filter)
	var items []domain.SupportTicket
	for _, ticket := range m.tickets {
		if filter.CustomerID != "" && ticket.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && ticket.Status != filter.Status {
			continue
		}
		items = append(items, ticket)
	}
	return domain.CursorPage[domain.SupportTicket]{Items: items}, nil
}

type memoryCounters struct {
	values map[string]int64
	err    error
}

func (m *memoryCounters) Next(_ context.Context, counterID string, step int64) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.values == nil {
		m.values = map[string]int64{}
	}
	if step == 0 {
		step = 1
	}
	m.values[counterID] += step
	return m.values[counterID], nil
}

type capturePublisher struct {
	events []DomainEvent
	err    error
}

func (c *capturePublisher) PublishEvent(_ context.Context, event DomainEvent) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.events = append(c.events, event)
	return fmt.Sprintf("msg-%d", len(c.events)), nil
}

func (c *capturePublisher) types() []string {
	out := make([]string, 0, len(c.events))
	for _, event := range c.events {
		out = append(out, event.Type)
	}
	return out
}

type captureMetrics struct {
	quotes      []string
	placed      []string
	transitions []string
	updates     int
}

func (c *captureMetrics) ObserveQuote(path, outcome string, _ float64) {
	c.quotes = append(c.quotes, path+":"+outcome)
}

func (c *captureMetrics) ObserveOrderPlaced(zone, mode string) {
	c.placed = append(c.placed, zone+":"+mode)
}

func (c *captureMetrics) ObserveStatusTransition(status string) {
	c.transitions = append(c.transitions, status)
}

func (c *captureMetrics) ObserveConfigUpdate() { c.updates++ }

func sequenceIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

func fieldOf(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	if field, ok := pricing.FieldOf(err); ok {
		return field
	}
	return ""
}
