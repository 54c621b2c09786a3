package repositories

import (
	"context"

	domain "github.com/parcelrate/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	RateConfigs() RateConfigRepository
	Zones() ZoneRepository
	Orders() OrderRepository
	SupportTickets() SupportTicketRepository
	Counters() CounterRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// RateConfigRepository stores the active tariff and its published history.
type RateConfigRepository interface {
	// Active returns the current tariff. Absence is reported as a RepositoryError with IsNotFound.
	Active(ctx context.Context) (domain.RateConfig, error)
	// Publish makes cfg the active tariff and archives it. expectedVersion is the version the caller
	// read; a mismatch is reported as a conflict. Use 0 when no tariff exists yet.
	Publish(ctx context.Context, cfg domain.RateConfig, expectedVersion int) error
	// History lists published tariffs newest first.
	History(ctx context.Context, limit int) ([]domain.RateConfig, error)
}

// ZoneFilter narrows zone listings.
type ZoneFilter struct {
	ActiveOnly bool
}

// ZoneRepository persists delivery zones.
type ZoneRepository interface {
	List(ctx context.Context, filter ZoneFilter) ([]domain.Zone, error)
	FindByID(ctx context.Context, zoneID string) (domain.Zone, error)
	Insert(ctx context.Context, zone domain.Zone) error
	Update(ctx context.Context, zone domain.Zone) error
	Delete(ctx context.Context, zoneID string) error
}

// OrderListFilter narrows order listings. Empty fields are ignored.
type OrderListFilter struct {
	CustomerID string
	Status     domain.DeliveryStatus
	ZoneID     string
	PartnerID  string
	// Unassigned keeps only orders without a delivery partner and overrides PartnerID.
	Unassigned bool
	Invoiced   *bool
	Pagination domain.Pagination
}

// OrderUpdate applies a new order state guarded by the status version the caller read. Event is
// appended to the order's delivery history in the same write when non-nil.
type OrderUpdate struct {
	Order           domain.Order
	ExpectedVersion int
	Event           *domain.DeliveryEvent
}

// OrderRepository persists shipment orders and their delivery events.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order, event *domain.DeliveryEvent) error
	Update(ctx context.Context, update OrderUpdate) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByReference(ctx context.Context, reference string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	ExistsForZone(ctx context.Context, zoneID string) (bool, error)
	ListEvents(ctx context.Context, orderID string) ([]domain.DeliveryEvent, error)
}

// TicketListFilter narrows ticket listings.
type TicketListFilter struct {
	CustomerID string
	Status     domain.TicketStatus
	Pagination domain.Pagination
}

// SupportTicketRepository persists support tickets with their replies embedded.
type SupportTicketRepository interface {
	Insert(ctx context.Context, ticket domain.SupportTicket) error
	Update(ctx context.Context, ticket domain.SupportTicket) error
	FindByID(ctx context.Context, ticketID string) (domain.SupportTicket, error)
	List(ctx context.Context, filter TicketListFilter) (domain.CursorPage[domain.SupportTicket], error)
}

// CounterRepository issues monotonically increasing sequence values.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// HealthRepository aggregates dependency probes for readiness endpoints.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
