package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	Zone               = domain.Zone
	Order              = domain.Order
	DeliveryEvent      = domain.DeliveryEvent
	TimelineEntry      = domain.TimelineEntry
	RateConfig         = domain.RateConfig
	ChargeBreakdown    = domain.ChargeBreakdown
	ShipmentRequest    = domain.ShipmentRequest
	SupportTicket      = domain.SupportTicket
	SystemHealthReport = domain.SystemHealthReport
)

// PricingService prices shipments against the active tariff.
type PricingService interface {
	Quote(ctx context.Context, cmd QuoteCommand) (ChargeBreakdown, error)
	QuoteBooking(ctx context.Context, cmd BookingQuoteCommand) (BookingQuote, error)
}

// QuoteCommand prices a shipment on the quote path.
type QuoteCommand struct {
	Shipment ShipmentRequest
}

// BookingQuoteCommand prices a shipment on the booking path for the given zone.
type BookingQuoteCommand struct {
	Shipment ShipmentRequest
	ZoneID   string
	Quantity int
}

// BookingQuote is the booking path breakdown together with the zone it was priced in.
type BookingQuote struct {
	Zone              Zone
	Breakdown         ChargeBreakdown
	EstimatedDelivery time.Time
}

// RateConfigSource hands out the active tariff snapshot.
type RateConfigSource interface {
	Current(ctx context.Context) (*RateConfig, error)
	Invalidate()
}

// RateConfigService manages the tariff lifecycle.
type RateConfigService interface {
	Active(ctx context.Context) (RateConfig, error)
	Update(ctx context.Context, cmd UpdateRateConfigCommand) (RateConfig, error)
	History(ctx context.Context, limit int) ([]RateConfig, error)
	SeedDefaults(ctx context.Context, actorID string) (RateConfig, bool, error)
}

// UpdateRateConfigCommand replaces every rate. ExpectedVersion guards against lost updates.
type UpdateRateConfigCommand struct {
	ExpectedVersion int             `validate:"gte=1"`
	GSTRate         decimal.Decimal `validate:"gte=0,lt=1"`
	PickupCity      decimal.Decimal `validate:"gte=0"`
	PickupCityODA   decimal.Decimal `validate:"gte=0"`
	CityTier1       decimal.Decimal `validate:"gte=0"`
	CityTier2       decimal.Decimal `validate:"gte=0"`
	RegionalBase    decimal.Decimal `validate:"gte=0"`
	RegionalPerKg   decimal.Decimal `validate:"gte=0"`
	NationwideBase  decimal.Decimal `validate:"gte=0"`
	NationwidePerKg decimal.Decimal `validate:"gte=0"`
	ODASurcharge    decimal.Decimal `validate:"gte=0"`
	MinWeight       decimal.Decimal `validate:"gte=0"`
	VolumeRate      decimal.Decimal `validate:"gte=0"`
	CancellationFee decimal.Decimal `validate:"gte=0"`
	BookingPickup   decimal.Decimal `validate:"gte=0"`
	ExtraPerKg      decimal.Decimal `validate:"gte=0"`
	InsuranceRate   decimal.Decimal `validate:"gte=0"`
	CODFeeRate      decimal.Decimal `validate:"gte=0"`
	CardFeeRate     decimal.Decimal `validate:"gte=0"`
	ActorID         string          `validate:"required"`
}

// ZoneService manages delivery zones.
type ZoneService interface {
	List(ctx context.Context, activeOnly bool) ([]Zone, error)
	Get(ctx context.Context, zoneID string) (Zone, error)
	Create(ctx context.Context, cmd CreateZoneCommand) (Zone, error)
	Update(ctx context.Context, cmd UpdateZoneCommand) (Zone, error)
	Delete(ctx context.Context, zoneID string) error
	SeedDefaults(ctx context.Context) (int, error)
}

// CreateZoneCommand creates a zone.
type CreateZoneCommand struct {
	Name         string          `validate:"required,max=100"`
	BaseRate     decimal.Decimal `validate:"gte=0"`
	DeliveryDays int             `validate:"gte=0,lte=60"`
	Active       bool
}

// UpdateZoneCommand patches a zone. Nil fields are left untouched.
type UpdateZoneCommand struct {
	ZoneID       string           `validate:"required"`
	Name         *string          `validate:"omitempty,min=1,max=100"`
	BaseRate     *decimal.Decimal `validate:"omitempty,gte=0"`
	DeliveryDays *int             `validate:"omitempty,gte=0,lte=60"`
	Active       *bool
}

// OrderService books and tracks shipment orders.
type OrderService interface {
	Place(ctx context.Context, cmd PlaceOrderCommand) (Order, error)
	Get(ctx context.Context, cmd GetOrderCommand) (Order, error)
	Track(ctx context.Context, reference string) (TrackingView, error)
	ListForCustomer(ctx context.Context, customerID string, pager Pagination) (domain.CursorPage[Order], error)
	ListAll(ctx context.Context, filter OrderFilter) (domain.CursorPage[Order], error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	UpdatePaymentStatus(ctx context.Context, cmd UpdatePaymentStatusCommand) (Order, error)
	Events(ctx context.Context, orderID string) ([]DeliveryEvent, error)
	Timeline(ctx context.Context, cmd GetOrderCommand) ([]TimelineEntry, error)
	AssignPartner(ctx context.Context, cmd AssignPartnerCommand) (Order, error)
	ListUnassigned(ctx context.Context, pager Pagination) (domain.CursorPage[Order], error)
	IssueInvoice(ctx context.Context, cmd IssueInvoiceCommand) (Order, error)
	Report(ctx context.Context, cmd OrderReportCommand) (OrderReport, error)
}

// PlaceOrderCommand books a shipment for a customer.
type PlaceOrderCommand struct {
	CustomerID  string
	ZoneID      string
	Sender      domain.Party
	Receiver    domain.Party
	Shipment    ShipmentRequest
	Quantity    int
	Description string
}

// GetOrderCommand reads an order on behalf of an actor. Non-staff actors only see their own orders.
type GetOrderCommand struct {
	OrderID string
	ActorID string
	Staff   bool
}

// OrderFilter narrows the staff order listing. Invoiced selects issued (true) or pending (false)
// invoices when set.
type OrderFilter struct {
	Status     domain.DeliveryStatus
	ZoneID     string
	CustomerID string
	PartnerID  string
	Invoiced   *bool
	Pagination Pagination
}

// UpdateOrderStatusCommand moves an order along its delivery lifecycle.
type UpdateOrderStatusCommand struct {
	OrderID   string
	Reference string
	Status    domain.DeliveryStatus
	Location  string
	Note      string
	ActorID   string
	ActorRole string
	// PartnerID restricts the update to orders assigned to that partner.
	PartnerID string
}

// AssignPartnerCommand hands an order to a delivery partner.
type AssignPartnerCommand struct {
	OrderID   string
	PartnerID string
	ActorID   string
}

// IssueInvoiceCommand issues the invoice for an order. Issuing twice keeps the first number.
type IssueInvoiceCommand struct {
	OrderID string
	ActorID string
}

// OrderReportCommand bounds the report to orders created in [From, To). Zero bounds are open.
type OrderReportCommand struct {
	From time.Time
	To   time.Time
}

// OrderReport aggregates orders for the admin dashboard.
type OrderReport struct {
	GeneratedAt    time.Time
	TotalOrders    int
	StatusCounts   map[domain.DeliveryStatus]int
	TotalRevenue   decimal.Decimal
	RevenueByMonth []MonthlyRevenue
	TopZones       []ZoneRevenue
	TopPartners    []PartnerLoad
	Unassigned     int
	Invoiced       int
}

// MonthlyRevenue is the revenue of orders created in one calendar month (YYYY-MM, UTC).
type MonthlyRevenue struct {
	Month   string
	Orders  int
	Revenue decimal.Decimal
}

// ZoneRevenue ranks a zone by the revenue of its orders.
type ZoneRevenue struct {
	ZoneID   string
	ZoneName string
	Orders   int
	Revenue  decimal.Decimal
}

// PartnerLoad counts the orders assigned to a partner.
type PartnerLoad struct {
	PartnerID string
	Orders    int
}

// CancelOrderCommand cancels an order on behalf of its customer.
type CancelOrderCommand struct {
	OrderID    string
	CustomerID string
	Reason     string
}

// UpdatePaymentStatusCommand records settlement of an order.
type UpdatePaymentStatusCommand struct {
	OrderID string
	Status  domain.PaymentStatus
	ActorID string
}

// TrackingView is the public projection of an order looked up by reference.
type TrackingView struct {
	Reference         string
	Status            domain.DeliveryStatus
	ZoneName          string
	DestinationCity   string
	EstimatedDelivery time.Time
	DeliveredAt       *time.Time
	Timeline          []TimelineEntry
	Events            []DeliveryEvent
}

// SupportService handles customer support tickets.
type SupportService interface {
	Open(ctx context.Context, cmd OpenTicketCommand) (SupportTicket, error)
	Get(ctx context.Context, cmd GetTicketCommand) (SupportTicket, error)
	ListForCustomer(ctx context.Context, customerID string, pager Pagination) (domain.CursorPage[SupportTicket], error)
	ListAll(ctx context.Context, status domain.TicketStatus, pager Pagination) (domain.CursorPage[SupportTicket], error)
	Reply(ctx context.Context, cmd ReplyTicketCommand) (SupportTicket, error)
	UpdateStatus(ctx context.Context, cmd UpdateTicketStatusCommand) (SupportTicket, error)
}

// OpenTicketCommand opens a ticket.
type OpenTicketCommand struct {
	CustomerID string `validate:"required"`
	Email      string `validate:"omitempty,email"`
	OrderRef   string `validate:"omitempty,max=20"`
	Subject    string `validate:"required,max=200"`
	Message    string `validate:"required,max=5000"`
	Category   string `validate:"omitempty,oneof=general technical billing delivery"`
	Priority   string `validate:"omitempty,oneof=low normal high urgent"`
}

// GetTicketCommand reads a ticket on behalf of an actor.
type GetTicketCommand struct {
	TicketID string
	ActorID  string
	Staff    bool
}

// ReplyTicketCommand appends a reply.
type ReplyTicketCommand struct {
	TicketID   string `validate:"required"`
	AuthorID   string `validate:"required"`
	AuthorRole string `validate:"required"`
	Message    string `validate:"required,max=5000"`
}

// UpdateTicketStatusCommand changes a ticket's state.
type UpdateTicketStatusCommand struct {
	TicketID string `validate:"required"`
	Status   string `validate:"required,oneof=open in_progress resolved closed"`
	ActorID  string `validate:"required"`
}

// SystemService exposes operational metadata.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// EventPublisher delivers domain events to downstream consumers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event DomainEvent) (string, error)
}
