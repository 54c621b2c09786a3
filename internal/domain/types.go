package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// Zone groups destinations sharing a per-kg base rate and a standard transit time.
type Zone struct {
	ID           string
	Name         string
	BaseRate     decimal.Decimal
	DeliveryDays int
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DeliveryStatus enumerates the lifecycle of a shipment order.
type DeliveryStatus string

const (
	// DeliveryStatusPending indicates the order is booked and awaits pickup.
	DeliveryStatusPending DeliveryStatus = "pending"
	// DeliveryStatusPickedUp indicates a partner collected the parcel from origin.
	DeliveryStatusPickedUp DeliveryStatus = "picked_up"
	// DeliveryStatusInTransit indicates the parcel is moving between hubs.
	DeliveryStatusInTransit DeliveryStatus = "in_transit"
	// DeliveryStatusDelivered indicates the parcel reached the consignee.
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	// DeliveryStatusCancelled indicates the order was cancelled.
	DeliveryStatusCancelled DeliveryStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed from the status.
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusDelivered || s == DeliveryStatusCancelled
}

// PaymentStatus tracks settlement of an order's total.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Party captures the sender or receiver of a shipment.
type Party struct {
	Name       string
	Phone      string
	Email      string
	Address    string
	City       string
	State      string
	PostalCode string
}

// Order is a booked shipment together with the charges computed when it was placed.
type Order struct {
	ID                string
	Reference         string
	CustomerID        string
	ZoneID            string
	ZoneName          string
	Sender            Party
	Receiver          Party
	Description       string
	Shipment          ShipmentRequest
	Quantity          int
	Breakdown         ChargeBreakdown
	Status            DeliveryStatus
	StatusVersion     int
	PaymentStatus     PaymentStatus
	CancellationFee   decimal.Decimal
	CancelReason      string
	PartnerID         string
	AssignedAt        *time.Time
	InvoiceNumber     string
	InvoiceDate       *time.Time
	EstimatedDelivery time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	PickedUpAt        *time.Time
	DeliveredAt       *time.Time
	CancelledAt       *time.Time
	PaidAt            *time.Time
}

// Invoiced reports whether an invoice has been issued for the order.
func (o Order) Invoiced() bool {
	return o.InvoiceNumber != ""
}

// DeliveryEvent stores a single status update reported against an order.
type DeliveryEvent struct {
	ID         string
	OrderID    string
	Status     DeliveryStatus
	Location   string
	Note       string
	ActorID    string
	ActorRole  string
	OccurredAt time.Time
}

// TimelineEntry is a customer facing milestone derived from status and events.
type TimelineEntry struct {
	Status      DeliveryStatus
	Label       string
	Description string
	Completed   bool
	Timestamp   *time.Time
}

// TicketStatus enumerates support ticket states.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketPriority ranks how urgently a ticket should be handled.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketCategory groups tickets for routing to the right desk.
type TicketCategory string

const (
	TicketCategoryGeneral   TicketCategory = "general"
	TicketCategoryTechnical TicketCategory = "technical"
	TicketCategoryBilling   TicketCategory = "billing"
	TicketCategoryDelivery  TicketCategory = "delivery"
)

// SupportTicket captures a customer query, optionally tied to an order.
type SupportTicket struct {
	ID         string
	Number     string
	CustomerID string
	Email      string
	OrderRef   string
	Subject    string
	Message    string
	Category   TicketCategory
	Status     TicketStatus
	Priority   TicketPriority
	Replies    []TicketReply
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}

// TicketReply is a message appended to a ticket by staff or the customer.
type TicketReply struct {
	AuthorID   string
	AuthorRole string
	Message    string
	CreatedAt  time.Time
}

const (
	// HealthStatusOK signals a healthy dependency.
	HealthStatusOK = "ok"
	// HealthStatusDegraded signals a dependency answering with errors.
	HealthStatusDegraded = "degraded"
	// HealthStatusError signals a dependency that timed out or was unreachable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
