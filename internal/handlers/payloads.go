package handlers

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
	"github.com/parcelrate/api/internal/platform/money"
	"github.com/parcelrate/api/internal/services"
)

const dateLayout = "2006-01-02"

// numeric is a request amount given as a JSON number or numeric string. Malformed values fail
// as type errors so the decoder can report which key held them.
type numeric struct {
	decimal.Decimal
}

func (n *numeric) UnmarshalJSON(data []byte) error {
	if err := n.Decimal.UnmarshalJSON(data); err != nil {
		return &json.UnmarshalTypeError{Value: "non-numeric " + string(data), Type: reflect.TypeOf(n.Decimal)}
	}
	return nil
}

func optionalNumeric(n *numeric) *decimal.Decimal {
	if n == nil {
		return nil
	}
	value := n.Decimal
	return &value
}

type dimensionsPayload struct {
	LengthCM numeric `json:"length_cm"`
	WidthCM  numeric `json:"width_cm"`
	HeightCM numeric `json:"height_cm"`
}

type shipmentRequestPayload struct {
	Origin         string            `json:"origin"`
	DistanceKM     numeric           `json:"distance_km"`
	WeightKG       numeric           `json:"weight_kg"`
	Dimensions     dimensionsPayload `json:"dimensions"`
	DeclaredValue  numeric           `json:"declared_value"`
	ODA            bool              `json:"oda"`
	PaymentMode    string            `json:"payment_mode"`
	Insurance      bool              `json:"insurance"`
	InsuranceValue numeric           `json:"insurance_value"`
	Description    string            `json:"description"`
}

func (p shipmentRequestPayload) toDomain() domain.ShipmentRequest {
	return domain.ShipmentRequest{
		Origin:   domain.OriginClass(strings.ToLower(strings.TrimSpace(p.Origin))),
		Distance: p.DistanceKM.Decimal,
		Weight:   p.WeightKG.Decimal,
		Dimensions: domain.Dimensions{
			Length: p.Dimensions.LengthCM.Decimal,
			Width:  p.Dimensions.WidthCM.Decimal,
			Height: p.Dimensions.HeightCM.Decimal,
		},
		DeclaredValue:      p.DeclaredValue.Decimal,
		ODA:                p.ODA,
		PaymentMode:        domain.PaymentMode(strings.ToLower(strings.TrimSpace(p.PaymentMode))),
		InsuranceRequested: p.Insurance,
		InsuranceValue:     p.InsuranceValue.Decimal,
		Description:        strings.TrimSpace(p.Description),
	}
}

type shipmentPayload struct {
	Origin         string `json:"origin,omitempty"`
	DistanceKM     string `json:"distance_km,omitempty"`
	WeightKG       string `json:"weight_kg"`
	LengthCM       string `json:"length_cm"`
	WidthCM        string `json:"width_cm"`
	HeightCM       string `json:"height_cm"`
	DeclaredValue  string `json:"declared_value"`
	ODA            bool   `json:"oda"`
	PaymentMode    string `json:"payment_mode"`
	Insurance      bool   `json:"insurance"`
	InsuranceValue string `json:"insurance_value,omitempty"`
}

func buildShipmentPayload(s domain.ShipmentRequest) shipmentPayload {
	payload := shipmentPayload{
		Origin:        string(s.Origin),
		WeightKG:      s.Weight.String(),
		LengthCM:      s.Dimensions.Length.String(),
		WidthCM:       s.Dimensions.Width.String(),
		HeightCM:      s.Dimensions.Height.String(),
		DeclaredValue: money.Amount(s.DeclaredValue),
		ODA:           s.ODA,
		PaymentMode:   string(s.PaymentMode),
		Insurance:     s.InsuranceRequested,
	}
	if s.Distance.IsPositive() {
		payload.DistanceKM = s.Distance.String()
	}
	if s.InsuranceRequested {
		payload.InsuranceValue = money.Amount(s.InsuranceValue)
	}
	return payload
}

type weightingPayload struct {
	BillableWeightKG string `json:"billable_weight_kg"`
	VolumeCubicM     string `json:"volume_cubic_m"`
	WeightCost       string `json:"weight_cost"`
	VolumeCost       string `json:"volume_cost"`
	VolumeApplied    bool   `json:"volume_applied"`
}

type breakdownPayload struct {
	Path                    string            `json:"path"`
	ConfigVersion           int               `json:"config_version"`
	Currency                string            `json:"currency"`
	Pickup                  string            `json:"pickup"`
	Delivery                string            `json:"delivery"`
	ExtraWeight             string            `json:"extra_weight"`
	Volumetric              string            `json:"volumetric"`
	ODASurcharge            string            `json:"oda_surcharge"`
	Insurance               string            `json:"insurance"`
	PaymentFee              string            `json:"payment_fee"`
	Subtotal                string            `json:"subtotal"`
	GST                     string            `json:"gst"`
	Total                   string            `json:"total"`
	FormattedTotal          string            `json:"formatted_total"`
	CustomsDocumentRequired bool              `json:"customs_document_required"`
	Weighting               *weightingPayload `json:"weighting,omitempty"`
}

func buildBreakdownPayload(b domain.ChargeBreakdown, formatter *money.Formatter) breakdownPayload {
	payload := breakdownPayload{
		Path:                    string(b.Path),
		ConfigVersion:           b.ConfigVersion,
		Currency:                formatter.Code(),
		Pickup:                  money.Amount(b.Pickup),
		Delivery:                money.Amount(b.Delivery),
		ExtraWeight:             money.Amount(b.ExtraWeight),
		Volumetric:              money.Amount(b.Volumetric),
		ODASurcharge:            money.Amount(b.ODASurcharge),
		Insurance:               money.Amount(b.Insurance),
		PaymentFee:              money.Amount(b.PaymentFee),
		Subtotal:                money.Amount(b.Subtotal),
		GST:                     money.Amount(b.GST),
		Total:                   money.Amount(b.Total),
		FormattedTotal:          formatter.Format(b.Total),
		CustomsDocumentRequired: b.CustomsDocumentRequired,
	}
	if w := b.Weighting; w != nil {
		payload.Weighting = &weightingPayload{
			BillableWeightKG: w.BillableWeight.String(),
			VolumeCubicM:     w.VolumeCubicM.String(),
			WeightCost:       money.Amount(w.WeightCost),
			VolumeCost:       money.Amount(w.VolumeCost),
			VolumeApplied:    w.VolumeApplied,
		}
	}
	return payload
}

type partyPayload struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

func (p partyPayload) toDomain() domain.Party {
	return domain.Party{
		Name:       p.Name,
		Phone:      p.Phone,
		Email:      p.Email,
		Address:    p.Address,
		City:       p.City,
		State:      p.State,
		PostalCode: p.PostalCode,
	}
}

func buildPartyPayload(p domain.Party) partyPayload {
	return partyPayload{
		Name:       p.Name,
		Phone:      p.Phone,
		Email:      p.Email,
		Address:    p.Address,
		City:       p.City,
		State:      p.State,
		PostalCode: p.PostalCode,
	}
}

type orderPayload struct {
	ID                string           `json:"id"`
	Reference         string           `json:"reference"`
	Status            string           `json:"status"`
	PaymentStatus     string           `json:"payment_status"`
	ZoneID            string           `json:"zone_id"`
	ZoneName          string           `json:"zone_name"`
	Sender            partyPayload     `json:"sender"`
	Receiver          partyPayload     `json:"receiver"`
	Description       string           `json:"description,omitempty"`
	Quantity          int              `json:"quantity"`
	Shipment          shipmentPayload  `json:"shipment"`
	Charges           breakdownPayload `json:"charges"`
	CancellationFee   string           `json:"cancellation_fee,omitempty"`
	CancelReason      string           `json:"cancel_reason,omitempty"`
	PartnerID         string           `json:"partner_id,omitempty"`
	AssignedAt        string           `json:"assigned_at,omitempty"`
	InvoiceNumber     string           `json:"invoice_number,omitempty"`
	InvoiceDate       string           `json:"invoice_date,omitempty"`
	InvoiceGenerated  bool             `json:"invoice_generated"`
	EstimatedDelivery string           `json:"estimated_delivery,omitempty"`
	CreatedAt         string           `json:"created_at"`
	UpdatedAt         string           `json:"updated_at,omitempty"`
	PickedUpAt        string           `json:"picked_up_at,omitempty"`
	DeliveredAt       string           `json:"delivered_at,omitempty"`
	CancelledAt       string           `json:"cancelled_at,omitempty"`
	PaidAt            string           `json:"paid_at,omitempty"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderListResponse struct {
	Items         []orderPayload `json:"items"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

func buildOrderPayload(order services.Order, formatter *money.Formatter) orderPayload {
	payload := orderPayload{
		ID:                order.ID,
		Reference:         order.Reference,
		Status:            string(order.Status),
		PaymentStatus:     string(order.PaymentStatus),
		ZoneID:            order.ZoneID,
		ZoneName:          order.ZoneName,
		Sender:            buildPartyPayload(order.Sender),
		Receiver:          buildPartyPayload(order.Receiver),
		Description:       order.Description,
		Quantity:          order.Quantity,
		Shipment:          buildShipmentPayload(order.Shipment),
		Charges:           buildBreakdownPayload(order.Breakdown, formatter),
		CancelReason:      order.CancelReason,
		PartnerID:         order.PartnerID,
		AssignedAt:        formatTimePtr(order.AssignedAt),
		InvoiceNumber:     order.InvoiceNumber,
		InvoiceDate:       formatTimePtr(order.InvoiceDate),
		InvoiceGenerated:  order.Invoiced(),
		EstimatedDelivery: formatDate(order.EstimatedDelivery),
		CreatedAt:         formatTime(order.CreatedAt),
		UpdatedAt:         formatTime(order.UpdatedAt),
		PickedUpAt:        formatTimePtr(order.PickedUpAt),
		DeliveredAt:       formatTimePtr(order.DeliveredAt),
		CancelledAt:       formatTimePtr(order.CancelledAt),
		PaidAt:            formatTimePtr(order.PaidAt),
	}
	if order.Status == domain.DeliveryStatusCancelled {
		payload.CancellationFee = money.Amount(order.CancellationFee)
	}
	return payload
}

func buildOrderList(page domain.CursorPage[services.Order], formatter *money.Formatter) orderListResponse {
	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderPayload(order, formatter))
	}
	return orderListResponse{Items: items, NextPageToken: strings.TrimSpace(page.NextPageToken)}
}

type timelineEntryPayload struct {
	Status      string `json:"status"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Timestamp   string `json:"timestamp,omitempty"`
}

func buildTimelinePayload(entries []services.TimelineEntry) []timelineEntryPayload {
	out := make([]timelineEntryPayload, 0, len(entries))
	for _, entry := range entries {
		out = append(out, timelineEntryPayload{
			Status:      string(entry.Status),
			Label:       entry.Label,
			Description: entry.Description,
			Completed:   entry.Completed,
			Timestamp:   formatTimePtr(entry.Timestamp),
		})
	}
	return out
}

type deliveryEventPayload struct {
	Status     string `json:"status"`
	Location   string `json:"location,omitempty"`
	Note       string `json:"note,omitempty"`
	ActorID    string `json:"actor_id,omitempty"`
	ActorRole  string `json:"actor_role,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// buildEventPayloads renders delivery events. Actor ids are only included for staff views.
func buildEventPayloads(events []services.DeliveryEvent, includeActor bool) []deliveryEventPayload {
	out := make([]deliveryEventPayload, 0, len(events))
	for _, event := range events {
		item := deliveryEventPayload{
			Status:     string(event.Status),
			Location:   event.Location,
			Note:       event.Note,
			ActorRole:  event.ActorRole,
			OccurredAt: formatTime(event.OccurredAt),
		}
		if includeActor {
			item.ActorID = event.ActorID
		}
		out = append(out, item)
	}
	return out
}

type zonePayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	BaseRate     string `json:"base_rate"`
	DeliveryDays int    `json:"delivery_days"`
	Active       bool   `json:"active"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

func buildZonePayload(zone services.Zone) zonePayload {
	return zonePayload{
		ID:           zone.ID,
		Name:         zone.Name,
		BaseRate:     money.Amount(zone.BaseRate),
		DeliveryDays: zone.DeliveryDays,
		Active:       zone.Active,
		CreatedAt:    formatTime(zone.CreatedAt),
		UpdatedAt:    formatTime(zone.UpdatedAt),
	}
}

func buildZoneList(zones []services.Zone) []zonePayload {
	out := make([]zonePayload, 0, len(zones))
	for _, zone := range zones {
		out = append(out, buildZonePayload(zone))
	}
	return out
}

type ticketReplyPayload struct {
	AuthorRole string `json:"author_role"`
	Message    string `json:"message"`
	CreatedAt  string `json:"created_at"`
}

type ticketPayload struct {
	ID         string               `json:"id"`
	Number     string               `json:"number"`
	CustomerID string               `json:"customer_id,omitempty"`
	Email      string               `json:"email,omitempty"`
	OrderRef   string               `json:"order_ref,omitempty"`
	Subject    string               `json:"subject"`
	Message    string               `json:"message"`
	Category   string               `json:"category"`
	Status     string               `json:"status"`
	Priority   string               `json:"priority"`
	Replies    []ticketReplyPayload `json:"replies"`
	CreatedAt  string               `json:"created_at"`
	UpdatedAt  string               `json:"updated_at,omitempty"`
	ResolvedAt string               `json:"resolved_at,omitempty"`
}

type ticketResponse struct {
	Ticket ticketPayload `json:"ticket"`
}

type ticketListResponse struct {
	Items         []ticketPayload `json:"items"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

func buildTicketPayload(ticket services.SupportTicket) ticketPayload {
	replies := make([]ticketReplyPayload, 0, len(ticket.Replies))
	for _, reply := range ticket.Replies {
		replies = append(replies, ticketReplyPayload{
			AuthorRole: reply.AuthorRole,
			Message:    reply.Message,
			CreatedAt:  formatTime(reply.CreatedAt),
		})
	}
	return ticketPayload{
		ID:         ticket.ID,
		Number:     ticket.Number,
		CustomerID: ticket.CustomerID,
		Email:      ticket.Email,
		OrderRef:   ticket.OrderRef,
		Subject:    ticket.Subject,
		Message:    ticket.Message,
		Category:   string(ticket.Category),
		Status:     string(ticket.Status),
		Priority:   string(ticket.Priority),
		Replies:    replies,
		CreatedAt:  formatTime(ticket.CreatedAt),
		UpdatedAt:  formatTime(ticket.UpdatedAt),
		ResolvedAt: formatTimePtr(ticket.ResolvedAt),
	}
}

func buildTicketList(page domain.CursorPage[services.SupportTicket]) ticketListResponse {
	items := make([]ticketPayload, 0, len(page.Items))
	for _, ticket := range page.Items {
		items = append(items, buildTicketPayload(ticket))
	}
	return ticketListResponse{Items: items, NextPageToken: strings.TrimSpace(page.NextPageToken)}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
