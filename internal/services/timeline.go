package services

import (
	"time"

	domain "github.com/parcelrate/api/internal/domain"
)

// BuildTimeline derives the customer facing milestones for an order. Timestamps come from the
// order's own milestone fields, falling back to the first matching delivery event.
func BuildTimeline(order Order, events []DeliveryEvent) []TimelineEntry {
	firstEvent := make(map[domain.DeliveryStatus]time.Time, len(events))
	for _, event := range events {
		if _, ok := firstEvent[event.Status]; !ok {
			firstEvent[event.Status] = event.OccurredAt
		}
	}
	at := func(explicit *time.Time, status domain.DeliveryStatus) *time.Time {
		if explicit != nil {
			t := *explicit
			return &t
		}
		if t, ok := firstEvent[status]; ok {
			return &t
		}
		return nil
	}

	created := order.CreatedAt
	timeline := []TimelineEntry{{
		Status:      domain.DeliveryStatusPending,
		Label:       "Order Placed",
		Description: "Your order has been placed successfully",
		Completed:   true,
		Timestamp:   &created,
	}}

	switch order.Status {
	case domain.DeliveryStatusPickedUp, domain.DeliveryStatusInTransit, domain.DeliveryStatusDelivered:
		timeline = append(timeline, TimelineEntry{
			Status:      domain.DeliveryStatusPickedUp,
			Label:       "Package Picked Up",
			Description: "Package has been picked up from origin",
			Completed:   true,
			Timestamp:   at(order.PickedUpAt, domain.DeliveryStatusPickedUp),
		})
	}
	switch order.Status {
	case domain.DeliveryStatusInTransit, domain.DeliveryStatusDelivered:
		timeline = append(timeline, TimelineEntry{
			Status:      domain.DeliveryStatusInTransit,
			Label:       "In Transit",
			Description: "Package is on the way to destination",
			Completed:   true,
			Timestamp:   at(nil, domain.DeliveryStatusInTransit),
		})
	}

	switch order.Status {
	case domain.DeliveryStatusDelivered:
		timeline = append(timeline, TimelineEntry{
			Status:      domain.DeliveryStatusDelivered,
			Label:       "Delivered",
			Description: "Package has been delivered successfully",
			Completed:   true,
			Timestamp:   at(order.DeliveredAt, domain.DeliveryStatusDelivered),
		})
	case domain.DeliveryStatusCancelled:
		timeline = append(timeline, TimelineEntry{
			Status:      domain.DeliveryStatusCancelled,
			Label:       "Cancelled",
			Description: "Order has been cancelled",
			Completed:   true,
			Timestamp:   at(order.CancelledAt, domain.DeliveryStatusCancelled),
		})
	default:
		eta := order.EstimatedDelivery
		timeline = append(timeline, TimelineEntry{
			Status:      domain.DeliveryStatusDelivered,
			Label:       "Delivered",
			Description: "Expected delivery by " + eta.Format("January 02, 2006"),
			Completed:   false,
			Timestamp:   &eta,
		})
	}
	return timeline
}
