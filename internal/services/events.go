package services

import (
	"context"
	"time"
)

// Event types published to the events topic.
const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
	EventOrderAssigned      = "order.assigned"
	EventOrderInvoiced      = "order.invoiced"
	EventRateConfigUpdated  = "rate_config.updated"
)

// DomainEvent is the envelope published for downstream consumers such as notification workers.
type DomainEvent struct {
	Type        string         `json:"type"`
	AggregateID string         `json:"aggregateId"`
	Reference   string         `json:"reference,omitempty"`
	ActorID     string         `json:"actorId,omitempty"`
	OccurredAt  time.Time      `json:"occurredAt"`
	Data        map[string]any `json:"data,omitempty"`
}

type eventLogger func(ctx context.Context, event string, fields map[string]any)

// publish is fire-and-log: a failed publish never fails the request that produced the event.
func publish(ctx context.Context, publisher EventPublisher, logger eventLogger, event DomainEvent) {
	if publisher == nil {
		return
	}
	id, err := publisher.PublishEvent(ctx, event)
	if err != nil {
		logger(ctx, "event.publish.failed", map[string]any{
			"type":      event.Type,
			"aggregate": event.AggregateID,
			"error":     err.Error(),
		})
		return
	}
	logger(ctx, "event.published", map[string]any{
		"type":      event.Type,
		"aggregate": event.AggregateID,
		"messageId": id,
	})
}

func noopLogger(context.Context, string, map[string]any) {}

func utcClock(clock func() time.Time) func() time.Time {
	if clock == nil {
		clock = time.Now
	}
	return func() time.Time { return clock().UTC() }
}
