package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/parcelrate/api/internal/services"
)

// PubSubEventPublisher publishes domain events to a Pub/Sub topic.
type PubSubEventPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubEventPublisher constructs a Pub/Sub backed event publisher.
func NewPubSubEventPublisher(topic *pubsub.Topic) (*PubSubEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub event publisher: topic is required")
	}
	return &PubSubEventPublisher{topic: topic, marshal: json.Marshal}, nil
}

// PublishEvent sends the event as JSON with routing attributes and waits for the server ack.
func (p *PubSubEventPublisher) PublishEvent(ctx context.Context, event services.DomainEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub event publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event %s: %w", event.Type, err)
	}

	attrs := make(map[string]string, 4)
	setAttr(attrs, "eventType", event.Type)
	setAttr(attrs, "aggregateId", event.AggregateID)
	setAttr(attrs, "reference", event.Reference)
	setAttr(attrs, "actorId", event.ActorID)

	result := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish event %s: %w", event.Type, err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *PubSubEventPublisher) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}

func setAttr(attrs map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
