// Package pubsub publishes run-completion events to a Google Cloud Pub/Sub
// topic as JSON.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// EventTopicAttribute carries the logical event topic; the Pub/Sub topic
// itself is fixed when the Publisher is built.
const EventTopicAttribute = "event_topic"

// Topic is the subset of *pubsub.Topic the publisher needs.
type Topic interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// Attributed payloads contribute filterable message attributes.
type Attributed interface {
	Attributes() map[string]string
}

// Publisher sends JSON payloads to one topic.
type Publisher struct {
	topic Topic
}

// New creates a Publisher for topic.
func New(topic Topic) *Publisher {
	return &Publisher{topic: topic}
}

// Publish encodes payload and blocks until the server acknowledges it.
// Trace context from ctx travels in the message attributes.
func (p *Publisher) Publish(ctx context.Context, eventTopic string, payload any) (string, error) {
	if p.topic == nil {
		return "", errors.New("pubsub: topic is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("pubsub: encode %s event: %w", eventTopic, err)
	}

	attrs := propagation.MapCarrier{}
	if a, ok := payload.(Attributed); ok {
		maps.Copy(attrs, a.Attributes())
	}
	if eventTopic != "" {
		attrs[EventTopicAttribute] = eventTopic
	}
	otel.GetTextMapPropagator().Inject(ctx, attrs)

	id, err := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("pubsub: publish %s event: %w", eventTopic, err)
	}
	return id, nil
}
