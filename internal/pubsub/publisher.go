package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
)

// Message is an outgoing event. OrderingKey keeps events that share it in
// publish order; leave it empty when order does not matter.
type Message struct {
	Data        []byte
	Attributes  map[string]string
	OrderingKey string
}

// Publisher sends messages to a topic and returns the server-assigned ID.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) (string, error)
}

// PubSubPublisher publishes to Google Pub/Sub. Topic handles are cached
// because each one owns its own batching goroutines.
type PubSubPublisher struct {
	client *pubsub.Client

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewPublisher creates a publisher for the given GCP project.
// PUBSUB_EMULATOR_HOST is honoured by the client library.
func NewPublisher(ctx context.Context, projectID string) (*PubSubPublisher, error) {
	if projectID == "" {
		return nil, fmt.Errorf("failed to create Pub/Sub client: project ID is empty")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}
	return &PubSubPublisher{client: client, topics: make(map[string]*pubsub.Topic)}, nil
}

func (p *PubSubPublisher) topic(name string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.topics[name]
	if !ok {
		t = p.client.Topic(name)
		t.EnableMessageOrdering = true
		p.topics[name] = t
	}
	return t
}

// Publish waits for the server acknowledgement. A failed ordered publish
// pauses its key, so the key is resumed before returning the error.
func (p *PubSubPublisher) Publish(ctx context.Context, topic string, msg Message) (string, error) {
	t := p.topic(topic)
	result := t.Publish(ctx, &pubsub.Message{
		Data:        msg.Data,
		Attributes:  msg.Attributes,
		OrderingKey: msg.OrderingKey,
	})
	id, err := result.Get(ctx)
	if err != nil {
		if msg.OrderingKey != "" {
			t.ResumePublish(msg.OrderingKey)
		}
		return "", fmt.Errorf("failed to publish message to topic %s: %w", topic, err)
	}
	return id, nil
}

// Close flushes pending messages on every topic and releases the client.
func (p *PubSubPublisher) Close() error {
	p.mu.Lock()
	for _, t := range p.topics {
		t.Stop()
	}
	p.topics = map[string]*pubsub.Topic{}
	p.mu.Unlock()
	return p.client.Close()
}

// PublishJSON marshals v as the message body and publishes it with attrs.
func PublishJSON(ctx context.Context, pub Publisher, topic, orderingKey string, v any, attrs map[string]string) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message for topic %s: %w", topic, err)
	}
	return pub.Publish(ctx, topic, Message{Data: payload, Attributes: attrs, OrderingKey: orderingKey})
}
