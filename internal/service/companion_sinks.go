package service

import (
	"context"

	"astra/internal/model"
	"astra/internal/pgmq"
	"astra/internal/pubsub"
)

// MemoryReferenceQueue hands memory reference bookkeeping to a background worker.
type MemoryReferenceQueue interface {
	EnqueueReference(ctx context.Context, job model.MemoryReferenceJob) error
}

// ExchangePublisher announces completed companion exchanges.
type ExchangePublisher interface {
	PublishExchange(ctx context.Context, ev model.ExchangeEvent) error
}

type pgmqReferenceQueue struct {
	client *pgmq.Client
	queue  string
}

// NewPGMQReferenceQueue enqueues reference jobs on a pgmq queue.
func NewPGMQReferenceQueue(client *pgmq.Client, queue string) MemoryReferenceQueue {
	return &pgmqReferenceQueue{client: client, queue: queue}
}

func (q *pgmqReferenceQueue) EnqueueReference(ctx context.Context, job model.MemoryReferenceJob) error {
	return q.client.SendJSON(ctx, q.queue, job)
}

type pubSubExchangePublisher struct {
	pub   pubsub.Publisher
	topic string
}

// NewPubSubExchangePublisher publishes exchange events to a Pub/Sub topic.
func NewPubSubExchangePublisher(pub pubsub.Publisher, topic string) ExchangePublisher {
	return &pubSubExchangePublisher{pub: pub, topic: topic}
}

// PublishExchange orders events per user so consumers replay a conversation
// in the order it happened.
func (p *pubSubExchangePublisher) PublishExchange(ctx context.Context, ev model.ExchangeEvent) error {
	_, err := pubsub.PublishJSON(ctx, p.pub, p.topic, ev.UserID, ev, map[string]string{
		"event":     "companion_exchange",
		"user_id":   ev.UserID,
		"window_id": ev.WindowID,
	})
	return err
}
