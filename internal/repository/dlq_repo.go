package repository

import (
	"context"
	"fmt"

	"astra/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DLQRepository stores dead-lettered exchange events.
type DLQRepository interface {
	Create(ctx context.Context, message *model.DeadLetterMessage) error
	// ListUnprocessed returns up to limit unprocessed messages, oldest first.
	ListUnprocessed(ctx context.Context, limit int) ([]model.DeadLetterMessage, error)
}

type dlqRepository struct {
	pool *pgxpool.Pool
}

func NewDLQRepository(pool *pgxpool.Pool) DLQRepository {
	return &dlqRepository{pool: pool}
}

// Create is idempotent on message_id; Pub/Sub may push the same message twice.
func (r *dlqRepository) Create(ctx context.Context, message *model.DeadLetterMessage) error {
	const q = `
		INSERT INTO dead_letter_messages (subscription_name, message_id, user_id, payload, attributes, status)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		ON CONFLICT (message_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, q,
		message.SubscriptionName,
		message.MessageID,
		message.UserID,
		message.Payload,
		message.Attributes,
		message.Status,
	)
	if err != nil {
		return fmt.Errorf("storing dead-letter message %s: %w", message.MessageID, err)
	}
	return nil
}

func (r *dlqRepository) ListUnprocessed(ctx context.Context, limit int) ([]model.DeadLetterMessage, error) {
	const q = `
		SELECT id::text AS id, subscription_name, message_id, COALESCE(user_id, '') AS user_id,
		       payload::text AS payload, attributes::text AS attributes, status, created_at
		FROM dead_letter_messages
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, q, model.DeadLetterStatusUnprocessed, limit)
	if err != nil {
		return nil, fmt.Errorf("listing dead-letter messages: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.DeadLetterMessage])
	if err != nil {
		return nil, fmt.Errorf("scanning dead-letter messages: %w", err)
	}
	return msgs, nil
}
