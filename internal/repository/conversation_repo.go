package repository

import (
	"context"
	"fmt"
	"slices"

	"astra/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationRepository stores the companion conversation of each user.
type ConversationRepository interface {
	// RecentTurns returns the last limit turns in chronological order.
	RecentTurns(ctx context.Context, userID string, limit int) ([]model.ConversationTurn, error)
	// AppendTurns stores turns in the given order.
	AppendTurns(ctx context.Context, userID string, turns ...model.ConversationTurn) error
}

type conversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepo{pool: pool}
}

func (r *conversationRepo) RecentTurns(ctx context.Context, userID string, limit int) ([]model.ConversationTurn, error) {
	const q = `
		SELECT speaker, content, created_at
		FROM companion_messages
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing turns for user %s: %w", userID, err)
	}
	defer rows.Close()

	var turns []model.ConversationTurn
	for rows.Next() {
		var t model.ConversationTurn
		var speaker string
		if err := rows.Scan(&speaker, &t.Content, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning turn row: %w", err)
		}
		t.Speaker = model.Speaker(speaker)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turn rows: %w", err)
	}
	slices.Reverse(turns)
	return turns, nil
}

func (r *conversationRepo) AppendTurns(ctx context.Context, userID string, turns ...model.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	const q = `INSERT INTO companion_messages (user_id, speaker, content, created_at) VALUES ($1, $2, $3, $4)`
	batch := &pgx.Batch{}
	for _, t := range turns {
		batch.Queue(q, userID, string(t.Speaker), t.Content, t.Timestamp)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("appending %d turns for user %s: %w", len(turns), userID, err)
	}
	return nil
}
