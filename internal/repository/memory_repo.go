package repository

import (
	"context"
	"fmt"
	"time"

	"astra/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MemoryRepository reads companion memories and records their use.
type MemoryRepository interface {
	// ListMemories returns up to limit memories of a user, most important first.
	ListMemories(ctx context.Context, userID string, limit int) ([]model.MemoryEntry, error)
	// TouchMemories marks memories as referenced at the given time.
	TouchMemories(ctx context.Context, userID string, memoryIDs []string, at time.Time) (int64, error)
}

type memoryRepo struct {
	pool *pgxpool.Pool
}

func NewMemoryRepo(pool *pgxpool.Pool) MemoryRepository {
	return &memoryRepo{pool: pool}
}

func (r *memoryRepo) ListMemories(ctx context.Context, userID string, limit int) ([]model.MemoryEntry, error) {
	const q = `
		SELECT id, memory_type, content, importance, last_referenced
		FROM astra_memory
		WHERE user_id = $1
		ORDER BY importance DESC, last_referenced DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing memories for user %s: %w", userID, err)
	}
	defer rows.Close()

	var memories []model.MemoryEntry
	for rows.Next() {
		var m model.MemoryEntry
		if err := rows.Scan(&m.ID, &m.MemoryType, &m.Content, &m.Importance, &m.LastReferenced); err != nil {
			return nil, fmt.Errorf("scanning memory row: %w", err)
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memory rows: %w", err)
	}
	return memories, nil
}

func (r *memoryRepo) TouchMemories(ctx context.Context, userID string, memoryIDs []string, at time.Time) (int64, error) {
	if len(memoryIDs) == 0 {
		return 0, nil
	}
	const q = `
		UPDATE astra_memory
		SET last_referenced = $3,
		    reference_count = reference_count + 1
		WHERE user_id = $1
		  AND id = ANY($2)
	`
	tag, err := r.pool.Exec(ctx, q, userID, memoryIDs, at)
	if err != nil {
		return 0, fmt.Errorf("touching %d memories for user %s: %w", len(memoryIDs), userID, err)
	}
	return tag.RowsAffected(), nil
}
