package repository

import (
	"context"
	"errors"
	"fmt"

	"astra/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository resolves the tier a user is currently billed at.
type SubscriptionRepository interface {
	// GetCurrentTier returns the tier of the user's running subscription, or free when there is none.
	GetCurrentTier(ctx context.Context, userID string) (model.SubscriptionTier, error)
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

// GetCurrentTier never defaults a malformed tier: a stored value outside the
// known set is returned as *model.UnknownTierError.
func (r *subscriptionRepo) GetCurrentTier(ctx context.Context, userID string) (model.SubscriptionTier, error) {
	const q = `
        SELECT tier
        FROM subscriptions
        WHERE user_id = $1
          AND (ends_at IS NULL OR ends_at > NOW())
        ORDER BY starts_at DESC
        LIMIT 1
    `
	var raw string
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TierFree, nil
		}
		return "", fmt.Errorf("fetch subscription tier for user %s: %w", userID, err)
	}
	return model.ParseTier(raw)
}
