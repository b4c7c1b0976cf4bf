package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"astra/internal/cache"
	"astra/internal/model"

	"github.com/rs/zerolog"
)

// ProfileInvalidator drops cached profile snapshots after a profile changes
// in the owning service.
type ProfileInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// CachedProfileRepository is a read-through cache in front of a ProfileRepository.
// Cache failures are logged and fall back to the wrapped repository.
type CachedProfileRepository struct {
	next   ProfileRepository
	cache  cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedProfileRepo wraps next with cache entries that live for ttl.
func NewCachedProfileRepo(next ProfileRepository, c cache.Cache, ttl time.Duration, logger zerolog.Logger) *CachedProfileRepository {
	return &CachedProfileRepository{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger.With().Str("repository", "CachedProfileRepository").Logger(),
	}
}

func profileCacheKey(userID string) string {
	return "profile:" + userID
}

func (r *CachedProfileRepository) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	key := profileCacheKey(userID)
	raw, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		var p model.Profile
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			return &p, nil
		}
		r.logger.Warn().Str("user_id", userID).Msg("Discarding undecodable cached profile")
	case !errors.Is(err, cache.ErrCacheMiss):
		r.logger.Warn().Err(err).Str("user_id", userID).Msg("Profile cache read failed")
	}

	p, err := r.next.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(p); err == nil {
		if err := r.cache.Set(ctx, key, string(data), r.ttl); err != nil {
			r.logger.Warn().Err(err).Str("user_id", userID).Msg("Profile cache write failed")
		}
	}
	return p, nil
}

// Invalidate drops the cached profile of a user.
func (r *CachedProfileRepository) Invalidate(ctx context.Context, userID string) error {
	return r.cache.Delete(ctx, profileCacheKey(userID))
}
