package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"astra/internal/cache"
	"astra/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
}

func (c *mapCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", c.getErr
	}
	v, ok := c.entries[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

type countingProfiles struct {
	calls   int
	profile *model.Profile
}

func (r *countingProfiles) GetProfile(_ context.Context, userID string) (*model.Profile, error) {
	r.calls++
	if r.profile == nil {
		return nil, ErrProfileNotFound
	}
	p := *r.profile
	return &p, nil
}

func TestCachedProfileRepository_ReadsThrough(t *testing.T) {
	next := &countingProfiles{profile: &model.Profile{UserID: "u1", FirstName: "Lea", SunSign: "Leo", MoonSign: "Pisces", AscendantSign: "Virgo"}}
	c := &mapCache{entries: map[string]string{}}
	repo := NewCachedProfileRepo(next, c, time.Minute, zerolog.Nop())
	ctx := context.Background()

	first, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	second, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)

	require.NoError(t, repo.Invalidate(ctx, "u1"))
	_, err = repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedProfileRepository_CacheErrorFallsBack(t *testing.T) {
	next := &countingProfiles{profile: &model.Profile{UserID: "u1", SunSign: "Aries"}}
	c := &mapCache{entries: map[string]string{}, getErr: errors.New("connection refused")}
	repo := NewCachedProfileRepo(next, c, time.Minute, zerolog.Nop())

	p, err := repo.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Aries", p.SunSign)
	assert.Equal(t, 1, next.calls)
}

func TestCachedProfileRepository_NotFoundIsNotCached(t *testing.T) {
	next := &countingProfiles{}
	c := &mapCache{entries: map[string]string{}}
	repo := NewCachedProfileRepo(next, c, time.Minute, zerolog.Nop())

	_, err := repo.GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.Empty(t, c.entries)
}
