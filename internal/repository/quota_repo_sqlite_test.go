package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"astra/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *SQLiteQuotaRepo {
	t.Helper()
	repo, err := NewSQLiteQuotaRepo(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func freeWindow(id, userID string, now time.Time) *model.QuotaRecord {
	limits, _ := model.ResolveLimits(model.TierFree)
	return model.NewQuotaRecord(id, userID, model.TierFree, limits, now)
}

func TestSQLiteQuotaRepo_FindActiveWindow_NotFound(t *testing.T) {
	repo := newTestLedger(t)

	_, err := repo.FindActiveWindow(context.Background(), "u1", time.Now())
	assert.ErrorIs(t, err, ErrWindowNotFound)
}

func TestSQLiteQuotaRepo_CreateWindow_ReturnsExistingActiveWindow(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

	first, err := repo.CreateWindow(ctx, freeWindow("w1", "u1", now))
	require.NoError(t, err)
	second, err := repo.CreateWindow(ctx, freeWindow("w2", "u1", now.Add(time.Hour)))
	require.NoError(t, err)

	assert.Equal(t, "w1", first.ID)
	assert.Equal(t, "w1", second.ID)

	found, err := repo.FindActiveWindow(ctx, "u1", now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "w1", found.ID)
	assert.True(t, found.WindowEnd.Equal(now.Add(24*time.Hour)))
}

func TestSQLiteQuotaRepo_CreateWindow_AfterExpiry(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

	_, err := repo.CreateWindow(ctx, freeWindow("w1", "u1", now))
	require.NoError(t, err)
	next, err := repo.CreateWindow(ctx, freeWindow("w2", "u1", now.Add(25*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "w2", next.ID)
}

func TestSQLiteQuotaRepo_IncrementIfBelow_StopsAtLimit(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.CreateWindow(ctx, freeWindow("w1", "u1", now))
	require.NoError(t, err)

	rec, ok, err := repo.IncrementIfBelow(ctx, "w1", model.ActionProfileClick, now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, rec.ProfileClicksUsed)

	rec, ok, err = repo.IncrementIfBelow(ctx, "w1", model.ActionProfileClick, now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, rec.ProfileClicksUsed)
}

func TestSQLiteQuotaRepo_IncrementIfBelow_ExpiredWindow(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.CreateWindow(ctx, freeWindow("w1", "u1", now))
	require.NoError(t, err)

	rec, ok, err := repo.IncrementIfBelow(ctx, "w1", model.ActionCompanionMessage, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, rec.CompanionMessagesUsed)
}

func TestSQLiteQuotaRepo_IncrementIfBelow_UnknownWindow(t *testing.T) {
	repo := newTestLedger(t)

	_, _, err := repo.IncrementIfBelow(context.Background(), "missing", model.ActionCompanionMessage, time.Now())
	assert.ErrorIs(t, err, ErrWindowNotFound)
}

func TestSQLiteQuotaRepo_IncrementIfBelow_Concurrent(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.CreateWindow(ctx, freeWindow("w1", "u1", now))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.IncrementIfBelow(ctx, "w1", model.ActionCompanionMessage, now)
			if err == nil && ok {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, successes)
	rec, err := repo.FindActiveWindow(ctx, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.CompanionMessagesUsed)
}
