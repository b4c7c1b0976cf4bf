package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"astra/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrWindowNotFound is returned when a user has no usage window matching the lookup.
var ErrWindowNotFound = errors.New("quota window not found")

// QuotaRepository persists per-user usage windows.
type QuotaRepository interface {
	// FindActiveWindow returns the user's window whose end is after now, or ErrWindowNotFound.
	FindActiveWindow(ctx context.Context, userID string, now time.Time) (*model.QuotaRecord, error)
	// CreateWindow inserts rec unless the user already has a window active at rec.WindowStart,
	// in which case that window is returned instead. Lookup and insert are serialized per user.
	CreateWindow(ctx context.Context, rec *model.QuotaRecord) (*model.QuotaRecord, error)
	// IncrementIfBelow increments the action counter only while used < limit and the window is
	// still open at now. The returned record is the current state; ok reports whether it changed.
	IncrementIfBelow(ctx context.Context, windowID string, action model.QuotaAction, now time.Time) (rec *model.QuotaRecord, ok bool, err error)
}

const quotaColumns = `id, user_id, tier, companion_messages_used, profile_clicks_used,
	companion_messages_limit, profile_clicks_limit, window_start, window_end`

// actionColumns maps an action to its (used, limit) column pair.
func actionColumns(action model.QuotaAction) (string, string, error) {
	switch action {
	case model.ActionCompanionMessage:
		return "companion_messages_used", "companion_messages_limit", nil
	case model.ActionProfileClick:
		return "profile_clicks_used", "profile_clicks_limit", nil
	}
	return "", "", fmt.Errorf("unknown quota action %q", action)
}

type quotaRepo struct {
	pool *pgxpool.Pool
}

// NewQuotaRepo creates a Postgres-backed QuotaRepository over the quota_windows table.
func NewQuotaRepo(pool *pgxpool.Pool) QuotaRepository {
	return &quotaRepo{pool: pool}
}

func scanQuotaRecord(row pgx.Row) (*model.QuotaRecord, error) {
	var rec model.QuotaRecord
	var tier string
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&tier,
		&rec.CompanionMessagesUsed,
		&rec.ProfileClicksUsed,
		&rec.CompanionMessagesLimit,
		&rec.ProfileClicksLimit,
		&rec.WindowStart,
		&rec.WindowEnd,
	)
	if err != nil {
		return nil, err
	}
	rec.TierAtCreation = model.SubscriptionTier(tier)
	return &rec, nil
}

// FindActiveWindow returns the open window for a user.
func (r *quotaRepo) FindActiveWindow(ctx context.Context, userID string, now time.Time) (*model.QuotaRecord, error) {
	return findActiveWindow(ctx, r.pool, userID, now)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func findActiveWindow(ctx context.Context, q rowQuerier, userID string, now time.Time) (*model.QuotaRecord, error) {
	query := `
		SELECT ` + quotaColumns + `
		FROM quota_windows
		WHERE user_id = $1
		  AND window_end > $2
		ORDER BY window_start DESC
		LIMIT 1
	`
	rec, err := scanQuotaRecord(q.QueryRow(ctx, query, userID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, fmt.Errorf("fetch active window for user %s: %w", userID, err)
	}
	return rec, nil
}

// CreateWindow takes a transaction-scoped advisory lock on the user so that
// concurrent creators see each other's insert.
func (r *quotaRepo) CreateWindow(ctx context.Context, rec *model.QuotaRecord) (*model.QuotaRecord, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("starting transaction for window creation: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rec.UserID); err != nil {
		return nil, fmt.Errorf("locking quota windows for user %s: %w", rec.UserID, err)
	}

	existing, err := findActiveWindow(ctx, tx, rec.UserID, rec.WindowStart)
	switch {
	case err == nil:
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("committing window lookup for user %s: %w", rec.UserID, err)
		}
		return existing, nil
	case !errors.Is(err, ErrWindowNotFound):
		return nil, err
	}

	const insertQ = `
		INSERT INTO quota_windows (` + quotaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + quotaColumns
	created, err := scanQuotaRecord(tx.QueryRow(ctx, insertQ,
		rec.ID,
		rec.UserID,
		string(rec.TierAtCreation),
		rec.CompanionMessagesUsed,
		rec.ProfileClicksUsed,
		rec.CompanionMessagesLimit,
		rec.ProfileClicksLimit,
		rec.WindowStart,
		rec.WindowEnd,
	))
	if err != nil {
		return nil, fmt.Errorf("inserting window for user %s: %w", rec.UserID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing window for user %s: %w", rec.UserID, err)
	}
	return created, nil
}

// IncrementIfBelow is a single conditional UPDATE, so concurrent consumers
// cannot push a counter past its limit.
func (r *quotaRepo) IncrementIfBelow(ctx context.Context, windowID string, action model.QuotaAction, now time.Time) (*model.QuotaRecord, bool, error) {
	usedCol, limitCol, err := actionColumns(action)
	if err != nil {
		return nil, false, err
	}
	query := fmt.Sprintf(`
		UPDATE quota_windows
		SET %[1]s = %[1]s + 1
		WHERE id = $1
		  AND %[1]s < %[2]s
		  AND window_end > $2
		RETURNING %[3]s
	`, usedCol, limitCol, quotaColumns)

	rec, err := scanQuotaRecord(r.pool.QueryRow(ctx, query, windowID, now))
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("incrementing %s on window %s: %w", usedCol, windowID, err)
	}

	rec, err = scanQuotaRecord(r.pool.QueryRow(ctx, `SELECT `+quotaColumns+` FROM quota_windows WHERE id = $1`, windowID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrWindowNotFound
		}
		return nil, false, fmt.Errorf("fetch window %s: %w", windowID, err)
	}
	return rec, false, nil
}
