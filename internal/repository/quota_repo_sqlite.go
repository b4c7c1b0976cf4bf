package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"astra/internal/model"

	_ "modernc.org/sqlite"
)

const sqliteQuotaSchema = `
CREATE TABLE IF NOT EXISTS quota_windows (
	id                       TEXT PRIMARY KEY,
	user_id                  TEXT NOT NULL,
	tier                     TEXT NOT NULL,
	companion_messages_used  INTEGER NOT NULL DEFAULT 0,
	profile_clicks_used      INTEGER NOT NULL DEFAULT 0,
	companion_messages_limit INTEGER NOT NULL,
	profile_clicks_limit     INTEGER NOT NULL,
	window_start             INTEGER NOT NULL,
	window_end               INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quota_windows_user_end ON quota_windows (user_id, window_end);
`

// SQLiteQuotaRepo is a single-node QuotaRepository. It holds one connection,
// which makes every transaction a per-database serialization point.
type SQLiteQuotaRepo struct {
	db *sql.DB
}

// NewSQLiteQuotaRepo opens (or creates) the ledger at path. Use ":memory:" for tests.
func NewSQLiteQuotaRepo(path string) (*SQLiteQuotaRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite quota ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteQuotaSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating quota schema: %w", err)
	}
	return &SQLiteQuotaRepo{db: db}, nil
}

// Close releases the underlying database.
func (r *SQLiteQuotaRepo) Close() error {
	return r.db.Close()
}

func scanSQLiteQuotaRecord(row *sql.Row) (*model.QuotaRecord, error) {
	var rec model.QuotaRecord
	var tier string
	var start, end int64
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&tier,
		&rec.CompanionMessagesUsed,
		&rec.ProfileClicksUsed,
		&rec.CompanionMessagesLimit,
		&rec.ProfileClicksLimit,
		&start,
		&end,
	)
	if err != nil {
		return nil, err
	}
	rec.TierAtCreation = model.SubscriptionTier(tier)
	rec.WindowStart = time.Unix(0, start).UTC()
	rec.WindowEnd = time.Unix(0, end).UTC()
	return &rec, nil
}

type sqliteQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func sqliteFindActiveWindow(ctx context.Context, q sqliteQuerier, userID string, now time.Time) (*model.QuotaRecord, error) {
	query := `
		SELECT ` + quotaColumns + `
		FROM quota_windows
		WHERE user_id = ?
		  AND window_end > ?
		ORDER BY window_start DESC
		LIMIT 1
	`
	rec, err := scanSQLiteQuotaRecord(q.QueryRowContext(ctx, query, userID, now.UnixNano()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, fmt.Errorf("fetch active window for user %s: %w", userID, err)
	}
	return rec, nil
}

// FindActiveWindow returns the open window for a user.
func (r *SQLiteQuotaRepo) FindActiveWindow(ctx context.Context, userID string, now time.Time) (*model.QuotaRecord, error) {
	return sqliteFindActiveWindow(ctx, r.db, userID, now)
}

// CreateWindow inserts rec unless an active window already exists.
func (r *SQLiteQuotaRepo) CreateWindow(ctx context.Context, rec *model.QuotaRecord) (*model.QuotaRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction for window creation: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	existing, err := sqliteFindActiveWindow(ctx, tx, rec.UserID, rec.WindowStart)
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("committing window lookup for user %s: %w", rec.UserID, err)
		}
		return existing, nil
	case !errors.Is(err, ErrWindowNotFound):
		return nil, err
	}

	const insertQ = `INSERT INTO quota_windows (` + quotaColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, insertQ,
		rec.ID,
		rec.UserID,
		string(rec.TierAtCreation),
		rec.CompanionMessagesUsed,
		rec.ProfileClicksUsed,
		rec.CompanionMessagesLimit,
		rec.ProfileClicksLimit,
		rec.WindowStart.UnixNano(),
		rec.WindowEnd.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting window for user %s: %w", rec.UserID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing window for user %s: %w", rec.UserID, err)
	}

	created := *rec
	created.WindowStart = time.Unix(0, rec.WindowStart.UnixNano()).UTC()
	created.WindowEnd = time.Unix(0, rec.WindowEnd.UnixNano()).UTC()
	return &created, nil
}

// IncrementIfBelow increments the counter with one conditional UPDATE.
func (r *SQLiteQuotaRepo) IncrementIfBelow(ctx context.Context, windowID string, action model.QuotaAction, now time.Time) (*model.QuotaRecord, bool, error) {
	usedCol, limitCol, err := actionColumns(action)
	if err != nil {
		return nil, false, err
	}
	query := fmt.Sprintf(`
		UPDATE quota_windows
		SET %[1]s = %[1]s + 1
		WHERE id = ?
		  AND %[1]s < %[2]s
		  AND window_end > ?
		RETURNING %[3]s
	`, usedCol, limitCol, quotaColumns)

	rec, err := scanSQLiteQuotaRecord(r.db.QueryRowContext(ctx, query, windowID, now.UnixNano()))
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("incrementing %s on window %s: %w", usedCol, windowID, err)
	}

	rec, err = scanSQLiteQuotaRecord(r.db.QueryRowContext(ctx, `SELECT `+quotaColumns+` FROM quota_windows WHERE id = ?`, windowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, ErrWindowNotFound
		}
		return nil, false, fmt.Errorf("fetch window %s: %w", windowID, err)
	}
	return rec, false, nil
}

var _ QuotaRepository = (*SQLiteQuotaRepo)(nil)
