package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mangatrack/mangatrack-backend/internal/repository"
	"github.com/mangatrack/mangatrack-backend/internal/usage"
)

// UsageRepository implements usage.Ledger using PostgreSQL. The day is sent
// as a calendar date string so the server's time zone never shifts it.
type UsageRepository struct {
	db *sqlx.DB
}

// NewUsageRepository creates a new PostgreSQL usage ledger
func NewUsageRepository(db *sqlx.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Increment finds or creates the (user, day) row and adds one in a single
// statement, returning the new count
func (r *UsageRepository) Increment(ctx context.Context, userID string, day time.Time) (int, error) {
	query := `
		INSERT INTO chat_usage (user_id, day, count)
		VALUES ($1, $2::date, 1)
		ON CONFLICT (user_id, day)
		DO UPDATE SET count = chat_usage.count + 1, updated_at = NOW()
		RETURNING count
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, day.Format(usage.DayLayout)); err != nil {
		return 0, err
	}
	return count, nil
}

// Count returns the (user, day) counter, zero when no row exists
func (r *UsageRepository) Count(ctx context.Context, userID string, day time.Time) (int, error) {
	record, err := r.Get(ctx, userID, day)
	if err != nil {
		return 0, err
	}
	if record == nil {
		return 0, nil
	}
	return record.Count, nil
}

// Get retrieves the full usage record, nil when none exists
func (r *UsageRepository) Get(ctx context.Context, userID string, day time.Time) (*repository.UsageRecord, error) {
	var record repository.UsageRecord
	query := `
		SELECT user_id, day, count, updated_at
		FROM chat_usage
		WHERE user_id = $1 AND day = $2::date
	`

	err := r.db.GetContext(ctx, &record, query, userID, day.Format(usage.DayLayout))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
