// Package usage enforces the per-user daily chat quota.
package usage

import (
	"context"
	"fmt"
	"time"
)

// DefaultDailyLimit is the number of chatbot messages a user may send per day
const DefaultDailyLimit = 20

// DayLayout is the canonical textual form of a quota day
const DayLayout = "2006-01-02"

// Ledger persists one counter per (user, day). Increment must find-or-create
// the record and add one in a single indivisible step, returning the new count.
type Ledger interface {
	Increment(ctx context.Context, userID string, day time.Time) (int, error)
	Count(ctx context.Context, userID string, day time.Time) (int, error)
}

// QuotaExceededError is returned once a user goes past the daily limit
type QuotaExceededError struct {
	Limit int
	Count int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("You have reached your daily chatbot limit of %d messages. Come back tomorrow!", e.Limit)
}

// Governor applies the daily limit on top of a Ledger
type Governor struct {
	ledger Ledger
	now    func() time.Time
}

// Option configures a Governor
type Option func(*Governor)

// WithClock overrides the clock used to derive the quota day
func WithClock(now func() time.Time) Option {
	return func(g *Governor) {
		g.now = now
	}
}

// NewGovernor creates a governor backed by the given ledger
func NewGovernor(ledger Ledger, opts ...Option) *Governor {
	g := &Governor{
		ledger: ledger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Today returns the current quota day: local midnight of the process clock
func (g *Governor) Today() time.Time {
	return Day(g.now())
}

// CheckAndIncrement counts one message attempt for the user and returns the
// post-increment count. The increment happens before the limit check, so a
// rejected attempt still consumes a slot and the stored count keeps growing.
func (g *Governor) CheckAndIncrement(ctx context.Context, userID string, dailyLimit int) (int, error) {
	count, err := g.ledger.Increment(ctx, userID, g.Today())
	if err != nil {
		return 0, fmt.Errorf("increment usage: %w", err)
	}

	if count > dailyLimit {
		return count, &QuotaExceededError{Limit: dailyLimit, Count: count}
	}
	return count, nil
}

// Usage returns today's count for the user without changing it
func (g *Governor) Usage(ctx context.Context, userID string) (int, error) {
	count, err := g.ledger.Count(ctx, userID, g.Today())
	if err != nil {
		return 0, fmt.Errorf("read usage: %w", err)
	}
	return count, nil
}

// Day truncates t to midnight in its own location
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
