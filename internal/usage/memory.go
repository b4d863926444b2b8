package usage

import (
	"context"
	"sync"
	"time"
)

type ledgerKey struct {
	userID string
	day    string
}

// MemoryLedger is a process-local Ledger; one mutex covers the whole
// find-or-create-and-increment step
type MemoryLedger struct {
	mu     sync.Mutex
	counts map[ledgerKey]int
}

// NewMemoryLedger creates an empty ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		counts: make(map[ledgerKey]int),
	}
}

// Increment adds one to the (user, day) counter and returns the new value
func (l *MemoryLedger) Increment(_ context.Context, userID string, day time.Time) (int, error) {
	key := ledgerKey{userID: userID, day: day.Format(DayLayout)}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts[key]++
	return l.counts[key], nil
}

// Count returns the (user, day) counter, zero when no record exists
func (l *MemoryLedger) Count(_ context.Context, userID string, day time.Time) (int, error) {
	key := ledgerKey{userID: userID, day: day.Format(DayLayout)}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.counts[key], nil
}
