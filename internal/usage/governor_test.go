package usage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestGovernor(t *testing.T) (*Governor, *MemoryLedger, *fixedClock) {
	t.Helper()
	clock := &fixedClock{now: time.Date(2026, 10, 16, 14, 30, 0, 0, time.UTC)}
	ledger := NewMemoryLedger()
	return NewGovernor(ledger, WithClock(clock.Now)), ledger, clock
}

func TestGovernor_RejectsMessageAfterLimit(t *testing.T) {
	gov, ledger, clock := newTestGovernor(t)
	ctx := context.Background()

	for i := 1; i <= DefaultDailyLimit; i++ {
		count, err := gov.CheckAndIncrement(ctx, "user-1", DefaultDailyLimit)
		require.NoError(t, err, "message %d should pass", i)
		assert.Equal(t, i, count)
	}

	count, err := gov.CheckAndIncrement(ctx, "user-1", DefaultDailyLimit)
	require.Error(t, err)
	assert.Equal(t, DefaultDailyLimit+1, count)

	var quotaErr *QuotaExceededError
	require.True(t, errors.As(err, &quotaErr))
	assert.Equal(t, DefaultDailyLimit, quotaErr.Limit)
	assert.Contains(t, quotaErr.Error(), "daily chatbot limit of 20 messages")

	stored, err := ledger.Count(ctx, "user-1", Day(clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, DefaultDailyLimit+1, stored)
}

func TestGovernor_RejectedAttemptsKeepIncrementing(t *testing.T) {
	gov, _, _ := newTestGovernor(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = gov.CheckAndIncrement(ctx, "user-1", 2)
	}
	count, err := gov.CheckAndIncrement(ctx, "user-1", 2)
	require.Error(t, err)
	assert.Equal(t, 4, count)

	usage, err := gov.Usage(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 4, usage)
}

func TestGovernor_NewDayStartsFresh(t *testing.T) {
	gov, _, clock := newTestGovernor(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = gov.CheckAndIncrement(ctx, "user-1", 2)
	}

	clock.Set(clock.Now().Add(12 * time.Hour))
	count, err := gov.CheckAndIncrement(ctx, "user-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGovernor_UsersAreCountedSeparately(t *testing.T) {
	gov, _, _ := newTestGovernor(t)
	ctx := context.Background()

	_, _ = gov.CheckAndIncrement(ctx, "user-1", 1)
	_, err := gov.CheckAndIncrement(ctx, "user-1", 1)
	assert.Error(t, err)

	count, err := gov.CheckAndIncrement(ctx, "user-2", 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGovernor_ConcurrentIncrementsAreNotLost(t *testing.T) {
	gov, _, _ := newTestGovernor(t)
	ctx := context.Background()

	const workers = 100
	counts := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			counts[i], _ = gov.CheckAndIncrement(ctx, "user-1", DefaultDailyLimit)
		}(i)
	}
	wg.Wait()

	sort.Ints(counts)
	for i, c := range counts {
		assert.Equal(t, i+1, c)
	}

	usage, err := gov.Usage(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, workers, usage)
}

type failingLedger struct{}

func (failingLedger) Increment(context.Context, string, time.Time) (int, error) {
	return 0, errors.New("ledger down")
}

func (failingLedger) Count(context.Context, string, time.Time) (int, error) {
	return 0, errors.New("ledger down")
}

func TestGovernor_LedgerErrorIsNotQuotaError(t *testing.T) {
	gov := NewGovernor(failingLedger{})

	_, err := gov.CheckAndIncrement(context.Background(), "user-1", DefaultDailyLimit)
	require.Error(t, err)

	var quotaErr *QuotaExceededError
	assert.False(t, errors.As(err, &quotaErr))
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	got := Day(time.Date(2026, 10, 16, 23, 59, 59, 999, loc))
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, loc), got)
	assert.Equal(t, "2026-10-16", got.Format(DayLayout))
}
