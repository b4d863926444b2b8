//go:build integration

package postgres

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/mangatrack/mangatrack-backend/internal/database"
	"github.com/mangatrack/mangatrack-backend/internal/models"
	"github.com/mangatrack/mangatrack-backend/internal/usage"
)

func skipIfNoDocker(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	skipIfNoDocker(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("mangatrack"),
		tcpostgres.WithUsername("mangatrack"),
		tcpostgres.WithPassword("mangatrack"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(url))

	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgresRepositories(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	t.Run("usage ledger counts past the limit", func(t *testing.T) {
		ledger := NewUsageRepository(db)
		governor := usage.NewGovernor(ledger, usage.WithClock(func() time.Time {
			return time.Date(2026, 10, 16, 9, 0, 0, 0, time.Local)
		}))

		for i := 1; i <= 20; i++ {
			count, err := governor.CheckAndIncrement(ctx, "reader", 20)
			require.NoError(t, err)
			assert.Equal(t, i, count)
		}

		_, err := governor.CheckAndIncrement(ctx, "reader", 20)
		var quotaErr *usage.QuotaExceededError
		require.ErrorAs(t, err, &quotaErr)

		stored, err := ledger.Count(ctx, "reader", governor.Today())
		require.NoError(t, err)
		assert.Equal(t, 21, stored)
	})

	t.Run("usage increments are atomic", func(t *testing.T) {
		ledger := NewUsageRepository(db)
		day := time.Date(2026, 10, 17, 0, 0, 0, 0, time.Local)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := ledger.Increment(ctx, "concurrent", day)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		count, err := ledger.Count(ctx, "concurrent", day)
		require.NoError(t, err)
		assert.Equal(t, 50, count)

		missing, err := ledger.Get(ctx, "nobody", day)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("turns keep insertion order and can be discarded", func(t *testing.T) {
		turns := NewTurnRepository(db)

		empty, err := turns.History(ctx, "unseen")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		want := []models.Turn{
			{Role: models.RoleUser, Content: "I like Naruto"},
			{Role: models.RoleAssistant, Content: `[{"title":"One Piece"}]`},
			{Role: models.RoleUser, Content: "more like that"},
		}
		for _, turn := range want {
			require.NoError(t, turns.Append(ctx, "s1", turn))
		}
		require.NoError(t, turns.Append(ctx, "s2", models.Turn{Role: models.RoleUser, Content: "other"}))

		got, err := turns.History(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, want, got)

		require.NoError(t, turns.Discard(ctx, "s1"))
		got, err = turns.History(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, got)

		other, err := turns.History(ctx, "s2")
		require.NoError(t, err)
		assert.Len(t, other, 1)
	})

	t.Run("saved manga lists titles per user", func(t *testing.T) {
		saved := NewSavedMangaRepository(db)

		require.NoError(t, saved.Save(ctx, "reader", "Naruto"))
		require.NoError(t, saved.Save(ctx, "reader", "Bleach"))
		require.NoError(t, saved.Save(ctx, "reader", "Naruto"))
		require.NoError(t, saved.Save(ctx, "someone", "Berserk"))

		titles, err := saved.ListTitles(ctx, "reader")
		require.NoError(t, err)
		assert.Equal(t, []string{"Naruto", "Bleach"}, titles)

		none, err := saved.ListTitles(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
