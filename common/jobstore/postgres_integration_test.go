//go:build integration

package jobstore

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nathangreen1632/CareerGistPRO/common/database"
	"github.com/nathangreen1632/CareerGistPRO/common/database/schema"
	"github.com/nathangreen1632/CareerGistPRO/common/database/schema/migrations"
)

// Runs against TEST_DATABASE_URL, e.g.
// TEST_DATABASE_URL=postgres://localhost:5432/careergist_test go test -tags integration ./...
func newIntegrationPool(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	logger := zap.NewNop()
	pool, err := database.NewPostgresPool(ctx, database.PostgresOptions{URL: url, MaxConns: 16}, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, schema.NewMigrator(pool, logger).Migrate(ctx, migrations.All))
	return pool
}

func TestIntegration_PostgresConcurrentUpsert(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := NewPostgres(newIntegrationPool(t, ctx), zap.NewNop())
	sourceID := "adz-" + uuid.NewString()

	const writers = 16
	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		records  = make([]string, writers)
		outcomes = make([]UpsertOutcome, writers)
		errs     = make([]error, writers)
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			rec, outcome, err := store.UpsertIfAbsent(ctx, sourceID, Fields{Title: "Backend Engineer", Company: "Acme"})
			if rec != nil {
				records[i] = rec.ID
			}
			outcomes[i], errs[i] = outcome, err
		}(i)
	}
	close(start)
	wg.Wait()

	created := 0
	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, records[0], records[i])
		if outcomes[i] == Created {
			created++
		}
	}
	assert.Equal(t, 1, created)

	var rows int
	require.NoError(t, store.pool.QueryRow(ctx, `SELECT count(*) FROM jobs WHERE source_id = $1`, sourceID).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestIntegration_PostgresMalformedID(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := NewPostgres(newIntegrationPool(t, ctx), zap.NewNop())

	_, err := store.FindByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.MarkSaved(ctx, "not-a-uuid"), ErrNotFound)

	_, err = store.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}
