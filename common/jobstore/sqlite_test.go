package jobstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/nathangreen1632/CareerGistPRO/common/errors"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "jobs.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUpsertIfAbsent_CreatesWithDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, outcome, err := store.UpsertIfAbsent(ctx, "adz-1", Fields{Title: "Backend Engineer"})
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "adz-1", job.SourceID)
	assert.Equal(t, "Backend Engineer", job.Title)
	assert.Equal(t, "", job.Company)
	assert.Nil(t, job.SalaryMin)
	assert.Nil(t, job.SalaryMax)
	assert.Nil(t, job.PostedAt)
	assert.Equal(t, []string{}, job.Benefits)
	assert.False(t, job.Saved)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestUpsertIfAbsent_RoundTripsOptionalFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	posted := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	minSalary, maxSalary := 90000.0, 120000.0
	_, _, err := store.UpsertIfAbsent(ctx, "adz-2", Fields{
		Title:        "Data Engineer",
		PostedAt:     &posted,
		SalaryMin:    &minSalary,
		SalaryMax:    &maxSalary,
		SalaryPeriod: "actual",
		Benefits:     []string{"it-jobs"},
	})
	require.NoError(t, err)

	job, err := store.FindBySourceID(ctx, "adz-2")
	require.NoError(t, err)
	require.NotNil(t, job.PostedAt)
	assert.True(t, posted.Equal(*job.PostedAt))
	assert.Equal(t, 90000.0, *job.SalaryMin)
	assert.Equal(t, 120000.0, *job.SalaryMax)
	assert.Equal(t, []string{"it-jobs"}, job.Benefits)
}

func TestUpsertIfAbsent_IsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, outcome, err := store.UpsertIfAbsent(ctx, "adz-3", Fields{
		Title: "Backend Engineer", Company: "Acme", Location: "Austin, TX",
	})
	require.NoError(t, err)
	require.Equal(t, Created, outcome)

	second, outcome, err := store.UpsertIfAbsent(ctx, "adz-3", Fields{
		Title: "Totally Different", Company: "Other Corp", Location: "Berlin",
	})
	require.NoError(t, err)
	assert.Equal(t, AlreadyExisted, outcome)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Backend Engineer", second.Title)
	assert.Equal(t, "Acme", second.Company)
	assert.Equal(t, "Austin, TX", second.Location)

	stored, err := store.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.SourceID, stored.SourceID)
	assert.Equal(t, "Backend Engineer", stored.Title)
}

func TestUpsertIfAbsent_ConcurrentWritersConverge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const writers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ids      = map[string]struct{}{}
		created  int
		failures []error
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job, outcome, err := store.UpsertIfAbsent(ctx, "adz-race", Fields{Title: fmt.Sprintf("writer %d", i)})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			ids[job.ID] = struct{}{}
			if outcome == Created {
				created++
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, failures)
	assert.Len(t, ids, 1, "every writer must observe the same record")
	assert.Equal(t, 1, created)

	unseen, err := store.ListUnseen(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, unseen, 1)
}

func TestUpsertIfAbsent_RejectsEmptySourceID(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.UpsertIfAbsent(context.Background(), "  ", Fields{Title: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidInput))
}

func TestFindNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.FindBySourceID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.MarkSaved(ctx, "missing"), ErrNotFound)
}

func TestListUnseen_NewestFirstAndExcludesSaved(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	var ids []string
	for i := 1; i <= 4; i++ {
		job, _, err := store.UpsertIfAbsent(ctx, fmt.Sprintf("adz-%d", i), Fields{Title: fmt.Sprintf("job %d", i)})
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}
	require.NoError(t, store.MarkSaved(ctx, ids[2]))

	unseen, err := store.ListUnseen(ctx, 10)
	require.NoError(t, err)

	var titles []string
	for _, j := range unseen {
		titles = append(titles, j.Title)
	}
	assert.Equal(t, []string{"job 4", "job 2", "job 1"}, titles)

	limited, err := store.ListUnseen(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	saved, err := store.FindByID(ctx, ids[2])
	require.NoError(t, err)
	assert.True(t, saved.Saved)
}
