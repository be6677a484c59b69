package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	shared "github.com/nathangreen1632/CareerGistPRO/common/models"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/config"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/pipeline"
)

type fakeRunner struct {
	mu       sync.Mutex
	runs     []pipeline.Run
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	release  chan struct{}
	started  chan struct{}
}

func (r *fakeRunner) Execute(ctx context.Context, run pipeline.Run) shared.RunReport {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		seen := r.maxSeen.Load()
		if n <= seen || r.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	r.mu.Lock()
	r.runs = append(r.runs, run)
	r.mu.Unlock()

	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
		}
	}
	return shared.RunReport{Query: run.Query.String(), Created: 1, FinalState: pipeline.StateDone.String()}
}

func testConfig(titles ...string) *config.Config {
	return &config.Config{
		IngestSchedule:    "@every 1h",
		IngestTitles:      titles,
		IngestLocation:    "United States",
		IngestRadius:      25,
		IngestPagesPerRun: 5,
		IngestWorkers:     2,
	}
}

func TestRunCycle_RunsEveryTitleInOrder(t *testing.T) {
	runner := &fakeRunner{}
	s := NewJobScheduler(runner, zap.NewNop(), testConfig("Go Developer", "Data Engineer", "SRE"))

	reports, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, "Go Developer@United States~25", reports[0].Query)
	assert.Equal(t, "Data Engineer@United States~25", reports[1].Query)
	assert.Equal(t, "SRE@United States~25", reports[2].Query)

	require.Len(t, runner.runs, 3)
	for _, run := range runner.runs {
		assert.Equal(t, 1, run.FirstPage)
		assert.Equal(t, 5, run.LastPage)
	}
}

func TestRunCycle_BoundsConcurrency(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{}), started: make(chan struct{}, 8)}
	s := NewJobScheduler(runner, zap.NewNop(), testConfig("a", "b", "c", "d"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunCycle(context.Background())
	}()

	<-runner.started
	<-runner.started
	assert.Equal(t, int32(2), runner.inFlight.Load())

	close(runner.release)
	<-done
	assert.Equal(t, int32(2), runner.maxSeen.Load())
	assert.Len(t, runner.runs, 4)
}

func TestRunCycle_RejectsOverlappingCycle(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{}), started: make(chan struct{}, 1)}
	s := NewJobScheduler(runner, zap.NewNop(), testConfig("a"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunCycle(context.Background())
	}()
	<-runner.started

	_, err := s.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleInFlight)

	close(runner.release)
	<-done
}

func TestRunCycle_NoTitles(t *testing.T) {
	s := NewJobScheduler(&fakeRunner{}, zap.NewNop(), testConfig())

	reports, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestStartStop(t *testing.T) {
	runner := &fakeRunner{started: make(chan struct{}, 1)}
	s := NewJobScheduler(runner, zap.NewNop(), testConfig("Go Developer"))

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-runner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("expected an immediate cycle on start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}

func TestStart_InvalidSchedule(t *testing.T) {
	cfg := testConfig("a")
	cfg.IngestSchedule = "not a schedule"
	s := NewJobScheduler(&fakeRunner{}, zap.NewNop(), cfg)

	assert.Error(t, s.Start(context.Background()))
}

// lingeringRunner keeps working for a while after its context is cancelled,
// like a pipeline finishing its last upsert and publishing the run report.
type lingeringRunner struct {
	started  chan struct{}
	linger   time.Duration
	finished atomic.Bool
}

func (r *lingeringRunner) Execute(ctx context.Context, run pipeline.Run) shared.RunReport {
	r.started <- struct{}{}
	<-ctx.Done()
	time.Sleep(r.linger)
	r.finished.Store(true)
	return shared.RunReport{Query: run.Query.String(), FinalState: pipeline.StateAborted.String()}
}

func TestStop_WaitsForStartupCycle(t *testing.T) {
	runner := &lingeringRunner{started: make(chan struct{}, 1), linger: 200 * time.Millisecond}
	s := NewJobScheduler(runner, zap.NewNop(), testConfig("Go Developer"))

	require.NoError(t, s.Start(context.Background()))
	select {
	case <-runner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("expected an immediate cycle on start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.True(t, runner.finished.Load(), "startup cycle still running after Stop returned")
}

func TestStop_HonoursDeadline(t *testing.T) {
	runner := &lingeringRunner{started: make(chan struct{}, 1), linger: 2 * time.Second}
	s := NewJobScheduler(runner, zap.NewNop(), testConfig("Go Developer"))

	require.NoError(t, s.Start(context.Background()))
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)
}
