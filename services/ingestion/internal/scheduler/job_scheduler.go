// Package scheduler fires ingestion cycles on a cron spec. A cycle runs one
// pipeline per configured title through a bounded worker pool.
package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	shared "github.com/nathangreen1632/CareerGistPRO/common/models"
	"github.com/nathangreen1632/CareerGistPRO/common/telemetry"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/config"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/models"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/pipeline"
)

var tracer = telemetry.GetTracer("careergist/ingestion/scheduler")

// ErrCycleInFlight is returned by RunCycle while another cycle is running.
var ErrCycleInFlight = stderrors.New("ingestion cycle already in flight")

type Runner interface {
	Execute(ctx context.Context, run pipeline.Run) shared.RunReport
}

type JobScheduler struct {
	runner        Runner
	logger        *zap.Logger
	config        *config.Config
	cron          *cron.Cron
	mutex         sync.Mutex
	isActive      bool
	cancel        context.CancelFunc
	cycleMu       sync.Mutex
	kickoff       sync.WaitGroup
	workerManager *workerManager
}

func NewJobScheduler(runner Runner, logger *zap.Logger, config *config.Config) *JobScheduler {
	scheduler := &JobScheduler{
		runner: runner,
		logger: logger,
		config: config,
		cron:   cron.New(cron.WithLogger(newCronLogger(logger))),
	}
	scheduler.workerManager = newWorkerManager(scheduler, logger)
	return scheduler
}

// Start registers the cron entry and kicks off one cycle immediately. It does
// not block; cycles run until Stop is called or ctx is cancelled.
func (s *JobScheduler) Start(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.isActive {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	if _, err := s.cron.AddFunc(s.config.IngestSchedule, func() { s.runScheduledCycle(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cancel = cancel
	s.isActive = true
	s.cron.Start()
	s.logger.Info("ingestion scheduler started",
		zap.String("schedule", s.config.IngestSchedule),
		zap.Strings("titles", s.config.IngestTitles),
		zap.Int("workers", s.config.IngestWorkers))

	s.kickoff.Add(1)
	go func() {
		defer s.kickoff.Done()
		s.runScheduledCycle(runCtx)
	}()
	return nil
}

// Stop cancels in-flight runs and waits until the startup cycle and any
// running cron job have returned, or ctx expires.
func (s *JobScheduler) Stop(ctx context.Context) error {
	s.mutex.Lock()
	if !s.isActive {
		s.mutex.Unlock()
		return nil
	}
	s.isActive = false
	cancel := s.cancel
	s.mutex.Unlock()

	cancel()
	cronDone := s.cron.Stop()

	stopped := make(chan struct{})
	go func() {
		s.kickoff.Wait()
		<-cronDone.Done()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.logger.Info("ingestion scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *JobScheduler) runScheduledCycle(ctx context.Context) {
	reports, err := s.RunCycle(ctx)
	if stderrors.Is(err, ErrCycleInFlight) {
		s.logger.Warn("skipping ingestion cycle, previous cycle still running")
		return
	}
	if err != nil {
		s.logger.Error("ingestion cycle failed", zap.Error(err))
		return
	}

	created := 0
	for _, r := range reports {
		created += r.Created
	}
	s.logger.Info("ingestion cycle complete",
		zap.Int("runs", len(reports)),
		zap.Int("created", created))
}

// RunCycle runs one pipeline per configured title and returns the reports in
// title order. Only one cycle runs at a time.
func (s *JobScheduler) RunCycle(ctx context.Context) ([]shared.RunReport, error) {
	if !s.cycleMu.TryLock() {
		return nil, ErrCycleInFlight
	}
	defer s.cycleMu.Unlock()

	ctx, span := tracer.Start(ctx, "JobScheduler.RunCycle")
	defer span.End()

	runs := s.plannedRuns()
	span.SetAttributes(telemetry.Int("runs.count", len(runs)))
	if len(runs) == 0 {
		s.logger.Info("no ingestion titles configured, nothing to run")
		return nil, nil
	}

	reports := s.workerManager.runAll(ctx, runs)
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return reports, err
	}
	return reports, nil
}

func (s *JobScheduler) plannedRuns() []pipeline.Run {
	runs := make([]pipeline.Run, 0, len(s.config.IngestTitles))
	for _, title := range s.config.IngestTitles {
		runs = append(runs, pipeline.Run{
			Query: models.SearchQuery{
				Title:    title,
				Location: s.config.IngestLocation,
				Radius:   s.config.IngestRadius,
			},
			FirstPage: 1,
			LastPage:  s.config.IngestPagesPerRun,
		})
	}
	return runs
}

// cronLogger routes robfig/cron's logging through zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func newCronLogger(logger *zap.Logger) cron.Logger {
	return cronLogger{logger: logger.Named("cron").Sugar()}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
