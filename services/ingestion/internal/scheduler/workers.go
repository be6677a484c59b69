package scheduler

import (
	"context"
	"sync"

	"go.uber.org/zap"

	shared "github.com/nathangreen1632/CareerGistPRO/common/models"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/pipeline"
)

type workerManager struct {
	scheduler *JobScheduler
	logger    *zap.Logger
}

func newWorkerManager(scheduler *JobScheduler, logger *zap.Logger) *workerManager {
	return &workerManager{
		scheduler: scheduler,
		logger:    logger,
	}
}

type indexedRun struct {
	index int
	run   pipeline.Run
}

// runAll executes runs on at most IngestWorkers goroutines and returns the
// reports in the order of runs.
func (w *workerManager) runAll(ctx context.Context, runs []pipeline.Run) []shared.RunReport {
	reports := make([]shared.RunReport, len(runs))
	runChan := make(chan indexedRun)

	wg := w.startWorkers(ctx, runChan, reports)

	for i, run := range runs {
		runChan <- indexedRun{index: i, run: run}
	}
	close(runChan)

	wg.Wait()
	return reports
}

func (w *workerManager) startWorkers(ctx context.Context, runChan <-chan indexedRun, reports []shared.RunReport) *sync.WaitGroup {
	var wg sync.WaitGroup

	numWorkers := w.scheduler.config.IngestWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range runChan {
				w.logger.Debug("worker picked up run", zap.Stringer("query", item.run.Query))
				reports[item.index] = w.scheduler.runner.Execute(ctx, item.run)
			}
		}()
	}

	return &wg
}
