// Package processor archives ingestion events into ClickHouse.
package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nathangreen1632/CareerGistPRO/common/errors"
	"github.com/nathangreen1632/CareerGistPRO/common/models"
	"github.com/nathangreen1632/CareerGistPRO/common/telemetry"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS listing_archive (
		job_id      String,
		source_id   String,
		title       String,
		company     String,
		location    String,
		query       String,
		page        UInt32,
		raw_data    String,
		created_at  DateTime64(3, 'UTC'),
		archived_at DateTime64(3, 'UTC') DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree
	ORDER BY source_id`,
	`CREATE TABLE IF NOT EXISTS ingestion_runs (
		run_id           String,
		query            String,
		first_page       UInt32,
		last_page        UInt32,
		pages_fetched    UInt32,
		pages_from_cache UInt32,
		pages_failed     UInt32,
		rate_limited     UInt32,
		created          UInt32,
		existing         UInt32,
		skipped          UInt32,
		failed           UInt32,
		final_state      LowCardinality(String),
		error            String,
		started_at       DateTime64(3, 'UTC'),
		finished_at      DateTime64(3, 'UTC')
	) ENGINE = MergeTree
	ORDER BY (started_at, run_id)`,
}

// execer is the part of clickhouse.Conn the processor uses.
type execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

var _ execer = (clickhouse.Conn)(nil)

type JobProcessor struct {
	logger *zap.Logger
	db     execer
	tracer trace.Tracer
}

func NewJobProcessor(logger *zap.Logger, db clickhouse.Conn) *JobProcessor {
	return newJobProcessor(logger, db)
}

func newJobProcessor(logger *zap.Logger, db execer) *JobProcessor {
	return &JobProcessor{
		logger: logger,
		db:     db,
		tracer: telemetry.GetTracer("careergist/processing/processor"),
	}
}

// EnsureSchema creates the archive tables when missing.
func (p *JobProcessor) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure clickhouse schema: %w", err)
		}
	}
	return nil
}

func (p *JobProcessor) ProcessJobCreated(ctx context.Context, rawData []byte) error {
	ctx, span := p.tracer.Start(ctx, "ProcessJobCreated")
	defer span.End()

	event, err := decodeJobCreated(rawData)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(telemetry.String("job.id", event.JobID))

	if err := p.db.Exec(ctx,
		`INSERT INTO listing_archive (job_id, source_id, title, company, location, query, page, raw_data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.JobID,
		event.SourceID,
		event.Title,
		event.Company,
		event.Location,
		event.Query,
		counter(event.Page),
		event.RawData,
		event.CreatedAt,
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert listing archive: %w", err)
	}
	return nil
}

func (p *JobProcessor) ProcessRunReport(ctx context.Context, rawData []byte) error {
	ctx, span := p.tracer.Start(ctx, "ProcessRunReport")
	defer span.End()

	report, err := decodeRunReport(rawData)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(
		telemetry.String("run.id", report.RunID),
		telemetry.String("run.final_state", report.FinalState),
	)

	if err := p.db.Exec(ctx,
		`INSERT INTO ingestion_runs (run_id, query, first_page, last_page, pages_fetched, pages_from_cache,
		                             pages_failed, rate_limited, created, existing, skipped, failed,
		                             final_state, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.Query,
		counter(report.FirstPage),
		counter(report.LastPage),
		counter(report.PagesFetched),
		counter(report.PagesFromCache),
		counter(report.PagesFailed),
		counter(report.RateLimited),
		counter(report.Created),
		counter(report.Existing),
		counter(report.Skipped),
		counter(report.Failed),
		report.FinalState,
		report.Error,
		report.StartedAt,
		report.FinishedAt,
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert ingestion run: %w", err)
	}

	p.logger.Info("ingestion run recorded",
		zap.String("run_id", report.RunID),
		zap.String("final_state", report.FinalState),
		zap.Int("created", report.Created))
	return nil
}

func decodeJobCreated(data []byte) (models.JobCreatedEvent, error) {
	var event models.JobCreatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return event, errors.Malformed("decoding job created event", err)
	}
	if event.JobID == "" || event.SourceID == "" {
		return event, errors.Malformed("job created event without ids", nil)
	}
	return event, nil
}

func decodeRunReport(data []byte) (models.RunReport, error) {
	var report models.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return report, errors.Malformed("decoding run report", err)
	}
	if report.RunID == "" {
		return report, errors.Malformed("run report without id", nil)
	}
	return report, nil
}

func counter(n int) uint32 {
	if n < 0 {
		return 0
	}
	return uint32(n)
}
