// Package pipeline walks the pages of one upstream search and turns them into
// deduplicated job records. Each run is a small state machine; see State.
package pipeline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nathangreen1632/CareerGistPRO/common/cache"
	"github.com/nathangreen1632/CareerGistPRO/common/errors"
	"github.com/nathangreen1632/CareerGistPRO/common/jobstore"
	shared "github.com/nathangreen1632/CareerGistPRO/common/models"
	"github.com/nathangreen1632/CareerGistPRO/common/telemetry"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/api"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/messaging"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/models"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/normalize"
)

var tracer = telemetry.GetTracer("careergist/ingestion/pipeline")

type Options struct {
	PageDelay         time.Duration
	RateLimitCooldown time.Duration
	CacheTTL          time.Duration
}

func DefaultOptions() Options {
	return Options{
		PageDelay:         300 * time.Millisecond,
		RateLimitCooldown: 10 * time.Second,
		CacheTTL:          15 * time.Minute,
	}
}

type Pipeline struct {
	client    api.ListingsClient
	store     jobstore.Gateway
	cache     cache.Cache
	publisher messaging.Publisher
	clock     Clock
	logger    *zap.Logger
	opts      Options
}

// New builds a pipeline. publisher may be nil, in which case no events are
// emitted.
func New(client api.ListingsClient, store jobstore.Gateway, c cache.Cache, publisher messaging.Publisher, logger *zap.Logger, opts Options) *Pipeline {
	return &Pipeline{
		client:    client,
		store:     store,
		cache:     c,
		publisher: publisher,
		clock:     RealClock(),
		logger:    logger,
		opts:      opts,
	}
}

func (p *Pipeline) WithClock(clock Clock) *Pipeline {
	p.clock = clock
	return p
}

// Run describes an inclusive page range of a query.
type Run struct {
	Query     models.SearchQuery
	FirstPage int
	LastPage  int
}

type entry struct {
	raw     models.RawListing
	listing normalize.Listing
}

type runState struct {
	run       Run
	page      int
	state     State
	payload   *models.Page
	fromCache bool
	entries   []entry
	pageDirty bool
	err       error
	report    shared.RunReport
}

// Execute walks the pages of run until Done or Aborted and returns the run
// report. It never returns an error; failures are counted in the report.
func (p *Pipeline) Execute(ctx context.Context, run Run) shared.RunReport {
	ctx, span := tracer.Start(ctx, "Pipeline.Execute")
	defer span.End()

	if run.FirstPage < 1 {
		run.FirstPage = 1
	}

	rs := &runState{
		run:   run,
		page:  run.FirstPage,
		state: StateFetching,
		report: shared.RunReport{
			RunID:     uuid.NewString(),
			Query:     run.Query.String(),
			FirstPage: run.FirstPage,
			LastPage:  run.LastPage,
			StartedAt: p.clock.Now().UTC(),
		},
	}
	span.SetAttributes(
		telemetry.String("run.id", rs.report.RunID),
		telemetry.String("run.query", rs.report.Query),
		telemetry.Int("run.first_page", run.FirstPage),
		telemetry.Int("run.last_page", run.LastPage),
	)

	p.logger.Info("starting ingestion run",
		zap.String("run_id", rs.report.RunID),
		zap.String("query", rs.report.Query),
		zap.Int("first_page", run.FirstPage),
		zap.Int("last_page", run.LastPage))

	for !rs.state.Terminal() {
		next := p.step(ctx, rs)
		p.logger.Debug("state transition",
			zap.String("run_id", rs.report.RunID),
			zap.Int("page", rs.page),
			zap.Stringer("from", rs.state),
			zap.Stringer("to", next))
		rs.state = next
	}

	rs.report.FinalState = rs.state.String()
	rs.report.FinishedAt = p.clock.Now().UTC()
	if rs.err != nil {
		rs.report.Error = rs.err.Error()
		span.RecordError(rs.err)
	}
	span.SetAttributes(
		telemetry.String("run.final_state", rs.report.FinalState),
		telemetry.Int("run.created", rs.report.Created),
		telemetry.Int("run.existing", rs.report.Existing),
	)

	p.logReport(rs.report)
	if p.publisher != nil {
		if err := p.publisher.PublishRunReport(context.WithoutCancel(ctx), rs.report); err != nil {
			p.logger.Warn("failed to publish run report", zap.String("run_id", rs.report.RunID), zap.Error(err))
		}
	}
	return rs.report
}

func (p *Pipeline) step(ctx context.Context, rs *runState) State {
	switch rs.state {
	case StateFetching:
		return p.fetch(ctx, rs)
	case StateCoolingDown:
		return p.coolDown(ctx, rs)
	case StateNormalizing:
		return p.normalize(rs)
	case StatePersisting:
		return p.persist(ctx, rs)
	case StateCaching:
		return p.storeInCache(ctx, rs)
	case StatePausing:
		return p.pause(ctx, rs)
	default:
		return StateAborted
	}
}

func (p *Pipeline) fetch(ctx context.Context, rs *runState) State {
	if err := ctx.Err(); err != nil {
		rs.err = err
		return StateAborted
	}
	if rs.run.LastPage > 0 && rs.page > rs.run.LastPage {
		return StateDone
	}

	rs.payload = nil
	rs.fromCache = false
	rs.entries = nil
	rs.pageDirty = false

	key := rs.run.Query.CacheKey(rs.page)
	var cached models.Page
	err := p.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		rs.payload = &cached
		rs.fromCache = true
		rs.report.PagesFromCache++
		if len(cached.Results) == 0 {
			return StateDone
		}
		p.logger.Debug("page served from cache", zap.String("key", key))
		return StateCaching
	case stderrors.Is(err, cache.ErrNotFound):
	default:
		p.logger.Warn("cache lookup failed, treating as miss", zap.String("key", key), zap.Error(err))
	}

	ctx, span := tracer.Start(ctx, "Pipeline.fetchPage")
	span.SetAttributes(telemetry.Int("page", rs.page))
	page, err := p.client.FetchPage(ctx, rs.run.Query, rs.page)
	span.End()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			rs.err = ctxErr
			return StateAborted
		}
		switch {
		case errors.IsType(err, errors.ErrTypeRateLimit):
			rs.report.RateLimited++
			p.logger.Warn("rate limited by upstream, cooling down",
				zap.Int("page", rs.page),
				zap.Duration("cooldown", p.opts.RateLimitCooldown))
			return StateCoolingDown
		case errors.IsType(err, errors.ErrTypeUnauthorized):
			rs.err = err
			p.logger.Error("listings client is not usable, aborting run", zap.Error(err))
			return StateAborted
		default:
			rs.report.PagesFailed++
			p.logger.Warn("skipping page",
				zap.Int("page", rs.page),
				zap.Bool("malformed", errors.IsType(err, errors.ErrTypeMalformed)),
				zap.Error(err))
			return StatePausing
		}
	}

	rs.report.PagesFetched++
	rs.payload = page
	return StateNormalizing
}

func (p *Pipeline) normalize(rs *runState) State {
	if rs.payload == nil || len(rs.payload.Results) == 0 {
		return StateDone
	}

	rs.entries = make([]entry, 0, len(rs.payload.Results))
	for _, raw := range rs.payload.Results {
		listing, ok := normalize.Normalize(raw)
		if !ok {
			rs.report.Skipped++
			continue
		}
		rs.entries = append(rs.entries, entry{raw: raw, listing: listing})
	}
	return StatePersisting
}

func (p *Pipeline) persist(ctx context.Context, rs *runState) State {
	ctx, span := tracer.Start(ctx, "Pipeline.persist")
	defer span.End()
	span.SetAttributes(telemetry.Int("page", rs.page), telemetry.Int("listings", len(rs.entries)))

	created := 0
	for _, e := range rs.entries {
		if err := ctx.Err(); err != nil {
			rs.err = err
			return StateAborted
		}

		job, outcome, err := p.store.UpsertIfAbsent(ctx, e.listing.SourceID, e.listing.Fields)
		if err != nil {
			rs.report.Failed++
			rs.pageDirty = true
			span.RecordError(err)
			p.logger.Warn("failed to persist listing",
				zap.String("source_id", e.listing.SourceID),
				zap.Error(err))
			continue
		}

		switch outcome {
		case jobstore.Created:
			rs.report.Created++
			created++
			p.publishCreated(ctx, rs, job, e.raw)
		case jobstore.AlreadyExisted:
			rs.report.Existing++
		}
	}

	p.logger.Info("page persisted",
		zap.String("run_id", rs.report.RunID),
		zap.Int("page", rs.page),
		zap.Int("listings", len(rs.entries)),
		zap.Int("created", created))
	return StateCaching
}

func (p *Pipeline) publishCreated(ctx context.Context, rs *runState, job *shared.JobRecord, raw models.RawListing) {
	if p.publisher == nil || job == nil {
		return
	}

	rawData, err := json.Marshal(raw)
	if err != nil {
		p.logger.Warn("failed to encode raw listing", zap.String("source_id", job.SourceID), zap.Error(err))
	}

	event := shared.JobCreatedEvent{
		JobID:     job.ID,
		SourceID:  job.SourceID,
		Title:     job.Title,
		Company:   job.Company,
		Location:  job.Location,
		Query:     rs.report.Query,
		Page:      rs.page,
		RawData:   string(rawData),
		CreatedAt: job.CreatedAt,
	}
	if err := p.publisher.PublishJobCreated(ctx, event); err != nil {
		p.logger.Warn("failed to publish job created event", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (p *Pipeline) storeInCache(ctx context.Context, rs *runState) State {
	// A page with failed upserts is not cached, so the next run retries it.
	if rs.pageDirty {
		return p.afterPage(rs)
	}

	key := rs.run.Query.CacheKey(rs.page)
	if err := p.cache.Set(ctx, key, rs.payload, p.opts.CacheTTL); err != nil {
		p.logger.Warn("failed to cache page", zap.String("key", key), zap.Error(err))
	}
	return p.afterPage(rs)
}

func (p *Pipeline) afterPage(rs *runState) State {
	if rs.fromCache {
		rs.page++
		return StateFetching
	}
	return StatePausing
}

func (p *Pipeline) pause(ctx context.Context, rs *runState) State {
	if err := p.clock.Sleep(ctx, p.opts.PageDelay); err != nil {
		rs.err = err
		return StateAborted
	}
	rs.page++
	return StateFetching
}

func (p *Pipeline) coolDown(ctx context.Context, rs *runState) State {
	if err := p.clock.Sleep(ctx, p.opts.RateLimitCooldown); err != nil {
		rs.err = err
		return StateAborted
	}
	rs.page++
	return StateFetching
}

func (p *Pipeline) logReport(report shared.RunReport) {
	p.logger.Info("ingestion run finished",
		zap.String("run_id", report.RunID),
		zap.String("query", report.Query),
		zap.String("final_state", report.FinalState),
		zap.Int("pages_fetched", report.PagesFetched),
		zap.Int("pages_from_cache", report.PagesFromCache),
		zap.Int("pages_failed", report.PagesFailed),
		zap.Int("rate_limited", report.RateLimited),
		zap.Int("created", report.Created),
		zap.Int("existing", report.Existing),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
}
