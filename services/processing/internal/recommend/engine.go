// Package recommend ranks unseen jobs against the titles, regions and
// keywords of a user's favorited jobs.
package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/nathangreen1632/CareerGistPRO/common/models"
	"github.com/nathangreen1632/CareerGistPRO/common/telemetry"
	"github.com/nathangreen1632/CareerGistPRO/services/processing/internal/keywords"
	"github.com/nathangreen1632/CareerGistPRO/services/processing/internal/similarity"
)

// Limit is the maximum number of candidates returned.
const Limit = 10

var tracer = telemetry.GetTracer("careergist/processing/recommend")

type SignalSource interface {
	ListByUser(ctx context.Context, userID string) ([]models.AffinitySignal, error)
}

type Engine struct {
	signals SignalSource
	logger  *zap.Logger
}

func NewEngine(signals SignalSource, logger *zap.Logger) *Engine {
	return &Engine{signals: signals, logger: logger}
}

// profile is what the engine knows about a user's taste.
type profile struct {
	titles   []string
	regions  map[string]struct{}
	keywords keywords.Set
}

func buildProfile(signals []models.AffinitySignal) profile {
	p := profile{
		titles:   make([]string, 0, len(signals)),
		regions:  map[string]struct{}{},
		keywords: keywords.Set{},
	}
	for _, s := range signals {
		p.titles = append(p.titles, s.Title)
		if region := similarity.Region(s.Location); region != "" {
			p.regions[region] = struct{}{}
		}
		for word := range keywords.Extract(s.Description + " " + s.Summary) {
			p.keywords[word] = struct{}{}
		}
	}
	return p
}

func (p profile) score(job models.JobRecord) int {
	title := similarity.BestTitleSimilarity(job.Title, p.titles) * similarity.MaxTitleScore
	region := similarity.RegionScore(job.Location, p.regions)
	kw := similarity.KeywordScore(keywords.Extract(job.Description+" "+job.Summary), p.keywords)
	return int(math.Round(title + region + kw))
}

// Recommend scores pool for userID and returns at most Limit candidates,
// best first. Equal scores keep pool order. Without signals, or when
// anything goes wrong, the first Limit pool entries are returned with
// score 0; callers pass the pool most recent first.
func (e *Engine) Recommend(ctx context.Context, userID string, pool []models.JobRecord) (result []models.ScoredCandidate) {
	ctx, span := tracer.Start(ctx, "Engine.Recommend")
	defer span.End()
	span.SetAttributes(
		telemetry.String("user.id", userID),
		telemetry.Int("pool.size", len(pool)),
	)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("scoring panicked: %v", r)
			span.RecordError(err)
			e.logger.Error("recommendation failed, serving cold start",
				zap.String("user_id", userID),
				zap.Error(err))
			result = ColdStart(pool)
		}
	}()

	signals, err := e.signals.ListByUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		e.logger.Error("failed to load affinity signals, serving cold start",
			zap.String("user_id", userID),
			zap.Error(err))
		return ColdStart(pool)
	}
	span.SetAttributes(telemetry.Int("signals.count", len(signals)))

	if len(signals) == 0 {
		span.SetAttributes(telemetry.Bool("cold_start", true))
		return ColdStart(pool)
	}

	p := buildProfile(signals)
	scored := make([]models.ScoredCandidate, len(pool))
	for i, job := range pool {
		scored[i] = models.ScoredCandidate{Job: job, Score: p.score(job)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > Limit {
		scored = scored[:Limit]
	}
	return scored
}

// ColdStart returns the first Limit entries of pool with score 0.
func ColdStart(pool []models.JobRecord) []models.ScoredCandidate {
	n := min(len(pool), Limit)
	out := make([]models.ScoredCandidate, n)
	for i := 0; i < n; i++ {
		out[i] = models.ScoredCandidate{Job: pool[i]}
	}
	return out
}
