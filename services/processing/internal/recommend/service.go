package recommend

import (
	"context"

	"go.uber.org/zap"

	"github.com/nathangreen1632/CareerGistPRO/common/models"
)

const DefaultPoolSize = 100

// PoolSource returns unseen jobs, most recently created first.
type PoolSource interface {
	ListUnseen(ctx context.Context, limit int) ([]models.JobRecord, error)
}

type Service struct {
	engine   *Engine
	jobs     PoolSource
	poolSize int
	logger   *zap.Logger
}

func NewService(engine *Engine, jobs PoolSource, poolSize int, logger *zap.Logger) *Service {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	return &Service{
		engine:   engine,
		jobs:     jobs,
		poolSize: poolSize,
		logger:   logger,
	}
}

// RecommendForUser scores the newest unseen jobs for userID. A failure to
// load the pool yields an empty result.
func (s *Service) RecommendForUser(ctx context.Context, userID string) []models.ScoredCandidate {
	ctx, span := tracer.Start(ctx, "Service.RecommendForUser")
	defer span.End()

	pool, err := s.jobs.ListUnseen(ctx, s.poolSize)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("failed to load candidate pool",
			zap.String("user_id", userID),
			zap.Error(err))
		return []models.ScoredCandidate{}
	}

	return s.engine.Recommend(ctx, userID, pool)
}
