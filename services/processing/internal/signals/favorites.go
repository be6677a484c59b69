// Package signals records the favorites a user makes. Each favorite stores a
// snapshot of the job, which the recommendation engine reads as an affinity
// signal.
package signals

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nathangreen1632/CareerGistPRO/common/errors"
	"github.com/nathangreen1632/CareerGistPRO/common/jobstore"
	"github.com/nathangreen1632/CareerGistPRO/common/models"
	"github.com/nathangreen1632/CareerGistPRO/common/telemetry"
)

var tracer = telemetry.GetTracer("careergist/processing/signals")

// Snapshots persists signals. Insert reports false when the user already
// favorited the job.
type Snapshots interface {
	Insert(ctx context.Context, signal models.AffinitySignal) (bool, error)
	Delete(ctx context.Context, userID, jobID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.AffinitySignal, error)
}

type Service struct {
	jobs      jobstore.Gateway
	snapshots Snapshots
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(jobs jobstore.Gateway, snapshots Snapshots, logger *zap.Logger) *Service {
	return &Service{
		jobs:      jobs,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
	}
}

// Favorite makes sure the job exists, marks it saved and records a snapshot
// for userID. Favoriting the same job twice keeps the first snapshot.
func (s *Service) Favorite(ctx context.Context, userID, sourceID string, fields jobstore.Fields) (*models.JobRecord, error) {
	ctx, span := tracer.Start(ctx, "Service.Favorite")
	defer span.End()

	if userID == "" {
		return nil, errors.InvalidInput("user id is required", nil)
	}

	fields.Saved = true
	job, outcome, err := s.jobs.UpsertIfAbsent(ctx, sourceID, fields)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if !job.Saved {
		if err := s.jobs.MarkSaved(ctx, job.ID); err != nil {
			span.RecordError(err)
			return nil, errors.Internal("marking job saved", err)
		}
		job.Saved = true
	}

	signal := models.SnapshotOf(userID, *job)
	signal.CreatedAt = s.now().UTC()
	inserted, err := s.snapshots.Insert(ctx, signal)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Internal("storing favorite", err)
	}

	s.logger.Info("job favorited",
		zap.String("user_id", userID),
		zap.String("job_id", job.ID),
		zap.Stringer("upsert", outcome),
		zap.Bool("new_favorite", inserted))
	return job, nil
}

// Unfavorite removes the signal. The job stays saved.
func (s *Service) Unfavorite(ctx context.Context, userID, jobID string) error {
	ctx, span := tracer.Start(ctx, "Service.Unfavorite")
	defer span.End()

	if userID == "" || jobID == "" {
		return errors.InvalidInput("user id and job id are required", nil)
	}

	removed, err := s.snapshots.Delete(ctx, userID, jobID)
	if err != nil {
		span.RecordError(err)
		return errors.Internal("removing favorite", err)
	}
	if !removed {
		return errors.NotFound("favorite not found", nil)
	}

	s.logger.Info("job unfavorited", zap.String("user_id", userID), zap.String("job_id", jobID))
	return nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.AffinitySignal, error) {
	return s.snapshots.ListByUser(ctx, userID)
}
