package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nathangreen1632/CareerGistPRO/common/errors"
	"github.com/nathangreen1632/CareerGistPRO/common/jobstore"
	"github.com/nathangreen1632/CareerGistPRO/common/models"
	"github.com/nathangreen1632/CareerGistPRO/common/telemetry"
	"github.com/nathangreen1632/CareerGistPRO/services/processing/internal/config"
	"github.com/nathangreen1632/CareerGistPRO/services/processing/internal/processor"
	"github.com/nathangreen1632/CareerGistPRO/services/processing/internal/recommend"
	"github.com/nathangreen1632/CareerGistPRO/services/processing/internal/signals"
)

type archiver interface {
	ProcessJobCreated(ctx context.Context, rawData []byte) error
	ProcessRunReport(ctx context.Context, rawData []byte) error
}

type recommender interface {
	RecommendForUser(ctx context.Context, userID string) []models.ScoredCandidate
}

type favorites interface {
	Favorite(ctx context.Context, userID, sourceID string, fields jobstore.Fields) (*models.JobRecord, error)
	Unfavorite(ctx context.Context, userID, jobID string) error
}

type Handler struct {
	logger      *zap.Logger
	nc          *nats.Conn
	tracer      trace.Tracer
	config      *config.Config
	archiver    archiver
	recommender recommender
	favorites   favorites
	subs        []*nats.Subscription
}

func NewHandler(
	logger *zap.Logger,
	nc *nats.Conn,
	tracer trace.Tracer,
	config *config.Config,
	jobProcessor *processor.JobProcessor,
	recommendations *recommend.Service,
	favoriteService *signals.Service,
) *Handler {
	return &Handler{
		logger:      logger,
		nc:          nc,
		tracer:      tracer,
		config:      config,
		archiver:    jobProcessor,
		recommender: recommendations,
		favorites:   favoriteService,
	}
}

func (h *Handler) RegisterSubscriptions(lc fx.Lifecycle) error {
	handlers := map[string]nats.MsgHandler{
		models.SubjectJobCreated:      h.handleJobCreated,
		models.SubjectRunReport:       h.handleRunReport,
		models.SubjectRecommendations: h.handleRecommendations,
		models.SubjectFavoriteAdded:   h.handleFavoriteAdded,
		models.SubjectFavoriteRemoved: h.handleFavoriteRemoved,
	}

	for subject, handler := range handlers {
		sub, err := h.nc.QueueSubscribe(subject, h.config.NATSQueueGroup, handler)
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", subject, err)
		}
		h.subs = append(h.subs, sub)
	}

	h.logger.Info("registered NATS subscriptions", zap.Int("count", len(h.subs)))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			for _, sub := range h.subs {
				if err := sub.Unsubscribe(); err != nil {
					h.logger.Warn("failed to unsubscribe", zap.String("subject", sub.Subject), zap.Error(err))
				}
			}
			return nil
		},
	})

	return nil
}

func (h *Handler) handleJobCreated(msg *nats.Msg) {
	ctx, span := h.tracer.Start(context.Background(), "handleJobCreated")
	defer span.End()
	span.SetAttributes(messageAttributes(msg)...)

	if err := h.archiver.ProcessJobCreated(ctx, msg.Data); err != nil {
		span.RecordError(err)
		h.logger.Error("failed to archive job",
			zap.Error(err),
			zap.String("subject", msg.Subject))
		return
	}
	h.logger.Debug("archived job", zap.String("subject", msg.Subject))
}

func (h *Handler) handleRunReport(msg *nats.Msg) {
	ctx, span := h.tracer.Start(context.Background(), "handleRunReport")
	defer span.End()
	span.SetAttributes(messageAttributes(msg)...)

	if err := h.archiver.ProcessRunReport(ctx, msg.Data); err != nil {
		span.RecordError(err)
		h.logger.Error("failed to record ingestion run",
			zap.Error(err),
			zap.String("subject", msg.Subject))
	}
}

func (h *Handler) handleRecommendations(msg *nats.Msg) {
	ctx, cancel := h.requestContext()
	defer cancel()
	ctx, span := h.tracer.Start(ctx, "handleRecommendations")
	defer span.End()
	span.SetAttributes(messageAttributes(msg)...)

	h.respond(msg, h.recommend(ctx, msg.Data))
}

func (h *Handler) handleFavoriteAdded(msg *nats.Msg) {
	ctx, cancel := h.requestContext()
	defer cancel()
	ctx, span := h.tracer.Start(ctx, "handleFavoriteAdded")
	defer span.End()
	span.SetAttributes(messageAttributes(msg)...)

	h.respond(msg, h.addFavorite(ctx, msg.Data))
}

func (h *Handler) handleFavoriteRemoved(msg *nats.Msg) {
	ctx, cancel := h.requestContext()
	defer cancel()
	ctx, span := h.tracer.Start(ctx, "handleFavoriteRemoved")
	defer span.End()
	span.SetAttributes(messageAttributes(msg)...)

	h.respond(msg, h.removeFavorite(ctx, msg.Data))
}

func (h *Handler) recommend(ctx context.Context, data []byte) models.Reply {
	var req models.RecommendationRequest
	if err := json.Unmarshal(data, &req); err != nil || req.UserID == "" {
		return errorReply(errors.InvalidInput("recommendation request needs a userId", err))
	}

	candidates := h.recommender.RecommendForUser(ctx, req.UserID)
	h.logger.Debug("served recommendations",
		zap.String("user_id", req.UserID),
		zap.Int("count", len(candidates)))
	return models.Reply{Data: candidates}
}

func (h *Handler) addFavorite(ctx context.Context, data []byte) models.Reply {
	var req models.FavoriteRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errorReply(errors.InvalidInput("decoding favorite request", err))
	}

	sourceID := req.SourceID
	if sourceID == "" {
		sourceID = req.Job.SourceID
	}

	job, err := h.favorites.Favorite(ctx, req.UserID, sourceID, fieldsOf(req.Job))
	if err != nil {
		h.logger.Warn("favorite failed", zap.String("user_id", req.UserID), zap.Error(err))
		return errorReply(err)
	}
	return models.Reply{Data: job}
}

func (h *Handler) removeFavorite(ctx context.Context, data []byte) models.Reply {
	var req models.FavoriteRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errorReply(errors.InvalidInput("decoding favorite request", err))
	}

	if err := h.favorites.Unfavorite(ctx, req.UserID, req.JobID); err != nil {
		h.logger.Warn("unfavorite failed", zap.String("user_id", req.UserID), zap.Error(err))
		return errorReply(err)
	}
	return models.Reply{Data: map[string]string{"jobId": req.JobID}}
}

func (h *Handler) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.config.RequestTimeout)
}

func (h *Handler) respond(msg *nats.Msg, reply models.Reply) {
	data, err := json.Marshal(reply)
	if err != nil {
		h.logger.Error("failed to encode reply", zap.String("subject", msg.Subject), zap.Error(err))
		data, _ = json.Marshal(errorReply(errors.Internal("encoding reply", err)))
	}
	if err := msg.Respond(data); err != nil {
		h.logger.Warn("failed to send reply", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

func messageAttributes(msg *nats.Msg) []attribute.KeyValue {
	return []attribute.KeyValue{
		telemetry.String("nats.subject", msg.Subject),
		telemetry.Int("message.size", len(msg.Data)),
		telemetry.Bool("nats.request", msg.Reply != ""),
	}
}

func errorReply(err error) models.Reply {
	return models.Reply{Error: err.Error()}
}

func fieldsOf(job models.JobRecord) jobstore.Fields {
	return jobstore.Fields{
		Title:        job.Title,
		Company:      job.Company,
		Location:     job.Location,
		Description:  job.Description,
		Summary:      job.Summary,
		ApplyURL:     job.ApplyURL,
		LogoURL:      job.LogoURL,
		PostedAt:     job.PostedAt,
		SalaryMin:    job.SalaryMin,
		SalaryMax:    job.SalaryMax,
		SalaryPeriod: job.SalaryPeriod,
		Benefits:     job.Benefits,
	}
}
