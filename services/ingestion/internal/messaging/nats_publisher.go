package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nathangreen1632/CareerGistPRO/common/errors"
	"github.com/nathangreen1632/CareerGistPRO/common/models"
	"github.com/nathangreen1632/CareerGistPRO/common/telemetry"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/config"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("careergist/ingestion/messaging")

type Publisher interface {
	PublishJobCreated(ctx context.Context, event models.JobCreatedEvent) error
	PublishRunReport(ctx context.Context, report models.RunReport) error
	Close()
}

type natsPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewPublisher(logger *zap.Logger, config *config.Config) (Publisher, error) {
	opts := []nats.Option{
		nats.Name("ingestion-service"),
		nats.Timeout(config.NATSConnTimeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
	}

	conn, err := nats.Connect(config.NATSURL, opts...)
	if err != nil {
		return nil, errors.Internal("connecting to NATS", err)
	}

	return &natsPublisher{
		conn:   conn,
		logger: logger,
	}, nil
}

func (p *natsPublisher) PublishJobCreated(ctx context.Context, event models.JobCreatedEvent) error {
	if err := p.publish(ctx, models.SubjectJobCreated, event); err != nil {
		p.logger.Error("failed to publish job created event",
			zap.String("source_id", event.SourceID),
			zap.Error(err))
		return err
	}

	p.logger.Debug("published job created event",
		zap.String("job_id", event.JobID),
		zap.String("source_id", event.SourceID))
	return nil
}

func (p *natsPublisher) PublishRunReport(ctx context.Context, report models.RunReport) error {
	if err := p.publish(ctx, models.SubjectRunReport, report); err != nil {
		p.logger.Error("failed to publish run report",
			zap.String("run_id", report.RunID),
			zap.Error(err))
		return err
	}
	return nil
}

func (p *natsPublisher) publish(ctx context.Context, subject string, payload any) error {
	_, span := tracer.Start(ctx, "publish")
	defer span.End()

	data, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return errors.Internal("marshaling payload", err)
	}

	span.SetAttributes(
		telemetry.String("nats.subject", subject),
		telemetry.Int("message.size", len(data)),
	)

	if err := p.conn.Publish(subject, data); err != nil {
		span.RecordError(err)
		return errors.Internal("publishing to NATS", err)
	}
	return nil
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	}
}
