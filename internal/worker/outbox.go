package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clinicq/queue-api/internal/email"
	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
	"github.com/clinicq/queue-api/pkg/logger"
	"github.com/clinicq/queue-api/pkg/messaging"
	"github.com/clinicq/queue-api/pkg/metrics"
)

// OutboxProcessor drains the outbox table and performs the deferred side
// effects: pushing delay notices to subscribers and emailing patients who
// left an address. Event ids are the idempotency key, so a crash between
// delivery and the status update only risks a duplicate notice, never a lost
// one.
type OutboxProcessor struct {
	outbox     repository.OutboxRepository
	broker     messaging.Broker
	email      email.Service
	metrics    *metrics.Metrics
	logger     *logger.Logger
	interval   time.Duration
	batchSize  int
	maxRetries int
}

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
}

func NewOutboxProcessor(
	outbox repository.OutboxRepository,
	broker messaging.Broker,
	emailSvc email.Service,
	m *metrics.Metrics,
	l *logger.Logger,
	cfg Config,
) *OutboxProcessor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &OutboxProcessor{
		outbox:     outbox,
		broker:     broker,
		email:      emailSvc,
		metrics:    m,
		logger:     l,
		interval:   cfg.PollInterval,
		batchSize:  cfg.BatchSize,
		maxRetries: cfg.MaxRetries,
	}
}

// Start polls until the context is cancelled.
func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("outbox processor started", "interval", p.interval.String())
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox processor stopped")
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

func (p *OutboxProcessor) processBatch(ctx context.Context) {
	events, err := p.outbox.GetPendingEvents(ctx, p.batchSize)
	if err != nil {
		p.logger.Error(err, "failed to fetch pending events")
		return
	}

	for _, evt := range events {
		start := time.Now()
		err := p.process(ctx, evt)
		if p.metrics != nil {
			p.metrics.OutboxProcessingLatency.Observe(time.Since(start).Seconds())
		}

		if err != nil {
			p.handleFailure(ctx, evt, err)
			continue
		}
		if err := p.outbox.UpdateStatus(ctx, evt.ID, model.OutboxStatusProcessed, nil); err != nil {
			p.logger.Error(err, "failed to mark event processed", "event_id", evt.ID.String())
			continue
		}
		if p.metrics != nil {
			p.metrics.OutboxEventsProcessed.Inc()
		}
	}
}

func (p *OutboxProcessor) process(ctx context.Context, evt *model.OutboxEvent) error {
	switch evt.EventType {
	case model.NotificationKindDoctorDelayed:
		return p.processDelayNotice(ctx, evt)
	default:
		return fmt.Errorf("unknown event type %q", evt.EventType)
	}
}

func (p *OutboxProcessor) processDelayNotice(ctx context.Context, evt *model.OutboxEvent) error {
	var notice model.DelayNotice
	if err := json.Unmarshal(evt.Payload, &notice); err != nil {
		return fmt.Errorf("failed to decode delay notice: %w", err)
	}

	if p.broker != nil {
		msg := messaging.Message{Type: model.NotificationKindDoctorDelayed, Payload: notice}
		if err := p.broker.Publish(ctx, messaging.ChannelDelayNotices, msg); err != nil {
			return fmt.Errorf("failed to publish delay notice: %w", err)
		}
	}

	// Email is opt-in: only patients who gave an address at booking get one.
	if p.email != nil && notice.PatientEmail != "" {
		if err := p.email.SendDelayNotice(&notice); err != nil {
			return err
		}
	}
	return nil
}

func (p *OutboxProcessor) handleFailure(ctx context.Context, evt *model.OutboxEvent, cause error) {
	p.logger.Error(cause, "failed to process event",
		"event_id", evt.ID.String(), "event_type", evt.EventType, "retries", evt.RetryCount)

	if p.metrics != nil {
		p.metrics.OutboxEventsFailed.Inc()
		p.metrics.OutboxRetries.WithLabelValues(evt.EventType).Inc()
	}

	msg := cause.Error()
	status := model.OutboxStatusRetry
	if evt.RetryCount+1 >= p.maxRetries {
		status = model.OutboxStatusFailed
	}
	if err := p.outbox.UpdateStatus(ctx, evt.ID, status, &msg); err != nil {
		p.logger.Error(err, "failed to update event status", "event_id", evt.ID.String())
	}
}
