package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
)

// Service persists side effects decided inside a state transition for
// asynchronous delivery. Emitting writes an outbox row; the worker drains it.
type Service struct {
	outbox repository.OutboxRepository
}

func NewService(outbox repository.OutboxRepository) *Service {
	return &Service{outbox: outbox}
}

// Emit records a typed event with an arbitrary JSON payload.
func (s *Service) Emit(ctx context.Context, eventType string, payload interface{}) (uuid.UUID, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	evt := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   body,
		Status:    model.OutboxStatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.outbox.Create(ctx, evt); err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue %s event: %w", eventType, err)
	}
	return evt.ID, nil
}

// EmitDelayNotice enqueues one delay notice per affected patient.
func (s *Service) EmitDelayNotice(ctx context.Context, notice *model.DelayNotice) (uuid.UUID, error) {
	if notice.ID == uuid.Nil {
		notice.ID = uuid.New()
	}
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now()
	}
	return s.Emit(ctx, model.NotificationKindDoctorDelayed, notice)
}
