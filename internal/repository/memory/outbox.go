package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
)

type OutboxRepository struct {
	mu     sync.RWMutex
	events map[uuid.UUID]model.OutboxEvent
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{events: make(map[uuid.UUID]model.OutboxEvent)}
}

func (r *OutboxRepository) Create(_ context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; ok {
		return repository.ErrDuplicate
	}
	r.events[event.ID] = *event
	return nil
}

func (r *OutboxRepository) GetPendingEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	var out []*model.OutboxEvent
	for _, e := range r.events {
		switch e.Status {
		case model.OutboxStatusPending:
		case model.OutboxStatusRetry:
			if e.RetryAt != nil && e.RetryAt.After(now) {
				continue
			}
		default:
			continue
		}
		event := e
		out = append(out, &event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *OutboxRepository) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return repository.ErrNotFound
	}

	event.Status = status
	event.ErrorMessage = errorMessage
	now := time.Now()
	switch status {
	case model.OutboxStatusProcessed:
		event.ProcessedAt = &now
	case model.OutboxStatusRetry:
		event.RetryCount++
		retryAt := now.Add(time.Duration(event.RetryCount) * time.Minute)
		event.RetryAt = &retryAt
	}
	r.events[id] = event
	return nil
}
