package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
)

type HandlerRepository struct {
	mu       sync.RWMutex
	handlers map[uuid.UUID]model.Handler
}

func NewHandlerRepository() *HandlerRepository {
	return &HandlerRepository{handlers: make(map[uuid.UUID]model.Handler)}
}

func (r *HandlerRepository) Create(_ context.Context, handler *model.Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.handlers {
		if h.Phone == handler.Phone {
			return repository.ErrDuplicate
		}
	}
	r.handlers[handler.ID] = *handler
	return nil
}

func (r *HandlerRepository) Get(_ context.Context, id uuid.UUID) (*model.Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &handler, nil
}

func (r *HandlerRepository) GetByPhone(_ context.Context, phone string) (*model.Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.handlers {
		if h.Phone == phone {
			handler := h
			return &handler, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *HandlerRepository) ListByClinic(_ context.Context, clinicID uuid.UUID) ([]*model.Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Handler
	for _, h := range r.handlers {
		if h.ClinicID == clinicID {
			handler := h
			out = append(out, &handler)
		}
	}
	return out, nil
}
