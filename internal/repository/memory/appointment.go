package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
)

type AppointmentRepository struct {
	mu           sync.RWMutex
	appointments map[uuid.UUID]model.Appointment
}

func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{appointments: make(map[uuid.UUID]model.Appointment)}
}

func (r *AppointmentRepository) Create(_ context.Context, appointment *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[appointment.ID]; ok {
		return repository.ErrDuplicate
	}
	r.appointments[appointment.ID] = *appointment
	return nil
}

func (r *AppointmentRepository) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	appointment, ok := r.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &appointment, nil
}

func (r *AppointmentRepository) GetByVisit(_ context.Context, visitID uuid.UUID) (*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.appointments {
		if a.VisitID == visitID {
			appointment := a
			return &appointment, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *AppointmentRepository) Update(_ context.Context, appointment *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[appointment.ID]; !ok {
		return repository.ErrNotFound
	}
	r.appointments[appointment.ID] = *appointment
	return nil
}

func (r *AppointmentRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Appointment
	for _, a := range r.appointments {
		if a.UserID == userID {
			appointment := a
			out = append(out, &appointment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
