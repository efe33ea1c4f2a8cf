package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
)

type ClinicRepository struct {
	mu      sync.RWMutex
	clinics map[uuid.UUID]model.Clinic
}

func NewClinicRepository() *ClinicRepository {
	return &ClinicRepository{clinics: make(map[uuid.UUID]model.Clinic)}
}

func (r *ClinicRepository) Create(_ context.Context, clinic *model.Clinic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clinics[clinic.ID]; ok {
		return repository.ErrDuplicate
	}
	r.clinics[clinic.ID] = *clinic
	return nil
}

func (r *ClinicRepository) Get(_ context.Context, id uuid.UUID) (*model.Clinic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clinic, ok := r.clinics[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &clinic, nil
}

func (r *ClinicRepository) Update(_ context.Context, clinic *model.Clinic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clinics[clinic.ID]; !ok {
		return repository.ErrNotFound
	}
	r.clinics[clinic.ID] = *clinic
	return nil
}
