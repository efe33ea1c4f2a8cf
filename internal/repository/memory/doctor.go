package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
)

type DoctorRepository struct {
	mu      sync.RWMutex
	doctors map[uuid.UUID]model.Doctor
}

func NewDoctorRepository() *DoctorRepository {
	return &DoctorRepository{doctors: make(map[uuid.UUID]model.Doctor)}
}

func (r *DoctorRepository) Create(_ context.Context, doctor *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.doctors[doctor.ID]; ok {
		return repository.ErrDuplicate
	}
	r.doctors[doctor.ID] = *doctor
	return nil
}

func (r *DoctorRepository) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doctor, ok := r.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &doctor, nil
}

func (r *DoctorRepository) Update(_ context.Context, doctor *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.doctors[doctor.ID]; !ok {
		return repository.ErrNotFound
	}
	r.doctors[doctor.ID] = *doctor
	return nil
}

func (r *DoctorRepository) ListByClinic(_ context.Context, clinicID uuid.UUID) ([]*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Doctor
	for _, d := range r.doctors {
		if d.ClinicID == clinicID {
			doctor := d
			out = append(out, &doctor)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
