package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
)

type VisitRepository struct {
	mu     sync.RWMutex
	visits map[uuid.UUID]model.Visit
}

func NewVisitRepository() *VisitRepository {
	return &VisitRepository{visits: make(map[uuid.UUID]model.Visit)}
}

func (r *VisitRepository) Create(_ context.Context, visit *model.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.visits[visit.ID]; ok {
		return repository.ErrDuplicate
	}
	if visit.Version == 0 {
		visit.Version = 1
	}
	r.visits[visit.ID] = *visit
	return nil
}

func (r *VisitRepository) Get(_ context.Context, id uuid.UUID) (*model.Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	visit, ok := r.visits[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &visit, nil
}

// Update applies the write only when the caller's version matches the stored
// row, then bumps the version. Mirrors the compare-and-set the SQL store does.
func (r *VisitRepository) Update(_ context.Context, visit *model.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.visits[visit.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != visit.Version {
		return repository.ErrStaleVersion
	}
	visit.Version++
	r.visits[visit.ID] = *visit
	return nil
}

func (r *VisitRepository) ListActive(_ context.Context, doctorID uuid.UUID, date string) ([]*model.Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Visit
	for _, v := range r.visits {
		if v.DoctorID == doctorID && v.VisitDate == date && !v.Status.Terminal() {
			visit := v
			out = append(out, &visit)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueuePosition < out[j].QueuePosition })
	return out, nil
}

func (r *VisitRepository) CountForDate(_ context.Context, doctorID uuid.UUID, date string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, v := range r.visits {
		if v.DoctorID == doctorID && v.VisitDate == date {
			count++
		}
	}
	return count, nil
}

func (r *VisitRepository) MaxQueuePosition(_ context.Context, doctorID uuid.UUID, date string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	max := 0
	for _, v := range r.visits {
		if v.DoctorID == doctorID && v.VisitDate == date && v.QueuePosition > max {
			max = v.QueuePosition
		}
	}
	return max, nil
}
