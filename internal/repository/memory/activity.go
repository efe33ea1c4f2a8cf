package memory

import (
	"context"
	"sync"

	"github.com/clinicq/queue-api/internal/model"
)

// ActivityRepository is append-only; entries are stored in arrival order and
// read back newest first.
type ActivityRepository struct {
	mu      sync.RWMutex
	entries []model.ActivityEntry
}

func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{}
}

func (r *ActivityRepository) Create(_ context.Context, entry *model.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *ActivityRepository) List(_ context.Context, filters *model.ActivityFilters) ([]*model.ActivityEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.ActivityEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if filters.ClinicID != e.ClinicID {
			continue
		}
		if filters.Action != "" && filters.Action != e.Action {
			continue
		}
		entry := e
		out = append(out, &entry)
		if filters.Limit > 0 && len(out) >= filters.Limit {
			break
		}
	}
	return out, nil
}
