package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type TokenSequenceRepository struct {
	mu       sync.Mutex
	counters map[string]int
}

func NewTokenSequenceRepository() *TokenSequenceRepository {
	return &TokenSequenceRepository{counters: make(map[string]int)}
}

func seqKey(clinicID, doctorID uuid.UUID, date string) string {
	return fmt.Sprintf("%s:%s:%s", clinicID, doctorID, date)
}

func (r *TokenSequenceRepository) Next(_ context.Context, clinicID, doctorID uuid.UUID, date string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := seqKey(clinicID, doctorID, date)
	r.counters[key]++
	return r.counters[key], nil
}

func (r *TokenSequenceRepository) Current(_ context.Context, clinicID, doctorID uuid.UUID, date string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[seqKey(clinicID, doctorID, date)], nil
}
