package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
)

// DefaultListLimit caps reads when the caller does not ask for one. This is a
// read-side concern only; the recorder never drops entries on write.
const DefaultListLimit = 20

// Service is the append-only activity recorder. Every state-changing staff
// action funnels through Record; entries are never edited or removed.
type Service struct {
	repo repository.ActivityRepository
}

func NewService(repo repository.ActivityRepository) *Service {
	return &Service{repo: repo}
}

// Record appends an entry, assigning id and timestamp when unset, and returns
// the entry id. Failures are returned to the caller, never swallowed.
func (s *Service) Record(ctx context.Context, entry *model.ActivityEntry) (uuid.UUID, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return uuid.Nil, fmt.Errorf("failed to record activity: %w", err)
	}
	return entry.ID, nil
}

// RecordStatusChange appends the single entry a status transition produces.
func (s *Service) RecordStatusChange(ctx context.Context, actor model.Actor, clinicID uuid.UUID,
	action model.ActivityAction, targetType model.ActivityTarget, targetID uuid.UUID, targetName string,
	oldValue, newValue string) (uuid.UUID, error) {

	return s.Record(ctx, &model.ActivityEntry{
		ClinicID:    clinicID,
		HandlerID:   actor.HandlerID,
		HandlerName: actor.HandlerName,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		TargetName:  targetName,
		Details:     fmt.Sprintf("Updated %s status from %s to %s", targetType, oldValue, newValue),
		OldValue:    &oldValue,
		NewValue:    &newValue,
	})
}

// List returns entries for a clinic, most recent first.
func (s *Service) List(ctx context.Context, filters *model.ActivityFilters) ([]*model.ActivityEntry, error) {
	if filters.Limit <= 0 {
		filters.Limit = DefaultListLimit
	}
	entries, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return entries, nil
}
