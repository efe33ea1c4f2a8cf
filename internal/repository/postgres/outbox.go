package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicq/queue-api/internal/model"
)

type OutboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *OutboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (id, event_type, payload, status, retry_count, created_at)
		VALUES (:id, :event_type, :payload, :status, :retry_count, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// GetPendingEvents claims a batch with FOR UPDATE SKIP LOCKED so concurrent
// workers never process the same event twice.
func (r *OutboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	var events []*model.OutboxEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM outbox_events
		WHERE status = 'PENDING'
		   OR (status = 'RETRY' AND (retry_at IS NULL OR retry_at <= NOW()))
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	return events, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error {
	var query string
	args := []interface{}{status, errorMessage, id}
	switch status {
	case model.OutboxStatusProcessed:
		query = `UPDATE outbox_events SET status = $1, error_message = $2, processed_at = NOW() WHERE id = $3`
	case model.OutboxStatusRetry:
		query = `
			UPDATE outbox_events SET status = $1, error_message = $2,
				retry_count = retry_count + 1,
				retry_at = NOW() + (retry_count + 1) * INTERVAL '1 minute'
			WHERE id = $3`
	default:
		query = `UPDATE outbox_events SET status = $1, error_message = $2 WHERE id = $3`
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update outbox event %s: %w", id, err)
	}
	return nil
}
