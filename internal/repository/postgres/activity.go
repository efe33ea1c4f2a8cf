package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/clinicq/queue-api/internal/model"
)

// ActivityRepository only inserts and selects. There is no update or delete
// on purpose; the table is the audit trail.
type ActivityRepository struct {
	BaseRepository
}

func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *ActivityRepository) Create(ctx context.Context, entry *model.ActivityEntry) error {
	query := `
		INSERT INTO activity_log (
			id, clinic_id, handler_id, handler_name, action, target_type,
			target_id, target_name, details, old_value, new_value, created_at
		) VALUES (
			:id, :clinic_id, :handler_id, :handler_name, :action, :target_type,
			:target_id, :target_name, :details, :old_value, :new_value, :created_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to create activity entry: %w", err)
	}
	return nil
}

func (r *ActivityRepository) List(ctx context.Context, filters *model.ActivityFilters) ([]*model.ActivityEntry, error) {
	query := `SELECT * FROM activity_log WHERE clinic_id = $1`
	args := []interface{}{filters.ClinicID}

	if filters.Action != "" {
		query += ` AND action = $2`
		args = append(args, filters.Action)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, filters.Limit)

	var entries []*model.ActivityEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return entries, nil
}
