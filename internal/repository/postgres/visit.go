package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
)

type VisitRepository struct {
	BaseRepository
}

func NewVisitRepository(db *sqlx.DB) *VisitRepository {
	return &VisitRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *VisitRepository) Create(ctx context.Context, visit *model.Visit) error {
	query := `
		INSERT INTO visits (
			id, token_number, clinic_id, doctor_id, visit_date, queue_position,
			patient_name, patient_age, patient_phone, patient_email, reason,
			status, booked_at, arrived_at, consult_started_at, consult_ended_at,
			version, created_at, updated_at
		) VALUES (
			:id, :token_number, :clinic_id, :doctor_id, :visit_date, :queue_position,
			:patient_name, :patient_age, :patient_phone, :patient_email, :reason,
			:status, :booked_at, :arrived_at, :consult_started_at, :consult_ended_at,
			:version, :created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, visit); err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

func (r *VisitRepository) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	var visit model.Visit
	err := r.db.GetContext(ctx, &visit, `SELECT * FROM visits WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return &visit, nil
}

// Update is a compare-and-set on the version column. Zero rows affected with
// the row still present means someone wrote in between.
func (r *VisitRepository) Update(ctx context.Context, visit *model.Visit) error {
	query := `
		UPDATE visits SET
			status = :status, arrived_at = :arrived_at,
			consult_started_at = :consult_started_at, consult_ended_at = :consult_ended_at,
			version = version + 1, updated_at = :updated_at
		WHERE id = :id AND version = :version
	`
	result, err := r.db.NamedExecContext(ctx, query, visit)
	if err != nil {
		return fmt.Errorf("failed to update visit: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM visits WHERE id = $1)`, visit.ID); err != nil {
			return fmt.Errorf("failed to check visit existence: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrStaleVersion
	}
	visit.Version++
	return nil
}

func (r *VisitRepository) ListActive(ctx context.Context, doctorID uuid.UUID, date string) ([]*model.Visit, error) {
	var visits []*model.Visit
	err := r.db.SelectContext(ctx, &visits, `
		SELECT * FROM visits
		WHERE doctor_id = $1 AND visit_date = $2
		  AND status IN ('waiting', 'arrived', 'with_doctor')
		ORDER BY queue_position
	`, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list active visits: %w", err)
	}
	return visits, nil
}

func (r *VisitRepository) CountForDate(ctx context.Context, doctorID uuid.UUID, date string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM visits WHERE doctor_id = $1 AND visit_date = $2`, doctorID, date)
	if err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}
	return count, nil
}

func (r *VisitRepository) MaxQueuePosition(ctx context.Context, doctorID uuid.UUID, date string) (int, error) {
	var max int
	err := r.db.GetContext(ctx, &max,
		`SELECT COALESCE(MAX(queue_position), 0) FROM visits WHERE doctor_id = $1 AND visit_date = $2`,
		doctorID, date)
	if err != nil {
		return 0, fmt.Errorf("failed to get max queue position: %w", err)
	}
	return max, nil
}
