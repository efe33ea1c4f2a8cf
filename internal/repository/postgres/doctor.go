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

type DoctorRepository struct {
	BaseRepository
}

func NewDoctorRepository(db *sqlx.DB) *DoctorRepository {
	return &DoctorRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *DoctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (
			id, clinic_id, name, specialty, working_days, start_time, end_time,
			consultation_minutes, max_tokens_per_day, status, current_token, next_token,
			total_patients_today, completed_today, created_at, updated_at
		) VALUES (
			:id, :clinic_id, :name, :specialty, :working_days, :start_time, :end_time,
			:consultation_minutes, :max_tokens_per_day, :status, :current_token, :next_token,
			:total_patients_today, :completed_today, :created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, doctor); err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

func (r *DoctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, `SELECT * FROM doctors WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

func (r *DoctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	query := `
		UPDATE doctors SET
			name = :name, specialty = :specialty, working_days = :working_days,
			start_time = :start_time, end_time = :end_time,
			consultation_minutes = :consultation_minutes, max_tokens_per_day = :max_tokens_per_day,
			status = :status, current_token = :current_token, next_token = :next_token,
			total_patients_today = :total_patients_today, completed_today = :completed_today,
			updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.NamedExecContext(ctx, query, doctor)
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *DoctorRepository) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.Doctor, error) {
	var doctors []*model.Doctor
	err := r.db.SelectContext(ctx, &doctors,
		`SELECT * FROM doctors WHERE clinic_id = $1 ORDER BY name`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}
