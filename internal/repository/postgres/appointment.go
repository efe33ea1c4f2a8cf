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

type AppointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *AppointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, user_id, visit_id, clinic_id, clinic_name, doctor_id, doctor_name,
			visit_date, time_slot, token_number, status, cancelled_at, created_at, updated_at
		) VALUES (
			:id, :user_id, :visit_id, :clinic_id, :clinic_name, :doctor_id, :doctor_name,
			:visit_date, :time_slot, :token_number, :status, :cancelled_at, :created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, appointment); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, `SELECT * FROM appointments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *AppointmentRepository) GetByVisit(ctx context.Context, visitID uuid.UUID) (*model.Appointment, error) {
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, `SELECT * FROM appointments WHERE visit_id = $1`, visitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment by visit: %w", err)
	}
	return &appointment, nil
}

func (r *AppointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments SET
			status = :status, cancelled_at = :cancelled_at, updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.NamedExecContext(ctx, query, appointment)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
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

func (r *AppointmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error) {
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments,
		`SELECT * FROM appointments WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}
