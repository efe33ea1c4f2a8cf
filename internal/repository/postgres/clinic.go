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

type ClinicRepository struct {
	BaseRepository
}

func NewClinicRepository(db *sqlx.DB) *ClinicRepository {
	return &ClinicRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *ClinicRepository) Create(ctx context.Context, clinic *model.Clinic) error {
	query := `
		INSERT INTO clinics (id, name, specialty, address, phone, booking_type, is_setup, created_at, updated_at)
		VALUES (:id, :name, :specialty, :address, :phone, :booking_type, :is_setup, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, clinic); err != nil {
		return fmt.Errorf("failed to create clinic: %w", err)
	}
	return nil
}

func (r *ClinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	var clinic model.Clinic
	err := r.db.GetContext(ctx, &clinic, `SELECT * FROM clinics WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}
	return &clinic, nil
}

func (r *ClinicRepository) Update(ctx context.Context, clinic *model.Clinic) error {
	query := `
		UPDATE clinics SET
			name = :name, specialty = :specialty, address = :address, phone = :phone,
			booking_type = :booking_type, is_setup = :is_setup, updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.NamedExecContext(ctx, query, clinic)
	if err != nil {
		return fmt.Errorf("failed to update clinic: %w", err)
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
