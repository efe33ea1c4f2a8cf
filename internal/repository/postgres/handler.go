package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/repository"
)

type HandlerRepository struct {
	BaseRepository
}

func NewHandlerRepository(db *sqlx.DB) *HandlerRepository {
	return &HandlerRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *HandlerRepository) Create(ctx context.Context, handler *model.Handler) error {
	query := `
		INSERT INTO handlers (
			id, clinic_id, name, phone, access_code_hash, is_admin,
			can_manage_all_doctors, created_at, updated_at
		) VALUES (
			:id, :clinic_id, :name, :phone, :access_code_hash, :is_admin,
			:can_manage_all_doctors, :created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, handler); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create handler: %w", err)
	}
	return nil
}

func (r *HandlerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Handler, error) {
	var handler model.Handler
	err := r.db.GetContext(ctx, &handler, `SELECT * FROM handlers WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get handler: %w", err)
	}
	return &handler, nil
}

func (r *HandlerRepository) GetByPhone(ctx context.Context, phone string) (*model.Handler, error) {
	var handler model.Handler
	err := r.db.GetContext(ctx, &handler, `SELECT * FROM handlers WHERE phone = $1`, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get handler by phone: %w", err)
	}
	return &handler, nil
}

func (r *HandlerRepository) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.Handler, error) {
	var handlers []*model.Handler
	err := r.db.SelectContext(ctx, &handlers,
		`SELECT * FROM handlers WHERE clinic_id = $1 ORDER BY name`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list handlers: %w", err)
	}
	return handlers, nil
}
