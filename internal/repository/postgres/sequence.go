package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TokenSequenceRepository backs the token allocator with one counter row per
// (clinic, doctor, date). The upsert makes Next atomic without an explicit
// lock at the database level.
type TokenSequenceRepository struct {
	BaseRepository
}

func NewTokenSequenceRepository(db *sqlx.DB) *TokenSequenceRepository {
	return &TokenSequenceRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *TokenSequenceRepository) Next(ctx context.Context, clinicID, doctorID uuid.UUID, date string) (int, error) {
	var seq int
	err := r.db.GetContext(ctx, &seq, `
		INSERT INTO token_sequences (clinic_id, doctor_id, seq_date, counter)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (clinic_id, doctor_id, seq_date)
		DO UPDATE SET counter = token_sequences.counter + 1
		RETURNING counter
	`, clinicID, doctorID, date)
	if err != nil {
		return 0, fmt.Errorf("failed to advance token sequence: %w", err)
	}
	return seq, nil
}

func (r *TokenSequenceRepository) Current(ctx context.Context, clinicID, doctorID uuid.UUID, date string) (int, error) {
	var seq int
	err := r.db.GetContext(ctx, &seq, `
		SELECT counter FROM token_sequences
		WHERE clinic_id = $1 AND doctor_id = $2 AND seq_date = $3
	`, clinicID, doctorID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read token sequence: %w", err)
	}
	return seq, nil
}
