package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all persisted entities
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DateFormat is the wire format for calendar days. Queue scopes are keyed by
// the literal date string, never by a timezone-carrying timestamp, so "today"
// is simply whichever date is queried.
const DateFormat = "2006-01-02"
