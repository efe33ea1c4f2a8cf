package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/model"
)

// Sentinel errors shared by all store implementations. Services translate
// these into the typed application errors surfaced to callers.
var (
	ErrNotFound     = errors.New("record not found")
	ErrStaleVersion = errors.New("record version is stale")
	ErrDuplicate    = errors.New("record already exists")
)

// All repository interfaces in one file
type (
	ClinicRepository interface {
		Create(ctx context.Context, clinic *model.Clinic) error
		Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
		Update(ctx context.Context, clinic *model.Clinic) error
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.Doctor, error)
	}

	// VisitRepository stores intra-day visit records. Update enforces the
	// version guard: a write whose version no longer matches the stored row
	// fails with ErrStaleVersion.
	VisitRepository interface {
		Create(ctx context.Context, visit *model.Visit) error
		Get(ctx context.Context, id uuid.UUID) (*model.Visit, error)
		Update(ctx context.Context, visit *model.Visit) error
		// ListActive returns non-terminal visits for a doctor+date ordered
		// by stored queue position ascending.
		ListActive(ctx context.Context, doctorID uuid.UUID, date string) ([]*model.Visit, error)
		// CountForDate counts every visit ever booked for the scope,
		// terminal or not; this is the number the daily token cap applies to.
		CountForDate(ctx context.Context, doctorID uuid.UUID, date string) (int, error)
		MaxQueuePosition(ctx context.Context, doctorID uuid.UUID, date string) (int, error)
	}

	// TokenSequenceRepository owns the per-scope token counters. Next is the
	// only mutator; sequences are monotone and never reused.
	TokenSequenceRepository interface {
		Next(ctx context.Context, clinicID, doctorID uuid.UUID, date string) (int, error)
		Current(ctx context.Context, clinicID, doctorID uuid.UUID, date string) (int, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		GetByVisit(ctx context.Context, visitID uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error)
	}

	// ActivityRepository is an append-only sink; there is deliberately no
	// update or delete.
	ActivityRepository interface {
		Create(ctx context.Context, entry *model.ActivityEntry) error
		List(ctx context.Context, filters *model.ActivityFilters) ([]*model.ActivityEntry, error)
	}

	HandlerRepository interface {
		Create(ctx context.Context, handler *model.Handler) error
		Get(ctx context.Context, id uuid.UUID) (*model.Handler, error)
		GetByPhone(ctx context.Context, phone string) (*model.Handler, error)
		ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.Handler, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
	}
)
