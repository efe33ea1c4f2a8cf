package model

import (
	"time"

	"github.com/google/uuid"
)

type ActivityAction string

const (
	ActivityPatientStatusChange  ActivityAction = "patient_status_change"
	ActivityDoctorStatusChange   ActivityAction = "doctor_status_change"
	ActivityAppointmentCancelled ActivityAction = "appointment_cancelled"
	ActivityHandlerLogin         ActivityAction = "handler_login"
	ActivityHandlerLogout        ActivityAction = "handler_logout"
)

type ActivityTarget string

const (
	ActivityTargetPatient ActivityTarget = "patient"
	ActivityTargetDoctor  ActivityTarget = "doctor"
	ActivityTargetSystem  ActivityTarget = "system"
)

// ActivityEntry is an immutable audit record of a state-changing action
// performed by clinic staff. Entries are append-only; nothing edits or
// removes them after creation.
type ActivityEntry struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	ClinicID    uuid.UUID      `db:"clinic_id" json:"clinic_id"`
	HandlerID   uuid.UUID      `db:"handler_id" json:"handler_id"`
	HandlerName string         `db:"handler_name" json:"handler_name"`
	Action      ActivityAction `db:"action" json:"action"`
	TargetType  ActivityTarget `db:"target_type" json:"target_type"`
	TargetID    uuid.UUID      `db:"target_id" json:"target_id"`
	TargetName  string         `db:"target_name" json:"target_name"`
	Details     string         `db:"details" json:"details"`
	OldValue    *string        `db:"old_value" json:"old_value,omitempty"`
	NewValue    *string        `db:"new_value" json:"new_value,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// Actor identifies the staff member performing a state-changing action.
type Actor struct {
	HandlerID   uuid.UUID `json:"handler_id"`
	HandlerName string    `json:"handler_name"`
}

type ActivityFilters struct {
	ClinicID uuid.UUID
	Action   ActivityAction
	// Limit caps the read; the recorder itself never drops data.
	Limit int
}
