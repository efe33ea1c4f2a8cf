package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationKindDoctorDelayed = "doctor_delayed"
)

// DelayNotice is the intent to tell a patient their doctor has not arrived.
// It is dispatched after the status change commits; delivery is best-effort.
type DelayNotice struct {
	ID           uuid.UUID `json:"id"`
	ClinicID     uuid.UUID `json:"clinic_id"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	DoctorName   string    `json:"doctor_name"`
	VisitID      uuid.UUID `json:"visit_id"`
	PatientName  string    `json:"patient_name"`
	PatientPhone string    `json:"patient_phone"`
	PatientEmail string    `json:"patient_email,omitempty"`
	TokenNumber  string    `json:"token_number"`
	CreatedAt    time.Time `json:"created_at"`
}
