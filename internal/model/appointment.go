package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusUpcoming  AppointmentStatus = "upcoming"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is the booking-level record surfaced to the patient. Clinic and
// doctor names are denormalized at booking time so the patient's list stays
// renderable even if the clinic edits its records later.
type Appointment struct {
	Base
	UserID      uuid.UUID         `db:"user_id" json:"user_id"`
	VisitID     uuid.UUID         `db:"visit_id" json:"visit_id"`
	ClinicID    uuid.UUID         `db:"clinic_id" json:"clinic_id"`
	ClinicName  string            `db:"clinic_name" json:"clinic_name"`
	DoctorID    uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	DoctorName  string            `db:"doctor_name" json:"doctor_name"`
	VisitDate   string            `db:"visit_date" json:"visit_date"`
	TimeSlot    *string           `db:"time_slot" json:"time_slot,omitempty"`
	TokenNumber string            `db:"token_number" json:"token_number"`
	Status      AppointmentStatus `db:"status" json:"status"`
	CancelledAt *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// AppointmentView augments an appointment with live queue state read at
// request time: the doctor's currently served token, the doctor status and
// the derived queue rank of the linked visit (0 once the visit is terminal).
type AppointmentView struct {
	Appointment
	CurrentToken  string       `json:"current_token"`
	DoctorStatus  DoctorStatus `json:"doctor_status"`
	QueuePosition int          `json:"queue_position"`
}
