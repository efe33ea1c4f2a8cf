package model

import (
	"time"

	"github.com/google/uuid"
)

// VisitStatus tracks a patient's physical progress through the clinic on the
// day of the appointment. It is distinct from the booking-level
// AppointmentStatus; the two are linked by Visit.ID <- Appointment.VisitID.
type VisitStatus string

const (
	VisitStatusWaiting    VisitStatus = "waiting"
	VisitStatusArrived    VisitStatus = "arrived"
	VisitStatusWithDoctor VisitStatus = "with_doctor"
	VisitStatusCompleted  VisitStatus = "completed"
	VisitStatusMissed     VisitStatus = "missed"
	VisitStatusNoShow     VisitStatus = "no_show"
)

func (s VisitStatus) Valid() bool {
	switch s {
	case VisitStatusWaiting, VisitStatusArrived, VisitStatusWithDoctor,
		VisitStatusCompleted, VisitStatusMissed, VisitStatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether a visit in this status has left the queue for good.
func (s VisitStatus) Terminal() bool {
	switch s {
	case VisitStatusCompleted, VisitStatusMissed, VisitStatusNoShow:
		return true
	}
	return false
}

var visitTransitions = map[VisitStatus][]VisitStatus{
	VisitStatusWaiting:    {VisitStatusArrived, VisitStatusNoShow},
	VisitStatusArrived:    {VisitStatusWithDoctor, VisitStatusNoShow},
	VisitStatusWithDoctor: {VisitStatusCompleted},
}

// CanTransition reports whether the visit state machine permits from -> to.
// Terminal statuses have no outgoing edges.
func (s VisitStatus) CanTransition(to VisitStatus) bool {
	for _, next := range visitTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Visit is the intra-day operational record of a booked appointment.
type Visit struct {
	Base
	TokenNumber      string      `db:"token_number" json:"token_number"`
	ClinicID         uuid.UUID   `db:"clinic_id" json:"clinic_id"`
	DoctorID         uuid.UUID   `db:"doctor_id" json:"doctor_id"`
	VisitDate        string      `db:"visit_date" json:"visit_date"`
	QueuePosition    int         `db:"queue_position" json:"queue_position"`
	PatientName      string      `db:"patient_name" json:"patient_name"`
	PatientAge       int         `db:"patient_age" json:"patient_age"`
	PatientPhone     string      `db:"patient_phone" json:"patient_phone"`
	PatientEmail     string      `db:"patient_email" json:"patient_email,omitempty"`
	Reason           string      `db:"reason" json:"reason,omitempty"`
	Status           VisitStatus `db:"status" json:"status"`
	BookedAt         time.Time   `db:"booked_at" json:"booked_at"`
	ArrivedAt        *time.Time  `db:"arrived_at" json:"arrived_at,omitempty"`
	ConsultStartedAt *time.Time  `db:"consult_started_at" json:"consult_started_at,omitempty"`
	ConsultEndedAt   *time.Time  `db:"consult_ended_at" json:"consult_ended_at,omitempty"`

	// Version guards against writes based on a stale queue snapshot.
	Version int `db:"version" json:"-"`
}

// QueuedVisit is a visit together with its derived rank: the 1-based position
// of the record among all active records for the same doctor and date,
// recomputed on every read. The stored QueuePosition only supplies ordering.
type QueuedVisit struct {
	Visit
	Rank int `json:"rank"`
}

type PatientInfo struct {
	Name   string `json:"name" binding:"required,max=120"`
	Age    int    `json:"age" binding:"required,min=0,max=130"`
	Phone  string `json:"phone" binding:"required,max=20"`
	Email  string `json:"email" binding:"omitempty,email"`
	Reason string `json:"reason" binding:"max=500"`
}

type BookVisitRequest struct {
	UserID    string      `json:"user_id" binding:"required,uuid"`
	ClinicID  string      `json:"clinic_id" binding:"required,uuid"`
	DoctorID  string      `json:"doctor_id" binding:"required,uuid"`
	VisitDate string      `json:"visit_date" binding:"required,datetime=2006-01-02"`
	TimeSlot  *string     `json:"time_slot,omitempty"`
	Patient   PatientInfo `json:"patient" binding:"required"`
}

type SetVisitStatusRequest struct {
	Status VisitStatus `json:"status" binding:"required,visitstatus"`
}

// VisitStatusChange is returned by a visit transition. CascadedDoctor is set
// when the transition also moved the owning doctor (arrived -> with_doctor
// pulls the doctor to with_patient).
type VisitStatusChange struct {
	Visit          *Visit  `json:"visit"`
	CascadedDoctor *Doctor `json:"doctor,omitempty"`
}
