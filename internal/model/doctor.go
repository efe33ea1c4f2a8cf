package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type DoctorStatus string

const (
	DoctorStatusNotArrived  DoctorStatus = "not_arrived"
	DoctorStatusAvailable   DoctorStatus = "available"
	DoctorStatusWithPatient DoctorStatus = "with_patient"
	DoctorStatusBreak       DoctorStatus = "break"
)

// Valid reports whether s is one of the four doctor statuses. Staff may set
// any of them directly, including a correction back to not_arrived.
func (s DoctorStatus) Valid() bool {
	switch s {
	case DoctorStatusNotArrived, DoctorStatusAvailable, DoctorStatusWithPatient, DoctorStatusBreak:
		return true
	}
	return false
}

type Doctor struct {
	Base
	ClinicID            uuid.UUID      `db:"clinic_id" json:"clinic_id"`
	Name                string         `db:"name" json:"name"`
	Specialty           string         `db:"specialty" json:"specialty"`
	WorkingDays         pq.StringArray `db:"working_days" json:"working_days"`
	StartTime           string         `db:"start_time" json:"start_time"`
	EndTime             string         `db:"end_time" json:"end_time"`
	ConsultationMinutes int            `db:"consultation_minutes" json:"consultation_minutes"`
	MaxTokensPerDay     int            `db:"max_tokens_per_day" json:"max_tokens_per_day"`
	Status              DoctorStatus   `db:"status" json:"status"`
	CurrentToken        string         `db:"current_token" json:"current_token"`
	NextToken           string         `db:"next_token" json:"next_token"`
	TotalPatientsToday  int            `db:"total_patients_today" json:"total_patients_today"`
	CompletedToday      int            `db:"completed_today" json:"completed_today"`
}

// TokenPrefix returns the letter that prefixes every token in this doctor's
// queue: the first letter of the surname, or 'A' when the name gives nothing
// usable. Honorifics like "Dr." are skipped.
func (d *Doctor) TokenPrefix() byte {
	fields := strings.Fields(d.Name)
	for i := len(fields) - 1; i >= 0; i-- {
		word := strings.Trim(fields[i], ".")
		if word == "" || strings.EqualFold(word, "dr") {
			continue
		}
		c := word[0]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c >= 'A' && c <= 'Z' {
			return c
		}
	}
	return 'A'
}

// SeedTokens initializes the token markers for a doctor with no patients yet.
// current_token and next_token must always hold well-formed codes.
func (d *Doctor) SeedTokens() {
	seed := fmt.Sprintf("%c01", d.TokenPrefix())
	d.CurrentToken = seed
	d.NextToken = seed
}

type CreateDoctorRequest struct {
	ClinicID            string   `json:"clinic_id" binding:"required,uuid"`
	Name                string   `json:"name" binding:"required,max=120"`
	Specialty           string   `json:"specialty" binding:"required,max=120"`
	WorkingDays         []string `json:"working_days" binding:"required,min=1,dive,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	StartTime           string   `json:"start_time" binding:"required"`
	EndTime             string   `json:"end_time" binding:"required"`
	ConsultationMinutes int      `json:"consultation_minutes" binding:"required,min=5,max=120"`
	MaxTokensPerDay     int      `json:"max_tokens_per_day" binding:"required,min=1"`
}

type SetDoctorStatusRequest struct {
	Status DoctorStatus `json:"status" binding:"required,doctorstatus"`
}

// DoctorStatusChange is the result of a doctor status transition. The notify
// list is handed to the notification collaborator; delivery failure never
// rolls back the change.
type DoctorStatusChange struct {
	Doctor           *Doctor     `json:"doctor"`
	NotifyPatientIDs []uuid.UUID `json:"notify_patient_ids"`
}
