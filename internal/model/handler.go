package model

import "github.com/google/uuid"

// Handler is a clinic staff member authorized to change patient and doctor
// status. Distinct from the clinic admin, who can also manage handlers.
type Handler struct {
	Base
	ClinicID            uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Name                string    `db:"name" json:"name"`
	Phone               string    `db:"phone" json:"phone"`
	AccessCodeHash      string    `db:"access_code_hash" json:"-"`
	IsAdmin             bool      `db:"is_admin" json:"is_admin"`
	CanManageAllDoctors bool      `db:"can_manage_all_doctors" json:"can_manage_all_doctors"`
}

type CreateHandlerRequest struct {
	ClinicID   string `json:"clinic_id" binding:"required,uuid"`
	Name       string `json:"name" binding:"required,max=120"`
	Phone      string `json:"phone" binding:"required,max=20"`
	AccessCode string `json:"access_code" binding:"required,min=8"`
}

type HandlerLoginRequest struct {
	Phone      string `json:"phone" binding:"required"`
	AccessCode string `json:"access_code" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}
