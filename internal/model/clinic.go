package model

type BookingType string

const (
	BookingTypeTokenOnly BookingType = "token_only"
	BookingTypeTimeToken BookingType = "time_token"
)

type Clinic struct {
	Base
	Name        string      `db:"name" json:"name"`
	Specialty   string      `db:"specialty" json:"specialty"`
	Address     string      `db:"address" json:"address"`
	Phone       string      `db:"phone" json:"phone"`
	BookingType BookingType `db:"booking_type" json:"booking_type"`
	IsSetup     bool        `db:"is_setup" json:"is_setup"`
}

type CreateClinicRequest struct {
	Name        string      `json:"name" binding:"required,max=200"`
	Specialty   string      `json:"specialty" binding:"required,max=120"`
	Address     string      `json:"address" binding:"required,max=300"`
	Phone       string      `json:"phone" binding:"required,max=20"`
	BookingType BookingType `json:"booking_type" binding:"required,oneof=token_only time_token"`
}
