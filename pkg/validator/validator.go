package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/clinicq/queue-api/internal/model"
)

// RegisterCustomValidators adds the domain value checks to gin's binding
// validator so malformed statuses are rejected at the edge.
func RegisterCustomValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterValidation("visitstatus", func(fl validator.FieldLevel) bool {
		return model.VisitStatus(fl.Field().String()).Valid()
	})
	v.RegisterValidation("doctorstatus", func(fl validator.FieldLevel) bool {
		return model.DoctorStatus(fl.Field().String()).Valid()
	})
}
