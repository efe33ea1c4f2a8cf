package clinic

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/handler"
	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/service/clinic"
	"github.com/clinicq/queue-api/internal/service/doctor"
)

type Handler struct {
	clinics *clinic.Service
	doctors *doctor.Service
}

func NewHandler(clinics *clinic.Service, doctors *doctor.Service) *Handler {
	return &Handler{clinics: clinics, doctors: doctors}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	clinics := r.Group("/clinics")
	{
		clinics.POST("", h.CreateClinic)
		clinics.GET("/:id", h.GetClinic)
		clinics.GET("/:id/doctors", h.ListDoctors)
	}
}

func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	clinics := r.Group("/clinics")
	{
		clinics.POST("/:id/setup", h.MarkSetup)
	}
}

func (h *Handler) CreateClinic(c *gin.Context) {
	var req model.CreateClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	created, err := h.clinics.Create(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": created})
}

func (h *Handler) GetClinic(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid clinic ID"})
		return
	}

	found, err := h.clinics.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": found})
}

func (h *Handler) ListDoctors(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid clinic ID"})
		return
	}

	doctors, err := h.doctors.ListByClinic(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": doctors})
}

func (h *Handler) MarkSetup(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid clinic ID"})
		return
	}

	updated, err := h.clinics.MarkSetup(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": updated})
}
