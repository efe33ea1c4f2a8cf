package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/handler"
	"github.com/clinicq/queue-api/internal/middleware"
	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/service/doctor"
)

type Handler struct {
	service *doctor.Service
}

func NewHandler(service *doctor.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the read-only doctor endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors")
	{
		doctors.GET("/:id", h.GetDoctor)
	}
}

// RegisterProtectedRoutes wires the endpoints that change state and require a
// handler session.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors")
	{
		doctors.POST("", h.CreateDoctor)
		doctors.PATCH("/:id/status", h.SetStatus)
	}
}

func (h *Handler) CreateDoctor(c *gin.Context) {
	var req model.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	d, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": d})
}

func (h *Handler) GetDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid doctor ID"})
		return
	}

	d, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": d})
}

func (h *Handler) SetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid doctor ID"})
		return
	}

	var req model.SetDoctorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	actor := middleware.ActorFromContext(c)
	change, err := h.service.SetStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": change})
}
