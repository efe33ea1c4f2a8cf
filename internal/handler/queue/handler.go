package queue

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/handler"
	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/service/queue"
)

type Handler struct {
	service *queue.Service
}

func NewHandler(service *queue.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	q := r.Group("/queue")
	{
		q.POST("/book", h.BookVisit)
		q.GET("/:doctorID", h.ListQueue)
		q.GET("/:doctorID/next-token", h.PreviewToken)
	}
}

func (h *Handler) BookVisit(c *gin.Context) {
	var req model.BookVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	// Binding already validated the uuid format.
	userID, _ := uuid.Parse(req.UserID)
	clinicID, _ := uuid.Parse(req.ClinicID)
	doctorID, _ := uuid.Parse(req.DoctorID)

	result, err := h.service.BookVisit(c.Request.Context(), queue.BookVisitParams{
		UserID:   userID,
		ClinicID: clinicID,
		DoctorID: doctorID,
		Date:     req.VisitDate,
		TimeSlot: req.TimeSlot,
		Patient:  req.Patient,
	})
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": result})
}

func (h *Handler) ListQueue(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("doctorID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid doctor ID"})
		return
	}
	date := h.dateOrToday(c)

	visits, err := h.service.ListQueue(c.Request.Context(), doctorID, date)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": visits})
}

func (h *Handler) PreviewToken(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("doctorID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid doctor ID"})
		return
	}
	clinicID, err := uuid.Parse(c.Query("clinic_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid clinic ID"})
		return
	}
	date := h.dateOrToday(c)

	token, err := h.service.PreviewToken(c.Request.Context(), clinicID, doctorID, date)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"token_number": token, "date": date}})
}

func (h *Handler) dateOrToday(c *gin.Context) string {
	if date := c.Query("date"); date != "" {
		return date
	}
	return time.Now().Format(model.DateFormat)
}
