package activity

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/handler"
	"github.com/clinicq/queue-api/internal/middleware"
	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/service/activity"
)

type Handler struct {
	service *activity.Service
}

func NewHandler(service *activity.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/activity", h.ListActivity)
}

// ListActivity returns the clinic's activity log, newest first. The clinic is
// taken from the session, never from the request.
func (h *Handler) ListActivity(c *gin.Context) {
	clinicID, err := uuid.Parse(c.GetString(middleware.ContextClinicID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid session"})
		return
	}

	filters := &model.ActivityFilters{
		ClinicID: clinicID,
		Action:   model.ActivityAction(c.Query("action")),
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid limit"})
			return
		}
		filters.Limit = n
	}

	entries, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": entries})
}
