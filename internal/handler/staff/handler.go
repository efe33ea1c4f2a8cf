package staff

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/handler"
	"github.com/clinicq/queue-api/internal/middleware"
	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/internal/service/staff"
)

type Handler struct {
	service *staff.Service
}

func NewHandler(service *staff.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	s := r.Group("/staff")
	{
		s.POST("/login", h.Login)
	}
}

func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	s := r.Group("/staff")
	{
		s.POST("", h.CreateHandler)
		s.POST("/logout", h.Logout)
		s.GET("", h.ListHandlers)
	}
}

func (h *Handler) CreateHandler(c *gin.Context) {
	var req model.CreateHandlerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	created, err := h.service.CreateHandler(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": created})
}

func (h *Handler) Login(c *gin.Context) {
	var req model.HandlerLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	loggedIn, token, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"handler": loggedIn,
		"session": token,
	}})
}

func (h *Handler) Logout(c *gin.Context) {
	handlerID, err := uuid.Parse(c.GetString(middleware.ContextHandlerID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid session"})
		return
	}

	if err := h.service.Logout(c.Request.Context(), handlerID); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) ListHandlers(c *gin.Context) {
	clinicID, err := uuid.Parse(c.GetString(middleware.ContextClinicID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid session"})
		return
	}

	handlers, err := h.service.ListByClinic(c.Request.Context(), clinicID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": handlers})
}
