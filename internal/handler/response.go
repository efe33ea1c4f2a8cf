package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinicq/queue-api/internal/lock"
	apperrors "github.com/clinicq/queue-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// Error writes a service error as JSON, mapping typed application errors to
// their HTTP status. Each error kind keeps a distinguishable message so
// clients can tell a full day from a bad transition. Losing the scope lock
// race is not a fault, so it maps to a 409 the client retries.
func Error(c *gin.Context, err error) {
	if errors.Is(err, lock.ErrLockNotAcquired) {
		c.JSON(http.StatusConflict, NewErrorResponse("queue is busy, retry the request"))
		return
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode(), NewErrorResponse(appErr.Message))
		return
	}
	c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
}
