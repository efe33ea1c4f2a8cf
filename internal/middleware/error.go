package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/clinicq/queue-api/pkg/errors"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorHandler translates errors pushed onto the gin context into JSON
// responses. Typed application errors pick their own status; everything else
// is a 500 with a generic message.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		lastErr := c.Errors.Last()
		status := http.StatusInternalServerError
		message := "internal server error"

		var appErr *apperrors.AppError
		if errors.As(lastErr.Err, &appErr) {
			status = appErr.StatusCode()
			message = appErr.Message
		}

		c.JSON(status, ErrorResponse{
			Code:    status,
			Message: message,
			TraceID: requestID,
		})
	}
}
