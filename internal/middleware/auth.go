package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/pkg/auth"
)

const (
	ContextHandlerID   = "handler_id"
	ContextHandlerName = "handler_name"
	ContextClinicID    = "clinic_id"
	ContextIsAdmin     = "is_admin"
)

type AuthMiddleware struct {
	sessions auth.SessionService
}

func NewAuthMiddleware(sessions auth.SessionService) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// Authenticate verifies the session token and sets handler info in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code: http.StatusUnauthorized, Message: "missing authorization header",
			})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code: http.StatusUnauthorized, Message: "invalid authorization format",
			})
			return
		}

		claims, err := m.sessions.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code: http.StatusUnauthorized, Message: "invalid token",
			})
			return
		}

		c.Set(ContextHandlerID, claims.HandlerID.String())
		c.Set(ContextHandlerName, claims.HandlerName)
		c.Set(ContextClinicID, claims.ClinicID.String())
		c.Set(ContextIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

// RequireAdmin allows only clinic admins through
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextIsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Code: http.StatusForbidden, Message: "admin access required",
			})
			return
		}
		c.Next()
	}
}

// ActorFromContext rebuilds the acting handler from the session claims set by
// Authenticate.
func ActorFromContext(c *gin.Context) model.Actor {
	actor := model.Actor{HandlerName: c.GetString(ContextHandlerName)}
	if id, err := uuid.Parse(c.GetString(ContextHandlerID)); err == nil {
		actor.HandlerID = id
	}
	return actor
}
