package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quartermaster/backend/internal/services"
)

// Context keys populated by AuthMiddleware.
const (
	UserIDKey    = "userID"
	RoleKey      = "role"
	ActorNameKey = "actorName"
	ActorCodeKey = "actorCode"
)

// AuthMiddleware validates the session token from the Authorization header or
// the auth cookie and stores the admin's identity, including the actor fields
// used for audit attribution, on the request context.
func AuthMiddleware(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
				return
			}
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else if cookie, err := c.Cookie("auth_token"); err == nil && cookie != "" {
			tokenString = cookie
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Set(ActorNameKey, claims.ActorName)
		c.Set(ActorCodeKey, claims.ActorCode)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated admin holds the role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		current, _ := c.Get(RoleKey)
		if current != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// ActorFrom extracts the audit actor of the current request.
func ActorFrom(c *gin.Context) services.Actor {
	name, _ := c.Get(ActorNameKey)
	code, _ := c.Get(ActorCodeKey)
	actor := services.Actor{}
	if s, ok := name.(string); ok {
		actor.Name = s
	}
	if s, ok := code.(string); ok {
		actor.Code = s
	}
	return actor
}
