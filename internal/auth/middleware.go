package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AsukuOnukaba/tingle-sub000/internal/api"
)

// Context keys set by AuthMiddleware and read by handlers downstream.
const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxUserRole  = "user_role"
)

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{Error: msg})
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header, returning "" when the header is absent or not bearer-shaped.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(strings.TrimSpace(scheme), "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthMiddleware validates the bearer access token and stashes the caller's
// identity on the request context for the handlers behind it.
func AuthMiddleware(accessTokenSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortUnauthorized(c, "bearer access token required")
			return
		}

		claims, err := ValidateToken(token, accessTokenSecret)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				abortUnauthorized(c, "token expired")
			case errors.Is(err, ErrInvalidTokenType):
				abortUnauthorized(c, "invalid token type")
			default:
				abortUnauthorized(c, "invalid token")
			}
			return
		}
		if claims.TokenType != TokenTypeAccess {
			abortUnauthorized(c, "access token required")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserEmail, claims.Email)
		c.Set(ctxUserRole, claims.Role)

		c.Next()
	}
}

// RequireRole gates a route group on the role carried by the access token.
// It must run behind AuthMiddleware.
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ctxUserRole)
		role, isString := value.(string)
		if !exists || !isString {
			abortUnauthorized(c, "user role not found")
			return
		}
		if role != requiredRole {
			c.AbortWithStatusJSON(http.StatusForbidden, api.ErrorResponse{Error: requiredRole + " role required"})
			return
		}

		c.Next()
	}
}

// GetUserID reads the authenticated user's id from the request context.
func GetUserID(c *gin.Context) (int, bool) {
	value, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	id, ok := value.(int)
	return id, ok
}
