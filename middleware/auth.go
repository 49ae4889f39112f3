package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"travel-buddy-server/utils"
)

const UserIDKey = "user_id"

// AuthMiddleware validates the bearer token and stores the user id in the
// context
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Authorization header required",
				"message": "Please provide a valid token",
			})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid token format",
				"message": "Token must be in format: Bearer <token>",
			})
			return
		}

		authenticate(c, secret, tokenString)
	}
}

// WebSocketAuthMiddleware reads the token from the query string, since
// browsers cannot set headers on a websocket upgrade.
func WebSocketAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Token required",
				"message": "Please provide a valid token in query parameters",
			})
			return
		}
		authenticate(c, secret, tokenString)
	}
}

func authenticate(c *gin.Context, secret, tokenString string) {
	claims, err := utils.VerifyToken(secret, tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":   "Invalid token",
			"message": "Token is invalid or expired",
		})
		return
	}
	c.Set(UserIDKey, claims.UserID)
	c.Next()
}

// UserID returns the authenticated user id, or false when the request did
// not pass through the auth middleware.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
