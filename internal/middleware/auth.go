package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/SscSPs/expense_reimbursement_app/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDHeader is the header an upstream gateway uses to pass a trusted caller id.
const UserIDHeader = "X-User-Id"

// AuthMiddleware creates a Gin middleware handler that validates JWT tokens.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())
		// if auth is already done, skip this middleware
		if authMethod, exists := c.Get(authMethodKey); exists {
			logger.Debug("Auth already done", "authMethod", authMethod)
			c.Next()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("Authorization header missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logger.Warn("Authorization header format invalid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := utils.ParseAndValidateJWT(parts[1], jwtSecret)
		if err != nil {
			logger.Warn("Invalid token", "error", err)
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token has expired"
			} else if errors.Is(err, jwt.ErrTokenNotValidYet) {
				msg = "Token not valid yet"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		userID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil || userID <= 0 {
			logger.Error("User ID (subject) missing or malformed in valid token", "subject", claims.Subject)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		setAuthenticatedUser(c, userID, "jwt")
		c.Next()
	}
}

// HeaderAuthMiddleware trusts the caller id set by an upstream gateway in
// X-User-Id. It must only be enabled behind such a gateway.
func HeaderAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(authMethodKey); exists {
			c.Next()
			return
		}

		raw := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if raw == "" {
			GetLoggerFromCtx(c.Request.Context()).Warn("Trusted user header missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": UserIDHeader + " header required"})
			return
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			GetLoggerFromCtx(c.Request.Context()).Warn("Trusted user header malformed", "value", raw)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": UserIDHeader + " must be a positive integer"})
			return
		}

		setAuthenticatedUser(c, userID, "header")
		c.Next()
	}
}
