package middleware

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
)

// userIDKey is the key used to store the authenticated user's ID in the request context.
const userIDKey = contextKey("userID")

// authMethodKey marks which middleware authenticated the request.
const authMethodKey = "authMethod"

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (int64, bool) {
	if userIDVal, exists := c.Get(string(userIDKey)); exists {
		userID, ok := userIDVal.(int64)
		return userID, ok && userID > 0
	}

	// check in the request context as well
	userID, ok := c.Request.Context().Value(userIDKey).(int64)
	return userID, ok && userID > 0
}

// setAuthenticatedUser records the caller on both contexts and enriches the request logger.
func setAuthenticatedUser(c *gin.Context, userID int64, method string) {
	logger := GetLoggerFromCtx(c.Request.Context()).With(slog.Int64("user_id", userID))

	ctx := context.WithValue(c.Request.Context(), userIDKey, userID)
	ctx = WithLogger(ctx, logger)
	c.Request = c.Request.WithContext(ctx)

	c.Set(string(userIDKey), userID)
	c.Set(string(loggerKey), logger)
	c.Set(authMethodKey, method)
}
