package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/expense_reimbursement_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// newHealthHandler godoc
// @Summary Show the status of server.
// @Description get the status of server. When database checks are enabled the store is pinged too.
// @Tags root
// @Produce plain
// @Success 200 {string} string "OK"
// @Failure 503 {string} string "database unavailable"
// @Router /health [get]
func newHealthHandler(dbCheck func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dbCheck != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
			defer cancel()
			if err := dbCheck(ctx); err != nil {
				middleware.GetLoggerFromCtx(c.Request.Context()).Error("Health check failed", slog.String("error", err.Error()))
				c.String(http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		c.String(http.StatusOK, "OK")
	}
}
