package handlers

import (
	"context"

	"github.com/SscSPs/expense_reimbursement_app/cmd/docs"
	portssvc "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/services"
	"github.com/SscSPs/expense_reimbursement_app/internal/middleware"
	"github.com/SscSPs/expense_reimbursement_app/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces.
// loginLimiter throttles POST /api/v1/auth/login per client IP. dbCheck, when
// non-nil, is run by /health.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	loginLimiter *limiter.Limiter,
	dbCheck func(context.Context) error,
) error {
	if err := RegisterValidators(); err != nil {
		return err
	}

	r.GET("/health", newHealthHandler(dbCheck))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Register public authentication routes
	registerAuthRoutes(r, services, loginLimiter)

	setupAPIV1Routes(r, cfg, services)

	setupSwaggerRoutes(r, cfg)
	return nil
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
) {
	v1 := r.Group("/api/v1", authMiddleware(cfg))

	registerUserRoutes(v1, services.User)
	registerExpenseRoutes(v1, services.Expense, services.Export)
}

func authMiddleware(cfg *config.Config) gin.HandlerFunc {
	if cfg.AuthMode == config.AuthModeHeader {
		return middleware.HeaderAuthMiddleware()
	}
	return middleware.AuthMiddleware(cfg.JWTSecret)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
