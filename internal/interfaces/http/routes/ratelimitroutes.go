package routes

import (
	"github.com/gin-gonic/gin"

	"clipforge/internal/interfaces/http/handlers"
	"clipforge/internal/interfaces/http/middleware"
)

type RateLimitRouteConfig struct {
	RateLimitHandler *handlers.RateLimitHandler
	AuthMiddleware   *middleware.AuthMiddleware
	GlobalLimiter    *middleware.RateLimiter
}

func SetupRateLimitRoutes(engine *gin.Engine, config *RateLimitRouteConfig) {
	api := engine.Group("/api")
	if config.GlobalLimiter != nil {
		api.Use(config.GlobalLimiter.Limit())
	}
	{
		api.POST("/ratelimit", config.RateLimitHandler.Handle)

		admin := api.Group("/admin")
		admin.Use(config.AuthMiddleware.RequireAdmin())
		{
			admin.GET("/ratelimit/audit", config.RateLimitHandler.GetAuditTrail)
		}
	}
}
