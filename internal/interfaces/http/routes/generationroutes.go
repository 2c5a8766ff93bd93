package routes

import (
	"github.com/gin-gonic/gin"

	"clipforge/internal/interfaces/http/handlers"
	"clipforge/internal/interfaces/http/middleware"
)

type GenerationRouteConfig struct {
	GenerationHandler *handlers.GenerationHandler
	GlobalLimiter     *middleware.RateLimiter
}

func SetupGenerationRoutes(engine *gin.Engine, config *GenerationRouteConfig) {
	renders := engine.Group("/api/renders")
	if config.GlobalLimiter != nil {
		renders.Use(config.GlobalLimiter.Limit())
	}
	{
		renders.POST("", config.GenerationHandler.SubmitRender)
		renders.POST("/preview", config.GenerationHandler.RequestPreview)
		renders.GET("/:id", config.GenerationHandler.GetStatus)
	}
}
