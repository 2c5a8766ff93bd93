package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"clipforge/internal/application/generation"
	"clipforge/internal/application/ratelimit/usecases"
	"clipforge/internal/domain/ratelimit"
	"clipforge/internal/infrastructure/auth"
	"clipforge/internal/infrastructure/cache"
	"clipforge/internal/infrastructure/config"
	"clipforge/internal/infrastructure/email"
	infragen "clipforge/internal/infrastructure/generation"
	"clipforge/internal/infrastructure/repository"
	"clipforge/internal/interfaces/http/handlers"
	"clipforge/internal/interfaces/http/middleware"
	"clipforge/internal/interfaces/http/routes"
	"clipforge/internal/shared/clock"
	"clipforge/internal/shared/logger"
	"clipforge/internal/shared/services/markdown"
)

// Router wires the HTTP surface: handlers, middleware and their
// dependencies.
type Router struct {
	engine            *gin.Engine
	rateLimitHandler  *handlers.RateLimitHandler
	generationHandler *handlers.GenerationHandler
	healthHandler     *handlers.HealthHandler
	authMiddleware    *middleware.AuthMiddleware
	globalLimiter     *middleware.RateLimiter
	cfg               *config.Config
	logger            logger.Interface
}

// NewRouter creates a new HTTP router with all dependencies
func NewRouter(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log logger.Interface) *Router {
	engine := gin.New()

	clk := clock.New()
	policy := ratelimit.NewPolicy()

	attemptRepo := repository.NewLoginAttemptRepository(db, log)
	auditRepo := repository.NewAuthEventRepository(db, log)

	var deduplicator *cache.BlockAlertDeduplicator
	var globalLimiter *middleware.RateLimiter
	if redisClient != nil {
		deduplicator = cache.NewBlockAlertDeduplicator(redisClient)
		globalLimiter = middleware.NewRateLimiter(redisClient, cfg.RateLimit.RequestsPerMinute, time.Minute)
	}

	mailer := email.NewBlockAlertMailer(email.SMTPConfig{
		Host:         cfg.Email.SMTPHost,
		Port:         cfg.Email.SMTPPort,
		Username:     cfg.Email.SMTPUser,
		Password:     cfg.Email.SMTPPassword,
		FromAddress:  cfg.Email.FromAddress,
		FromName:     cfg.Email.FromName,
		AlertAddress: cfg.Email.AlertAddress,
	}, deduplicator, markdown.NewService(), clk, log)

	checkLimitUC := usecases.NewCheckLimitUseCase(attemptRepo, policy, clk, log)
	recordAttemptUC := usecases.NewRecordAttemptUseCase(attemptRepo, auditRepo, mailer, policy, clk, log)
	resetLimitUC := usecases.NewResetLimitUseCase(attemptRepo, auditRepo, clk, log)
	auditTrailUC := usecases.NewGetAuditTrailUseCase(auditRepo, log)

	jwtSvc := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.AccessExpMinutes)

	rateLimitHandler := handlers.NewRateLimitHandler(
		checkLimitUC, recordAttemptUC, resetLimitUC, auditTrailUC, jwtSvc, log,
	)

	genClient := infragen.NewHTTPClient(&cfg.Generation, log)
	dispatcher := generation.NewDispatcher(genClient, clk, generation.DispatcherConfig{
		MaxConcurrent: cfg.Generation.MaxConcurrent,
		DispatchDelay: time.Duration(cfg.Generation.DispatchDelayMs) * time.Millisecond,
		MaxRetries:    cfg.Generation.MaxRetries,
		BaseDelay:     time.Duration(cfg.Generation.BaseDelayMs) * time.Millisecond,
		MaxDelay:      time.Duration(cfg.Generation.MaxDelayMs) * time.Millisecond,
		PreviewDelay:  time.Duration(cfg.Generation.PreviewDelayMs) * time.Millisecond,
		PollInterval:  time.Duration(cfg.Generation.PollDelayMs) * time.Millisecond,
	}, log)
	generationHandler := handlers.NewGenerationHandler(dispatcher, log)

	return &Router{
		engine:            engine,
		rateLimitHandler:  rateLimitHandler,
		generationHandler: generationHandler,
		healthHandler:     handlers.NewHealthHandler(db),
		authMiddleware:    middleware.NewAuthMiddleware(jwtSvc, log),
		globalLimiter:     globalLimiter,
		cfg:               cfg,
		logger:            log,
	}
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.Logger(r.logger))
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.ErrorHandler())
	r.engine.Use(middleware.CORS(r.cfg.Server.AllowedOrigins))

	r.engine.GET("/health", r.healthHandler.Check)

	routes.SetupRateLimitRoutes(r.engine, &routes.RateLimitRouteConfig{
		RateLimitHandler: r.rateLimitHandler,
		AuthMiddleware:   r.authMiddleware,
		GlobalLimiter:    r.globalLimiter,
	})

	routes.SetupGenerationRoutes(r.engine, &routes.GenerationRouteConfig{
		GenerationHandler: r.generationHandler,
		GlobalLimiter:     r.globalLimiter,
	})
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
