package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/config"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/transport/http/handlers"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/transport/http/middleware"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Enrollment *usecase.EnrollmentService
	Evaluation *usecase.EvaluationService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	HTTPMetrics *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if len(deps.Config.App.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))
	}
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	adminMiddleware := buildAdminMiddleware(deps)

	api := r.Group("/api/v1")
	{
		profileHandler := handlers.NewProfileHandler(deps.Services.Enrollment)
		profileHandler.RegisterRoutes(api.Group("/profiles"), adminMiddleware...)

		evaluationHandler := handlers.NewEvaluationHandler(deps.Services.Evaluation)
		evaluationHandler.RegisterRoutes(api.Group("/evaluations"), buildEvaluateMiddlewares(deps)...)

		attemptGroup := api.Group("/attempts")
		if len(adminMiddleware) > 0 {
			attemptGroup.Use(adminMiddleware...)
		}
		attemptHandler := handlers.NewAttemptHandler(deps.Services.Evaluation)
		attemptHandler.RegisterRoutes(attemptGroup)
	}

	return r
}

// buildAdminMiddleware gates administrative routes behind the service token
// when a secret is configured. Without a secret the deployment is assumed to
// sit behind an authenticating gateway.
func buildAdminMiddleware(deps Dependencies) []gin.HandlerFunc {
	if deps.Config == nil || deps.Config.Auth.JWTSecret == "" {
		return nil
	}

	return []gin.HandlerFunc{
		middleware.RequireServiceToken(deps.Config.Auth.JWTSecret, deps.Config.Auth.Issuer),
	}
}

func buildEvaluateMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.EvaluateMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "evaluate_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
