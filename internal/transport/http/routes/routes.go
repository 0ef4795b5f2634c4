package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-auth/internal/infra/config"
	"github.com/arklim/social-platform-auth/internal/infra/security"
	"github.com/arklim/social-platform-auth/internal/transport/http/handlers"
	"github.com/arklim/social-platform-auth/internal/transport/http/middleware"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	SignIn    *usecase.SignInService
	TwoFactor *usecase.TwoFactorService
	Sessions  *usecase.SessionService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Services ServiceSet
	Tokens   *security.JWTIssuer
	Metrics  *middleware.HTTPMetrics
	Database DatabaseChecker
	Cache    CacheChecker
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
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Tokens)

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

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(
			deps.Services.SignIn,
			deps.Services.TwoFactor,
			deps.Services.Sessions,
			deps.Config.JWT.AccessTokenTTL,
		)
		authHandler.RegisterRoutes(authGroup, authMiddleware)

		twoFactorGroup := api.Group("/2fa")
		twoFactorGroup.Use(authMiddleware)
		twoFactorHandler := handlers.NewTwoFactorHandler(deps.Services.TwoFactor)
		twoFactorHandler.RegisterRoutes(twoFactorGroup)

		sessionGroup := api.Group("/sessions")
		sessionGroup.Use(authMiddleware)
		sessionHandler := handlers.NewSessionHandler(deps.Services.Sessions)
		sessionHandler.RegisterRoutes(sessionGroup)
	}

	return r
}
