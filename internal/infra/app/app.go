package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/infra/config"
	"github.com/arklim/social-platform-auth/internal/infra/database"
	kafkainfra "github.com/arklim/social-platform-auth/internal/infra/kafka"
	"github.com/arklim/social-platform-auth/internal/infra/logger"
	redisinfra "github.com/arklim/social-platform-auth/internal/infra/redis"
	"github.com/arklim/social-platform-auth/internal/infra/security"
	"github.com/arklim/social-platform-auth/internal/infra/telemetry"
	postgresrepo "github.com/arklim/social-platform-auth/internal/repository/postgres"
	redisrepo "github.com/arklim/social-platform-auth/internal/repository/redis"
	"github.com/arklim/social-platform-auth/internal/transport/http/middleware"
	"github.com/arklim/social-platform-auth/internal/transport/http/routes"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

// Application bundles the wired service graph and its long-lived resources.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	tracer *telemetry.TracerProvider
}

// New wires the full dependency graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	keyProvider, err := security.NewFileKeyProvider(cfg.JWT.KeyDirectory)
	if err != nil {
		return nil, fmt.Errorf("init key provider: %w", err)
	}
	accessTokens := security.NewJWTIssuer(cfg.App.Name, keyProvider)

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("init password hasher: %w", err)
	}

	encryptor, err := security.NewAESGCMEncryptor(cfg.TwoFactor.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("init secret encryptor: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	lockout := redisrepo.NewLockoutRepository(redisClient.Client(), redisrepo.LockoutConfig{
		KeyPrefix: cfg.Redis.LockoutPrefix,
		Threshold: cfg.Lockout.Threshold,
		Duration:  cfg.Lockout.Duration,
	})

	users := postgresrepo.NewUserRepository(pool)
	sessions := postgresrepo.NewSessionRepository(pool)
	tokens := postgresrepo.NewRefreshTokenRepository(pool)
	pending := postgresrepo.NewPendingTwoFactorRepository(pool)
	recovery := postgresrepo.NewRecoveryCodeRepository(pool)

	var publisher port.EventPublisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			publisher = kafkainfra.NewStubPublisher(log)
		} else {
			publisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
		}
	} else {
		log.Info("kafka disabled, using stub publisher")
		publisher = kafkainfra.NewStubPublisher(log)
	}

	totp := security.NewTOTPService(cfg.App.Name)
	codes := security.NewRecoveryCodeSource()
	ids := security.NewUUIDGenerator()

	signInService := usecase.NewSignInService(
		cfg, users, sessions, tokens, pending, lockout, hasher, accessTokens, publisher, ids,
	)
	twoFactorService := usecase.NewTwoFactorService(
		cfg, users, sessions, tokens, pending, recovery,
		totp, totp, encryptor, codes, hasher, accessTokens, publisher, ids,
	)
	sessionService := usecase.NewSessionService(
		cfg, users, sessions, tokens, accessTokens, publisher, ids,
	)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Tokens:   accessTokens,
		Metrics:  metrics,
		Database: pool,
		Cache:    redisClient,
		Services: routes.ServiceSet{
			SignIn:    signInService,
			TwoFactor: twoFactorService,
			Sessions:  sessionService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		tracer: tracer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
