package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/core/port"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/config"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/database"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/intel"
	kafkainfra "github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/kafka"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/logger"
	redisinfra "github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/redis"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/infra/telemetry"
	postgresrepo "github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/repository/postgres"
	redisrepo "github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/repository/redis"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/risk"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/transport/http/middleware"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/transport/http/routes"
	"github.com/0823pratik/passwordless-fraud-detection-banking-round-2/internal/usecase"
)

// Application bundles the wired service with its long-lived resources.
type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redisinfra.Client
	tracer    *telemetry.TracerProvider
	retention *usecase.RetentionService
}

// New wires configuration, infrastructure, repositories, and services into a
// runnable application.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	metrics := telemetry.NewEngineMetrics()

	intelTTL := 2 * cfg.Engine.ApprovedRetention
	if intelTTL <= 0 {
		intelTTL = 48 * time.Hour
	}
	intelStore := redisrepo.NewIntelRepository(redisClient.Client(), cfg.Redis.IntelPrefix, intelTTL)

	var seed intel.Seed
	if cfg.Engine.IntelSeedPath != "" {
		seed, err = intel.LoadSeed(cfg.Engine.IntelSeedPath)
		if err != nil {
			_ = redisClient.Close()
			pool.Close()
			return nil, fmt.Errorf("load intel seed: %w", err)
		}
	} else {
		log.Info("no intel seed configured, using built-in demo tables")
		seed = intel.DemoSeed()
	}
	var provider port.SignalProvider = intel.NewStaticProvider(seed)
	provider = intel.NewStoreBackedProvider(provider, intelStore, log)
	provider = intel.NewResilientProvider(provider, cfg.Providers.Timeout, cfg.Providers.Retries, metrics, log)

	stepUpTTL := 2 * cfg.Engine.StepUpWindow
	if stepUpTTL <= 0 {
		stepUpTTL = 20 * time.Minute
	}
	stepUps := redisrepo.NewStepUpWindowRepository(redisClient.Client(), cfg.Redis.StepUpPrefix, stepUpTTL)

	ruleConfig := risk.DefaultConfig()
	if cfg.Engine.BotKeystrokeSpeed > 0 {
		ruleConfig.BotKeystrokeSpeed = cfg.Engine.BotKeystrokeSpeed
	}
	if cfg.Engine.BotMouseSpeed > 0 {
		ruleConfig.BotMouseSpeed = cfg.Engine.BotMouseSpeed
	}

	policy := risk.Policy{
		BlockScore:         cfg.Policy.BlockScore,
		BlockCriticals:     cfg.Policy.BlockCriticals,
		ChallengeScore:     cfg.Policy.ChallengeScore,
		ChallengeCriticals: cfg.Policy.ChallengeCriticals,
	}

	evaluationService := usecase.NewEvaluationService(usecase.EvaluationDeps{
		Profiles:      repos.Profiles,
		Attempts:      repos.Attempts,
		Notifications: repos.Notifications,
		Provider:      provider,
		Intel:         intelStore,
		StepUps:       stepUps,
		Publisher:     eventPublisher,
		Rules:         risk.NewRuleSet(ruleConfig),
		Policy:        policy,
		Metrics:       metrics,
		Logger:        log,
		StepUpWindow:  cfg.Engine.StepUpWindow,
		FailClosed:    cfg.Engine.FailClosed,
	})
	enrollmentService := usecase.NewEnrollmentService(repos.Profiles, eventPublisher, log)

	retentionService := usecase.NewRetentionService(
		repos.Attempts,
		cfg.Engine.ApprovedRetention,
		cfg.Engine.RetentionSchedule,
		metrics,
		log,
	)

	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), "risk:rate-limit")
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		HTTPMetrics: httpMetrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Enrollment: enrollmentService,
			Evaluation: evaluationService,
		},
	})

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		pool:      pool,
		redis:     redisClient,
		tracer:    tracer,
		retention: retentionService,
	}, nil
}

// Run starts the HTTP server and the retention sweeper, blocking until the
// context is cancelled or the server fails.
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
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.tracer.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("tracer shutdown failed", zap.Error(err))
			}
		}
	}()

	if a.retention != nil {
		if err := a.retention.Start(); err != nil {
			return fmt.Errorf("start retention sweeper: %w", err)
		}
		defer a.retention.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting risk engine API",
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
