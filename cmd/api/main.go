// Package main is the entry point for the component-catalog-service API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"component-catalog-service/internal/app/service"
	"component-catalog-service/internal/auth"
	"component-catalog-service/internal/config"
	"component-catalog-service/internal/infra/breaker"
	"component-catalog-service/internal/infra/cache"
	"component-catalog-service/internal/infra/postgres"
	"component-catalog-service/internal/infra/postgres/migrations"
	"component-catalog-service/internal/infra/wordpress"
	"component-catalog-service/internal/job"
	"component-catalog-service/internal/logger"
	"component-catalog-service/internal/transport/httpserver"
	"component-catalog-service/internal/validator"
	"component-catalog-service/pkg/locker"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(
		logger.Config{
			Level:  cfg.Logger.Level,
			Format: cfg.Logger.Format,
			Output: cfg.Logger.Output,
		},
		logger.SentryConfig{
			Enabled:     cfg.Sentry.Enabled,
			DSN:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		},
	)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting component-catalog-service",
		zap.String("env", cfg.App.Env),
		zap.Int("port", cfg.App.Port),
	)

	// Connect to database
	db, err := postgres.NewConnection(
		postgres.Config{
			Host:         cfg.Database.Host,
			Port:         cfg.Database.Port,
			Name:         cfg.Database.Name,
			User:         cfg.Database.User,
			Password:     cfg.Database.Password,
			SSLMode:      cfg.Database.SSLMode,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			MaxLifetime:  cfg.Database.MaxLifetime,
		},
		log.Logger,
	)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = postgres.Close(db) }()

	// Run migrations
	if err := migrations.Run(db); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	log.Info("database migrations completed")

	// Create repository
	repo := postgres.NewRepository(db)

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// The durable cache degrades to memory-only when Redis is down, so a
	// failed ping is a warning rather than a startup failure.
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable at startup, serving from memory cache", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()

	// Layered cache: Redis when available, in-process LRU always
	catalogCache := cache.NewFallback(
		cache.NewRedis(redisClient, log.Logger, cfg.Cache.KeyPrefix),
		cache.NewMemory(cfg.Cache.MaxMemoryEntries),
		log.Logger,
	)

	// One circuit breaker per source
	circuits := breaker.NewRegistry[*resty.Response](
		breaker.Config{
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
			Cooldown:            cfg.Breaker.Cooldown,
			HalfOpenSuccesses:   cfg.Breaker.HalfOpenSuccesses,
		},
		log.Logger,
	)

	// WordPress REST client shared by all sources
	client := wordpress.NewClient(
		wordpress.ClientConfig{
			Timeout:   cfg.Aggregator.RequestTimeout,
			PageDelay: cfg.Aggregator.PageDelay,
			UserAgent: cfg.Aggregator.UserAgent,
			Retry: wordpress.RetryConfig{
				MaxAttempts: cfg.Aggregator.Retry.MaxAttempts,
				WaitTime:    cfg.Aggregator.Retry.WaitTime,
				MaxWaitTime: cfg.Aggregator.Retry.MaxWaitTime,
			},
		},
		circuits,
		log.Logger,
	)

	// Connection state tracking shared by services and the status endpoint
	tracker := service.NewConnectionTracker(circuits, log.Logger)

	// Create services
	catalogSvc := service.NewCatalogService(
		repo,
		client,
		catalogCache,
		tracker,
		service.CatalogConfig{
			ComponentTTL: cfg.Cache.ComponentTTL,
			CategoryTTL:  cfg.Cache.CategoryTTL,
			Parallel:     cfg.Aggregator.Parallel,
		},
		log.Logger,
	)
	sourceSvc := service.NewSourceService(repo, catalogCache, circuits, tracker, log.Logger)

	// Token verification for role-gated responses
	verifier := auth.NewVerifier(cfg.Auth.Secret)

	// Create validator
	v := validator.New()

	// Create HTTP server
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Port:      cfg.App.Port,
			BodyLimit: 1024 * 1024, // 1MB
			Debug:     cfg.App.Debug,
		},
		catalogSvc,
		sourceSvc,
		tracker,
		verifier,
		db,
		v,
		log.Logger,
	)

	// Background cache refresh with distributed locking
	var scheduler *job.RefreshScheduler
	if cfg.Refresh.Enabled {
		scheduler = job.NewRefreshScheduler(
			catalogSvc,
			job.RefreshConfig{
				Interval:  cfg.Refresh.Interval,
				Timeout:   cfg.Refresh.Timeout,
				OnStartup: cfg.Refresh.OnStartup,
			},
			log.Logger,
			locker.NewRedisLocker(redisClient, log.Logger),
		)
		scheduler.Start(cfg.Refresh.OnStartup)
	} else {
		log.Info("background refresh disabled")
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutdown signal received")

		if scheduler != nil {
			scheduler.Stop()
		}

		// Shutdown server with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.App.ShutdownWithContext(ctx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
	}()

	// Start server
	if err := server.Start(cfg.App.Port); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
