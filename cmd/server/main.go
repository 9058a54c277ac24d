package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	httpAdapter "github.com/iho/fundledger/internal/adapter/http"
	"github.com/iho/fundledger/internal/adapter/http/handler"
	"github.com/iho/fundledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/fundledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/fundledger/internal/adapter/repository/redis"
	"github.com/iho/fundledger/internal/infrastructure/auth"
	"github.com/iho/fundledger/internal/infrastructure/config"
	"github.com/iho/fundledger/internal/infrastructure/eventpublisher"
	"github.com/iho/fundledger/internal/infrastructure/logger"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
	"github.com/iho/fundledger/internal/infrastructure/postgres"
	"github.com/iho/fundledger/internal/infrastructure/redis"
	"github.com/iho/fundledger/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	log.Logger = appLogger

	ctx := context.Background()

	// Run database migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to PostgreSQL
	poolCtx, cancelPool := context.WithTimeout(ctx, cfg.DatabaseTimeout)
	pool, err := postgres.NewPool(poolCtx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	cancelPool()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	callRepo := postgresRepo.NewCapitalCallRepository(pool)
	distRepo := postgresRepo.NewDistributionRepository(pool)
	allocationRepo := postgresRepo.NewAllocationRepository(pool)
	historyRepo := postgresRepo.NewApprovalHistoryRepository(pool)
	fundRepo := postgresRepo.NewFundRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	cache := redisRepo.NewCache(redisClient, m)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize use cases
	approvalUC := usecase.NewApprovalUseCase(txManager, callRepo, distRepo, historyRepo, outboxRepo, idGen, m).
		WithRetrier(postgresRepo.NewRetrier())
	callUC := usecase.NewCapitalCallUseCase(txManager, callRepo, allocationRepo, fundRepo, idGen, appLogger, m)
	distUC := usecase.NewDistributionUseCase(txManager, distRepo, callRepo, allocationRepo, fundRepo, outboxRepo, idGen, appLogger, m)
	fundUC := usecase.NewFundUseCase(txManager, fundRepo, outboxRepo, idGen, appLogger)
	perfUC := usecase.NewPerformanceUseCase(callRepo, distRepo, allocationRepo, fundRepo, cache, appLogger, m)

	// Authentication is optional; without a secret the API trusts no one
	// and every /api/v1 request is rejected, so only enable when set.
	var jwtManager *auth.JWTManager
	var authHandler *handler.AuthHandler
	if cfg.AuthEnabled && cfg.JWTSecret != "" {
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
		authHandler = handler.NewAuthHandler(jwtManager)
	}

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		CapitalCallHandler:  handler.NewCapitalCallHandler(callUC),
		DistributionHandler: handler.NewDistributionHandler(distUC),
		ApprovalHandler:     handler.NewApprovalHandler(approvalUC, callUC, distUC, cfoThreshold(cfg.CFOApprovalThreshold)),
		FundHandler:         handler.NewFundHandler(fundUC, perfUC),
		AuthHandler:         authHandler,
		HealthHandler:       handler.NewHealthHandler(pool, redisClient),
		JWTManager:          jwtManager,
		IdempotencyStore:    idempotencyStore,
		RateLimiter:         middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m),
		Metrics:             m,
		Logger:              &appLogger,
		IdempotencyTTL:      cfg.IdempotencyTTL,
	})

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewLogPublisher(nil),
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
	})
	go func() {
		if err := publisher.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	go pruneOutbox(workerCtx, outboxRepo, cfg.OutboxRetention)
	go samplePoolStats(workerCtx, pool, m)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	stopWorkers()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// cfoThreshold parses the configured escalation threshold, falling back
// to one million on a malformed value rather than silently disabling
// the CFO stage.
func cfoThreshold(raw string) decimal.Decimal {
	threshold, err := decimal.NewFromString(raw)
	if err != nil {
		log.Warn().Str("value", raw).Msg("invalid CFO approval threshold, using default")
		return decimal.NewFromInt(1_000_000)
	}

	return threshold
}

// pruneOutbox periodically deletes published events older than the
// retention window.
func pruneOutbox(ctx context.Context, outboxRepo usecase.OutboxRepository, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := outboxRepo.DeletePublished(ctx, time.Now().Add(-retention)); err != nil {
				log.Error().Err(err).Msg("failed to prune outbox")
			}
		}
	}
}

// samplePoolStats exports the connection pool size.
func samplePoolStats(ctx context.Context, pool *pgxpool.Pool, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.DBConnections.Set(float64(pool.Stat().TotalConns()))
		}
	}
}
