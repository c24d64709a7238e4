package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/gojournal/internal/adapter/http"
	"github.com/iho/gojournal/internal/adapter/http/handler"
	"github.com/iho/gojournal/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/gojournal/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/gojournal/internal/adapter/repository/redis"
	"github.com/iho/gojournal/internal/infrastructure/auth"
	"github.com/iho/gojournal/internal/infrastructure/config"
	"github.com/iho/gojournal/internal/infrastructure/logger"
	"github.com/iho/gojournal/internal/infrastructure/metrics"
	"github.com/iho/gojournal/internal/infrastructure/postgres"
	"github.com/iho/gojournal/internal/infrastructure/redis"
	"github.com/iho/gojournal/internal/usecase"
)

const limiterIdle = time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	log.Logger = logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.ServiceName,
	})

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	verifier, err := newVerifier(cfg)
	if err != nil {
		return err
	}

	if cfg.AutoMigrate {
		if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, log.Logger).Up(); err != nil {
			return err
		}
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClientWithConfig(ctx, redis.ClientConfig{
		URL:         cfg.RedisURL,
		PoolSize:    cfg.RedisPoolSize,
		DialTimeout: cfg.RedisDialTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	journalRepo := postgresRepo.NewJournalRepository(pool)
	periodRepo := postgresRepo.NewPeriodRepository(pool)
	reportRepo := postgresRepo.NewReportRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	settings := postgresRepo.NewSettingsRepository(pool, cfg.JournalReadonlyDays)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(log.Logger).WithMetrics(m)
	cache := redisRepo.NewCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	authorizer := auth.NewRoleAuthorizer()

	// Initialize use cases
	reportUC := usecase.NewReportUseCase(reportRepo, accountRepo, cache, cfg.ReportCacheTTL, usecase.WithMetrics(m))
	writeOpts := []usecase.Option{
		usecase.WithRetrier(retrier),
		usecase.WithMetrics(m),
		usecase.WithReportInvalidator(reportUC),
	}
	chartUC := usecase.NewChartUseCase(txManager, accountRepo, journalRepo, outboxRepo, auditRepo, authorizer, idGen, writeOpts...)
	journalUC := usecase.NewJournalUseCase(txManager, accountRepo, journalRepo, periodRepo, outboxRepo, auditRepo, authorizer, settings, idGen, writeOpts...)
	periodUC := usecase.NewPeriodUseCase(txManager, periodRepo, outboxRepo, auditRepo, authorizer, idGen, writeOpts...)
	reconUC := usecase.NewReconciliationUseCase(txManager, accountRepo, ledgerRepo, auditRepo, authorizer, idGen, writeOpts...)
	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo, usecase.WithMetrics(m))
	linkageUC := usecase.NewLinkageUseCase(journalUC)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:  handler.NewAccountHandler(chartUC, reportUC, reconUC),
		EntryHandler:    handler.NewEntryHandler(journalUC),
		DocumentHandler: handler.NewDocumentHandler(linkageUC),
		PeriodHandler:   handler.NewPeriodHandler(periodUC),
		ReportHandler:   handler.NewReportHandler(reportUC),
		LedgerHandler:   handler.NewLedgerHandler(ledgerUC, reconUC),
		HealthHandler: handler.NewHealthHandler(
			handler.HealthCheck{Name: "postgres", Check: pool.Ping},
			handler.HealthCheck{Name: "redis", Check: redis.Pinger(redisClient)},
		),
		IdempotencyStore:      idempotencyStore,
		IdempotencyTTL:        cfg.IdempotencyTTL,
		Verifier:              verifier,
		Metrics:               m,
		Logger:                log.Logger,
		CORSOrigins:           cfg.CORSAllowedOrigins,
		RateLimiter:           rateLimiter,
		ReportRateLimit:       cfg.ReportRateLimit,
		ReportRateLimitWindow: cfg.ReportRateLimitWindow,
		Production:            cfg.IsProduction(),
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go cleanupLimiters(ctx, rateLimiter, limiterIdle)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Bool("auth", verifier != nil).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// newVerifier returns the bearer token verifier, or nil when authentication
// is disabled.
func newVerifier(cfg *config.Config) (middleware.TokenVerifier, error) {
	if !cfg.AuthEnabled {
		return nil, nil
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("AUTH_ENABLED requires JWT_SECRET")
	}
	return auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration), nil
}

func cleanupLimiters(ctx context.Context, rl *middleware.RateLimiter, maxIdle time.Duration) {
	ticker := time.NewTicker(maxIdle / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.CleanupLimiters(maxIdle)
		}
	}
}
