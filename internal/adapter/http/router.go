package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/gojournal/internal/adapter/http/handler"
	"github.com/iho/gojournal/internal/adapter/http/middleware"
	"github.com/iho/gojournal/internal/infrastructure/metrics"
	"github.com/iho/gojournal/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler  *handler.AccountHandler
	EntryHandler    *handler.EntryHandler
	DocumentHandler *handler.DocumentHandler
	PeriodHandler   *handler.PeriodHandler
	ReportHandler   *handler.ReportHandler
	LedgerHandler   *handler.LedgerHandler
	HealthHandler   *handler.HealthHandler

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration

	// Verifier authenticates /api/v1. Nil disables authentication and every
	// request runs as the system actor.
	Verifier middleware.TokenVerifier

	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Logger         zerolog.Logger

	CORSOrigins []string
	RateLimiter *middleware.RateLimiter

	ReportRateLimit       int
	ReportRateLimitWindow time.Duration

	Production bool
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.SecureHeaders(cfg.Production))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Accept-Language", "Authorization", "Content-Type", middleware.IdempotencyKeyHeader, middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader, middleware.IdempotencyReplayHeader},
			MaxAge:         300,
		}))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Verifier != nil {
			r.Use(middleware.Authenticate(cfg.Verifier))
		}
		// Keys are scoped by actor, so this runs after authentication.
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger).Wrap)
		}

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", cfg.AccountHandler.List)
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/tree", cfg.AccountHandler.Tree)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Patch("/{id}", cfg.AccountHandler.Update)
			r.Delete("/{id}", cfg.AccountHandler.Delete)
			r.Post("/{id}/children", cfg.AccountHandler.CreateChild)
			r.Get("/{id}/ledger", cfg.AccountHandler.Ledger)
			r.Get("/{id}/reconcile", cfg.AccountHandler.Reconcile)
			r.Post("/{id}/repair", cfg.AccountHandler.Repair)
		})

		r.Route("/journal-entries", func(r chi.Router) {
			r.Get("/", cfg.EntryHandler.List)
			r.Post("/", cfg.EntryHandler.Create)
			r.Get("/{id}", cfg.EntryHandler.Get)
			r.Patch("/{id}", cfg.EntryHandler.Update)
			r.Delete("/{id}", cfg.EntryHandler.Delete)
			r.Post("/{id}/post", cfg.EntryHandler.Post)
			r.Post("/{id}/reverse", cfg.EntryHandler.Reverse)
			r.Post("/{id}/return-to-draft", cfg.EntryHandler.ReturnToDraft)
		})

		r.Post("/documents/entries", cfg.DocumentHandler.SubmitEntry)

		r.Route("/periods", func(r chi.Router) {
			r.Get("/", cfg.PeriodHandler.List)
			r.Get("/{key}", cfg.PeriodHandler.Get)
			r.Post("/{key}/close", cfg.PeriodHandler.Close)
			r.Post("/{key}/reopen", cfg.PeriodHandler.Reopen)
		})

		r.Route("/reports", func(r chi.Router) {
			if cfg.ReportRateLimit > 0 {
				window := cfg.ReportRateLimitWindow
				if window <= 0 {
					window = time.Minute
				}
				r.Use(httprate.Limit(cfg.ReportRateLimit, window, httprate.WithKeyFuncs(httprate.KeyByIP)))
			}
			r.Get("/trial-balance", cfg.ReportHandler.TrialBalance)
			r.Get("/summary", cfg.ReportHandler.Summary)
			r.Get("/branches", cfg.ReportHandler.Branches)
			r.Get("/sales-vs-expenses", cfg.ReportHandler.SalesVsExpenses)
			r.Get("/related-types", cfg.ReportHandler.RelatedTypes)
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/consistency", cfg.LedgerHandler.CheckConsistency)
			r.Get("/reconciliation", cfg.LedgerHandler.Reconciliation)
		})
	})

	return r
}
