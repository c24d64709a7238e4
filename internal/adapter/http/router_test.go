package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/gojournal/internal/adapter/http/handler"
	apimiddleware "github.com/iho/gojournal/internal/adapter/http/middleware"
	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/infrastructure/auth"
	"github.com/iho/gojournal/internal/infrastructure/metrics"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("expected security headers on every response")
	}
	if rec.Header().Get(apimiddleware.RequestIDHeader) == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1, nil)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_ReportRateLimit(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.ReportRateLimit = 1
		cfg.ReportRateLimitWindow = time.Minute
	}))

	send := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "5.6.7.8:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("/api/v1/reports/trial-balance"); code != http.StatusOK {
		t.Fatalf("expected first report to succeed, got %d", code)
	}
	if code := send("/api/v1/reports/trial-balance"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second report to be throttled, got %d", code)
	}
	if code := send("/api/v1/periods/"); code != http.StatusOK {
		t.Fatalf("non-report routes must not share the report limit, got %d", code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"description":"missing date"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/journal-entries/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if !store.checkCalled {
		t.Fatalf("expected idempotency store to be used")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected validation failure, got %d", rec.Code)
	}
	if !store.released {
		t.Fatalf("expected failed request to release its key")
	}
}

func TestNewRouter_AuthenticationGuardsAPI(t *testing.T) {
	manager := auth.NewJWTManager("router-secret", time.Hour)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.Verifier = manager
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/periods/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, err := manager.Generate(domain.Actor{ID: "u-1", Role: domain.RoleViewer})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/periods/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", rec.Code)
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.Metrics = m
		cfg.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/periods/", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected /metrics to return 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `path="/api/v1/periods/"`) {
		t.Fatalf("expected request counter labelled by route, got:\n%s", rec.Body.String())
	}
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.CORSOrigins = []string{"https://erp.example.com"}
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/journal-entries/", nil)
	req.Header.Set("Origin", "https://erp.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://erp.example.com" {
		t.Fatalf("expected allowed origin, got %q", got)
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"GET /api/v1/accounts/",
		"POST /api/v1/accounts/",
		"GET /api/v1/accounts/tree",
		"PATCH /api/v1/accounts/{id}",
		"DELETE /api/v1/accounts/{id}",
		"POST /api/v1/accounts/{id}/children",
		"GET /api/v1/accounts/{id}/ledger",
		"POST /api/v1/accounts/{id}/repair",
		"POST /api/v1/journal-entries/",
		"PATCH /api/v1/journal-entries/{id}",
		"DELETE /api/v1/journal-entries/{id}",
		"POST /api/v1/journal-entries/{id}/post",
		"POST /api/v1/journal-entries/{id}/reverse",
		"POST /api/v1/journal-entries/{id}/return-to-draft",
		"POST /api/v1/documents/entries",
		"POST /api/v1/periods/{key}/close",
		"POST /api/v1/periods/{key}/reopen",
		"GET /api/v1/reports/trial-balance",
		"GET /api/v1/reports/summary",
		"GET /api/v1/reports/branches",
		"GET /api/v1/reports/sales-vs-expenses",
		"GET /api/v1/reports/related-types",
		"GET /api/v1/ledger/consistency",
		"GET /api/v1/ledger/reconciliation",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	cfg := RouterConfig{
		HealthHandler:   handler.NewHealthHandler(),
		AccountHandler:  handler.NewAccountHandler(nil, nil, nil),
		EntryHandler:    handler.NewEntryHandler(nil),
		DocumentHandler: handler.NewDocumentHandler(nil),
		PeriodHandler:   handler.NewPeriodHandler(stubPeriodService{}),
		ReportHandler:   handler.NewReportHandler(stubReportService{}),
		LedgerHandler:   handler.NewLedgerHandler(nil, nil),
		Logger:          zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubPeriodService struct{}

func (stubPeriodService) Get(ctx context.Context, key string) (*domain.Period, error) {
	return &domain.Period{Key: key, Status: domain.PeriodStatusOpen}, nil
}

func (stubPeriodService) List(ctx context.Context) ([]*domain.Period, error) {
	return []*domain.Period{}, nil
}

func (stubPeriodService) Close(ctx context.Context, key string) (*domain.Period, error) {
	return &domain.Period{Key: key, Status: domain.PeriodStatusClosed}, nil
}

func (stubPeriodService) Reopen(ctx context.Context, key string) (*domain.Period, error) {
	return &domain.Period{Key: key, Status: domain.PeriodStatusOpen}, nil
}

type stubReportService struct{}

func (stubReportService) TrialBalance(ctx context.Context, from, to time.Time) (*domain.TrialBalance, error) {
	return &domain.TrialBalance{}, nil
}

func (stubReportService) SummaryByType(ctx context.Context, from, to time.Time) (*domain.Summary, error) {
	return &domain.Summary{}, nil
}

func (stubReportService) SummaryByRelatedType(ctx context.Context, from, to time.Time) (*domain.Summary, error) {
	return &domain.Summary{}, nil
}

func (stubReportService) SalesVsExpenses(ctx context.Context, from, to time.Time, branch string) (*domain.SalesVsExpenses, error) {
	return &domain.SalesVsExpenses{}, nil
}

func (stubReportService) SummaryByBranch(ctx context.Context, from, to time.Time) ([]domain.SalesVsExpenses, error) {
	return nil, nil
}

type stubIdempotencyStore struct {
	checkCalled bool
	released    bool
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkCalled = true
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return nil
}

func (s *stubIdempotencyStore) Release(ctx context.Context, key string) error {
	s.released = true
	return nil
}
