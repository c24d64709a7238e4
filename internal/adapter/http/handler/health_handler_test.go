package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	healthy := HealthCheck{Name: "postgres", Check: func(context.Context) error { return nil }}
	failing := HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("dial tcp: refused") }}

	rec := httptest.NewRecorder()
	NewHealthHandler(healthy, failing).Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler(healthy).Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"postgres":"ok"`)

	rec = httptest.NewRecorder()
	NewHealthHandler(healthy, failing).Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis unhealthy")
}
