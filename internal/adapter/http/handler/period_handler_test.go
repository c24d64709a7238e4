package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gojournal/internal/adapter/http/dto"
	"github.com/iho/gojournal/internal/domain"
)

type periodServiceStub struct {
	closed map[string]bool
}

func (s *periodServiceStub) Get(ctx context.Context, key string) (*domain.Period, error) {
	if err := domain.ValidatePeriodKey(key); err != nil {
		return nil, err
	}
	if s.closed[key] {
		return &domain.Period{Key: key, Status: domain.PeriodStatusClosed}, nil
	}
	return domain.OpenPeriod(key), nil
}

func (s *periodServiceStub) List(ctx context.Context) ([]*domain.Period, error) {
	periods := make([]*domain.Period, 0, len(s.closed))
	for key := range s.closed {
		periods = append(periods, &domain.Period{Key: key, Status: domain.PeriodStatusClosed})
	}
	return periods, nil
}

func (s *periodServiceStub) Close(ctx context.Context, key string) (*domain.Period, error) {
	s.closed[key] = true
	return s.Get(ctx, key)
}

func (s *periodServiceStub) Reopen(ctx context.Context, key string) (*domain.Period, error) {
	if !s.closed[key] {
		return nil, domain.ErrPeriodNotFound
	}
	delete(s.closed, key)
	return s.Get(ctx, key)
}

func TestPeriodHandler_CloseAndReopen(t *testing.T) {
	svc := &periodServiceStub{closed: map[string]bool{}}
	h := NewPeriodHandler(svc)

	rec := httptest.NewRecorder()
	h.Close(rec, withURLParam(httptest.NewRequest(http.MethodPost, "/periods/2024-11/close", nil), "key", "2024-11"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.PeriodResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "closed", resp.Status)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/periods", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []dto.PeriodResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = httptest.NewRecorder()
	h.Reopen(rec, withURLParam(httptest.NewRequest(http.MethodPost, "/periods/2024-11/reopen", nil), "key", "2024-11"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "open", resp.Status)
}

func TestPeriodHandler_Errors(t *testing.T) {
	h := NewPeriodHandler(&periodServiceStub{closed: map[string]bool{}})

	rec := httptest.NewRecorder()
	h.Get(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/periods/2024-13", nil), "key", "2024-13"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Reopen(rec, withURLParam(httptest.NewRequest(http.MethodPost, "/periods/2020-01/reopen", nil), "key", "2020-01"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
