package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

type reportServiceStub struct {
	calls  []string
	branch string
}

func (s *reportServiceStub) TrialBalance(ctx context.Context, from, to time.Time) (*domain.TrialBalance, error) {
	s.calls = append(s.calls, "trial-balance")
	return domain.NewTrialBalance(from, to, nil), nil
}

func (s *reportServiceStub) SummaryByType(ctx context.Context, from, to time.Time) (*domain.Summary, error) {
	s.calls = append(s.calls, "by-type")
	return &domain.Summary{GroupBy: string(usecase.GroupByAccountType)}, nil
}

func (s *reportServiceStub) SummaryByRelatedType(ctx context.Context, from, to time.Time) (*domain.Summary, error) {
	s.calls = append(s.calls, "by-related-type")
	return &domain.Summary{GroupBy: string(usecase.GroupByRelatedType)}, nil
}

func (s *reportServiceStub) SalesVsExpenses(ctx context.Context, from, to time.Time, branch string) (*domain.SalesVsExpenses, error) {
	s.calls = append(s.calls, "sales-vs-expenses")
	s.branch = branch
	return &domain.SalesVsExpenses{Branch: branch, Sales: decimal.NewFromInt(10)}, nil
}

func (s *reportServiceStub) SummaryByBranch(ctx context.Context, from, to time.Time) ([]domain.SalesVsExpenses, error) {
	s.calls = append(s.calls, "branches")
	return []domain.SalesVsExpenses{}, nil
}

func TestReportHandler_Routes(t *testing.T) {
	svc := &reportServiceStub{}
	h := NewReportHandler(svc)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		target  string
		want    string
	}{
		{"trial balance", h.TrialBalance, "/reports/trial-balance?from=2024-01-01&to=2024-12-31", "trial-balance"},
		{"summary default", h.Summary, "/reports/summary", "by-type"},
		{"summary by related type", h.Summary, "/reports/summary?group_by=related_type", "by-related-type"},
		{"related types", h.RelatedTypes, "/reports/related-types", "by-related-type"},
		{"branches", h.Branches, "/reports/branches", "branches"},
		{"sales vs expenses", h.SalesVsExpenses, "/reports/sales-vs-expenses?branch=north", "sales-vs-expenses"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.calls = nil
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, []string{tt.want}, svc.calls)
		})
	}
	assert.Equal(t, "north", svc.branch)
}

func TestReportHandler_RejectsBadInput(t *testing.T) {
	svc := &reportServiceStub{}
	h := NewReportHandler(svc)

	rec := httptest.NewRecorder()
	h.Summary(rec, httptest.NewRequest(http.MethodGet, "/reports/summary?group_by=colour", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.TrialBalance(rec, httptest.NewRequest(http.MethodGet, "/reports/trial-balance?to=31-12-2024", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, svc.calls)
}
