package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gojournal/internal/usecase"
)

type consistencyStub struct {
	report *usecase.ConsistencyReport
	err    error
}

func (s *consistencyStub) CheckConsistency(ctx context.Context) (*usecase.ConsistencyReport, error) {
	return s.report, s.err
}

func TestLedgerHandler_CheckConsistency(t *testing.T) {
	ok := &usecase.ConsistencyReport{TotalDebits: decimal.NewFromInt(5), TotalCredits: decimal.NewFromInt(5), Consistent: true}
	broken := &usecase.ConsistencyReport{TotalDebits: decimal.NewFromInt(5), TotalCredits: decimal.NewFromInt(4)}

	tests := []struct {
		name string
		stub *consistencyStub
		want int
	}{
		{"consistent", &consistencyStub{report: ok}, http.StatusOK},
		{"inconsistent", &consistencyStub{report: broken, err: usecase.ErrInconsistentLedger}, http.StatusConflict},
		{"storage failure", &consistencyStub{err: errors.New("connection reset")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLedgerHandler(tt.stub, nil)
			rec := httptest.NewRecorder()
			h.CheckConsistency(rec, httptest.NewRequest(http.MethodGet, "/ledger/consistency", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestLedgerHandler_Reconciliation(t *testing.T) {
	h := NewLedgerHandler(nil, &reconServiceStub{
		reportFn: func(ctx context.Context) (*usecase.ReconciliationReport, error) {
			return &usecase.ReconciliationReport{TotalAccounts: 3, ReconciledAccounts: 3, LedgerConsistent: true}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Reconciliation(rec, httptest.NewRequest(http.MethodGet, "/ledger/reconciliation", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp usecase.ReconciliationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.TotalAccounts)
}
