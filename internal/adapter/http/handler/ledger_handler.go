package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/iho/gojournal/internal/usecase"
)

// ConsistencyChecker verifies the ledger-wide balance invariant.
type ConsistencyChecker interface {
	CheckConsistency(ctx context.Context) (*usecase.ConsistencyReport, error)
}

// LedgerHandler handles ledger-wide operations.
type LedgerHandler struct {
	ledger ConsistencyChecker
	recon  ReconciliationService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger ConsistencyChecker, recon ReconciliationService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, recon: recon}
}

// CheckConsistency reports whether total debits equal total credits. An
// inconsistent ledger answers 409 with the report.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledger.CheckConsistency(r.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrInconsistentLedger) && report != nil {
			writeJSON(w, http.StatusConflict, report)
			return
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Reconciliation compares every stored balance with the posting log.
func (h *LedgerHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	report, err := h.recon.GenerateReconciliationReport(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
