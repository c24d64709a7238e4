package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gojournal/internal/adapter/http/dto"
	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

// ChartService defines the chart behavior needed by AccountHandler.
type ChartService interface {
	Tree(ctx context.Context) ([]*domain.AccountNode, error)
	GetAccountNode(ctx context.Context, id string) (*domain.AccountNode, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error)
	CreateChild(ctx context.Context, parentID string, input usecase.CreateAccountInput) (*domain.Account, error)
	Update(ctx context.Context, id string, input usecase.UpdateAccountInput) (*domain.Account, error)
	Delete(ctx context.Context, id string) error
}

// AccountLedgerService produces an account's ledger report.
type AccountLedgerService interface {
	LedgerByAccount(ctx context.Context, accountID string, from, to time.Time) (*domain.AccountLedger, error)
}

// ReconciliationService compares and repairs stored account balances.
type ReconciliationService interface {
	ReconcileAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error)
	RepairAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error)
	GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// AccountHandler handles chart-of-accounts HTTP requests.
type AccountHandler struct {
	chart  ChartService
	ledger AccountLedgerService
	recon  ReconciliationService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(chart ChartService, ledger AccountLedgerService, recon ReconciliationService) *AccountHandler {
	return &AccountHandler{chart: chart, ledger: ledger, recon: recon}
}

// List lists accounts ordered by code.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 100)
	offset := parseIntQuery(r, "offset", 0)

	accounts, err := h.chart.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    int64(len(accounts)),
	})
}

// Tree returns the whole chart with rolled-up balances.
func (h *AccountHandler) Tree(w http.ResponseWriter, r *http.Request) {
	roots, err := h.chart.Tree(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TreeFromDomain(roots))
}

// Create creates a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := h.chart.CreateAccount(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// CreateChild creates an account under the account in the path.
func (h *AccountHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := h.chart.CreateChild(r.Context(), chi.URLParam(r, "id"), req.ToUseCaseInput())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get returns an account with its subtree and effective balance.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	node, err := h.chart.GetAccountNode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountNodeFromDomain(node))
}

// Update patches an account.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateAccountRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := h.chart.Update(r.Context(), chi.URLParam(r, "id"), req.ToUseCaseInput())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Delete removes an account without children or postings.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.chart.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Ledger returns the posted movement of an account with running balances.
func (h *AccountHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ledger, err := h.ledger.LedgerByAccount(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ledger)
}

// Reconcile compares the stored balance with the posting log.
func (h *AccountHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.recon.ReconcileAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Repair rewrites the stored balance from the posting log.
func (h *AccountHandler) Repair(w http.ResponseWriter, r *http.Request) {
	result, err := h.recon.RepairAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
