package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

// ReportService defines the aggregate reports served by ReportHandler.
type ReportService interface {
	TrialBalance(ctx context.Context, from, to time.Time) (*domain.TrialBalance, error)
	SummaryByType(ctx context.Context, from, to time.Time) (*domain.Summary, error)
	SummaryByRelatedType(ctx context.Context, from, to time.Time) (*domain.Summary, error)
	SalesVsExpenses(ctx context.Context, from, to time.Time, branch string) (*domain.SalesVsExpenses, error)
	SummaryByBranch(ctx context.Context, from, to time.Time) ([]domain.SalesVsExpenses, error)
}

// ReportHandler handles report HTTP requests.
type ReportHandler struct {
	reports ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// TrialBalance returns per-account totals over the range.
func (h *ReportHandler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tb, err := h.reports.TrialBalance(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tb)
}

// Summary groups posted movement by account type, or by document type when
// group_by=related_type.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var summary *domain.Summary
	switch usecase.ReportGroup(r.URL.Query().Get("group_by")) {
	case usecase.GroupByAccountType, "":
		summary, err = h.reports.SummaryByType(r.Context(), from, to)
	case usecase.GroupByRelatedType:
		summary, err = h.reports.SummaryByRelatedType(r.Context(), from, to)
	default:
		err = validationError("unknown group_by %q", r.URL.Query().Get("group_by"))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// RelatedTypes groups posted movement by document type.
func (h *ReportHandler) RelatedTypes(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := h.reports.SummaryByRelatedType(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Branches returns sales against expenses for every branch.
func (h *ReportHandler) Branches(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows, err := h.reports.SummaryByBranch(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

// SalesVsExpenses compares revenue with expenses, optionally for one branch.
func (h *ReportHandler) SalesVsExpenses(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.reports.SalesVsExpenses(r.Context(), from, to, r.URL.Query().Get("branch"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
