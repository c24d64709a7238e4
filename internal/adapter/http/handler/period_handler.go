package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gojournal/internal/adapter/http/dto"
	"github.com/iho/gojournal/internal/domain"
)

// PeriodService defines the period registry behavior needed by PeriodHandler.
type PeriodService interface {
	Get(ctx context.Context, key string) (*domain.Period, error)
	List(ctx context.Context) ([]*domain.Period, error)
	Close(ctx context.Context, key string) (*domain.Period, error)
	Reopen(ctx context.Context, key string) (*domain.Period, error)
}

// PeriodHandler handles accounting period HTTP requests.
type PeriodHandler struct {
	periods PeriodService
}

// NewPeriodHandler creates a new PeriodHandler.
func NewPeriodHandler(periods PeriodService) *PeriodHandler {
	return &PeriodHandler{periods: periods}
}

// List returns every registered period.
func (h *PeriodHandler) List(w http.ResponseWriter, r *http.Request) {
	periods, err := h.periods.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PeriodsFromDomain(periods))
}

// Get returns one period. Unregistered periods are reported open.
func (h *PeriodHandler) Get(w http.ResponseWriter, r *http.Request) {
	period, err := h.periods.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PeriodFromDomain(period))
}

// Close closes a period to posting.
func (h *PeriodHandler) Close(w http.ResponseWriter, r *http.Request) {
	period, err := h.periods.Close(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PeriodFromDomain(period))
}

// Reopen reopens a closed period.
func (h *PeriodHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	period, err := h.periods.Reopen(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PeriodFromDomain(period))
}
