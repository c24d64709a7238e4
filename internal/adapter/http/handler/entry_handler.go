package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gojournal/internal/adapter/http/dto"
	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

// JournalService defines the journal behavior needed by EntryHandler.
type JournalService interface {
	CreateDraft(ctx context.Context, input usecase.CreateDraftInput) (*domain.JournalEntry, error)
	UpdateDraft(ctx context.Context, id string, input usecase.UpdateDraftInput) (*domain.JournalEntry, error)
	Post(ctx context.Context, id string) (*domain.JournalEntry, error)
	Reverse(ctx context.Context, id string) (*domain.JournalEntry, error)
	ReturnToDraft(ctx context.Context, id, reason string) (*domain.JournalEntry, error)
	Delete(ctx context.Context, id, reason string) error
	GetEntry(ctx context.Context, id string) (*domain.JournalEntry, error)
	ListEntries(ctx context.Context, filter domain.EntryFilter) ([]*domain.JournalEntry, int64, error)
}

// EntryHandler handles journal entry HTTP requests.
type EntryHandler struct {
	journal JournalService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(journal JournalService) *EntryHandler {
	return &EntryHandler{journal: journal}
}

// List lists entries matching the query filters.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.EntryFilter{
		Status:      domain.EntryStatus(q.Get("status")),
		AccountID:   q.Get("account_id"),
		Branch:      q.Get("branch"),
		RelatedType: domain.RelatedType(q.Get("related_type")),
		Search:      q.Get("q"),
		Limit:       parseIntQuery(r, "limit", 50),
		Offset:      parseIntQuery(r, "offset", 0),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		writeError(w, r, validationError("unknown status %q", q.Get("status")))
		return
	}

	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !from.IsZero() {
		filter.From = &from
	}
	if !to.IsZero() {
		filter.To = &to
	}

	entries, total, err := h.journal.ListEntries(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListEntriesResponse{
		Entries: dto.EntriesFromDomain(entries),
		Total:   total,
	})
}

// Create records a new draft entry.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEntryRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := h.journal.CreateDraft(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// Get returns an entry with its postings.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.journal.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Update patches a draft entry.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateEntryRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := h.journal.UpdateDraft(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Delete removes a draft entry.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req dto.ReasonRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.journal.Delete(r.Context(), chi.URLParam(r, "id"), req.Reason); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Post posts a draft entry.
func (h *EntryHandler) Post(w http.ResponseWriter, r *http.Request) {
	entry, err := h.journal.Post(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Reverse creates the mirror entry of a posted entry and returns it.
func (h *EntryHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	reversal, err := h.journal.Reverse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(reversal))
}

// ReturnToDraft undoes the balance effect of a posted entry.
func (h *EntryHandler) ReturnToDraft(w http.ResponseWriter, r *http.Request) {
	var req dto.ReasonRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := h.journal.ReturnToDraft(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}
