package handler

import (
	"context"
	"net/http"

	"github.com/iho/gojournal/internal/adapter/http/dto"
	"github.com/iho/gojournal/internal/usecase"
)

// LinkageService books journal entries for business documents.
type LinkageService interface {
	SubmitEntry(ctx context.Context, input usecase.SubmitEntryInput) (*usecase.SubmitEntryResult, error)
}

// DocumentHandler accepts journal entries submitted by document modules.
type DocumentHandler struct {
	linkage LinkageService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(linkage LinkageService) *DocumentHandler {
	return &DocumentHandler{linkage: linkage}
}

// SubmitEntry books the entry of a document. A document that already has a
// live entry answers 200 with that entry instead of 201.
func (h *DocumentHandler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmitEntryRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.linkage.SubmitEntry(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.SubmitEntryFromResult(result))
}
