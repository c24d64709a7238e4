package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gojournal/internal/adapter/http/dto"
	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

type linkageServiceStub struct {
	submitFn func(ctx context.Context, input usecase.SubmitEntryInput) (*usecase.SubmitEntryResult, error)
}

func (s *linkageServiceStub) SubmitEntry(ctx context.Context, input usecase.SubmitEntryInput) (*usecase.SubmitEntryResult, error) {
	return s.submitFn(ctx, input)
}

const invoiceBody = `{"date":"2024-06-01","related_type":"invoice","related_id":"INV-7","auto_post":true,
	"postings":[{"account_id":"ar","debit":"75"},{"account_id":"sales","credit":"75"}]}`

func TestDocumentHandler_SubmitCreates(t *testing.T) {
	var got usecase.SubmitEntryInput
	h := NewDocumentHandler(&linkageServiceStub{
		submitFn: func(ctx context.Context, input usecase.SubmitEntryInput) (*usecase.SubmitEntryResult, error) {
			got = input
			return &usecase.SubmitEntryResult{EntryID: "je-1", EntryNumber: 3, Status: domain.EntryStatusPosted, Created: true}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.SubmitEntry(rec, httptest.NewRequest(http.MethodPost, "/documents/entries", bytes.NewBufferString(invoiceBody)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, got.AutoPost)
	assert.Equal(t, domain.RelatedTypeInvoice, got.RelatedType)
	assert.Equal(t, "INV-7", got.RelatedID)

	var resp dto.SubmitEntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "je-1", resp.EntryID)
	assert.Equal(t, "posted", resp.Status)
}

func TestDocumentHandler_SubmitReturnsExisting(t *testing.T) {
	h := NewDocumentHandler(&linkageServiceStub{
		submitFn: func(ctx context.Context, input usecase.SubmitEntryInput) (*usecase.SubmitEntryResult, error) {
			return &usecase.SubmitEntryResult{EntryID: "je-1", Status: domain.EntryStatusPosted}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.SubmitEntry(rec, httptest.NewRequest(http.MethodPost, "/documents/entries", bytes.NewBufferString(invoiceBody)))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDocumentHandler_SubmitUnbalanced(t *testing.T) {
	h := NewDocumentHandler(&linkageServiceStub{
		submitFn: func(ctx context.Context, input usecase.SubmitEntryInput) (*usecase.SubmitEntryResult, error) {
			return nil, domain.ErrUnbalanced
		},
	})

	rec := httptest.NewRecorder()
	h.SubmitEntry(rec, httptest.NewRequest(http.MethodPost, "/documents/entries", bytes.NewBufferString(invoiceBody)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
