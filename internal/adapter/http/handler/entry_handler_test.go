package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gojournal/internal/adapter/http/dto"
	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

type journalServiceStub struct {
	createFn  func(ctx context.Context, input usecase.CreateDraftInput) (*domain.JournalEntry, error)
	updateFn  func(ctx context.Context, id string, input usecase.UpdateDraftInput) (*domain.JournalEntry, error)
	postFn    func(ctx context.Context, id string) (*domain.JournalEntry, error)
	reverseFn func(ctx context.Context, id string) (*domain.JournalEntry, error)
	returnFn  func(ctx context.Context, id, reason string) (*domain.JournalEntry, error)
	deleteFn  func(ctx context.Context, id, reason string) error
	getFn     func(ctx context.Context, id string) (*domain.JournalEntry, error)
	listFn    func(ctx context.Context, filter domain.EntryFilter) ([]*domain.JournalEntry, int64, error)
}

func (s *journalServiceStub) CreateDraft(ctx context.Context, input usecase.CreateDraftInput) (*domain.JournalEntry, error) {
	return s.createFn(ctx, input)
}

func (s *journalServiceStub) UpdateDraft(ctx context.Context, id string, input usecase.UpdateDraftInput) (*domain.JournalEntry, error) {
	return s.updateFn(ctx, id, input)
}

func (s *journalServiceStub) Post(ctx context.Context, id string) (*domain.JournalEntry, error) {
	return s.postFn(ctx, id)
}

func (s *journalServiceStub) Reverse(ctx context.Context, id string) (*domain.JournalEntry, error) {
	return s.reverseFn(ctx, id)
}

func (s *journalServiceStub) ReturnToDraft(ctx context.Context, id, reason string) (*domain.JournalEntry, error) {
	return s.returnFn(ctx, id, reason)
}

func (s *journalServiceStub) Delete(ctx context.Context, id, reason string) error {
	return s.deleteFn(ctx, id, reason)
}

func (s *journalServiceStub) GetEntry(ctx context.Context, id string) (*domain.JournalEntry, error) {
	return s.getFn(ctx, id)
}

func (s *journalServiceStub) ListEntries(ctx context.Context, filter domain.EntryFilter) ([]*domain.JournalEntry, int64, error) {
	return s.listFn(ctx, filter)
}

func draftEntry(id string) *domain.JournalEntry {
	return &domain.JournalEntry{
		ID:     id,
		Date:   time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC),
		Status: domain.EntryStatusDraft,
	}
}

func TestEntryHandler_Create(t *testing.T) {
	var captured usecase.CreateDraftInput
	h := NewEntryHandler(&journalServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateDraftInput) (*domain.JournalEntry, error) {
			captured = input
			return draftEntry("je-1"), nil
		},
	})

	body := `{"date":"2024-11-05","description":"Rent","postings":[
		{"account_id":"rent","debit":"40","credit":"0"},
		{"account_id":"cash","debit":"0","credit":"40"}]}`
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/journal-entries", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, captured.Postings, 2)
	assert.Equal(t, "40", captured.Postings[0].Debit.String())
	assert.Equal(t, 2024, captured.Date.Year())

	var resp dto.EntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "draft", resp.Status)
	assert.Equal(t, "2024-11-05", resp.Date)
}

func TestEntryHandler_CreateRejectsMissingDate(t *testing.T) {
	h := NewEntryHandler(&journalServiceStub{})

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/journal-entries", bytes.NewBufferString(`{"description":"x"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntryHandler_PostUnbalanced(t *testing.T) {
	h := NewEntryHandler(&journalServiceStub{
		postFn: func(ctx context.Context, id string) (*domain.JournalEntry, error) {
			return nil, domain.ErrUnbalanced
		},
	})

	rec := httptest.NewRecorder()
	h.Post(rec, withURLParam(httptest.NewRequest(http.MethodPost, "/journal-entries/je-1/post", nil), "id", "je-1"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "unbalanced", decodeError(t, rec).Error)
}

func TestEntryHandler_PostInClosedPeriod(t *testing.T) {
	h := NewEntryHandler(&journalServiceStub{
		postFn: func(ctx context.Context, id string) (*domain.JournalEntry, error) {
			return nil, domain.ErrPeriodClosed
		},
	})

	rec := httptest.NewRecorder()
	h.Post(rec, withURLParam(httptest.NewRequest(http.MethodPost, "/journal-entries/je-1/post", nil), "id", "je-1"))

	assert.Equal(t, http.StatusLocked, rec.Code)
}

func TestEntryHandler_Reverse(t *testing.T) {
	h := NewEntryHandler(&journalServiceStub{
		reverseFn: func(ctx context.Context, id string) (*domain.JournalEntry, error) {
			e := draftEntry("je-2")
			e.Status = domain.EntryStatusPosted
			e.RelatedType = domain.RelatedTypeReversal
			e.RelatedID = id
			return e, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Reverse(rec, withURLParam(httptest.NewRequest(http.MethodPost, "/journal-entries/je-1/reverse", nil), "id", "je-1"))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.EntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "reversal", resp.RelatedType)
	assert.Equal(t, "je-1", resp.RelatedID)
}

func TestEntryHandler_ReturnToDraftPassesReason(t *testing.T) {
	var reason string
	h := NewEntryHandler(&journalServiceStub{
		returnFn: func(ctx context.Context, id, r string) (*domain.JournalEntry, error) {
			reason = r
			return draftEntry(id), nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/journal-entries/je-1/return-to-draft", bytes.NewBufferString(`{"reason":"wrong account"}`))
	rec := httptest.NewRecorder()
	h.ReturnToDraft(rec, withURLParam(req, "id", "je-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "wrong account", reason)
}

func TestEntryHandler_DeleteWithoutBody(t *testing.T) {
	var gotID, gotReason string
	h := NewEntryHandler(&journalServiceStub{
		deleteFn: func(ctx context.Context, id, reason string) error {
			gotID, gotReason = id, reason
			return nil
		},
	})

	rec := httptest.NewRecorder()
	h.Delete(rec, withURLParam(httptest.NewRequest(http.MethodDelete, "/journal-entries/je-1", nil), "id", "je-1"))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "je-1", gotID)
	assert.Empty(t, gotReason)
}

func TestEntryHandler_DeletePosted(t *testing.T) {
	h := NewEntryHandler(&journalServiceStub{
		deleteFn: func(ctx context.Context, id, reason string) error { return domain.ErrPostedNotDeleted },
	})

	rec := httptest.NewRecorder()
	h.Delete(rec, withURLParam(httptest.NewRequest(http.MethodDelete, "/journal-entries/je-1", nil), "id", "je-1"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", decodeError(t, rec).Error)
}

func TestEntryHandler_UpdateStaleVersion(t *testing.T) {
	var got usecase.UpdateDraftInput
	h := NewEntryHandler(&journalServiceStub{
		updateFn: func(ctx context.Context, id string, input usecase.UpdateDraftInput) (*domain.JournalEntry, error) {
			got = input
			return nil, domain.ErrStaleEntryVersion
		},
	})

	req := httptest.NewRequest(http.MethodPatch, "/journal-entries/je-1", bytes.NewBufferString(`{"version":3,"description":"x"}`))
	rec := httptest.NewRecorder()
	h.Update(rec, withURLParam(req, "id", "je-1"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, got.ExpectedVersion)
	assert.Equal(t, int64(3), *got.ExpectedVersion)
	assert.Nil(t, got.Postings)
}

func TestEntryHandler_ListFilters(t *testing.T) {
	var got domain.EntryFilter
	h := NewEntryHandler(&journalServiceStub{
		listFn: func(ctx context.Context, filter domain.EntryFilter) ([]*domain.JournalEntry, int64, error) {
			got = filter
			return []*domain.JournalEntry{draftEntry("je-1")}, 12, nil
		},
	})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet,
		"/journal-entries?status=posted&branch=north&q=rent&from=2024-01-01&limit=5&related_type=invoice", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.EntryStatusPosted, got.Status)
	assert.Equal(t, "north", got.Branch)
	assert.Equal(t, "rent", got.Search)
	assert.Equal(t, domain.RelatedTypeInvoice, got.RelatedType)
	assert.Equal(t, 5, got.Limit)
	require.NotNil(t, got.From)
	assert.Nil(t, got.To)

	var resp dto.ListEntriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(12), resp.Total)
}

func TestEntryHandler_ListRejectsUnknownStatus(t *testing.T) {
	h := NewEntryHandler(&journalServiceStub{})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/journal-entries?status=archived", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntryHandler_GetForbidden(t *testing.T) {
	h := NewEntryHandler(&journalServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.JournalEntry, error) { return nil, domain.ErrForbidden },
	})

	rec := httptest.NewRecorder()
	h.Get(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/journal-entries/je-1", nil), "id", "je-1"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
