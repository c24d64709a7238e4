package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID               string          `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Type             string          `json:"type"`
	Nature           string          `json:"nature"`
	ParentID         *string         `json:"parent_id"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	Balance          decimal.Decimal `json:"balance"`
	AllowManualEntry bool            `json:"allow_manual_entry"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:               a.ID,
		Code:             a.Code,
		Name:             a.Name,
		Type:             string(a.Type),
		Nature:           string(a.Nature),
		ParentID:         a.ParentID,
		OpeningBalance:   a.OpeningBalance,
		Balance:          a.Balance,
		AllowManualEntry: a.AllowManualEntry,
		Version:          a.Version,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// AccountNodeResponse is an account with its subtree and rolled-up balance.
type AccountNodeResponse struct {
	*AccountResponse
	EffectiveBalance decimal.Decimal        `json:"effective_balance"`
	Children         []*AccountNodeResponse `json:"children"`
}

// AccountNodeFromDomain converts a chart subtree to response.
func AccountNodeFromDomain(n *domain.AccountNode) *AccountNodeResponse {
	children := make([]*AccountNodeResponse, len(n.Children))
	for i, c := range n.Children {
		children[i] = AccountNodeFromDomain(c)
	}
	return &AccountNodeResponse{
		AccountResponse:  AccountFromDomain(n.Account),
		EffectiveBalance: n.EffectiveBalance,
		Children:         children,
	}
}

// TreeFromDomain converts the chart forest to response.
func TreeFromDomain(roots []*domain.AccountNode) []*AccountNodeResponse {
	result := make([]*AccountNodeResponse, len(roots))
	for i, n := range roots {
		result[i] = AccountNodeFromDomain(n)
	}
	return result
}

// PostingResponse represents one entry line in API responses.
type PostingResponse struct {
	ID        string          `json:"id"`
	LineNo    int             `json:"line_no"`
	AccountID string          `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Notes     string          `json:"notes,omitempty"`
}

// EntryResponse represents a journal entry in API responses.
type EntryResponse struct {
	ID          string            `json:"id"`
	EntryNumber int64             `json:"entry_number"`
	Date        string            `json:"date"`
	Description string            `json:"description"`
	Status      string            `json:"status"`
	RelatedType string            `json:"related_type,omitempty"`
	RelatedID   string            `json:"related_id,omitempty"`
	Branch      string            `json:"branch,omitempty"`
	PostedAt    *time.Time        `json:"posted_at,omitempty"`
	CreatedBy   string            `json:"created_by,omitempty"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Balanced    bool              `json:"balanced"`
	Version     int64             `json:"version"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Postings    []PostingResponse `json:"postings"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.JournalEntry) *EntryResponse {
	debit, credit := e.Totals()
	postings := make([]PostingResponse, len(e.Postings))
	for i, p := range e.Postings {
		postings[i] = PostingResponse{
			ID:        p.ID,
			LineNo:    p.LineNo,
			AccountID: p.AccountID,
			Debit:     p.Debit,
			Credit:    p.Credit,
			Notes:     p.Notes,
		}
	}
	return &EntryResponse{
		ID:          e.ID,
		EntryNumber: e.EntryNumber,
		Date:        e.Date.Format(DateLayout),
		Description: e.Description,
		Status:      string(e.Status),
		RelatedType: string(e.RelatedType),
		RelatedID:   e.RelatedID,
		Branch:      e.Branch,
		PostedAt:    e.PostedAt,
		CreatedBy:   e.CreatedBy,
		TotalDebit:  debit,
		TotalCredit: credit,
		Balanced:    domain.WithinEpsilon(debit, credit),
		Version:     e.Version,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		Postings:    postings,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.JournalEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// ListEntriesResponse represents a filtered page of entries.
type ListEntriesResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Total   int64            `json:"total"`
}

// SubmitEntryResponse identifies the entry booked for a document.
type SubmitEntryResponse struct {
	EntryID     string `json:"entry_id"`
	EntryNumber int64  `json:"entry_number"`
	Status      string `json:"status"`
	Created     bool   `json:"created"`
}

// SubmitEntryFromResult converts a linkage result to response.
func SubmitEntryFromResult(r *usecase.SubmitEntryResult) *SubmitEntryResponse {
	return &SubmitEntryResponse{
		EntryID:     r.EntryID,
		EntryNumber: r.EntryNumber,
		Status:      string(r.Status),
		Created:     r.Created,
	}
}

// PeriodResponse represents an accounting period in API responses.
type PeriodResponse struct {
	Key       string     `json:"key"`
	Status    string     `json:"status"`
	UpdatedBy string     `json:"updated_by,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// PeriodFromDomain converts domain period to response.
func PeriodFromDomain(p *domain.Period) *PeriodResponse {
	resp := &PeriodResponse{Key: p.Key, Status: string(p.Status), UpdatedBy: p.UpdatedBy}
	if !p.UpdatedAt.IsZero() {
		at := p.UpdatedAt
		resp.UpdatedAt = &at
	}
	return resp
}

// PeriodsFromDomain converts domain periods to responses.
func PeriodsFromDomain(periods []*domain.Period) []*PeriodResponse {
	result := make([]*PeriodResponse, len(periods))
	for i, p := range periods {
		result[i] = PeriodFromDomain(p)
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}
