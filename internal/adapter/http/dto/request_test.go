package dto

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gojournal/internal/domain"
)

func TestCreateAccountRequest_ToUseCaseInput(t *testing.T) {
	parent := "acc-parent"
	manual := false
	req := &CreateAccountRequest{
		Code:             "1110",
		Name:             "Cash",
		Type:             "cash",
		ParentID:         &parent,
		OpeningBalance:   decimal.RequireFromString("10.50"),
		AllowManualEntry: &manual,
	}

	got := req.ToUseCaseInput()
	if got.Code != "1110" || got.Name != "Cash" || got.Type != domain.AccountTypeCash {
		t.Fatalf("unexpected input %+v", got)
	}
	if got.Nature != "" {
		t.Fatalf("nature must stay empty so the type default applies, got %q", got.Nature)
	}
	if got.ParentID == nil || *got.ParentID != parent {
		t.Fatalf("expected parent %q, got %v", parent, got.ParentID)
	}
	if !got.OpeningBalance.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("unexpected opening balance %s", got.OpeningBalance)
	}
	if got.AllowManualEntry == nil || *got.AllowManualEntry {
		t.Fatalf("expected manual entry flag false, got %v", got.AllowManualEntry)
	}
}

func TestUpdateAccountRequest_ToUseCaseInput(t *testing.T) {
	typ := "revenue"
	nature := "credit"
	req := &UpdateAccountRequest{Type: &typ, Nature: &nature}

	got := req.ToUseCaseInput()
	if got.Type == nil || *got.Type != domain.AccountTypeRevenue {
		t.Fatalf("unexpected type %v", got.Type)
	}
	if got.Nature == nil || *got.Nature != domain.NatureCredit {
		t.Fatalf("unexpected nature %v", got.Nature)
	}
	if got.Name != nil || got.Code != nil {
		t.Fatalf("absent fields must stay nil: %+v", got)
	}
}

func TestCreateEntryRequest_ToUseCaseInput(t *testing.T) {
	req := &CreateEntryRequest{
		Date:        "2024-11-05",
		Description: "Rent",
		RelatedType: "manual",
		Branch:      "north",
		Postings: []PostingRequest{
			{AccountID: "rent", Debit: decimal.RequireFromString("40")},
			{AccountID: "cash", Credit: decimal.RequireFromString("40"), Notes: "cheque 12"},
		},
	}

	got, err := req.ToUseCaseInput()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Date.Equal(time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %s", got.Date)
	}
	if got.RelatedType != domain.RelatedTypeManual || got.Branch != "north" {
		t.Fatalf("unexpected input %+v", got)
	}
	if len(got.Postings) != 2 || got.Postings[1].Notes != "cheque 12" {
		t.Fatalf("unexpected postings %+v", got.Postings)
	}
}

func TestUpdateEntryRequest_KeepsPostingsNilWhenAbsent(t *testing.T) {
	desc := "fixed"
	got, err := (&UpdateEntryRequest{Description: &desc}).ToUseCaseInput()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Postings != nil {
		t.Fatalf("absent postings must not replace lines, got %+v", got.Postings)
	}
	if got.Date != nil {
		t.Fatalf("absent date must stay nil")
	}

	bad := "05/11/2024"
	if _, err := (&UpdateEntryRequest{Date: &bad}).ToUseCaseInput(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     any
		wantErr string
	}{
		{
			name: "valid account",
			req:  &CreateAccountRequest{Name: "Cash", Type: "cash"},
		},
		{
			name:    "account without name",
			req:     &CreateAccountRequest{Type: "cash"},
			wantErr: "Name",
		},
		{
			name:    "unknown account type",
			req:     &CreateAccountRequest{Name: "X", Type: "stock"},
			wantErr: "Type",
		},
		{
			name:    "entry with bad date",
			req:     &CreateEntryRequest{Date: "2024-13-40"},
			wantErr: "Date",
		},
		{
			name: "entry posting without account",
			req: &CreateEntryRequest{
				Date:     "2024-01-01",
				Postings: []PostingRequest{{Debit: decimal.NewFromInt(1)}},
			},
			wantErr: "AccountID",
		},
		{
			name:    "entry cannot claim reversal",
			req:     &CreateEntryRequest{Date: "2024-01-01", RelatedType: "reversal"},
			wantErr: "RelatedType",
		},
		{
			name: "document without related id",
			req: &SubmitEntryRequest{
				Date:        "2024-01-01",
				RelatedType: "invoice",
				Postings:    []PostingRequest{{AccountID: "a"}},
			},
			wantErr: "RelatedID",
		},
		{
			name: "document cannot be manual",
			req: &SubmitEntryRequest{
				Date:        "2024-01-01",
				RelatedType: "manual",
				RelatedID:   "M-1",
				Postings:    []PostingRequest{{AccountID: "a"}},
			},
			wantErr: "RelatedType",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error to mention %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("")
	if err != nil || !got.IsZero() {
		t.Fatalf("expected zero time for empty input, got %v %v", got, err)
	}
	if _, err := ParseDate("yesterday"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
