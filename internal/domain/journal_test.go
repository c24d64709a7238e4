package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestJournalEntry_CheckBalanced(t *testing.T) {
	tests := []struct {
		name     string
		postings []Posting
		wantErr  bool
	}{
		{
			name: "balanced",
			postings: []Posting{
				{AccountID: "cash", Debit: dec("100")},
				{AccountID: "revenue", Credit: dec("100")},
			},
		},
		{
			name: "difference below epsilon",
			postings: []Posting{
				{AccountID: "cash", Debit: dec("100.00005")},
				{AccountID: "revenue", Credit: dec("100")},
			},
		},
		{
			name: "difference equal to epsilon",
			postings: []Posting{
				{AccountID: "cash", Debit: dec("100.0001")},
				{AccountID: "revenue", Credit: dec("100")},
			},
			wantErr: true,
		},
		{
			name: "unbalanced",
			postings: []Posting{
				{AccountID: "cash", Debit: dec("100")},
				{AccountID: "revenue", Credit: dec("90")},
			},
			wantErr: true,
		},
		{
			name: "both sides on one line",
			postings: []Posting{
				{AccountID: "cash", Debit: dec("10"), Credit: dec("10")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &JournalEntry{Postings: tt.postings}
			err := e.CheckBalanced()
			if tt.wantErr {
				if !errors.Is(err, ErrUnbalanced) {
					t.Fatalf("expected ErrUnbalanced, got %v", err)
				}
				if e.IsBalanced() {
					t.Fatal("IsBalanced disagrees with CheckBalanced")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected balanced entry, got %v", err)
			}
		})
	}
}

func TestJournalEntry_AccountIDs(t *testing.T) {
	e := &JournalEntry{Postings: []Posting{
		{AccountID: "b"}, {AccountID: "a"}, {AccountID: "b"},
	}}

	ids := e.AccountIDs()
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "a" {
		t.Fatalf("expected distinct ids in order of appearance, got %v", ids)
	}
}

func TestJournalEntry_IsReadOnly(t *testing.T) {
	postedAt := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	e := &JournalEntry{PostedAt: &postedAt}

	tests := []struct {
		name string
		now  time.Time
		days int
		want bool
	}{
		{"rule disabled", postedAt.AddDate(1, 0, 0), 0, false},
		{"within threshold", postedAt.AddDate(0, 0, 30), 30, false},
		{"past threshold", postedAt.AddDate(0, 0, 31), 30, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.IsReadOnly(tt.now, tt.days); got != tt.want {
				t.Errorf("IsReadOnly = %v, want %v", got, tt.want)
			}
		})
	}

	draft := &JournalEntry{}
	if draft.IsReadOnly(postedAt, 1) {
		t.Error("unposted entry must not be read-only")
	}
}

func TestMirrorPostings(t *testing.T) {
	original := []Posting{
		{ID: "p1", AccountID: "cash", Debit: dec("100"), Notes: "sale"},
		{ID: "p2", AccountID: "revenue", Credit: dec("100")},
	}

	mirrored := MirrorPostings(original)

	if len(mirrored) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(mirrored))
	}
	if !mirrored[0].Credit.Equal(dec("100")) || !mirrored[0].Debit.IsZero() {
		t.Errorf("expected cash line to become a credit, got %+v", mirrored[0])
	}
	if !mirrored[1].Debit.Equal(dec("100")) || !mirrored[1].Credit.IsZero() {
		t.Errorf("expected revenue line to become a debit, got %+v", mirrored[1])
	}
	if mirrored[0].ID != "" || mirrored[0].Notes != "sale" || mirrored[1].LineNo != 2 {
		t.Errorf("expected fresh ids, kept notes and renumbered lines, got %+v", mirrored)
	}
}

func TestRelatedType(t *testing.T) {
	if !RelatedTypeNone.IsManual() || !RelatedTypeManual.IsManual() {
		t.Error("empty and manual types are manual")
	}
	if RelatedTypeInvoice.IsManual() {
		t.Error("invoice is not manual")
	}
	if !RelatedTypePayrollRun.IsDocument() {
		t.Error("payroll run references a document")
	}
	if RelatedTypeReversal.IsDocument() || RelatedType("bogus").IsDocument() {
		t.Error("reversal and unknown types are not documents")
	}
}

func TestPeriodKeyFor(t *testing.T) {
	e := &JournalEntry{Date: time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)}
	if got := e.PeriodKey(); got != "2025-03" {
		t.Fatalf("expected 2025-03, got %s", got)
	}

	if err := ValidatePeriodKey("2025-13"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for bad month, got %v", err)
	}
	if err := ValidatePeriodKey("2025-01"); err != nil {
		t.Fatalf("expected valid key, got %v", err)
	}

	closed := &Period{Key: "2025-01", Status: PeriodStatusClosed}
	if !closed.IsClosed() || OpenPeriod("2025-02").IsClosed() {
		t.Error("unexpected period status")
	}
}
