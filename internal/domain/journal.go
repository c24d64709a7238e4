package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance used for all monetary comparisons.
var Epsilon = decimal.New(1, -4)

// EntryStatus is the lifecycle state of a journal entry.
type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "draft"
	EntryStatusPosted   EntryStatus = "posted"
	EntryStatusReversed EntryStatus = "reversed"
)

// IsValid reports whether s is a known status.
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusDraft, EntryStatusPosted, EntryStatusReversed:
		return true
	}
	return false
}

// RelatedType names the kind of document an entry was created for.
type RelatedType string

const (
	RelatedTypeNone            RelatedType = ""
	RelatedTypeInvoice         RelatedType = "invoice"
	RelatedTypeSupplierInvoice RelatedType = "supplier_invoice"
	RelatedTypeExpenseInvoice  RelatedType = "expense_invoice"
	RelatedTypePayrollRun      RelatedType = "payroll_run"
	RelatedTypeOpening         RelatedType = "opening"
	RelatedTypeManual          RelatedType = "manual"
	RelatedTypeReversal        RelatedType = "reversal"
)

var validRelatedTypes = map[RelatedType]bool{
	RelatedTypeNone:            true,
	RelatedTypeInvoice:         true,
	RelatedTypeSupplierInvoice: true,
	RelatedTypeExpenseInvoice:  true,
	RelatedTypePayrollRun:      true,
	RelatedTypeOpening:         true,
	RelatedTypeManual:          true,
	RelatedTypeReversal:        true,
}

// IsValid reports whether t is a known related type (empty included).
func (t RelatedType) IsValid() bool {
	return validRelatedTypes[t]
}

// IsManual reports whether entries of this type are keyed in by hand.
func (t RelatedType) IsManual() bool {
	return t == RelatedTypeNone || t == RelatedTypeManual
}

// IsDocument reports whether t references an external document.
func (t RelatedType) IsDocument() bool {
	return t.IsValid() && !t.IsManual() && t != RelatedTypeReversal
}

// JournalEntry is a dated financial transaction made of postings.
type JournalEntry struct {
	ID          string
	EntryNumber int64
	Date        time.Time
	Description string
	Status      EntryStatus
	RelatedType RelatedType
	RelatedID   string
	Branch      string
	PostedAt    *time.Time
	CreatedBy   string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Postings    []Posting
}

// Posting is one line of a journal entry.
type Posting struct {
	ID        string
	EntryID   string
	AccountID string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Notes     string
	LineNo    int
}

// Totals returns the summed debits and credits of the entry.
func (e *JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, p := range e.Postings {
		debit = debit.Add(p.Debit)
		credit = credit.Add(p.Credit)
	}
	return debit, credit
}

// IsBalanced reports whether debits equal credits within Epsilon.
func (e *JournalEntry) IsBalanced() bool {
	debit, credit := e.Totals()
	return WithinEpsilon(debit, credit)
}

// CheckBalanced returns ErrUnbalanced describing the difference, or nil.
func (e *JournalEntry) CheckBalanced() error {
	debit, credit := e.Totals()
	if WithinEpsilon(debit, credit) {
		return nil
	}
	return fmt.Errorf("%w: debit %s, credit %s", ErrUnbalanced, debit.String(), credit.String())
}

// AccountIDs returns the distinct account ids referenced by the postings.
func (e *JournalEntry) AccountIDs() []string {
	seen := make(map[string]bool, len(e.Postings))
	ids := make([]string, 0, len(e.Postings))
	for _, p := range e.Postings {
		if !seen[p.AccountID] {
			seen[p.AccountID] = true
			ids = append(ids, p.AccountID)
		}
	}
	return ids
}

// PeriodKey returns the key of the period the entry date falls in.
func (e *JournalEntry) PeriodKey() string {
	return PeriodKeyFor(e.Date)
}

// IsReadOnly reports whether the aging rule freezes a posted entry.
// readonlyDays of zero disables the rule.
func (e *JournalEntry) IsReadOnly(now time.Time, readonlyDays int) bool {
	if readonlyDays <= 0 || e.PostedAt == nil {
		return false
	}
	return now.Sub(*e.PostedAt) > time.Duration(readonlyDays)*24*time.Hour
}

// MirrorPostings returns copies of postings with debit and credit swapped.
func MirrorPostings(postings []Posting) []Posting {
	mirrored := make([]Posting, len(postings))
	for i, p := range postings {
		mirrored[i] = Posting{
			AccountID: p.AccountID,
			Debit:     p.Credit,
			Credit:    p.Debit,
			Notes:     p.Notes,
			LineNo:    i + 1,
		}
	}
	return mirrored
}

// WithinEpsilon reports whether a and b differ by less than Epsilon.
func WithinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Epsilon)
}

// EntryFilter narrows journal entry listings.
type EntryFilter struct {
	Status      EntryStatus
	From        *time.Time
	To          *time.Time
	AccountID   string
	Branch      string
	RelatedType RelatedType
	Search      string
	Limit       int
	Offset      int
}
