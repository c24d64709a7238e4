package dto

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags on a request and reports failures as
// domain.ErrValidation.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: invalid fields: %s", domain.ErrValidation, strings.Join(fields, ", "))
}

// ParseDate parses a YYYY-MM-DD date. An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", domain.ErrValidation, s)
	}
	return t, nil
}

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Code             string          `json:"code"              validate:"omitempty,max=32"`
	Name             string          `json:"name"              validate:"required,max=200"`
	Type             string          `json:"type"              validate:"required,oneof=asset liability equity revenue expense cash bank system"`
	Nature           string          `json:"nature"            validate:"omitempty,oneof=debit credit"`
	ParentID         *string         `json:"parent_id"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	AllowManualEntry *bool           `json:"allow_manual_entry"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Code:             r.Code,
		Name:             r.Name,
		Type:             domain.AccountType(r.Type),
		Nature:           domain.Nature(r.Nature),
		ParentID:         r.ParentID,
		OpeningBalance:   r.OpeningBalance,
		AllowManualEntry: r.AllowManualEntry,
	}
}

// UpdateAccountRequest patches an account. Absent fields stay unchanged.
type UpdateAccountRequest struct {
	Code             *string          `json:"code"   validate:"omitempty,min=1,max=32"`
	Name             *string          `json:"name"   validate:"omitempty,min=1,max=200"`
	Type             *string          `json:"type"   validate:"omitempty,oneof=asset liability equity revenue expense cash bank system"`
	Nature           *string          `json:"nature" validate:"omitempty,oneof=debit credit"`
	ParentID         *string          `json:"parent_id"`
	OpeningBalance   *decimal.Decimal `json:"opening_balance"`
	AllowManualEntry *bool            `json:"allow_manual_entry"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateAccountRequest) ToUseCaseInput() usecase.UpdateAccountInput {
	input := usecase.UpdateAccountInput{
		Code:             r.Code,
		Name:             r.Name,
		ParentID:         r.ParentID,
		OpeningBalance:   r.OpeningBalance,
		AllowManualEntry: r.AllowManualEntry,
	}
	if r.Type != nil {
		t := domain.AccountType(*r.Type)
		input.Type = &t
	}
	if r.Nature != nil {
		n := domain.Nature(*r.Nature)
		input.Nature = &n
	}
	return input
}

// PostingRequest is one line of an entry request.
type PostingRequest struct {
	AccountID string          `json:"account_id" validate:"required"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Notes     string          `json:"notes"      validate:"max=500"`
}

func postingInputs(postings []PostingRequest) []usecase.PostingInput {
	if postings == nil {
		return nil
	}
	inputs := make([]usecase.PostingInput, len(postings))
	for i, p := range postings {
		inputs[i] = usecase.PostingInput{
			AccountID: p.AccountID,
			Debit:     p.Debit,
			Credit:    p.Credit,
			Notes:     p.Notes,
		}
	}
	return inputs
}

// CreateEntryRequest represents a request to create a draft entry.
type CreateEntryRequest struct {
	Date        string           `json:"date"         validate:"required,datetime=2006-01-02"`
	Description string           `json:"description"  validate:"max=500"`
	RelatedType string           `json:"related_type" validate:"omitempty,oneof=invoice supplier_invoice expense_invoice payroll_run opening manual"`
	RelatedID   string           `json:"related_id"   validate:"max=100"`
	Branch      string           `json:"branch"       validate:"max=64"`
	Postings    []PostingRequest `json:"postings"     validate:"dive"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateEntryRequest) ToUseCaseInput() (usecase.CreateDraftInput, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return usecase.CreateDraftInput{}, err
	}
	return usecase.CreateDraftInput{
		Date:        date,
		Description: r.Description,
		Postings:    postingInputs(r.Postings),
		RelatedType: domain.RelatedType(r.RelatedType),
		RelatedID:   r.RelatedID,
		Branch:      r.Branch,
	}, nil
}

// UpdateEntryRequest patches a draft entry. A present postings array
// replaces every line.
type UpdateEntryRequest struct {
	Version     *int64           `json:"version"`
	Date        *string          `json:"date"        validate:"omitempty,datetime=2006-01-02"`
	Description *string          `json:"description" validate:"omitempty,max=500"`
	Branch      *string          `json:"branch"      validate:"omitempty,max=64"`
	Postings    []PostingRequest `json:"postings"    validate:"omitempty,dive"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateEntryRequest) ToUseCaseInput() (usecase.UpdateDraftInput, error) {
	input := usecase.UpdateDraftInput{
		ExpectedVersion: r.Version,
		Description:     r.Description,
		Branch:          r.Branch,
		Postings:        postingInputs(r.Postings),
	}
	if r.Date != nil {
		date, err := ParseDate(*r.Date)
		if err != nil {
			return usecase.UpdateDraftInput{}, err
		}
		input.Date = &date
	}
	return input, nil
}

// ReasonRequest carries the justification of a delete or return-to-draft.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// SubmitEntryRequest is a document's request for a journal entry.
type SubmitEntryRequest struct {
	Date        string           `json:"date"         validate:"required,datetime=2006-01-02"`
	Description string           `json:"description"  validate:"max=500"`
	RelatedType string           `json:"related_type" validate:"required,oneof=invoice supplier_invoice expense_invoice payroll_run opening"`
	RelatedID   string           `json:"related_id"   validate:"required,max=100"`
	Branch      string           `json:"branch"       validate:"max=64"`
	AutoPost    bool             `json:"auto_post"`
	Postings    []PostingRequest `json:"postings"     validate:"required,min=1,dive"`
}

// ToUseCaseInput converts to use case input.
func (r *SubmitEntryRequest) ToUseCaseInput() (usecase.SubmitEntryInput, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return usecase.SubmitEntryInput{}, err
	}
	return usecase.SubmitEntryInput{
		Date:        date,
		Description: r.Description,
		Postings:    postingInputs(r.Postings),
		RelatedType: domain.RelatedType(r.RelatedType),
		RelatedID:   r.RelatedID,
		Branch:      r.Branch,
		AutoPost:    r.AutoPost,
	}, nil
}
