package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxAccountNameLength = 255
	MinAccountNameLength = 1
	MaxAccountCodeLength = 32
	MaxDescriptionLength = 1000
	MaxNotesLength       = 500
	MaxPostingsPerEntry  = 500
	MaxPostingAmount     = "1000000000000" // 1 trillion

	// MaxAmountScale is the number of decimal places stored for money.
	MaxAmountScale = 4
)

var accountCodeRegex = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z.\-]*$`)

// ValidateAccountName validates account name
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)

	if utf8.RuneCountInString(name) < MinAccountNameLength {
		return fmt.Errorf("%w: account name cannot be empty", ErrValidation)
	}

	if utf8.RuneCountInString(name) > MaxAccountNameLength {
		return fmt.Errorf("%w: account name exceeds %d characters", ErrValidation, MaxAccountNameLength)
	}

	return nil
}

// ValidateAccountCode validates an account code
func ValidateAccountCode(code string) error {
	if len(code) > MaxAccountCodeLength {
		return fmt.Errorf("%w: account code exceeds %d characters", ErrValidation, MaxAccountCodeLength)
	}

	if !accountCodeRegex.MatchString(code) {
		return fmt.Errorf("%w: account code %q must be alphanumeric", ErrValidation, code)
	}

	return nil
}

// ValidateAccountClass validates an account's type and nature pair
func ValidateAccountClass(t AccountType, n Nature) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: unknown account type %q", ErrValidation, t)
	}

	if !n.IsValid() {
		return fmt.Errorf("%w: unknown account nature %q", ErrValidation, n)
	}

	return nil
}

// ValidatePostingAmounts checks that a posting's amounts are usable.
// A line carrying both a debit and a credit is accepted.
func ValidatePostingAmounts(debit, credit decimal.Decimal) error {
	if debit.IsNegative() || credit.IsNegative() {
		return ErrNegativeAmount
	}

	maxAmount, _ := decimal.NewFromString(MaxPostingAmount)
	if debit.GreaterThan(maxAmount) || credit.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrValidation, MaxPostingAmount)
	}

	if err := ValidateAmountScale(debit); err != nil {
		return err
	}
	return ValidateAmountScale(credit)
}

// ValidateAmountScale rejects amounts with more than MaxAmountScale
// significant decimal places. Trailing zeros are fine.
func ValidateAmountScale(amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(MaxAmountScale)) {
		return fmt.Errorf("%w: amount %s has more than %d decimal places", ErrValidation, amount, MaxAmountScale)
	}
	return nil
}

// ValidatePostings validates every line of an entry
func ValidatePostings(postings []Posting) error {
	if len(postings) > MaxPostingsPerEntry {
		return fmt.Errorf("%w: entry exceeds %d postings", ErrValidation, MaxPostingsPerEntry)
	}

	for i, p := range postings {
		if strings.TrimSpace(p.AccountID) == "" {
			return fmt.Errorf("%w: posting %d has no account", ErrValidation, i+1)
		}

		if err := ValidatePostingAmounts(p.Debit, p.Credit); err != nil {
			return fmt.Errorf("posting %d: %w", i+1, err)
		}

		if utf8.RuneCountInString(p.Notes) > MaxNotesLength {
			return fmt.Errorf("%w: posting %d notes exceed %d characters", ErrValidation, i+1, MaxNotesLength)
		}
	}

	return nil
}

// ValidateDescription validates an entry description
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLength)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
