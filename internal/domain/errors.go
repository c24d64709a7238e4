package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every business error wraps exactly one of these.
var (
	ErrUnbalanced    = errors.New("entry is not balanced")
	ErrInvalidState  = errors.New("invalid state transition")
	ErrPeriodClosed  = errors.New("period is closed")
	ErrReadOnly      = errors.New("entry is read-only")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrHasDependents = errors.New("has dependents")
	ErrConflict      = errors.New("concurrent modification")
	ErrUnavailable   = errors.New("storage unavailable")
	ErrValidation    = errors.New("validation failed")
)

var (
	// Account errors
	ErrAccountNotFound      = fmt.Errorf("%w: account", ErrNotFound)
	ErrAccountCodeTaken     = fmt.Errorf("%w: account code already in use", ErrConflict)
	ErrManualEntryForbidden = fmt.Errorf("%w: account does not allow manual entries", ErrValidation)
	ErrAccountHasPostings   = fmt.Errorf("%w: account has postings", ErrHasDependents)
	ErrAccountHasChildren   = fmt.Errorf("%w: account has child accounts", ErrHasDependents)

	// Journal errors
	ErrEntryNotFound     = fmt.Errorf("%w: journal entry", ErrNotFound)
	ErrEntryNotDraft     = fmt.Errorf("%w: entry is not a draft", ErrInvalidState)
	ErrEntryNotPosted    = fmt.Errorf("%w: entry is not posted", ErrInvalidState)
	ErrPostedNotDeleted  = fmt.Errorf("%w: posted entries must be returned to draft first, then deleted", ErrInvalidState)
	ErrReasonRequired    = fmt.Errorf("%w: a reason is required", ErrValidation)
	ErrNoPostings        = fmt.Errorf("%w: entry has no postings", ErrValidation)
	ErrNegativeAmount    = fmt.Errorf("%w: debit and credit must not be negative", ErrValidation)
	ErrStaleEntryVersion = fmt.Errorf("%w: entry was modified by another request", ErrConflict)

	// Period errors
	ErrPeriodNotFound = fmt.Errorf("%w: period", ErrNotFound)
)

// ErrorKind is the stable name of an error category.
type ErrorKind string

const (
	KindUnbalanced    ErrorKind = "unbalanced"
	KindInvalidState  ErrorKind = "invalid_state"
	KindPeriodClosed  ErrorKind = "period_closed"
	KindReadOnly      ErrorKind = "read_only"
	KindForbidden     ErrorKind = "forbidden"
	KindNotFound      ErrorKind = "not_found"
	KindHasDependents ErrorKind = "has_dependents"
	KindConflict      ErrorKind = "conflict"
	KindUnavailable   ErrorKind = "unavailable"
	KindValidation    ErrorKind = "validation"
	KindInternal      ErrorKind = "internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrUnbalanced, KindUnbalanced},
	{ErrInvalidState, KindInvalidState},
	{ErrPeriodClosed, KindPeriodClosed},
	{ErrReadOnly, KindReadOnly},
	{ErrForbidden, KindForbidden},
	{ErrNotFound, KindNotFound},
	{ErrHasDependents, KindHasDependents},
	{ErrConflict, KindConflict},
	{ErrUnavailable, KindUnavailable},
	{ErrValidation, KindValidation},
}

// KindOf returns the category of err, or KindInternal for unknown errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsBusinessError reports whether err belongs to a known kind.
func IsBusinessError(err error) bool {
	k := KindOf(err)
	return k != "" && k != KindInternal
}
