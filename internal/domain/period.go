package domain

import (
	"fmt"
	"time"
)

const periodKeyLayout = "2006-01"

// PeriodStatus is whether postings may touch a period.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "open"
	PeriodStatusClosed PeriodStatus = "closed"
)

// Period is a monthly accounting window.
type Period struct {
	Key       string
	Status    PeriodStatus
	UpdatedBy string
	UpdatedAt time.Time
}

// IsClosed reports whether the period blocks posting-affecting mutations.
func (p *Period) IsClosed() bool {
	return p != nil && p.Status == PeriodStatusClosed
}

// PeriodKeyFor returns the period key containing t.
func PeriodKeyFor(t time.Time) string {
	return t.Format(periodKeyLayout)
}

// ValidatePeriodKey checks that key has the YYYY-MM form.
func ValidatePeriodKey(key string) error {
	if _, err := time.Parse(periodKeyLayout, key); err != nil {
		return fmt.Errorf("%w: period key %q must be YYYY-MM", ErrValidation, key)
	}
	return nil
}

// OpenPeriod returns the implicit status of a period that was never registered.
func OpenPeriod(key string) *Period {
	return &Period{Key: key, Status: PeriodStatusOpen}
}
