package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gojournal/internal/domain"
)

// ErrInconsistentLedger is returned when debits and credits of the posting log differ.
var ErrInconsistentLedger = fmt.Errorf("%w: ledger is inconsistent, debits do not equal credits", domain.ErrUnbalanced)

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	ledgerRepo LedgerRepository
	opts       options
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(ledgerRepo LedgerRepository, opts ...Option) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo: ledgerRepo,
		opts:       buildOptions(opts),
	}
}

// ConsistencyReport summarizes the posting log of every posted or reversed entry.
type ConsistencyReport struct {
	TotalDebits  decimal.Decimal `json:"total_debits"`
	TotalCredits decimal.Decimal `json:"total_credits"`
	Difference   decimal.Decimal `json:"difference"`
	Consistent   bool            `json:"consistent"`
	CheckedAt    time.Time       `json:"checked_at"`
}

// CheckConsistency verifies that total debits equal total credits within epsilon.
// An inconsistent ledger returns the report together with ErrInconsistentLedger.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	debits, credits, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return nil, classify(err)
	}

	report := &ConsistencyReport{
		TotalDebits:  debits,
		TotalCredits: credits,
		Difference:   debits.Sub(credits),
		Consistent:   domain.WithinEpsilon(debits, credits),
		CheckedAt:    uc.opts.now(),
	}
	if !report.Consistent {
		return report, ErrInconsistentLedger
	}
	return report, nil
}
