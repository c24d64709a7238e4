package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gojournal/internal/domain"
)

// ReconciliationUseCase checks running balances against the posting log.
type ReconciliationUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	ledgerRepo  LedgerRepository
	authorizer  Authorizer
	rec         recorder
	opts        options
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	ledgerRepo LedgerRepository,
	auditRepo AuditRepository,
	authorizer Authorizer,
	idGen IDGenerator,
	opts ...Option,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		authorizer:  authorizer,
		rec:         recorder{auditRepo: auditRepo, idGen: idGen},
		opts:        buildOptions(opts),
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	AccountID         string          `json:"account_id"`
	AccountCode       string          `json:"account_code"`
	RecordedBalance   decimal.Decimal `json:"recorded_balance"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	Difference        decimal.Decimal `json:"difference"`
	IsReconciled      bool            `json:"is_reconciled"`
	LastChecked       time.Time       `json:"last_checked"`
}

// ReconcileAccount compares an account's running balance with its opening
// balance plus the net of every posted or reversed entry touching it.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, accountID string) (*ReconciliationResult, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, classify(err)
	}

	movement, err := uc.ledgerRepo.AccountMovement(ctx, accountID)
	if err != nil {
		return nil, classify(err)
	}

	return uc.compare(account, movement), nil
}

// ReconcileAllAccounts reconciles all accounts in the system
func (uc *ReconciliationUseCase) ReconcileAllAccounts(ctx context.Context) ([]*ReconciliationResult, error) {
	accounts, err := uc.accountRepo.ListAll(ctx)
	if err != nil {
		return nil, classify(err)
	}

	movements, err := uc.ledgerRepo.AccountMovements(ctx)
	if err != nil {
		return nil, classify(err)
	}
	byAccount := make(map[string]domain.AccountMovement, len(movements))
	for _, m := range movements {
		byAccount[m.AccountID] = m
	}

	results := make([]*ReconciliationResult, 0, len(accounts))
	for _, account := range accounts {
		movement, ok := byAccount[account.ID]
		if !ok {
			movement = domain.AccountMovement{AccountID: account.ID}
		}
		results = append(results, uc.compare(account, movement))
	}

	return results, nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalAccounts      int                     `json:"total_accounts"`
	ReconciledAccounts int                     `json:"reconciled_accounts"`
	Discrepancies      []*ReconciliationResult `json:"discrepancies"`
	LedgerConsistent   bool                    `json:"ledger_consistent"`
	CheckedAt          time.Time               `json:"checked_at"`
}

// GenerateReconciliationReport generates a comprehensive reconciliation report
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	results, err := uc.ReconcileAllAccounts(ctx)
	if err != nil {
		return nil, err
	}

	debits, credits, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return nil, classify(err)
	}

	report := &ReconciliationReport{
		TotalAccounts:    len(results),
		Discrepancies:    make([]*ReconciliationResult, 0),
		LedgerConsistent: domain.WithinEpsilon(debits, credits),
		CheckedAt:        uc.opts.now(),
	}

	for _, result := range results {
		if result.IsReconciled {
			report.ReconciledAccounts++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}

// RepairAccount rewrites an account's running balance from the posting log.
func (uc *ReconciliationUseCase) RepairAccount(ctx context.Context, accountID string) (*ReconciliationResult, error) {
	var result *ReconciliationResult
	err := runInTx(ctx, uc.txManager, uc.opts.retrier, func(ctx context.Context, tx Transaction) error {
		if err := authorize(ctx, uc.authorizer, domain.ActionAccountsManage, ""); err != nil {
			return err
		}

		account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}
		movement, err := uc.ledgerRepo.AccountMovementInTx(ctx, tx, accountID)
		if err != nil {
			return err
		}

		result = uc.compare(account, movement)
		if result.IsReconciled {
			return nil
		}

		now := uc.opts.now()
		if err := uc.accountRepo.UpdateBalance(ctx, tx, account.ID, result.CalculatedBalance, now); err != nil {
			return err
		}

		if err := uc.rec.audit(ctx, tx, auditRecord{
			action:       domain.AuditActionAccountRepair,
			resourceType: domain.ResourceTypeAccount,
			resourceID:   account.ID,
			before:       map[string]any{"balance": result.RecordedBalance.String()},
			after:        map[string]any{"balance": result.CalculatedBalance.String()},
		}); err != nil {
			return fmt.Errorf("audit repair of %s: %w", account.ID, err)
		}

		result.RecordedBalance = result.CalculatedBalance
		result.Difference = decimal.Zero
		result.IsReconciled = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.opts.metrics != nil {
		uc.opts.metrics.BalanceDrift.WithLabelValues(result.AccountCode).Set(0)
	}
	invalidateReports(ctx, uc.opts.invalidator)
	return result, nil
}

func (uc *ReconciliationUseCase) compare(account *domain.Account, movement domain.AccountMovement) *ReconciliationResult {
	calculated := account.OpeningBalance.Add(account.SignedAmount(movement.Debit, movement.Credit))
	difference := account.Balance.Sub(calculated)

	result := &ReconciliationResult{
		AccountID:         account.ID,
		AccountCode:       account.Code,
		RecordedBalance:   account.Balance,
		CalculatedBalance: calculated,
		Difference:        difference,
		IsReconciled:      domain.WithinEpsilon(account.Balance, calculated),
		LastChecked:       uc.opts.now(),
	}

	if uc.opts.metrics != nil {
		uc.opts.metrics.BalanceDrift.WithLabelValues(account.Code).Set(difference.InexactFloat64())
	}
	return result
}
