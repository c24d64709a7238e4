package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

func (f *fixture) reconciliationUseCase(opts ...usecase.Option) *usecase.ReconciliationUseCase {
	opts = append([]usecase.Option{usecase.WithNow(f.clock.Now)}, opts...)
	return usecase.NewReconciliationUseCase(f.store, f.accounts, f.ledger, f.audit, nil, f.idGen, opts...)
}

func TestReconciliation_DerivedBalancesMatchAfterLifecycle(t *testing.T) {
	f := newFixture(t)
	journal := f.journalUseCase(nil)
	ctx := context.Background()

	mustPost := func(in usecase.CreateDraftInput) string {
		t.Helper()
		draft, err := journal.CreateDraft(ctx, in)
		if err != nil {
			t.Fatalf("create draft: %v", err)
		}
		if _, err := journal.Post(ctx, draft.ID); err != nil {
			t.Fatalf("post: %v", err)
		}
		return draft.ID
	}

	sale := mustPost(saleInput("100"))
	rent := mustPost(rentInput("30", "main", 12))
	mustPost(saleInput("12.5"))

	if _, err := journal.Reverse(ctx, sale); err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if _, err := journal.ReturnToDraft(ctx, rent, "wrong amount"); err != nil {
		t.Fatalf("return to draft: %v", err)
	}
	if _, err := journal.UpdateDraft(ctx, rent, usecase.UpdateDraftInput{
		Postings: []usecase.PostingInput{line(expenseID, "45", "0"), line(cashID, "0", "45")},
	}); err != nil {
		t.Fatalf("update draft: %v", err)
	}
	if _, err := journal.Post(ctx, rent); err != nil {
		t.Fatalf("re-post: %v", err)
	}
	// An unposted draft must not count.
	if _, err := journal.CreateDraft(ctx, saleInput("999")); err != nil {
		t.Fatalf("create draft: %v", err)
	}

	uc := f.reconciliationUseCase()
	report, err := uc.GenerateReconciliationReport(ctx)
	if err != nil {
		t.Fatalf("GenerateReconciliationReport() error = %v", err)
	}

	if !report.LedgerConsistent {
		t.Error("expected consistent ledger")
	}
	if report.TotalAccounts != 4 {
		t.Errorf("TotalAccounts = %d, want 4", report.TotalAccounts)
	}
	if len(report.Discrepancies) != 0 {
		for _, d := range report.Discrepancies {
			t.Errorf("account %s drifted: recorded %s, calculated %s", d.AccountCode, d.RecordedBalance, d.CalculatedBalance)
		}
	}

	wantCash := dec("-32.5")
	if got := f.balance(t, cashID); !got.Equal(wantCash) {
		t.Errorf("cash balance = %s, want %s", got, wantCash)
	}
}

func TestReconciliation_DetectsAndRepairsDrift(t *testing.T) {
	f := newFixture(t)
	journal := f.journalUseCase(nil)
	ctx := context.Background()

	draft, err := journal.CreateDraft(ctx, saleInput("100"))
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if _, err := journal.Post(ctx, draft.ID); err != nil {
		t.Fatalf("post: %v", err)
	}

	drifted := f.store.Account(revenueID)
	drifted.Balance = dec("97")
	f.store.SeedAccount(drifted)

	uc := f.reconciliationUseCase()

	result, err := uc.ReconcileAccount(ctx, revenueID)
	if err != nil {
		t.Fatalf("ReconcileAccount() error = %v", err)
	}
	if result.IsReconciled {
		t.Fatal("expected drift to be detected")
	}
	if !result.Difference.Equal(dec("-3")) {
		t.Errorf("Difference = %s, want -3", result.Difference)
	}
	if !result.CalculatedBalance.Equal(dec("100")) {
		t.Errorf("CalculatedBalance = %s, want 100", result.CalculatedBalance)
	}

	repaired, err := uc.RepairAccount(ctx, revenueID)
	if err != nil {
		t.Fatalf("RepairAccount() error = %v", err)
	}
	if !repaired.IsReconciled || !repaired.Difference.IsZero() {
		t.Errorf("repaired result = %+v", repaired)
	}
	if got := f.balance(t, revenueID); !got.Equal(dec("100")) {
		t.Errorf("revenue balance = %s, want 100", got)
	}

	logs, err := f.audit.GetByResourceID(ctx, domain.ResourceTypeAccount, revenueID)
	if err != nil {
		t.Fatalf("audit lookup: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != string(domain.AuditActionAccountRepair) {
		t.Errorf("expected one repair audit, got %+v", logs)
	}

	// A reconciled account is left untouched.
	if _, err := uc.RepairAccount(ctx, cashID); err != nil {
		t.Fatalf("RepairAccount(cash) error = %v", err)
	}
	logs, _ = f.audit.GetByResourceID(ctx, domain.ResourceTypeAccount, cashID)
	if len(logs) != 0 {
		t.Errorf("expected no audit for a reconciled account, got %d", len(logs))
	}
}

func TestReconciliation_RepairReadsLogInsideTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drifted := f.store.Account(cashID)
	drifted.Balance = dec("42")
	f.store.SeedAccount(drifted)

	var seen usecase.Transaction
	f.ledger.AccountMovementInTxFunc = func(_ context.Context, tx usecase.Transaction, accountID string) error {
		seen = tx
		if accountID != cashID {
			t.Errorf("accountID = %s, want %s", accountID, cashID)
		}
		return nil
	}

	uc := f.reconciliationUseCase()
	if _, err := uc.RepairAccount(ctx, cashID); err != nil {
		t.Fatalf("RepairAccount() error = %v", err)
	}
	if seen == nil {
		t.Fatal("expected the posting log to be read through the repair transaction")
	}
	if got := f.balance(t, cashID); !got.IsZero() {
		t.Errorf("cash balance = %s, want 0", got)
	}

	drifted = f.store.Account(cashID)
	drifted.Balance = dec("42")
	f.store.SeedAccount(drifted)
	f.ledger.AccountMovementInTxFunc = func(context.Context, usecase.Transaction, string) error {
		return errors.New("connection reset")
	}

	_, err := uc.RepairAccount(ctx, cashID)
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if got := f.balance(t, cashID); !got.Equal(dec("42")) {
		t.Errorf("cash balance = %s, want 42 after a failed repair", got)
	}
}

func TestReconciliation_OpeningBalanceIsPartOfDerivation(t *testing.T) {
	f := newFixture(t)
	chart := f.chartUseCase()
	ctx := context.Background()

	account, err := chart.CreateAccount(ctx, usecase.CreateAccountInput{
		Code:           "3100",
		Name:           "Capital",
		Type:           domain.AccountTypeEquity,
		OpeningBalance: dec("1000"),
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	result, err := f.reconciliationUseCase().ReconcileAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("ReconcileAccount() error = %v", err)
	}
	if !result.IsReconciled {
		t.Errorf("expected reconciled, got difference %s", result.Difference)
	}
}

func TestReconciliation_UnknownAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.reconciliationUseCase().ReconcileAccount(context.Background(), "acc-missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_, err = f.reconciliationUseCase().RepairAccount(context.Background(), "acc-missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLedgerUseCase_ConsistencyOverStore(t *testing.T) {
	f := newFixture(t)
	journal := f.journalUseCase(nil)
	ctx := context.Background()

	draft, err := journal.CreateDraft(ctx, saleInput("100"))
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if _, err := journal.Post(ctx, draft.ID); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := journal.Reverse(ctx, draft.ID); err != nil {
		t.Fatalf("reverse: %v", err)
	}

	report, err := usecase.NewLedgerUseCase(f.ledger).CheckConsistency(ctx)
	if err != nil {
		t.Fatalf("CheckConsistency() error = %v", err)
	}
	if !report.TotalDebits.Equal(dec("200")) {
		t.Errorf("TotalDebits = %s, want 200", report.TotalDebits)
	}
}
