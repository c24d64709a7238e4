package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
	"github.com/iho/gojournal/internal/usecase/mocks"
)

const (
	cashID       = "acc-cash"
	revenueID    = "acc-revenue"
	expenseID    = "acc-expense"
	restrictedID = "acc-receivable"
)

var (
	baseNow   = time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)
	entryDate = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store    *mocks.Store
	accounts *mocks.MockAccountRepository
	journal  *mocks.MockJournalRepository
	periods  *mocks.MockPeriodRepository
	outbox   *mocks.MockOutboxRepository
	audit    *mocks.MockAuditRepository
	ledger   *mocks.MockLedgerRepository
	reports  *mocks.MockReportRepository
	idGen    *mocks.MockIDGenerator
	clock    *testClock
	settings *mocks.MockSettingsProvider

	readonlyDays int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	store := mocks.NewStore()

	f := &fixture{
		store:    store,
		accounts: mocks.NewMockAccountRepository(store),
		journal:  mocks.NewMockJournalRepository(store),
		periods:  mocks.NewMockPeriodRepository(store),
		outbox:   mocks.NewMockOutboxRepository(store),
		audit:    mocks.NewMockAuditRepository(store),
		ledger:   mocks.NewMockLedgerRepository(store),
		reports:  mocks.NewMockReportRepository(store),
		idGen:    mocks.NewMockIDGenerator(),
		clock:    &testClock{now: baseNow},
		settings: mocks.NewMockSettingsProvider(ctrl),
	}
	f.settings.EXPECT().ReadonlyDays(gomock.Any()).DoAndReturn(func(context.Context) (int, error) {
		return f.readonlyDays, nil
	}).AnyTimes()

	store.SeedAccount(&domain.Account{ID: cashID, Code: "1110", Name: "Cash", Type: domain.AccountTypeCash, Nature: domain.NatureDebit, AllowManualEntry: true, Version: 1})
	store.SeedAccount(&domain.Account{ID: revenueID, Code: "4100", Name: "Sales", Type: domain.AccountTypeRevenue, Nature: domain.NatureCredit, AllowManualEntry: true, Version: 1})
	store.SeedAccount(&domain.Account{ID: expenseID, Code: "5100", Name: "Rent", Type: domain.AccountTypeExpense, Nature: domain.NatureDebit, AllowManualEntry: true, Version: 1})
	store.SeedAccount(&domain.Account{ID: restrictedID, Code: "1200", Name: "Receivables", Type: domain.AccountTypeAsset, Nature: domain.NatureDebit, AllowManualEntry: false, Version: 1})

	return f
}

func (f *fixture) journalUseCase(authorizer usecase.Authorizer, opts ...usecase.Option) *usecase.JournalUseCase {
	opts = append([]usecase.Option{usecase.WithNow(f.clock.Now)}, opts...)
	return usecase.NewJournalUseCase(f.store, f.accounts, f.journal, f.periods, f.outbox, f.audit, authorizer, f.settings, f.idGen, opts...)
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	account := f.store.Account(id)
	if account == nil {
		t.Fatalf("account %s not found", id)
	}
	return account.Balance
}

func (f *fixture) closePeriod(key string) {
	f.store.SeedPeriod(&domain.Period{Key: key, Status: domain.PeriodStatusClosed})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(accountID, debit, credit string) usecase.PostingInput {
	return usecase.PostingInput{AccountID: accountID, Debit: dec(debit), Credit: dec(credit)}
}

func saleInput(amount string) usecase.CreateDraftInput {
	return usecase.CreateDraftInput{
		Date:        entryDate,
		Description: "Cash sale",
		Branch:      "main",
		Postings: []usecase.PostingInput{
			line(cashID, amount, "0"),
			line(revenueID, "0", amount),
		},
	}
}

// allowAll is an Authorizer that grants everything and records the actions asked for.
type allowAll struct {
	mu      sync.Mutex
	actions []domain.Action
}

func (a *allowAll) CanPerform(_ context.Context, _ domain.Actor, action domain.Action, _ string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
	return true
}
