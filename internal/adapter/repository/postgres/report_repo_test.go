package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

func TestReportRepositoryTrialBalance(t *testing.T) {
	pool := newMockPool(t)
	repo := newReportRepository(pool)
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	f, tt := rangeArgs(from, to)
	pool.ExpectQuery(`WHERE e.status = 'posted'`).
		WithArgs(f, tt).
		WillReturnRows(pool.NewRows([]string{"id", "code", "name", "type", "nature", "debit", "credit"}).
			AddRow("acc-cash", "1110", "Cash", "cash", "debit", "100", "30").
			AddRow("acc-revenue", "4100", "Sales", "revenue", "credit", "0", "100").
			AddRow("acc-expense", "5100", "Rent", "expense", "debit", "30", "0"))

	rows, err := repo.TrialBalance(context.Background(), from, to)
	if err != nil {
		t.Fatalf("TrialBalance() error = %v", err)
	}

	tb := domain.NewTrialBalance(from, to, rows)
	if !tb.Balanced {
		t.Errorf("expected balanced trial balance, got %s/%s", tb.TotalDebit, tb.TotalCredit)
	}
	if !tb.Rows[0].Balance.Equal(decimal.NewFromInt(70)) {
		t.Errorf("cash balance = %s, want 70", tb.Rows[0].Balance)
	}
	assertExpectations(t, pool)
}

func TestReportRepositoryMovementsRejectsUnknownGrouping(t *testing.T) {
	repo := newReportRepository(newMockPool(t))

	_, err := repo.Movements(context.Background(), usecase.ReportQuery{GroupBy: "currency"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestReportRepositoryMovementsByBranch(t *testing.T) {
	pool := newMockPool(t)
	repo := newReportRepository(pool)

	pool.ExpectQuery(`SELECT e.branch AS grp, a.type AS account_type`).
		WillReturnRows(pool.NewRows([]string{"grp", "account_type", "count", "debit", "credit"}).
			AddRow("north", "revenue", int64(2), "0", "150").
			AddRow("north", "expense", int64(1), "40", "0"))

	movements, err := repo.Movements(context.Background(), usecase.ReportQuery{GroupBy: usecase.GroupByBranch})
	if err != nil {
		t.Fatalf("Movements() error = %v", err)
	}
	if len(movements) != 2 || movements[0].AccountType != domain.AccountTypeRevenue || movements[0].Entries != 2 {
		t.Errorf("unexpected movements %+v", movements)
	}
	assertExpectations(t, pool)
}

func TestLedgerRepositoryCheckConsistency(t *testing.T) {
	pool := newMockPool(t)
	repo := newLedgerRepository(pool)

	pool.ExpectQuery(`WHERE e.status IN \('posted', 'reversed'\)`).
		WillReturnRows(pool.NewRows([]string{"debit", "credit"}).AddRow("200.0000", "200.0000"))

	debits, credits, err := repo.CheckConsistency(context.Background())
	if err != nil {
		t.Fatalf("CheckConsistency() error = %v", err)
	}
	if !debits.Equal(credits) || !debits.Equal(decimal.NewFromInt(200)) {
		t.Errorf("CheckConsistency() = %s/%s, want 200/200", debits, credits)
	}
}

func TestSettingsRepositoryReadonlyDays(t *testing.T) {
	tests := []struct {
		name    string
		rows    []string
		want    int
		wantErr bool
	}{
		{name: "stored", rows: []string{"45"}, want: 45},
		{name: "default", want: 30},
		{name: "garbage", rows: []string{"forever"}, wantErr: true},
		{name: "negative", rows: []string{"-1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := newMockPool(t)
			repo := newSettingsRepository(pool, 30)

			rows := pool.NewRows([]string{"value"})
			for _, v := range tt.rows {
				rows.AddRow(v)
			}
			pool.ExpectQuery(`SELECT value FROM settings WHERE key = \$1`).
				WithArgs(settingReadonlyDays).
				WillReturnRows(rows)

			got, err := repo.ReadonlyDays(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadonlyDays() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadonlyDays() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAuditRepositoryCreateTxAssignsUUID(t *testing.T) {
	pool := newMockPool(t)
	repo := newAuditRepository(pool)
	tx := beginMockTx(t, pool)

	pool.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	log := &domain.AuditLog{
		ActorID:      "controller",
		Action:       string(domain.AuditActionJournalReturnToDraft),
		ResourceType: domain.ResourceTypeJournalEntry,
		ResourceID:   "je-1",
		Reason:       "wrong amount",
		BeforeState:  domain.JSON{"status": "posted"},
		Status:       string(domain.AuditStatusSuccess),
	}
	if err := repo.CreateTx(context.Background(), tx, log); err != nil {
		t.Fatalf("CreateTx() error = %v", err)
	}
	if len(log.ID) != 36 {
		t.Errorf("expected a UUID id, got %q", log.ID)
	}
	if log.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	assertExpectations(t, pool)
}
