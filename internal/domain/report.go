package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrialBalanceRow is one account's totals in a trial balance.
type TrialBalanceRow struct {
	AccountID   string          `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	AccountType AccountType     `json:"account_type"`
	Nature      Nature          `json:"nature"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// TrialBalance proves that debits equal credits over a date range.
type TrialBalance struct {
	From        time.Time         `json:"from"`
	To          time.Time         `json:"to"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Balanced    bool              `json:"balanced"`
}

// NewTrialBalance totals rows and computes each row's balance by nature.
func NewTrialBalance(from, to time.Time, rows []TrialBalanceRow) *TrialBalance {
	tb := &TrialBalance{
		From:        from,
		To:          to,
		Rows:        rows,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for i := range tb.Rows {
		row := &tb.Rows[i]
		if row.Nature == NatureCredit {
			row.Balance = row.Credit.Sub(row.Debit)
		} else {
			row.Balance = row.Debit.Sub(row.Credit)
		}
		tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(row.Credit)
	}
	tb.Balanced = WithinEpsilon(tb.TotalDebit, tb.TotalCredit)
	return tb
}

// LedgerLine is one posting in an account ledger.
type LedgerLine struct {
	EntryID        string          `json:"entry_id"`
	EntryNumber    int64           `json:"entry_number"`
	Date           time.Time       `json:"date"`
	Description    string          `json:"description"`
	RelatedType    RelatedType     `json:"related_type,omitempty"`
	RelatedID      string          `json:"related_id,omitempty"`
	Branch         string          `json:"branch,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// AccountLedger is the posting history of one account over a range.
type AccountLedger struct {
	AccountID      string          `json:"account_id"`
	AccountCode    string          `json:"account_code"`
	Nature         Nature          `json:"nature"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Lines          []LedgerLine    `json:"lines"`
}

// NewAccountLedger computes running balances starting from opening.
func NewAccountLedger(account *Account, from, to time.Time, opening decimal.Decimal, lines []LedgerLine) *AccountLedger {
	running := opening
	for i := range lines {
		running = running.Add(account.SignedAmount(lines[i].Debit, lines[i].Credit))
		lines[i].RunningBalance = running
	}
	return &AccountLedger{
		AccountID:      account.ID,
		AccountCode:    account.Code,
		Nature:         account.Nature,
		From:           from,
		To:             to,
		OpeningBalance: opening,
		ClosingBalance: running,
		Lines:          lines,
	}
}

// SummaryRow is a grouped debit/credit total.
type SummaryRow struct {
	Group   string          `json:"group"`
	Entries int64           `json:"entries"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Net     decimal.Decimal `json:"net"`
}

// Summary is a grouped projection over posted postings.
type Summary struct {
	GroupBy string       `json:"group_by"`
	From    time.Time    `json:"from"`
	To      time.Time    `json:"to"`
	Rows    []SummaryRow `json:"rows"`
}

// SalesVsExpenses compares revenue against expenses over a range.
type SalesVsExpenses struct {
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Branch    string          `json:"branch,omitempty"`
	Sales     decimal.Decimal `json:"sales"`
	Expenses  decimal.Decimal `json:"expenses"`
	NetIncome decimal.Decimal `json:"net_income"`
}

// AccountMovement is the aggregated posting movement of one account.
type AccountMovement struct {
	AccountID string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}
