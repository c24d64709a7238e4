package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

// ReportRepository implements usecase.ReportRepository. Only posted
// entries are aggregated; reversed originals and their reversing entries
// therefore do not cancel each other out twice.
type ReportRepository struct {
	db querier
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return newReportRepository(pool)
}

func newReportRepository(db querier) *ReportRepository {
	return &ReportRepository{db: db}
}

// TrialBalance sums debits and credits per account over [from, to].
func (r *ReportRepository) TrialBalance(ctx context.Context, from, to time.Time) ([]domain.TrialBalanceRow, error) {
	f, t := rangeArgs(from, to)

	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.code, a.name, a.type, a.nature, SUM(p.debit), SUM(p.credit)
		FROM journal_postings p
		JOIN journal_entries e ON e.id = p.entry_id
		JOIN accounts a ON a.id = p.account_id
		WHERE e.status = 'posted'
		  AND ($1::date IS NULL OR e.entry_date >= $1)
		  AND ($2::date IS NULL OR e.entry_date <= $2)
		GROUP BY a.id, a.code, a.name, a.type, a.nature
		ORDER BY a.code`, f, t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.TrialBalanceRow, 0)
	for rows.Next() {
		var (
			row           domain.TrialBalanceRow
			accountType   string
			nature        string
			debit, credit pgtype.Numeric
		)
		if err := rows.Scan(&row.AccountID, &row.AccountCode, &row.AccountName, &accountType, &nature, &debit, &credit); err != nil {
			return nil, err
		}
		row.AccountType = domain.AccountType(accountType)
		row.Nature = domain.Nature(nature)
		row.Debit = numericToDecimal(debit)
		row.Credit = numericToDecimal(credit)
		result = append(result, row)
	}
	return result, rows.Err()
}

// LedgerLines lists the posted postings of one account in date order.
func (r *ReportRepository) LedgerLines(ctx context.Context, accountID string, from, to time.Time) ([]domain.LedgerLine, error) {
	f, t := rangeArgs(from, to)

	rows, err := r.db.Query(ctx, `
		SELECT e.id, e.entry_number, e.entry_date, e.description, e.related_type,
		       e.related_id, e.branch, p.notes, p.debit, p.credit
		FROM journal_postings p
		JOIN journal_entries e ON e.id = p.entry_id
		WHERE p.account_id = $1
		  AND e.status = 'posted'
		  AND ($2::date IS NULL OR e.entry_date >= $2)
		  AND ($3::date IS NULL OR e.entry_date <= $3)
		ORDER BY e.entry_date, e.entry_number, p.line_no`, accountID, f, t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.LedgerLine, 0)
	for rows.Next() {
		var (
			line          domain.LedgerLine
			date          pgtype.Date
			relatedType   string
			debit, credit pgtype.Numeric
		)
		err := rows.Scan(&line.EntryID, &line.EntryNumber, &date, &line.Description, &relatedType,
			&line.RelatedID, &line.Branch, &line.Notes, &debit, &credit)
		if err != nil {
			return nil, err
		}
		line.Date = date.Time
		line.RelatedType = domain.RelatedType(relatedType)
		line.Debit = numericToDecimal(debit)
		line.Credit = numericToDecimal(credit)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// NetBefore sums the posted movement of an account dated before the given day.
func (r *ReportRepository) NetBefore(ctx context.Context, accountID string, before time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var debit, credit pgtype.Numeric
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(p.debit), 0), COALESCE(SUM(p.credit), 0)
		FROM journal_postings p
		JOIN journal_entries e ON e.id = p.entry_id
		WHERE p.account_id = $1 AND e.status = 'posted' AND e.entry_date < $2`,
		accountID, dateOf(before)).Scan(&debit, &credit)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return numericToDecimal(debit), numericToDecimal(credit), nil
}

// Movements groups posted movement by account type, branch or document type.
func (r *ReportRepository) Movements(ctx context.Context, query usecase.ReportQuery) ([]usecase.GroupMovement, error) {
	var group, accountType string
	switch query.GroupBy {
	case usecase.GroupByBranch:
		group, accountType = "e.branch", "a.type"
	case usecase.GroupByRelatedType:
		group, accountType = "e.related_type", "''"
	case usecase.GroupByAccountType, "":
		group, accountType = "a.type", "a.type"
	default:
		return nil, fmt.Errorf("%w: unknown report grouping %q", domain.ErrValidation, query.GroupBy)
	}

	f, t := rangeArgs(query.From, query.To)

	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %[1]s AS grp, %[2]s AS account_type, COUNT(DISTINCT e.id), SUM(p.debit), SUM(p.credit)
		FROM journal_postings p
		JOIN journal_entries e ON e.id = p.entry_id
		JOIN accounts a ON a.id = p.account_id
		WHERE e.status = 'posted'
		  AND ($1::date IS NULL OR e.entry_date >= $1)
		  AND ($2::date IS NULL OR e.entry_date <= $2)
		  AND ($3 = '' OR e.branch = $3)
		GROUP BY grp, account_type
		ORDER BY grp, account_type`, group, accountType), f, t, query.Branch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]usecase.GroupMovement, 0)
	for rows.Next() {
		var (
			m             usecase.GroupMovement
			accType       string
			debit, credit pgtype.Numeric
		)
		if err := rows.Scan(&m.Group, &accType, &m.Entries, &debit, &credit); err != nil {
			return nil, err
		}
		m.AccountType = domain.AccountType(accType)
		m.Debit = numericToDecimal(debit)
		m.Credit = numericToDecimal(credit)
		result = append(result, m)
	}
	return result, rows.Err()
}
