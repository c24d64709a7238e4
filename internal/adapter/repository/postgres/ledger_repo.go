package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

// effectiveEntries selects the entries that still carry balance effect.
const effectiveEntries = `e.status IN ('posted', 'reversed')`

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db querier
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return newLedgerRepository(pool)
}

func newLedgerRepository(db querier) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// CheckConsistency sums every effective debit and credit in the ledger.
func (r *LedgerRepository) CheckConsistency(ctx context.Context) (totalDebits decimal.Decimal, totalCredits decimal.Decimal, err error) {
	var debits, credits pgtype.Numeric
	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(p.debit), 0), COALESCE(SUM(p.credit), 0)
		FROM journal_postings p
		JOIN journal_entries e ON e.id = p.entry_id
		WHERE `+effectiveEntries).Scan(&debits, &credits)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(debits), numericToDecimal(credits), nil
}

// AccountMovement sums the effective movement of one account.
func (r *LedgerRepository) AccountMovement(ctx context.Context, accountID string) (domain.AccountMovement, error) {
	return accountMovement(ctx, r.db, accountID)
}

// AccountMovementInTx sums the effective movement of one account inside tx.
func (r *LedgerRepository) AccountMovementInTx(ctx context.Context, tx usecase.Transaction, accountID string) (domain.AccountMovement, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return domain.AccountMovement{}, err
	}
	return accountMovement(ctx, q, accountID)
}

func accountMovement(ctx context.Context, q querier, accountID string) (domain.AccountMovement, error) {
	var debit, credit pgtype.Numeric
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(p.debit), 0), COALESCE(SUM(p.credit), 0)
		FROM journal_postings p
		JOIN journal_entries e ON e.id = p.entry_id
		WHERE p.account_id = $1 AND `+effectiveEntries, accountID).Scan(&debit, &credit)
	if err != nil {
		return domain.AccountMovement{}, err
	}

	return domain.AccountMovement{
		AccountID: accountID,
		Debit:     numericToDecimal(debit),
		Credit:    numericToDecimal(credit),
	}, nil
}

// AccountMovements sums the effective movement of every account with postings.
func (r *LedgerRepository) AccountMovements(ctx context.Context) ([]domain.AccountMovement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.account_id, SUM(p.debit), SUM(p.credit)
		FROM journal_postings p
		JOIN journal_entries e ON e.id = p.entry_id
		WHERE `+effectiveEntries+`
		GROUP BY p.account_id
		ORDER BY p.account_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.AccountMovement, 0)
	for rows.Next() {
		var (
			m             domain.AccountMovement
			debit, credit pgtype.Numeric
		)
		if err := rows.Scan(&m.AccountID, &debit, &credit); err != nil {
			return nil, err
		}
		m.Debit = numericToDecimal(debit)
		m.Credit = numericToDecimal(credit)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
