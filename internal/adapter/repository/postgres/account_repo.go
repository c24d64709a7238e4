package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

// hierarchyLockKey is the transaction-scoped advisory lock held while an
// account's parent is set.
const hierarchyLockKey int64 = 0x6a6f75726e616c // "journal"

const accountColumns = `id, code, name, type, nature, parent_id, opening_balance, balance,
	allow_manual_entry, version, created_at, updated_at`

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db querier
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return newAccountRepository(pool)
}

func newAccountRepository(db querier) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		account.ID,
		account.Code,
		account.Name,
		string(account.Type),
		string(account.Nature),
		parentArg(account.ParentID),
		decimalToNumeric(account.OpeningBalance),
		decimalToNumeric(account.Balance),
		account.AllowManualEntry,
		account.Version,
		account.CreatedAt,
		account.UpdatedAt,
	)
	return mapAccountError(err)
}

// Update persists the account's attributes and increments its version.
func (r *AccountRepository) Update(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	var version int64
	err = q.QueryRow(ctx, `
		UPDATE accounts
		SET code = $2, name = $3, type = $4, nature = $5, parent_id = $6,
		    opening_balance = $7, balance = $8, allow_manual_entry = $9,
		    updated_at = $10, version = version + 1
		WHERE id = $1
		RETURNING version`,
		account.ID,
		account.Code,
		account.Name,
		string(account.Type),
		string(account.Nature),
		parentArg(account.ParentID),
		decimalToNumeric(account.OpeningBalance),
		decimalToNumeric(account.Balance),
		account.AllowManualEntry,
		account.UpdatedAt,
	).Scan(&version)
	if err != nil {
		return mapAccountError(err)
	}

	account.Version = version
	return nil
}

// Delete removes an account. Postings referencing it block the delete.
func (r *AccountRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return mapAccountError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByIDs retrieves the accounts that exist among ids.
func (r *AccountRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

// GetByIDForUpdate retrieves an account and locks its row.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}

	row := q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	return scanAccount(row)
}

// GetByIDsForUpdate locks the rows of ids in id order so that concurrent
// posters always acquire locks in the same sequence.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	rows, err := q.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, sorted)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

// UpdateBalance sets the stored balance of an account.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE accounts
		SET balance = $2, updated_at = $3, version = version + 1
		WHERE id = $1`,
		id, decimalToNumeric(balance), updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// ListChildCodes returns the codes of the direct children of parentID, or
// of the root accounts when parentID is nil.
func (r *AccountRepository) ListChildCodes(ctx context.Context, tx usecase.Transaction, parentID *string) ([]string, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	if parentID == nil || *parentID == "" {
		rows, err = q.Query(ctx, `SELECT code FROM accounts WHERE parent_id IS NULL ORDER BY code`)
	} else {
		rows, err = q.Query(ctx, `SELECT code FROM accounts WHERE parent_id = $1 ORDER BY code`, *parentID)
	}
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// CountChildren returns how many accounts have id as their parent.
func (r *AccountRepository) CountChildren(ctx context.Context, tx usecase.Transaction, id string) (int, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return 0, err
	}

	var count int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM accounts WHERE parent_id = $1`, id).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// List returns a page of accounts ordered by code.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts
		ORDER BY code
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

// ListAll returns every account ordered by code.
func (r *AccountRepository) ListAll(ctx context.Context) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

// LockHierarchy takes the chart advisory lock and returns every account
// ordered by code, read inside tx.
func (r *AccountRepository) LockHierarchy(ctx context.Context, tx usecase.Transaction) ([]*domain.Account, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}

	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, hierarchyLockKey); err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a              domain.Account
		accountType    string
		nature         string
		parentID       pgtype.Text
		openingBalance pgtype.Numeric
		balance        pgtype.Numeric
	)

	err := row.Scan(
		&a.ID,
		&a.Code,
		&a.Name,
		&accountType,
		&nature,
		&parentID,
		&openingBalance,
		&balance,
		&a.AllowManualEntry,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	a.Type = domain.AccountType(accountType)
	a.Nature = domain.Nature(nature)
	if parentID.Valid {
		p := parentID.String
		a.ParentID = &p
	}
	a.OpeningBalance = numericToDecimal(openingBalance)
	a.Balance = numericToDecimal(balance)
	return &a, nil
}

func collectAccounts(rows pgx.Rows) ([]*domain.Account, error) {
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func parentArg(parentID *string) pgtype.Text {
	if parentID == nil || *parentID == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *parentID, Valid: true}
}

func mapAccountError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrAccountNotFound
	}

	code, constraint := pgErrorCode(err)
	switch {
	case code == pgErrUniqueViolation && constraint == "accounts_code_key":
		return domain.ErrAccountCodeTaken
	case code == pgErrForeignKeyViolation && constraint == "journal_postings_account_id_fkey":
		return domain.ErrAccountHasPostings
	case code == pgErrForeignKeyViolation && constraint == "accounts_parent_id_fkey":
		return fmt.Errorf("%w: %w", domain.ErrAccountHasChildren, err)
	}
	return err
}
