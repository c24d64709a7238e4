package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

const entryColumns = `e.id, e.entry_number, e.entry_date, e.description, e.status, e.related_type,
	e.related_id, e.branch, e.posted_at, e.created_by, e.version, e.created_at, e.updated_at`

const liveDocumentIndex = "journal_entries_live_document_key"

// JournalRepository implements usecase.JournalRepository.
type JournalRepository struct {
	db querier
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return newJournalRepository(pool)
}

func newJournalRepository(db querier) *JournalRepository {
	return &JournalRepository{db: db}
}

// NextEntryNumber draws the next entry number. Sequence values are never
// returned, so a rolled back draft leaves a gap rather than a reused number.
func (r *JournalRepository) NextEntryNumber(ctx context.Context, tx usecase.Transaction) (int64, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := q.QueryRow(ctx, `SELECT nextval('journal_entry_number_seq')`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Create inserts an entry together with its postings.
func (r *JournalRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO journal_entries (
			id, entry_number, entry_date, description, status, related_type,
			related_id, branch, posted_at, created_by, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entry.ID,
		entry.EntryNumber,
		dateOf(entry.Date),
		entry.Description,
		string(entry.Status),
		string(entry.RelatedType),
		entry.RelatedID,
		entry.Branch,
		timestamptz(entry.PostedAt),
		entry.CreatedBy,
		entry.Version,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return mapEntryError(err)
	}

	return insertPostings(ctx, q, entry.ID, entry.Postings)
}

// Update persists header changes guarded by the entry version.
func (r *JournalRepository) Update(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE journal_entries
		SET entry_date = $3, description = $4, status = $5, related_type = $6,
		    related_id = $7, branch = $8, posted_at = $9, updated_at = $10,
		    version = version + 1
		WHERE id = $1 AND version = $2`,
		entry.ID,
		entry.Version,
		dateOf(entry.Date),
		entry.Description,
		string(entry.Status),
		string(entry.RelatedType),
		entry.RelatedID,
		entry.Branch,
		timestamptz(entry.PostedAt),
		entry.UpdatedAt,
	)
	if err != nil {
		return mapEntryError(err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entries WHERE id = $1)`, entry.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrEntryNotFound
		}
		return domain.ErrStaleEntryVersion
	}

	entry.Version++
	return nil
}

// ReplacePostings swaps the posting lines of an entry.
func (r *JournalRepository) ReplacePostings(ctx context.Context, tx usecase.Transaction, entryID string, postings []domain.Posting) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	if _, err := q.Exec(ctx, `DELETE FROM journal_postings WHERE entry_id = $1`, entryID); err != nil {
		return err
	}
	return insertPostings(ctx, q, entryID, postings)
}

// Delete removes an entry. Postings go with it.
func (r *JournalRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `DELETE FROM journal_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// GetByID retrieves an entry with its postings.
func (r *JournalRepository) GetByID(ctx context.Context, id string) (*domain.JournalEntry, error) {
	return r.getOne(ctx, r.db, `SELECT `+entryColumns+` FROM journal_entries e WHERE e.id = $1`, id)
}

// GetByIDForUpdate retrieves an entry with its postings and locks the entry row.
func (r *JournalRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.JournalEntry, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}
	return r.getOne(ctx, q, `SELECT `+entryColumns+` FROM journal_entries e WHERE e.id = $1 FOR UPDATE`, id)
}

// FindLiveByRelated returns the draft or posted entry booked for a document.
func (r *JournalRepository) FindLiveByRelated(ctx context.Context, tx usecase.Transaction, relatedType domain.RelatedType, relatedID string) (*domain.JournalEntry, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}
	return r.getOne(ctx, q, `
		SELECT `+entryColumns+` FROM journal_entries e
		WHERE e.related_type = $1 AND e.related_id = $2 AND e.status IN ('draft', 'posted')
		LIMIT 1
		FOR UPDATE`, string(relatedType), relatedID)
}

// HasPostingsForAccount reports whether any entry, draft or not, uses the account.
func (r *JournalRepository) HasPostingsForAccount(ctx context.Context, tx usecase.Transaction, accountID string) (bool, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_postings WHERE account_id = $1)`, accountID).Scan(&exists)
	return exists, err
}

// List returns entries matching filter, newest first, and the total match count.
func (r *JournalRepository) List(ctx context.Context, filter domain.EntryFilter) ([]*domain.JournalEntry, int64, error) {
	where, args := entryFilterClause(filter)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM journal_entries e`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + entryColumns + ` FROM journal_entries e` + where +
		` ORDER BY e.entry_date DESC, e.entry_number DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}

	if err := loadPostings(ctx, r.db, entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func entryFilterClause(filter domain.EntryFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != "" {
		add("e.status = $%d", string(filter.Status))
	}
	if filter.From != nil {
		add("e.entry_date >= $%d", dateOf(*filter.From))
	}
	if filter.To != nil {
		add("e.entry_date <= $%d", dateOf(*filter.To))
	}
	if filter.Branch != "" {
		add("e.branch = $%d", filter.Branch)
	}
	if filter.RelatedType != "" {
		add("e.related_type = $%d", string(filter.RelatedType))
	}
	if filter.Search != "" {
		args = append(args, filter.Search)
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(e.description ILIKE '%%' || $%[1]d || '%%'
			OR e.entry_number::text = $%[1]d
			OR EXISTS (SELECT 1 FROM journal_postings p WHERE p.entry_id = e.id AND p.notes ILIKE '%%' || $%[1]d || '%%'))`, n))
	}
	if filter.AccountID != "" {
		add("EXISTS (SELECT 1 FROM journal_postings p WHERE p.entry_id = e.id AND p.account_id = $%d)", filter.AccountID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *JournalRepository) getOne(ctx context.Context, q querier, sql string, args ...any) (*domain.JournalEntry, error) {
	entry, err := scanEntry(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, err
	}
	if err := loadPostings(ctx, q, []*domain.JournalEntry{entry}); err != nil {
		return nil, err
	}
	return entry, nil
}

func insertPostings(ctx context.Context, q querier, entryID string, postings []domain.Posting) error {
	for i := range postings {
		p := &postings[i]
		p.EntryID = entryID
		_, err := q.Exec(ctx, `
			INSERT INTO journal_postings (id, entry_id, account_id, debit, credit, notes, line_no)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID,
			entryID,
			p.AccountID,
			decimalToNumeric(p.Debit),
			decimalToNumeric(p.Credit),
			p.Notes,
			p.LineNo,
		)
		if err != nil {
			if code, _ := pgErrorCode(err); code == pgErrForeignKeyViolation {
				return domain.ErrAccountNotFound
			}
			return err
		}
	}
	return nil
}

// loadPostings fills Postings for each entry in a single query.
func loadPostings(ctx context.Context, q querier, entries []*domain.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	byID := make(map[string]*domain.JournalEntry, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
		ids = append(ids, e.ID)
		e.Postings = []domain.Posting{}
	}

	rows, err := q.Query(ctx, `
		SELECT id, entry_id, account_id, debit, credit, notes, line_no
		FROM journal_postings
		WHERE entry_id = ANY($1)
		ORDER BY entry_id, line_no`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p      domain.Posting
			debit  pgtype.Numeric
			credit pgtype.Numeric
		)
		if err := rows.Scan(&p.ID, &p.EntryID, &p.AccountID, &debit, &credit, &p.Notes, &p.LineNo); err != nil {
			return err
		}
		p.Debit = numericToDecimal(debit)
		p.Credit = numericToDecimal(credit)
		if e, ok := byID[p.EntryID]; ok {
			e.Postings = append(e.Postings, p)
		}
	}
	return rows.Err()
}

func scanEntry(row pgx.Row) (*domain.JournalEntry, error) {
	var (
		e           domain.JournalEntry
		date        pgtype.Date
		status      string
		relatedType string
		postedAt    pgtype.Timestamptz
	)

	err := row.Scan(
		&e.ID,
		&e.EntryNumber,
		&date,
		&e.Description,
		&status,
		&relatedType,
		&e.RelatedID,
		&e.Branch,
		&postedAt,
		&e.CreatedBy,
		&e.Version,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}

	e.Date = date.Time
	e.Status = domain.EntryStatus(status)
	e.RelatedType = domain.RelatedType(relatedType)
	e.PostedAt = nullableTime(postedAt)
	return &e, nil
}

func collectEntries(rows pgx.Rows) ([]*domain.JournalEntry, error) {
	defer rows.Close()

	entries := make([]*domain.JournalEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func mapEntryError(err error) error {
	code, constraint := pgErrorCode(err)
	if code == pgErrUniqueViolation && constraint == liveDocumentIndex {
		return fmt.Errorf("%w: document already has a live journal entry", domain.ErrConflict)
	}
	return err
}
