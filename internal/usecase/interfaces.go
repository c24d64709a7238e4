package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gojournal/internal/domain"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// AccountRepository defines data access for the chart of accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	Update(ctx context.Context, tx Transaction, account *domain.Account) error
	Delete(ctx context.Context, tx Transaction, id string) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error
	ListChildCodes(ctx context.Context, tx Transaction, parentID *string) ([]string, error)
	CountChildren(ctx context.Context, tx Transaction, id string) (int, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	ListAll(ctx context.Context) ([]*domain.Account, error)
	// LockHierarchy serializes parent changes across the chart for the rest
	// of tx and returns every account as seen after the lock is held.
	LockHierarchy(ctx context.Context, tx Transaction) ([]*domain.Account, error)
}

// JournalRepository defines data access for journal entries and postings.
type JournalRepository interface {
	NextEntryNumber(ctx context.Context, tx Transaction) (int64, error)
	Create(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error
	// Update persists header changes when entry.Version still matches the
	// stored version, then increments entry.Version.
	Update(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error
	ReplacePostings(ctx context.Context, tx Transaction, entryID string, postings []domain.Posting) error
	Delete(ctx context.Context, tx Transaction, id string) error
	GetByID(ctx context.Context, id string) (*domain.JournalEntry, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.JournalEntry, error)
	// FindLiveByRelated returns the draft or posted entry created for a document.
	FindLiveByRelated(ctx context.Context, tx Transaction, relatedType domain.RelatedType, relatedID string) (*domain.JournalEntry, error)
	HasPostingsForAccount(ctx context.Context, tx Transaction, accountID string) (bool, error)
	List(ctx context.Context, filter domain.EntryFilter) ([]*domain.JournalEntry, int64, error)
}

// PeriodRepository defines data access for accounting periods.
type PeriodRepository interface {
	Get(ctx context.Context, key string) (*domain.Period, error)
	GetForShare(ctx context.Context, tx Transaction, key string) (*domain.Period, error)
	GetForUpdate(ctx context.Context, tx Transaction, key string) (*domain.Period, error)
	Upsert(ctx context.Context, tx Transaction, period *domain.Period) error
	List(ctx context.Context) ([]*domain.Period, error)
}

// ReportGroup selects the grouping column of a movement query.
type ReportGroup string

const (
	GroupByAccountType ReportGroup = "account_type"
	GroupByBranch      ReportGroup = "branch"
	GroupByRelatedType ReportGroup = "related_type"
)

// ReportQuery selects posted postings for aggregation.
type ReportQuery struct {
	From    time.Time
	To      time.Time
	Branch  string
	GroupBy ReportGroup
}

// GroupMovement is the debit/credit movement of one group. AccountType is
// set for every grouping except GroupByRelatedType.
type GroupMovement struct {
	Group       string
	AccountType domain.AccountType
	Entries     int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// ReportRepository defines read-only aggregate queries over posted entries.
type ReportRepository interface {
	TrialBalance(ctx context.Context, from, to time.Time) ([]domain.TrialBalanceRow, error)
	LedgerLines(ctx context.Context, accountID string, from, to time.Time) ([]domain.LedgerLine, error)
	NetBefore(ctx context.Context, accountID string, before time.Time) (debit, credit decimal.Decimal, err error)
	Movements(ctx context.Context, query ReportQuery) ([]GroupMovement, error)
}

// LedgerRepository defines data access for ledger-wide derivations. Both
// posted and reversed entries count, since both still carry balance effect.
type LedgerRepository interface {
	CheckConsistency(ctx context.Context) (totalDebits, totalCredits decimal.Decimal, err error)
	AccountMovement(ctx context.Context, accountID string) (domain.AccountMovement, error)
	// AccountMovementInTx is AccountMovement read inside tx.
	AccountMovementInTx(ctx context.Context, tx Transaction, accountID string) (domain.AccountMovement, error)
	AccountMovements(ctx context.Context) ([]domain.AccountMovement, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
	GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request did not succeed.
	Release(ctx context.Context, key string) error
}

// ReportInvalidator is told when committed data changes report results.
type ReportInvalidator interface {
	Invalidate(ctx context.Context) error
}
