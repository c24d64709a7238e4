package mocks

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

// Store is an in-memory ledger database shared by the mock repositories.
// Transactions are serialized and a rolled back transaction restores the
// state captured at Begin, so use cases see the same atomicity they get
// from Postgres.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	accounts map[string]*domain.Account
	entries  map[string]*domain.JournalEntry
	periods  map[string]*domain.Period
	outbox   []*domain.OutboxEvent
	audits   []*domain.AuditLog
	entrySeq int64

	BeginFunc  func(ctx context.Context) error
	CommitFunc func(ctx context.Context) error

	Commits   int
	Rollbacks int
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
		entries:  make(map[string]*domain.JournalEntry),
		periods:  make(map[string]*domain.Period),
	}
}

type snapshot struct {
	accounts map[string]*domain.Account
	entries  map[string]*domain.JournalEntry
	periods  map[string]*domain.Period
	outbox   []*domain.OutboxEvent
	audits   []*domain.AuditLog
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		accounts: make(map[string]*domain.Account, len(s.accounts)),
		entries:  make(map[string]*domain.JournalEntry, len(s.entries)),
		periods:  make(map[string]*domain.Period, len(s.periods)),
		outbox:   append([]*domain.OutboxEvent(nil), s.outbox...),
		audits:   append([]*domain.AuditLog(nil), s.audits...),
	}
	for id, a := range s.accounts {
		snap.accounts[id] = cloneAccount(a)
	}
	for id, e := range s.entries {
		snap.entries[id] = cloneEntry(e)
	}
	for key, p := range s.periods {
		cp := *p
		snap.periods[key] = &cp
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = snap.accounts
	s.entries = snap.entries
	s.periods = snap.periods
	s.outbox = snap.outbox
	s.audits = snap.audits
}

// Begin implements usecase.TransactionManager.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	if s.BeginFunc != nil {
		if err := s.BeginFunc(ctx); err != nil {
			return nil, err
		}
	}
	s.txMu.Lock()
	return &Tx{store: s, snap: s.snapshot()}, nil
}

// Tx is a transaction over a Store.
type Tx struct {
	store *Store
	snap  snapshot
	done  bool
}

func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	if t.store.CommitFunc != nil {
		if err := t.store.CommitFunc(ctx); err != nil {
			return err
		}
	}
	t.done = true
	t.store.mu.Lock()
	t.store.Commits++
	t.store.mu.Unlock()
	t.store.txMu.Unlock()
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.restore(t.snap)
	t.store.mu.Lock()
	t.store.Rollbacks++
	t.store.mu.Unlock()
	t.store.txMu.Unlock()
	return nil
}

// SeedAccount stores a copy of account outside of any transaction.
func (s *Store) SeedAccount(account *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = cloneAccount(account)
}

// SeedEntry stores a copy of entry outside of any transaction.
func (s *Store) SeedEntry(entry *domain.JournalEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = cloneEntry(entry)
	if entry.EntryNumber > s.entrySeq {
		s.entrySeq = entry.EntryNumber
	}
}

// SeedPeriod stores a copy of period outside of any transaction.
func (s *Store) SeedPeriod(period *domain.Period) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *period
	s.periods[period.Key] = &cp
}

// Account returns a copy of a stored account, or nil.
func (s *Store) Account(id string) *domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.accounts[id]; ok {
		return cloneAccount(a)
	}
	return nil
}

// Entry returns a copy of a stored entry, or nil.
func (s *Store) Entry(id string) *domain.JournalEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[id]; ok {
		return cloneEntry(e)
	}
	return nil
}

// EntryCount returns the number of stored entries.
func (s *Store) EntryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// OutboxEvents returns the recorded outbox events in insertion order.
func (s *Store) OutboxEvents() []*domain.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.OutboxEvent(nil), s.outbox...)
}

// AuditLogs returns the recorded audit logs in insertion order.
func (s *Store) AuditLogs() []*domain.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.AuditLog(nil), s.audits...)
}

func cloneAccount(a *domain.Account) *domain.Account {
	cp := *a
	if a.ParentID != nil {
		parent := *a.ParentID
		cp.ParentID = &parent
	}
	return &cp
}

func cloneEntry(e *domain.JournalEntry) *domain.JournalEntry {
	cp := *e
	if e.PostedAt != nil {
		postedAt := *e.PostedAt
		cp.PostedAt = &postedAt
	}
	cp.Postings = append([]domain.Posting(nil), e.Postings...)
	return &cp
}

func inRange(date, from, to time.Time) bool {
	if !from.IsZero() && date.Before(from) {
		return false
	}
	if !to.IsZero() && date.After(to) {
		return false
	}
	return true
}

// MockAccountRepository is an in-memory AccountRepository.
type MockAccountRepository struct {
	store *Store

	UpdateBalanceFunc func(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error
	LockHierarchyFunc func(ctx context.Context, tx usecase.Transaction) error
}

func NewMockAccountRepository(store *Store) *MockAccountRepository {
	return &MockAccountRepository{store: store}
}

func (m *MockAccountRepository) codeTaken(code, exceptID string) bool {
	for _, a := range m.store.accounts {
		if a.Code == code && a.ID != exceptID {
			return true
		}
	}
	return false
}

func (m *MockAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.codeTaken(account.Code, account.ID) {
		return domain.ErrAccountCodeTaken
	}
	m.store.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (m *MockAccountRepository) Update(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	stored, ok := m.store.accounts[account.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if m.codeTaken(account.Code, account.ID) {
		return domain.ErrAccountCodeTaken
	}
	account.Version = stored.Version + 1
	m.store.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (m *MockAccountRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(m.store.accounts, id)
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	if a, ok := m.store.accounts[id]; ok {
		return cloneAccount(a), nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	accounts := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		if a, ok := m.store.accounts[id]; ok {
			accounts = append(accounts, cloneAccount(a))
		}
	}
	return accounts, nil
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	return m.GetByID(ctx, id)
}

func (m *MockAccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	return m.GetByIDs(ctx, ids)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		if err := m.UpdateBalanceFunc(ctx, tx, id, balance, updatedAt); err != nil {
			return err
		}
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	a, ok := m.store.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Balance = balance
	a.Version++
	a.UpdatedAt = updatedAt
	return nil
}

func (m *MockAccountRepository) ListChildCodes(ctx context.Context, tx usecase.Transaction, parentID *string) ([]string, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	var codes []string
	for _, a := range m.store.accounts {
		if parentID == nil && a.IsRoot() {
			codes = append(codes, a.Code)
		}
		if parentID != nil && a.ParentID != nil && *a.ParentID == *parentID {
			codes = append(codes, a.Code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (m *MockAccountRepository) CountChildren(ctx context.Context, tx usecase.Transaction, id string) (int, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	count := 0
	for _, a := range m.store.accounts {
		if a.ParentID != nil && *a.ParentID == id {
			count++
		}
	}
	return count, nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	all, _ := m.ListAll(ctx)
	if offset >= len(all) {
		return []*domain.Account{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *MockAccountRepository) ListAll(ctx context.Context) ([]*domain.Account, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	accounts := make([]*domain.Account, 0, len(m.store.accounts))
	for _, a := range m.store.accounts {
		accounts = append(accounts, cloneAccount(a))
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return accounts, nil
}

// LockHierarchy returns the chart. Store transactions already run one at a time.
func (m *MockAccountRepository) LockHierarchy(ctx context.Context, tx usecase.Transaction) ([]*domain.Account, error) {
	if m.LockHierarchyFunc != nil {
		if err := m.LockHierarchyFunc(ctx, tx); err != nil {
			return nil, err
		}
	}
	return m.ListAll(ctx)
}

// MockJournalRepository is an in-memory JournalRepository.
type MockJournalRepository struct {
	store *Store

	CreateFunc          func(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error
	ReplacePostingsFunc func(ctx context.Context, tx usecase.Transaction, entryID string, postings []domain.Posting) error
}

func NewMockJournalRepository(store *Store) *MockJournalRepository {
	return &MockJournalRepository{store: store}
}

func (m *MockJournalRepository) NextEntryNumber(ctx context.Context, tx usecase.Transaction) (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.entrySeq++
	return m.store.entrySeq, nil
}

func (m *MockJournalRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, tx, entry); err != nil {
			return err
		}
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (m *MockJournalRepository) Update(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	stored, ok := m.store.entries[entry.ID]
	if !ok {
		return domain.ErrEntryNotFound
	}
	if stored.Version != entry.Version {
		return domain.ErrStaleEntryVersion
	}
	entry.Version++
	updated := cloneEntry(entry)
	updated.Postings = stored.Postings
	m.store.entries[entry.ID] = updated
	return nil
}

func (m *MockJournalRepository) ReplacePostings(ctx context.Context, tx usecase.Transaction, entryID string, postings []domain.Posting) error {
	if m.ReplacePostingsFunc != nil {
		if err := m.ReplacePostingsFunc(ctx, tx, entryID, postings); err != nil {
			return err
		}
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	stored, ok := m.store.entries[entryID]
	if !ok {
		return domain.ErrEntryNotFound
	}
	stored.Postings = append([]domain.Posting(nil), postings...)
	return nil
}

func (m *MockJournalRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.entries[id]; !ok {
		return domain.ErrEntryNotFound
	}
	delete(m.store.entries, id)
	return nil
}

func (m *MockJournalRepository) GetByID(ctx context.Context, id string) (*domain.JournalEntry, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	if e, ok := m.store.entries[id]; ok {
		return cloneEntry(e), nil
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockJournalRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.JournalEntry, error) {
	return m.GetByID(ctx, id)
}

func (m *MockJournalRepository) FindLiveByRelated(ctx context.Context, tx usecase.Transaction, relatedType domain.RelatedType, relatedID string) (*domain.JournalEntry, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	for _, e := range m.store.entries {
		if e.RelatedType != relatedType || e.RelatedID != relatedID {
			continue
		}
		if e.Status == domain.EntryStatusDraft || e.Status == domain.EntryStatusPosted {
			return cloneEntry(e), nil
		}
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockJournalRepository) HasPostingsForAccount(ctx context.Context, tx usecase.Transaction, accountID string) (bool, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	for _, e := range m.store.entries {
		for _, p := range e.Postings {
			if p.AccountID == accountID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *MockJournalRepository) List(ctx context.Context, filter domain.EntryFilter) ([]*domain.JournalEntry, int64, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	var matched []*domain.JournalEntry
	for _, e := range m.store.entries {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.From != nil && e.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Date.After(*filter.To) {
			continue
		}
		if filter.Branch != "" && e.Branch != filter.Branch {
			continue
		}
		if filter.RelatedType != "" && e.RelatedType != filter.RelatedType {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(e.Description), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.AccountID != "" && !touches(e, filter.AccountID) {
			continue
		}
		matched = append(matched, cloneEntry(e))
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.After(matched[j].Date)
		}
		return matched[i].EntryNumber > matched[j].EntryNumber
	})

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []*domain.JournalEntry{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if filter.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], total, nil
}

func touches(e *domain.JournalEntry, accountID string) bool {
	for _, p := range e.Postings {
		if p.AccountID == accountID {
			return true
		}
	}
	return false
}

// MockPeriodRepository is an in-memory PeriodRepository.
type MockPeriodRepository struct {
	store *Store
}

func NewMockPeriodRepository(store *Store) *MockPeriodRepository {
	return &MockPeriodRepository{store: store}
}

func (m *MockPeriodRepository) Get(ctx context.Context, key string) (*domain.Period, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	if p, ok := m.store.periods[key]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrPeriodNotFound
}

func (m *MockPeriodRepository) GetForShare(ctx context.Context, tx usecase.Transaction, key string) (*domain.Period, error) {
	return m.Get(ctx, key)
}

func (m *MockPeriodRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, key string) (*domain.Period, error) {
	return m.Get(ctx, key)
}

func (m *MockPeriodRepository) Upsert(ctx context.Context, tx usecase.Transaction, period *domain.Period) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	cp := *period
	m.store.periods[period.Key] = &cp
	return nil
}

func (m *MockPeriodRepository) List(ctx context.Context) ([]*domain.Period, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	periods := make([]*domain.Period, 0, len(m.store.periods))
	for _, p := range m.store.periods {
		cp := *p
		periods = append(periods, &cp)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Key < periods[j].Key })
	return periods, nil
}

// MockReportRepository aggregates posted entries held by a Store.
type MockReportRepository struct {
	store *Store
	Calls int
}

func NewMockReportRepository(store *Store) *MockReportRepository {
	return &MockReportRepository{store: store}
}

func (m *MockReportRepository) postedEntries() []*domain.JournalEntry {
	var posted []*domain.JournalEntry
	for _, e := range m.store.entries {
		if e.Status == domain.EntryStatusPosted {
			posted = append(posted, e)
		}
	}
	return posted
}

func (m *MockReportRepository) TrialBalance(ctx context.Context, from, to time.Time) ([]domain.TrialBalanceRow, error) {
	m.store.mu.Lock()
	m.Calls++
	m.store.mu.Unlock()

	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	rows := make(map[string]*domain.TrialBalanceRow)
	for _, e := range m.postedEntries() {
		if !inRange(e.Date, from, to) {
			continue
		}
		for _, p := range e.Postings {
			row, ok := rows[p.AccountID]
			if !ok {
				a, exists := m.store.accounts[p.AccountID]
				if !exists {
					continue
				}
				row = &domain.TrialBalanceRow{
					AccountID:   a.ID,
					AccountCode: a.Code,
					AccountName: a.Name,
					AccountType: a.Type,
					Nature:      a.Nature,
				}
				rows[p.AccountID] = row
			}
			row.Debit = row.Debit.Add(p.Debit)
			row.Credit = row.Credit.Add(p.Credit)
		}
	}

	result := make([]domain.TrialBalanceRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AccountCode < result[j].AccountCode })
	return result, nil
}

func (m *MockReportRepository) LedgerLines(ctx context.Context, accountID string, from, to time.Time) ([]domain.LedgerLine, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	var lines []domain.LedgerLine
	for _, e := range m.postedEntries() {
		if !inRange(e.Date, from, to) {
			continue
		}
		for _, p := range e.Postings {
			if p.AccountID != accountID {
				continue
			}
			lines = append(lines, domain.LedgerLine{
				EntryID:     e.ID,
				EntryNumber: e.EntryNumber,
				Date:        e.Date,
				Description: e.Description,
				RelatedType: e.RelatedType,
				RelatedID:   e.RelatedID,
				Branch:      e.Branch,
				Notes:       p.Notes,
				Debit:       p.Debit,
				Credit:      p.Credit,
			})
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].Date.Equal(lines[j].Date) {
			return lines[i].Date.Before(lines[j].Date)
		}
		return lines[i].EntryNumber < lines[j].EntryNumber
	})
	return lines, nil
}

func (m *MockReportRepository) NetBefore(ctx context.Context, accountID string, before time.Time) (decimal.Decimal, decimal.Decimal, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	debit, credit := decimal.Zero, decimal.Zero
	for _, e := range m.postedEntries() {
		if !e.Date.Before(before) {
			continue
		}
		for _, p := range e.Postings {
			if p.AccountID == accountID {
				debit = debit.Add(p.Debit)
				credit = credit.Add(p.Credit)
			}
		}
	}
	return debit, credit, nil
}

func (m *MockReportRepository) Movements(ctx context.Context, query usecase.ReportQuery) ([]usecase.GroupMovement, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	type groupKey struct {
		group       string
		accountType domain.AccountType
	}
	groups := make(map[groupKey]*usecase.GroupMovement)
	counted := make(map[groupKey]map[string]bool)

	for _, e := range m.postedEntries() {
		if !inRange(e.Date, query.From, query.To) {
			continue
		}
		if query.Branch != "" && e.Branch != query.Branch {
			continue
		}
		for _, p := range e.Postings {
			a, ok := m.store.accounts[p.AccountID]
			if !ok {
				continue
			}
			var key groupKey
			switch query.GroupBy {
			case usecase.GroupByBranch:
				key = groupKey{group: e.Branch, accountType: a.Type}
			case usecase.GroupByRelatedType:
				key = groupKey{group: string(e.RelatedType)}
			default:
				key = groupKey{group: string(a.Type), accountType: a.Type}
			}
			g, ok := groups[key]
			if !ok {
				g = &usecase.GroupMovement{Group: key.group, AccountType: key.accountType}
				groups[key] = g
				counted[key] = make(map[string]bool)
			}
			if !counted[key][e.ID] {
				counted[key][e.ID] = true
				g.Entries++
			}
			g.Debit = g.Debit.Add(p.Debit)
			g.Credit = g.Credit.Add(p.Credit)
		}
	}

	result := make([]usecase.GroupMovement, 0, len(groups))
	for _, g := range groups {
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].AccountType < result[j].AccountType
	})
	return result, nil
}

// MockLedgerRepository derives ledger-wide totals from a Store.
type MockLedgerRepository struct {
	store *Store

	AccountMovementInTxFunc func(ctx context.Context, tx usecase.Transaction, accountID string) error
}

func NewMockLedgerRepository(store *Store) *MockLedgerRepository {
	return &MockLedgerRepository{store: store}
}

func (m *MockLedgerRepository) effective() []*domain.JournalEntry {
	var result []*domain.JournalEntry
	for _, e := range m.store.entries {
		if e.Status == domain.EntryStatusPosted || e.Status == domain.EntryStatusReversed {
			result = append(result, e)
		}
	}
	return result
}

func (m *MockLedgerRepository) CheckConsistency(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	debits, credits := decimal.Zero, decimal.Zero
	for _, e := range m.effective() {
		d, c := e.Totals()
		debits = debits.Add(d)
		credits = credits.Add(c)
	}
	return debits, credits, nil
}

func (m *MockLedgerRepository) AccountMovement(ctx context.Context, accountID string) (domain.AccountMovement, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	movement := domain.AccountMovement{AccountID: accountID}
	for _, e := range m.effective() {
		for _, p := range e.Postings {
			if p.AccountID == accountID {
				movement.Debit = movement.Debit.Add(p.Debit)
				movement.Credit = movement.Credit.Add(p.Credit)
			}
		}
	}
	return movement, nil
}

func (m *MockLedgerRepository) AccountMovementInTx(ctx context.Context, tx usecase.Transaction, accountID string) (domain.AccountMovement, error) {
	if m.AccountMovementInTxFunc != nil {
		if err := m.AccountMovementInTxFunc(ctx, tx, accountID); err != nil {
			return domain.AccountMovement{}, err
		}
	}
	return m.AccountMovement(ctx, accountID)
}

func (m *MockLedgerRepository) AccountMovements(ctx context.Context) ([]domain.AccountMovement, error) {
	m.store.mu.RLock()
	byAccount := make(map[string]*domain.AccountMovement)
	for _, e := range m.effective() {
		for _, p := range e.Postings {
			mv, ok := byAccount[p.AccountID]
			if !ok {
				mv = &domain.AccountMovement{AccountID: p.AccountID}
				byAccount[p.AccountID] = mv
			}
			mv.Debit = mv.Debit.Add(p.Debit)
			mv.Credit = mv.Credit.Add(p.Credit)
		}
	}
	m.store.mu.RUnlock()

	result := make([]domain.AccountMovement, 0, len(byAccount))
	for _, mv := range byAccount {
		result = append(result, *mv)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AccountID < result[j].AccountID })
	return result, nil
}

// MockOutboxRepository is an in-memory OutboxRepository.
type MockOutboxRepository struct {
	store *Store
}

func NewMockOutboxRepository(store *Store) *MockOutboxRepository {
	return &MockOutboxRepository{store: store}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	cp := *event
	m.store.outbox = append(m.store.outbox, &cp)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	var events []*domain.OutboxEvent
	for _, e := range m.store.outbox {
		if !e.Published {
			cp := *e
			events = append(events, &cp)
		}
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, e := range m.store.outbox {
		if e.ID == id {
			e.Published = true
			at := publishedAt
			e.PublishedAt = &at
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	kept := m.store.outbox[:0]
	for _, e := range m.store.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	m.store.outbox = kept
	return nil
}

// MockAuditRepository is an in-memory AuditRepository.
type MockAuditRepository struct {
	store *Store
}

func NewMockAuditRepository(store *Store) *MockAuditRepository {
	return &MockAuditRepository{store: store}
}

func (m *MockAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	cp := *log
	m.store.audits = append(m.store.audits, &cp)
	return nil
}

func (m *MockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	var logs []*domain.AuditLog
	for _, l := range m.store.audits {
		if filter.ActorID != "" && l.ActorID != filter.ActorID {
			continue
		}
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		if filter.ResourceType != "" && l.ResourceType != filter.ResourceType {
			continue
		}
		if filter.ResourceID != "" && l.ResourceID != filter.ResourceID {
			continue
		}
		cp := *l
		logs = append(logs, &cp)
	}
	return logs, nil
}

func (m *MockAuditRepository) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	return m.List(ctx, domain.AuditFilter{ResourceType: resourceType, ResourceID: resourceID})
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return "mock-id-" + strconv.Itoa(m.counter)
}

// MockCache is an in-memory Cache that ignores TTLs.
type MockCache struct {
	mu   sync.Mutex
	data map[string][]byte

	Gets int
	Sets int
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	v, ok := m.data[key]
	if !ok {
		return nil, usecase.ErrCacheMiss
	}
	return v, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sets++
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCache) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(string(m.data[key]), 10, 64)
	n++
	m.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Has reports whether key is stored.
func (m *MockIdempotencyStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}
