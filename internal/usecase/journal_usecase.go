package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gojournal/internal/domain"
)

// JournalUseCase owns journal entries and their draft, posted and reversed lifecycle.
type JournalUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	journalRepo JournalRepository
	periodRepo  PeriodRepository
	authorizer  Authorizer
	settings    SettingsProvider
	idGen       IDGenerator
	rec         recorder
	opts        options
}

// NewJournalUseCase creates a new JournalUseCase.
func NewJournalUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	journalRepo JournalRepository,
	periodRepo PeriodRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	authorizer Authorizer,
	settings SettingsProvider,
	idGen IDGenerator,
	opts ...Option,
) *JournalUseCase {
	return &JournalUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		periodRepo:  periodRepo,
		authorizer:  authorizer,
		settings:    settings,
		idGen:       idGen,
		rec:         recorder{outboxRepo: outboxRepo, auditRepo: auditRepo, idGen: idGen},
		opts:        buildOptions(opts),
	}
}

// PostingInput is one requested line of an entry.
type PostingInput struct {
	AccountID string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Notes     string
}

// CreateDraftInput represents input for creating a draft entry.
type CreateDraftInput struct {
	Date        time.Time
	Description string
	Postings    []PostingInput
	RelatedType domain.RelatedType
	RelatedID   string
	Branch      string
}

// UpdateDraftInput patches a draft. Nil fields are left unchanged; a non-nil
// Postings slice replaces every line.
type UpdateDraftInput struct {
	ExpectedVersion *int64
	Date            *time.Time
	Description     *string
	Branch          *string
	Postings        []PostingInput
}

// CreateDraft records a new draft entry. Drafts may be unbalanced.
func (uc *JournalUseCase) CreateDraft(ctx context.Context, input CreateDraftInput) (*domain.JournalEntry, error) {
	start := time.Now()

	var entry *domain.JournalEntry
	err := uc.prevalidate(input)
	if err == nil {
		err = runInTx(ctx, uc.txManager, uc.opts.retrier, func(ctx context.Context, tx Transaction) error {
			if err := authorize(ctx, uc.authorizer, domain.ActionJournalCreate, input.Branch); err != nil {
				return err
			}
			var err error
			entry, err = uc.insertDraft(ctx, tx, input)
			return err
		})
	}

	uc.observe("create", start, err)
	if err != nil {
		return nil, err
	}
	if uc.opts.metrics != nil {
		uc.opts.metrics.EntriesCreated.WithLabelValues(string(entry.RelatedType)).Inc()
	}
	return entry, nil
}

// UpdateDraft applies a patch to a draft entry.
func (uc *JournalUseCase) UpdateDraft(ctx context.Context, id string, input UpdateDraftInput) (*domain.JournalEntry, error) {
	start := time.Now()

	if input.Description != nil {
		if err := domain.ValidateDescription(*input.Description); err != nil {
			return nil, err
		}
	}
	if input.Postings != nil {
		if err := domain.ValidatePostings(toPostings(input.Postings)); err != nil {
			return nil, err
		}
	}

	var entry *domain.JournalEntry
	err := runInTx(ctx, uc.txManager, uc.opts.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		entry, err = uc.journalRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(ctx, uc.authorizer, domain.ActionJournalEdit, entry.Branch); err != nil {
			return err
		}
		if input.Branch != nil && *input.Branch != entry.Branch {
			if err := authorize(ctx, uc.authorizer, domain.ActionJournalEdit, *input.Branch); err != nil {
				return err
			}
		}
		if entry.Status != domain.EntryStatusDraft {
			return domain.ErrEntryNotDraft
		}
		if input.ExpectedVersion != nil && *input.ExpectedVersion != entry.Version {
			return domain.ErrStaleEntryVersion
		}

		before := *entry
		now := uc.opts.now()

		if input.Date != nil {
			entry.Date = truncateToDate(*input.Date)
		}
		if input.Description != nil {
			entry.Description = *input.Description
		}
		if input.Branch != nil {
			entry.Branch = *input.Branch
		}
		if input.Postings != nil {
			postings := toPostings(input.Postings)
			if err := uc.checkAccounts(ctx, postings, entry.RelatedType); err != nil {
				return err
			}
			entry.Postings = uc.numberPostings(entry.ID, postings)
			if err := uc.journalRepo.ReplacePostings(ctx, tx, entry.ID, entry.Postings); err != nil {
				return err
			}
		}
		entry.UpdatedAt = now

		if err := uc.journalRepo.Update(ctx, tx, entry); err != nil {
			return err
		}

		if err := uc.rec.audit(ctx, tx, auditRecord{
			action:       domain.AuditActionJournalUpdate,
			resourceType: domain.ResourceTypeJournalEntry,
			resourceID:   entry.ID,
			before:       &before,
			after:        entry,
		}); err != nil {
			return err
		}
		return uc.rec.event(ctx, tx, domain.AggregateTypeJournalEntry, entry.ID, domain.EventTypeJournalUpdated, domain.JournalEventPayload(entry))
	})

	uc.observe("update", start, err)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Post moves a balanced draft into the ledger and applies its balance deltas.
func (uc *JournalUseCase) Post(ctx context.Context, id string) (*domain.JournalEntry, error) {
	start := time.Now()

	var entry *domain.JournalEntry
	err := runInTx(ctx, uc.txManager, uc.opts.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		entry, err = uc.journalRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(ctx, uc.authorizer, domain.ActionJournalPost, entry.Branch); err != nil {
			return err
		}
		return uc.postTx(ctx, tx, entry)
	})

	uc.observe("post", start, err)
	if err != nil {
		return nil, err
	}
	uc.afterPost(entry)
	uc.invalidate(ctx)
	return entry, nil
}

// Reverse cancels a posted entry with a new mirrored entry dated today.
// It returns the reversing entry.
func (uc *JournalUseCase) Reverse(ctx context.Context, id string) (*domain.JournalEntry, error) {
	start := time.Now()

	var reversal *domain.JournalEntry
	err := runInTx(ctx, uc.txManager, uc.opts.retrier, func(ctx context.Context, tx Transaction) error {
		original, err := uc.journalRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(ctx, uc.authorizer, domain.ActionJournalReverse, original.Branch); err != nil {
			return err
		}

		now := uc.opts.now()
		if err := uc.checkPostedMutable(ctx, tx, original, now); err != nil {
			return err
		}

		number, err := uc.journalRepo.NextEntryNumber(ctx, tx)
		if err != nil {
			return err
		}

		postedAt := now
		reversal = &domain.JournalEntry{
			ID:          uc.idGen.Generate(),
			EntryNumber: number,
			Date:        truncateToDate(now),
			Description: reversalDescription(original),
			Status:      domain.EntryStatusPosted,
			RelatedType: domain.RelatedTypeReversal,
			RelatedID:   original.ID,
			Branch:      original.Branch,
			PostedAt:    &postedAt,
			CreatedBy:   actorFrom(ctx).ID,
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		reversal.Postings = uc.numberPostings(reversal.ID, domain.MirrorPostings(original.Postings))

		if err := uc.journalRepo.Create(ctx, tx, reversal); err != nil {
			return err
		}
		if err := applyBalanceDeltas(ctx, tx, uc.accountRepo, reversal.Postings, 1, now); err != nil {
			return err
		}

		before := *original
		original.Status = domain.EntryStatusReversed
		original.UpdatedAt = now
		if err := uc.journalRepo.Update(ctx, tx, original); err != nil {
			return err
		}

		if err := uc.rec.audit(ctx, tx, auditRecord{
			action:       domain.AuditActionJournalReverse,
			resourceType: domain.ResourceTypeJournalEntry,
			resourceID:   original.ID,
			before:       &before,
			after:        map[string]any{"status": original.Status, "reversal_entry_id": reversal.ID},
		}); err != nil {
			return err
		}

		payload := domain.JournalEventPayload(original)
		payload["reversal_entry_id"] = reversal.ID
		if err := uc.rec.event(ctx, tx, domain.AggregateTypeJournalEntry, original.ID, domain.EventTypeJournalReversed, payload); err != nil {
			return err
		}
		return uc.rec.event(ctx, tx, domain.AggregateTypeJournalEntry, reversal.ID, domain.EventTypeJournalPosted, domain.JournalEventPayload(reversal))
	})

	uc.observe("reverse", start, err)
	if err != nil {
		return nil, err
	}
	if uc.opts.metrics != nil {
		uc.opts.metrics.EntriesReversed.Inc()
	}
	uc.invalidate(ctx)
	return reversal, nil
}

// ReturnToDraft undoes a posted entry's balance effect and reopens it for editing.
func (uc *JournalUseCase) ReturnToDraft(ctx context.Context, id, reason string) (*domain.JournalEntry, error) {
	start := time.Now()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrReasonRequired
	}

	var entry *domain.JournalEntry
	err := runInTx(ctx, uc.txManager, uc.opts.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		entry, err = uc.journalRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(ctx, uc.authorizer, domain.ActionJournalEdit, entry.Branch); err != nil {
			return err
		}

		now := uc.opts.now()
		if err := uc.checkPostedMutable(ctx, tx, entry, now); err != nil {
			return err
		}
		if err := applyBalanceDeltas(ctx, tx, uc.accountRepo, entry.Postings, -1, now); err != nil {
			return err
		}

		before := *entry
		entry.Status = domain.EntryStatusDraft
		entry.PostedAt = nil
		entry.UpdatedAt = now
		if err := uc.journalRepo.Update(ctx, tx, entry); err != nil {
			return err
		}

		if err := uc.rec.audit(ctx, tx, auditRecord{
			action:       domain.AuditActionJournalReturnToDraft,
			resourceType: domain.ResourceTypeJournalEntry,
			resourceID:   entry.ID,
			reason:       reason,
			before:       &before,
			after:        entry,
		}); err != nil {
			return err
		}

		payload := domain.JournalEventPayload(entry)
		payload["reason"] = reason
		return uc.rec.event(ctx, tx, domain.AggregateTypeJournalEntry, entry.ID, domain.EventTypeJournalReturnedToDraft, payload)
	})

	uc.observe("return_to_draft", start, err)
	if err != nil {
		return nil, err
	}
	if uc.opts.metrics != nil {
		uc.opts.metrics.EntriesReturned.Inc()
	}
	uc.invalidate(ctx)
	return entry, nil
}

// Delete removes a draft entry and its postings.
func (uc *JournalUseCase) Delete(ctx context.Context, id, reason string) error {
	start := time.Now()

	err := runInTx(ctx, uc.txManager, uc.opts.retrier, func(ctx context.Context, tx Transaction) error {
		entry, err := uc.journalRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(ctx, uc.authorizer, domain.ActionJournalDelete, entry.Branch); err != nil {
			return err
		}
		if entry.Status != domain.EntryStatusDraft {
			return domain.ErrPostedNotDeleted
		}
		if err := uc.journalRepo.Delete(ctx, tx, entry.ID); err != nil {
			return err
		}

		if err := uc.rec.audit(ctx, tx, auditRecord{
			action:       domain.AuditActionJournalDelete,
			resourceType: domain.ResourceTypeJournalEntry,
			resourceID:   entry.ID,
			reason:       strings.TrimSpace(reason),
			before:       entry,
		}); err != nil {
			return err
		}
		return uc.rec.event(ctx, tx, domain.AggregateTypeJournalEntry, entry.ID, domain.EventTypeJournalDeleted, domain.JournalEventPayload(entry))
	})

	uc.observe("delete", start, err)
	if err != nil {
		return err
	}
	if uc.opts.metrics != nil {
		uc.opts.metrics.EntriesDeleted.Inc()
	}
	return nil
}

// GetEntry returns an entry with its postings.
func (uc *JournalUseCase) GetEntry(ctx context.Context, id string) (*domain.JournalEntry, error) {
	entry, err := uc.journalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return entry, nil
}

// ListEntries returns entries matching filter and the total number of matches.
func (uc *JournalUseCase) ListEntries(ctx context.Context, filter domain.EntryFilter) ([]*domain.JournalEntry, int64, error) {
	limit, offset, err := domain.ValidatePagination(filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, filter.Status)
	}
	if filter.RelatedType != "" && !filter.RelatedType.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown related type %q", domain.ErrValidation, filter.RelatedType)
	}
	filter.Limit, filter.Offset = limit, offset

	entries, total, err := uc.journalRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, classify(err)
	}
	return entries, total, nil
}

func (uc *JournalUseCase) prevalidate(input CreateDraftInput) error {
	if err := domain.ValidateDescription(input.Description); err != nil {
		return err
	}
	if !input.RelatedType.IsValid() || input.RelatedType == domain.RelatedTypeReversal {
		return fmt.Errorf("%w: related type %q cannot be used for new entries", domain.ErrValidation, input.RelatedType)
	}
	return domain.ValidatePostings(toPostings(input.Postings))
}

// insertDraft creates the entry row and its postings inside tx.
func (uc *JournalUseCase) insertDraft(ctx context.Context, tx Transaction, input CreateDraftInput) (*domain.JournalEntry, error) {
	postings := toPostings(input.Postings)
	if err := uc.checkAccounts(ctx, postings, input.RelatedType); err != nil {
		return nil, err
	}

	number, err := uc.journalRepo.NextEntryNumber(ctx, tx)
	if err != nil {
		return nil, err
	}

	now := uc.opts.now()
	date := input.Date
	if date.IsZero() {
		date = now
	}

	entry := &domain.JournalEntry{
		ID:          uc.idGen.Generate(),
		EntryNumber: number,
		Date:        truncateToDate(date),
		Description: input.Description,
		Status:      domain.EntryStatusDraft,
		RelatedType: input.RelatedType,
		RelatedID:   input.RelatedID,
		Branch:      input.Branch,
		CreatedBy:   actorFrom(ctx).ID,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	entry.Postings = uc.numberPostings(entry.ID, postings)

	if err := uc.journalRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := uc.rec.audit(ctx, tx, auditRecord{
		action:       domain.AuditActionJournalCreate,
		resourceType: domain.ResourceTypeJournalEntry,
		resourceID:   entry.ID,
		after:        entry,
	}); err != nil {
		return nil, err
	}
	if err := uc.rec.event(ctx, tx, domain.AggregateTypeJournalEntry, entry.ID, domain.EventTypeJournalCreated, domain.JournalEventPayload(entry)); err != nil {
		return nil, err
	}

	return entry, nil
}

// postTx runs the posting gates for a locked entry and applies its deltas.
func (uc *JournalUseCase) postTx(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error {
	if entry.Status != domain.EntryStatusDraft {
		return domain.ErrEntryNotDraft
	}
	if len(entry.Postings) == 0 {
		return domain.ErrNoPostings
	}
	if err := entry.CheckBalanced(); err != nil {
		return err
	}
	if err := ensurePeriodsOpen(ctx, tx, uc.periodRepo, entry.Date); err != nil {
		return err
	}

	now := uc.opts.now()
	if err := applyBalanceDeltas(ctx, tx, uc.accountRepo, entry.Postings, 1, now); err != nil {
		return err
	}

	before := *entry
	entry.Status = domain.EntryStatusPosted
	entry.PostedAt = &now
	entry.UpdatedAt = now
	if err := uc.journalRepo.Update(ctx, tx, entry); err != nil {
		return err
	}

	if err := uc.rec.audit(ctx, tx, auditRecord{
		action:       domain.AuditActionJournalPost,
		resourceType: domain.ResourceTypeJournalEntry,
		resourceID:   entry.ID,
		before:       &before,
		after:        entry,
	}); err != nil {
		return err
	}
	return uc.rec.event(ctx, tx, domain.AggregateTypeJournalEntry, entry.ID, domain.EventTypeJournalPosted, domain.JournalEventPayload(entry))
}

// checkPostedMutable applies the gates shared by Reverse and ReturnToDraft.
func (uc *JournalUseCase) checkPostedMutable(ctx context.Context, tx Transaction, entry *domain.JournalEntry, now time.Time) error {
	if entry.Status != domain.EntryStatusPosted {
		return domain.ErrEntryNotPosted
	}

	days, err := uc.readonlyDays(ctx)
	if err != nil {
		return err
	}
	if entry.IsReadOnly(now, days) {
		return fmt.Errorf("%w: posted more than %d days ago", domain.ErrReadOnly, days)
	}

	return ensurePeriodsOpen(ctx, tx, uc.periodRepo, entry.Date, now)
}

func (uc *JournalUseCase) readonlyDays(ctx context.Context) (int, error) {
	if uc.settings == nil {
		return 0, nil
	}
	return uc.settings.ReadonlyDays(ctx)
}

// checkAccounts verifies that every referenced account exists and, for
// manual entries, accepts manual postings.
func (uc *JournalUseCase) checkAccounts(ctx context.Context, postings []domain.Posting, relatedType domain.RelatedType) error {
	ids := make([]string, 0, len(postings))
	seen := make(map[string]bool, len(postings))
	for _, p := range postings {
		if !seen[p.AccountID] {
			seen[p.AccountID] = true
			ids = append(ids, p.AccountID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	accounts, err := uc.accountRepo.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	found := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		found[a.ID] = a
	}

	for _, id := range ids {
		account, ok := found[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
		}
		if relatedType.IsManual() && !account.AllowManualEntry {
			return fmt.Errorf("%w: %s", domain.ErrManualEntryForbidden, account.Code)
		}
	}
	return nil
}

func (uc *JournalUseCase) numberPostings(entryID string, postings []domain.Posting) []domain.Posting {
	numbered := make([]domain.Posting, len(postings))
	for i, p := range postings {
		p.ID = uc.idGen.Generate()
		p.EntryID = entryID
		p.LineNo = i + 1
		numbered[i] = p
	}
	return numbered
}

func (uc *JournalUseCase) observe(operation string, start time.Time, err error) {
	if uc.opts.metrics == nil {
		return
	}
	uc.opts.metrics.JournalDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		uc.opts.metrics.JournalErrors.WithLabelValues(operation, string(domain.KindOf(err))).Inc()
	}
}

func (uc *JournalUseCase) afterPost(entry *domain.JournalEntry) {
	if uc.opts.metrics == nil {
		return
	}
	uc.opts.metrics.EntriesPosted.Inc()
	debit, _ := entry.Totals()
	uc.opts.metrics.PostedAmount.Observe(debit.InexactFloat64())
}

func (uc *JournalUseCase) invalidate(ctx context.Context) {
	invalidateReports(ctx, uc.opts.invalidator)
}

func invalidateReports(ctx context.Context, invalidator ReportInvalidator) {
	if invalidator == nil {
		return
	}
	if err := invalidator.Invalidate(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to invalidate report cache")
	}
}

func toPostings(inputs []PostingInput) []domain.Posting {
	postings := make([]domain.Posting, len(inputs))
	for i, in := range inputs {
		postings[i] = domain.Posting{
			AccountID: in.AccountID,
			Debit:     in.Debit,
			Credit:    in.Credit,
			Notes:     in.Notes,
		}
	}
	return postings
}

func reversalDescription(original *domain.JournalEntry) string {
	desc := fmt.Sprintf("Reversal of #%d", original.EntryNumber)
	if original.Description != "" {
		desc += ": " + original.Description
	}
	if utf8.RuneCountInString(desc) > domain.MaxDescriptionLength {
		desc = string([]rune(desc)[:domain.MaxDescriptionLength])
	}
	return desc
}
