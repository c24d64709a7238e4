package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iho/gojournal/internal/domain"
)

// LinkageUseCase lets invoicing, expense and payroll subsystems book entries
// for their documents through the journal engine.
type LinkageUseCase struct {
	journal *JournalUseCase
}

// NewLinkageUseCase creates a new LinkageUseCase on top of journal.
func NewLinkageUseCase(journal *JournalUseCase) *LinkageUseCase {
	return &LinkageUseCase{journal: journal}
}

// SubmitEntryInput is a document's request for a journal entry.
type SubmitEntryInput struct {
	Date        time.Time
	Description string
	Postings    []PostingInput
	RelatedType domain.RelatedType
	RelatedID   string
	Branch      string
	AutoPost    bool
}

// SubmitEntryResult identifies the entry booked for a document.
type SubmitEntryResult struct {
	EntryID     string
	EntryNumber int64
	Status      domain.EntryStatus
	Created     bool
}

// SubmitEntry creates the draft for a document and, with AutoPost, posts it
// in the same transaction. A document that already has a live entry gets that
// entry back instead of a duplicate.
func (uc *LinkageUseCase) SubmitEntry(ctx context.Context, input SubmitEntryInput) (*SubmitEntryResult, error) {
	start := time.Now()

	if !input.RelatedType.IsDocument() {
		return nil, fmt.Errorf("%w: related type %q is not a document type", domain.ErrValidation, input.RelatedType)
	}
	input.RelatedID = strings.TrimSpace(input.RelatedID)
	if input.RelatedID == "" {
		return nil, fmt.Errorf("%w: related id is required", domain.ErrValidation)
	}

	draft := CreateDraftInput{
		Date:        input.Date,
		Description: input.Description,
		Postings:    input.Postings,
		RelatedType: input.RelatedType,
		RelatedID:   input.RelatedID,
		Branch:      input.Branch,
	}
	if err := uc.journal.prevalidate(draft); err != nil {
		return nil, err
	}

	var (
		result *SubmitEntryResult
		posted *domain.JournalEntry
	)
	err := runInTx(ctx, uc.journal.txManager, uc.journal.opts.retrier, func(ctx context.Context, tx Transaction) error {
		result, posted = nil, nil

		if err := authorize(ctx, uc.journal.authorizer, domain.ActionJournalCreate, input.Branch); err != nil {
			return err
		}
		if input.AutoPost {
			if err := authorize(ctx, uc.journal.authorizer, domain.ActionJournalPost, input.Branch); err != nil {
				return err
			}
		}

		existing, err := uc.journal.journalRepo.FindLiveByRelated(ctx, tx, input.RelatedType, input.RelatedID)
		if err == nil {
			result = &SubmitEntryResult{
				EntryID:     existing.ID,
				EntryNumber: existing.EntryNumber,
				Status:      existing.Status,
			}
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		entry, err := uc.journal.insertDraft(ctx, tx, draft)
		if err != nil {
			return err
		}
		if input.AutoPost {
			if err := uc.journal.postTx(ctx, tx, entry); err != nil {
				return err
			}
			posted = entry
		}

		result = &SubmitEntryResult{
			EntryID:     entry.ID,
			EntryNumber: entry.EntryNumber,
			Status:      entry.Status,
			Created:     true,
		}
		return nil
	})

	uc.journal.observe("submit", start, err)
	if err != nil {
		return nil, err
	}

	if result.Created && uc.journal.opts.metrics != nil {
		uc.journal.opts.metrics.EntriesCreated.WithLabelValues(string(input.RelatedType)).Inc()
	}
	if posted != nil {
		uc.journal.afterPost(posted)
		uc.journal.invalidate(ctx)
	}
	return result, nil
}
