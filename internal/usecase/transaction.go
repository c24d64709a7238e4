package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gojournal/internal/domain"
)

// runInTx executes fn inside a transaction bounded by DefaultTransactionTimeout.
// The whole attempt is re-run by the retrier on transient conflicts, and any
// error that is not a business outcome is reported as ErrUnavailable.
func runInTx(ctx context.Context, txManager TransactionManager, retrier Retrier, fn func(ctx context.Context, tx Transaction) error) error {
	attempt := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	}

	var err error
	if retrier != nil {
		err = retrier.Retry(ctx, attempt)
	} else {
		err = attempt()
	}

	return classify(err)
}

// classify keeps business errors intact and folds everything else into ErrUnavailable.
func classify(err error) error {
	if err == nil || domain.IsBusinessError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
}

func actorFrom(ctx context.Context) domain.Actor {
	if actor, ok := domain.ActorFromContext(ctx); ok {
		return actor
	}
	return domain.SystemActor
}

func authorize(ctx context.Context, authorizer Authorizer, action domain.Action, branch string) error {
	if authorizer == nil {
		return nil
	}
	if !authorizer.CanPerform(ctx, actorFrom(ctx), action, branch) {
		return fmt.Errorf("%w: %s", domain.ErrForbidden, action)
	}
	return nil
}

// applyBalanceDeltas locks every touched account in id order and moves its
// running balance by the postings, in the direction given by sign (+1 or -1).
func applyBalanceDeltas(
	ctx context.Context,
	tx Transaction,
	accountRepo AccountRepository,
	postings []domain.Posting,
	sign int64,
	now time.Time,
) error {
	type sides struct{ debit, credit decimal.Decimal }

	deltas := make(map[string]sides)
	for _, p := range postings {
		d := deltas[p.AccountID]
		d.debit = d.debit.Add(p.Debit)
		d.credit = d.credit.Add(p.Credit)
		deltas[p.AccountID] = d
	}

	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	// Lock in a stable order to prevent deadlocks between concurrent postings.
	sort.Strings(ids)

	accounts, err := accountRepo.GetByIDsForUpdate(ctx, tx, ids)
	if err != nil {
		return err
	}
	if len(accounts) != len(ids) {
		return domain.ErrAccountNotFound
	}

	factor := decimal.NewFromInt(sign)
	for _, account := range accounts {
		d := deltas[account.ID]
		change := account.SignedAmount(d.debit, d.credit).Mul(factor)
		newBalance := account.Balance.Add(change)
		if err := accountRepo.UpdateBalance(ctx, tx, account.ID, newBalance, now); err != nil {
			return err
		}
	}

	return nil
}

// ensurePeriodsOpen fails with ErrPeriodClosed when any date falls in a closed period.
// Periods are read with a share lock so a concurrent close waits for this transaction.
func ensurePeriodsOpen(ctx context.Context, tx Transaction, periodRepo PeriodRepository, dates ...time.Time) error {
	seen := make(map[string]bool, len(dates))
	for _, date := range dates {
		key := domain.PeriodKeyFor(date)
		if seen[key] {
			continue
		}
		seen[key] = true

		period, err := periodRepo.GetForShare(ctx, tx, key)
		if errors.Is(err, domain.ErrPeriodNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if period.IsClosed() {
			return fmt.Errorf("%w: %s", domain.ErrPeriodClosed, key)
		}
	}
	return nil
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
