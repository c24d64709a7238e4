package usecase

import (
	"context"
	"errors"

	"github.com/iho/gojournal/internal/domain"
)

// PeriodUseCase manages the open/closed registry of accounting periods.
type PeriodUseCase struct {
	txManager  TransactionManager
	periodRepo PeriodRepository
	authorizer Authorizer
	rec        recorder
	opts       options
}

// NewPeriodUseCase creates a new PeriodUseCase.
func NewPeriodUseCase(
	txManager TransactionManager,
	periodRepo PeriodRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	authorizer Authorizer,
	idGen IDGenerator,
	opts ...Option,
) *PeriodUseCase {
	return &PeriodUseCase{
		txManager:  txManager,
		periodRepo: periodRepo,
		authorizer: authorizer,
		rec:        recorder{outboxRepo: outboxRepo, auditRepo: auditRepo, idGen: idGen},
		opts:       buildOptions(opts),
	}
}

// Get returns the period for key. A period that was never registered is open.
func (uc *PeriodUseCase) Get(ctx context.Context, key string) (*domain.Period, error) {
	if err := domain.ValidatePeriodKey(key); err != nil {
		return nil, err
	}
	period, err := uc.periodRepo.Get(ctx, key)
	if errors.Is(err, domain.ErrPeriodNotFound) {
		return domain.OpenPeriod(key), nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return period, nil
}

// List returns every registered period ordered by key.
func (uc *PeriodUseCase) List(ctx context.Context) ([]*domain.Period, error) {
	periods, err := uc.periodRepo.List(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return periods, nil
}

// Close blocks posting-affecting mutations dated inside the period.
// Closing a closed period is a no-op.
func (uc *PeriodUseCase) Close(ctx context.Context, key string) (*domain.Period, error) {
	return uc.transition(ctx, key, domain.PeriodStatusClosed)
}

// Reopen lifts a close. Reopening a period that was never registered fails with NotFound.
func (uc *PeriodUseCase) Reopen(ctx context.Context, key string) (*domain.Period, error) {
	return uc.transition(ctx, key, domain.PeriodStatusOpen)
}

func (uc *PeriodUseCase) transition(ctx context.Context, key string, status domain.PeriodStatus) (*domain.Period, error) {
	if err := domain.ValidatePeriodKey(key); err != nil {
		return nil, err
	}

	var (
		period  *domain.Period
		changed bool
	)
	err := runInTx(ctx, uc.txManager, uc.opts.retrier, func(ctx context.Context, tx Transaction) error {
		changed = false
		if err := authorize(ctx, uc.authorizer, domain.ActionPeriodsManage, ""); err != nil {
			return err
		}

		var err error
		period, err = uc.periodRepo.GetForUpdate(ctx, tx, key)
		switch {
		case errors.Is(err, domain.ErrPeriodNotFound) && status == domain.PeriodStatusOpen:
			return err
		case errors.Is(err, domain.ErrPeriodNotFound):
			period = domain.OpenPeriod(key)
		case err != nil:
			return err
		}

		if period.Status == status {
			return nil
		}

		before := *period
		period.Status = status
		period.UpdatedBy = actorFrom(ctx).ID
		period.UpdatedAt = uc.opts.now()
		if err := uc.periodRepo.Upsert(ctx, tx, period); err != nil {
			return err
		}
		changed = true

		action, eventType := domain.AuditActionPeriodClose, domain.EventTypePeriodClosed
		if status == domain.PeriodStatusOpen {
			action, eventType = domain.AuditActionPeriodReopen, domain.EventTypePeriodReopened
		}
		if err := uc.rec.audit(ctx, tx, auditRecord{
			action:       action,
			resourceType: domain.ResourceTypePeriod,
			resourceID:   key,
			before:       &before,
			after:        period,
		}); err != nil {
			return err
		}
		return uc.rec.event(ctx, tx, domain.AggregateTypePeriod, key, eventType, map[string]any{
			"period": key,
			"status": string(status),
		})
	})
	if err != nil {
		return nil, err
	}

	if changed && uc.opts.metrics != nil {
		uc.opts.metrics.PeriodTransitions.WithLabelValues(string(status)).Inc()
	}
	return period, nil
}
