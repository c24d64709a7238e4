package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/iho/gojournal/internal/domain"
)

const dateLayout = "2006-01-02"

// ReportUseCase serves read-only projections over posted entries.
// Results are cached under a generation counter that committed mutations bump.
type ReportUseCase struct {
	reportRepo  ReportRepository
	accountRepo AccountRepository
	cache       Cache
	ttl         time.Duration
	group       singleflight.Group
	opts        options
}

// NewReportUseCase creates a new ReportUseCase. A nil cache disables caching.
func NewReportUseCase(reportRepo ReportRepository, accountRepo AccountRepository, cache Cache, ttl time.Duration, opts ...Option) *ReportUseCase {
	if ttl <= 0 {
		ttl = DefaultReportCacheTTL
	}
	return &ReportUseCase{
		reportRepo:  reportRepo,
		accountRepo: accountRepo,
		cache:       cache,
		ttl:         ttl,
		opts:        buildOptions(opts),
	}
}

// Invalidate makes every cached report stale.
func (uc *ReportUseCase) Invalidate(ctx context.Context) error {
	if uc.cache == nil {
		return nil
	}
	_, err := uc.cache.Incr(ctx, ReportGenerationKey)
	return err
}

// TrialBalance totals posted postings per account for entries dated in [from, to].
func (uc *ReportUseCase) TrialBalance(ctx context.Context, from, to time.Time) (*domain.TrialBalance, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return cachedReport(ctx, uc, "trial_balance", []string{formatDate(from), formatDate(to)}, func(ctx context.Context) (*domain.TrialBalance, error) {
		rows, err := uc.reportRepo.TrialBalance(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return domain.NewTrialBalance(from, to, rows), nil
	})
}

// LedgerByAccount lists an account's posted lines in [from, to] with running balances.
func (uc *ReportUseCase) LedgerByAccount(ctx context.Context, accountID string, from, to time.Time) (*domain.AccountLedger, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return cachedReport(ctx, uc, "ledger", []string{accountID, formatDate(from), formatDate(to)}, func(ctx context.Context) (*domain.AccountLedger, error) {
		account, err := uc.accountRepo.GetByID(ctx, accountID)
		if err != nil {
			return nil, err
		}

		opening := account.OpeningBalance
		if !from.IsZero() {
			debit, credit, err := uc.reportRepo.NetBefore(ctx, accountID, from)
			if err != nil {
				return nil, err
			}
			opening = opening.Add(account.SignedAmount(debit, credit))
		}

		lines, err := uc.reportRepo.LedgerLines(ctx, accountID, from, to)
		if err != nil {
			return nil, err
		}
		if lines == nil {
			lines = []domain.LedgerLine{}
		}
		return domain.NewAccountLedger(account, from, to, opening, lines), nil
	})
}

// SummaryByType groups posted movement by account type.
func (uc *ReportUseCase) SummaryByType(ctx context.Context, from, to time.Time) (*domain.Summary, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return cachedReport(ctx, uc, "summary_type", []string{formatDate(from), formatDate(to)}, func(ctx context.Context) (*domain.Summary, error) {
		movements, err := uc.reportRepo.Movements(ctx, ReportQuery{From: from, To: to, GroupBy: GroupByAccountType})
		if err != nil {
			return nil, err
		}

		rows := make([]domain.SummaryRow, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, domain.SummaryRow{
				Group:   m.Group,
				Entries: m.Entries,
				Debit:   m.Debit,
				Credit:  m.Credit,
				Net:     netByNature(domain.DefaultNature(m.AccountType), m.Debit, m.Credit),
			})
		}
		return &domain.Summary{GroupBy: string(GroupByAccountType), From: from, To: to, Rows: rows}, nil
	})
}

// SummaryByRelatedType groups posted movement by the document type that produced it.
// Manually keyed entries are reported under "manual".
func (uc *ReportUseCase) SummaryByRelatedType(ctx context.Context, from, to time.Time) (*domain.Summary, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return cachedReport(ctx, uc, "summary_related", []string{formatDate(from), formatDate(to)}, func(ctx context.Context) (*domain.Summary, error) {
		movements, err := uc.reportRepo.Movements(ctx, ReportQuery{From: from, To: to, GroupBy: GroupByRelatedType})
		if err != nil {
			return nil, err
		}

		byGroup := make(map[string]*domain.SummaryRow)
		for _, m := range movements {
			group := m.Group
			if domain.RelatedType(group).IsManual() {
				group = string(domain.RelatedTypeManual)
			}
			row, ok := byGroup[group]
			if !ok {
				row = &domain.SummaryRow{Group: group}
				byGroup[group] = row
			}
			row.Entries += m.Entries
			row.Debit = row.Debit.Add(m.Debit)
			row.Credit = row.Credit.Add(m.Credit)
		}

		rows := make([]domain.SummaryRow, 0, len(byGroup))
		for _, row := range byGroup {
			row.Net = row.Debit.Sub(row.Credit)
			rows = append(rows, *row)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Group < rows[j].Group })
		return &domain.Summary{GroupBy: string(GroupByRelatedType), From: from, To: to, Rows: rows}, nil
	})
}

// SalesVsExpenses compares revenue with expenses, optionally for one branch.
func (uc *ReportUseCase) SalesVsExpenses(ctx context.Context, from, to time.Time, branch string) (*domain.SalesVsExpenses, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return cachedReport(ctx, uc, "sales_expenses", []string{formatDate(from), formatDate(to), branch}, func(ctx context.Context) (*domain.SalesVsExpenses, error) {
		movements, err := uc.reportRepo.Movements(ctx, ReportQuery{From: from, To: to, Branch: branch, GroupBy: GroupByAccountType})
		if err != nil {
			return nil, err
		}
		result := salesVsExpenses(from, to, branch, movements)
		return &result, nil
	})
}

// SummaryByBranch computes SalesVsExpenses for every branch with posted movement.
func (uc *ReportUseCase) SummaryByBranch(ctx context.Context, from, to time.Time) ([]domain.SalesVsExpenses, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return cachedReport(ctx, uc, "branches", []string{formatDate(from), formatDate(to)}, func(ctx context.Context) ([]domain.SalesVsExpenses, error) {
		movements, err := uc.reportRepo.Movements(ctx, ReportQuery{From: from, To: to, GroupBy: GroupByBranch})
		if err != nil {
			return nil, err
		}

		byBranch := make(map[string][]GroupMovement)
		var branches []string
		for _, m := range movements {
			if _, ok := byBranch[m.Group]; !ok {
				branches = append(branches, m.Group)
			}
			byBranch[m.Group] = append(byBranch[m.Group], m)
		}
		sort.Strings(branches)

		result := make([]domain.SalesVsExpenses, 0, len(branches))
		for _, b := range branches {
			result = append(result, salesVsExpenses(from, to, b, byBranch[b]))
		}
		return result, nil
	})
}

func salesVsExpenses(from, to time.Time, branch string, movements []GroupMovement) domain.SalesVsExpenses {
	result := domain.SalesVsExpenses{
		From:     from,
		To:       to,
		Branch:   branch,
		Sales:    decimal.Zero,
		Expenses: decimal.Zero,
	}
	for _, m := range movements {
		switch m.AccountType {
		case domain.AccountTypeRevenue:
			result.Sales = result.Sales.Add(m.Credit.Sub(m.Debit))
		case domain.AccountTypeExpense:
			result.Expenses = result.Expenses.Add(m.Debit.Sub(m.Credit))
		}
	}
	result.NetIncome = result.Sales.Sub(result.Expenses)
	return result
}

func netByNature(nature domain.Nature, debit, credit decimal.Decimal) decimal.Decimal {
	if nature == domain.NatureCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// cachedReport serves a report from the cache, or computes it once for all
// concurrent callers asking for the same key and stores the result.
func cachedReport[T any](ctx context.Context, uc *ReportUseCase, name string, params []string, compute func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	defer func() {
		if uc.opts.metrics != nil {
			uc.opts.metrics.ReportDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		}
	}()

	var zero T
	key, cacheable := uc.cacheKey(ctx, name, params)
	if cacheable {
		data, err := uc.cache.Get(ctx, key)
		switch {
		case err == nil:
			var cached T
			if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
				uc.recordCache(name, "hit")
				return cached, nil
			}
			uc.recordCache(name, "error")
		case errors.Is(err, ErrCacheMiss):
			uc.recordCache(name, "miss")
		default:
			uc.recordCache(name, "error")
			zerolog.Ctx(ctx).Warn().Err(err).Str("report", name).Msg("report cache read failed")
		}
	}

	flightKey := name + ":" + strings.Join(params, ":")
	if cacheable {
		flightKey = key
	}
	ch := uc.group.DoChan(flightKey, func() (any, error) {
		// The computation outlives any single caller.
		computeCtx := context.WithoutCancel(ctx)
		value, err := compute(computeCtx)
		if err != nil {
			return nil, err
		}
		if cacheable {
			if data, err := json.Marshal(value); err == nil {
				if err := uc.cache.Set(computeCtx, key, data, uc.ttl); err != nil {
					zerolog.Ctx(ctx).Warn().Err(err).Str("report", name).Msg("report cache write failed")
				}
			}
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, classify(res.Err)
		}
		return res.Val.(T), nil
	}
}

func (uc *ReportUseCase) cacheKey(ctx context.Context, name string, params []string) (string, bool) {
	if uc.cache == nil {
		return "", false
	}

	generation := "0"
	data, err := uc.cache.Get(ctx, ReportGenerationKey)
	switch {
	case err == nil:
		generation = string(data)
	case errors.Is(err, ErrCacheMiss):
	default:
		uc.recordCache(name, "error")
		return "", false
	}

	return fmt.Sprintf("reports:%s:g%s:%s", name, generation, strings.Join(params, ":")), true
}

func (uc *ReportUseCase) recordCache(name, result string) {
	if uc.opts.metrics != nil {
		uc.opts.metrics.ReportCache.WithLabelValues(name, result).Inc()
	}
}

func checkRange(from, to time.Time) error {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return fmt.Errorf("%w: range ends before it starts", domain.ErrValidation)
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}
