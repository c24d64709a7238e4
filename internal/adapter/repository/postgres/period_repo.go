package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/usecase"
)

// PeriodRepository implements usecase.PeriodRepository.
type PeriodRepository struct {
	db querier
}

// NewPeriodRepository creates a new PeriodRepository.
func NewPeriodRepository(pool *pgxpool.Pool) *PeriodRepository {
	return newPeriodRepository(pool)
}

func newPeriodRepository(db querier) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// Get returns a registered period or domain.ErrPeriodNotFound.
func (r *PeriodRepository) Get(ctx context.Context, key string) (*domain.Period, error) {
	return scanPeriod(r.db.QueryRow(ctx, `SELECT key, status, updated_by, updated_at FROM periods WHERE key = $1`, key))
}

// GetForShare reads a period under a share lock, which blocks a concurrent
// close until the posting transaction ends.
func (r *PeriodRepository) GetForShare(ctx context.Context, tx usecase.Transaction, key string) (*domain.Period, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}
	return scanPeriod(q.QueryRow(ctx, `SELECT key, status, updated_by, updated_at FROM periods WHERE key = $1 FOR SHARE`, key))
}

// GetForUpdate reads a period under an exclusive row lock.
func (r *PeriodRepository) GetForUpdate(ctx context.Context, tx usecase.Transaction, key string) (*domain.Period, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}
	return scanPeriod(q.QueryRow(ctx, `SELECT key, status, updated_by, updated_at FROM periods WHERE key = $1 FOR UPDATE`, key))
}

// Upsert registers a period or changes its status.
func (r *PeriodRepository) Upsert(ctx context.Context, tx usecase.Transaction, period *domain.Period) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO periods (key, status, updated_by, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET status = EXCLUDED.status, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`,
		period.Key, string(period.Status), period.UpdatedBy, period.UpdatedAt)
	return err
}

// List returns all registered periods ordered by key.
func (r *PeriodRepository) List(ctx context.Context) ([]*domain.Period, error) {
	rows, err := r.db.Query(ctx, `SELECT key, status, updated_by, updated_at FROM periods ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := make([]*domain.Period, 0)
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func scanPeriod(row pgx.Row) (*domain.Period, error) {
	var (
		p      domain.Period
		status string
	)
	if err := row.Scan(&p.Key, &status, &p.UpdatedBy, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPeriodNotFound
		}
		return nil, err
	}
	p.Status = domain.PeriodStatus(status)
	return &p, nil
}
