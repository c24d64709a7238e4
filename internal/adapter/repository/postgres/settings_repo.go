package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const settingReadonlyDays = "readonly_days"

// SettingsRepository implements usecase.SettingsProvider over the settings table.
type SettingsRepository struct {
	db                  querier
	defaultReadonlyDays int
}

// NewSettingsRepository creates a SettingsRepository. defaultReadonlyDays
// applies while no readonly_days row exists.
func NewSettingsRepository(pool *pgxpool.Pool, defaultReadonlyDays int) *SettingsRepository {
	return newSettingsRepository(pool, defaultReadonlyDays)
}

func newSettingsRepository(db querier, defaultReadonlyDays int) *SettingsRepository {
	return &SettingsRepository{db: db, defaultReadonlyDays: defaultReadonlyDays}
}

// ReadonlyDays returns the configured aging window in days.
func (r *SettingsRepository) ReadonlyDays(ctx context.Context) (int, error) {
	value, ok, err := r.get(ctx, settingReadonlyDays)
	if err != nil {
		return 0, err
	}
	if !ok {
		return r.defaultReadonlyDays, nil
	}

	days, err := strconv.Atoi(value)
	if err != nil || days < 0 {
		return 0, fmt.Errorf("settings: invalid %s value %q", settingReadonlyDays, value)
	}
	return days, nil
}

// SetReadonlyDays stores the aging window. Zero disables the rule.
func (r *SettingsRepository) SetReadonlyDays(ctx context.Context, days int) error {
	if days < 0 {
		return fmt.Errorf("settings: %s must not be negative", settingReadonlyDays)
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		settingReadonlyDays, strconv.Itoa(days))
	return err
}

func (r *SettingsRepository) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}
