package rates

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
	"github.com/jordymora1978/GSS-Utilidad/internal/platform/db"
	"github.com/jordymora1978/GSS-Utilidad/internal/platform/httpx"
)

// ErrRateNotFound means no rate row exists yet for the country.
var ErrRateNotFound = fmt.Errorf("rate not found: %w", httpx.ErrNotFound)

// Repository is the storage contract for current rates and their history.
type Repository interface {
	Current(ctx context.Context) ([]Rate, error)
	Get(ctx context.Context, country accounts.Country) (Rate, error)
	// Apply upserts the current value and records the history entry in one
	// transaction.
	Apply(ctx context.Context, rate Rate, entry HistoryEntry) error
	History(ctx context.Context, country accounts.Country, limit int) ([]HistoryEntry, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Current(ctx context.Context) ([]Rate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT country, value, previous_value, updated_by, updated_at
		 FROM trm_rates ORDER BY country`)
	if err != nil {
		return nil, fmt.Errorf("rates: current: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[Rate])
	if err != nil {
		return nil, fmt.Errorf("rates: current scan: %w", err)
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, country accounts.Country) (Rate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT country, value, previous_value, updated_by, updated_at
		 FROM trm_rates WHERE country = $1`, string(country))
	if err != nil {
		return Rate{}, fmt.Errorf("rates: get: %w", err)
	}
	rate, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Rate])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, ErrRateNotFound
		}
		return Rate{}, fmt.Errorf("rates: get scan: %w", err)
	}
	return rate, nil
}

func (r *repository) Apply(ctx context.Context, rate Rate, entry HistoryEntry) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO trm_rates (country, value, previous_value, updated_by, updated_at)
			 VALUES ($1, $2, $3, $4, NOW())
			 ON CONFLICT (country) DO UPDATE SET
			     value = EXCLUDED.value,
			     previous_value = EXCLUDED.previous_value,
			     updated_by = EXCLUDED.updated_by,
			     updated_at = NOW()`,
			string(rate.Country), rate.Value, rate.PreviousValue, rate.UpdatedBy)
		if err != nil {
			return fmt.Errorf("rates: upsert current: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO trm_rate_history (country, previous_value, new_value, change_pct, actor, reason, occurred_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
			string(entry.Country), entry.PreviousValue, entry.NewValue,
			entry.ChangePct, entry.Actor, entry.Reason)
		if err != nil {
			return fmt.Errorf("rates: insert history: %w", err)
		}
		return nil
	})
}

func (r *repository) History(ctx context.Context, country accounts.Country, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 30
	}
	sql := `SELECT id, country, previous_value, new_value, change_pct, actor, reason, occurred_at
	        FROM trm_rate_history`
	args := []any{}
	if country != "" {
		sql += ` WHERE country = $1 ORDER BY occurred_at DESC LIMIT $2`
		args = append(args, string(country), limit)
	} else {
		sql += ` ORDER BY occurred_at DESC LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("rates: history: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[HistoryEntry])
	if err != nil {
		return nil, fmt.Errorf("rates: history scan: %w", err)
	}
	return out, nil
}
