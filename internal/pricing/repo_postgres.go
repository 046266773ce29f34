package pricing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"callpay-platform/internal/storage"
)

// NOTE: Assumes the call_rates table exists (see schema.sql).

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) GetEffective(ctx context.Context, currency string, at time.Time) (Rate, error) {
	const q = `
SELECT id, currency, per_minute, effective_at, created_at
FROM call_rates
WHERE currency = $1 AND effective_at <= $2
ORDER BY effective_at DESC, id DESC
LIMIT 1
`
	return scanRate(storage.QuerierFrom(ctx, r.db).QueryRowContext(ctx, q, currency, at))
}

func scanRate(row *sql.Row) (Rate, error) {
	var rt Rate
	var perMin string
	if err := row.Scan(&rt.ID, &rt.Currency, &perMin, &rt.EffectiveAt, &rt.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Rate{}, ErrRateNotFound
		}
		return Rate{}, fmt.Errorf("scan rate: %w", err)
	}
	p, err := decimal.NewFromString(perMin)
	if err != nil {
		return Rate{}, fmt.Errorf("parse rate %q: %w", perMin, err)
	}
	rt.PerMinute = p
	return rt, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, rate *Rate) error {
	const q = `
INSERT INTO call_rates (currency, per_minute, effective_at, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id
`
	err := storage.QuerierFrom(ctx, r.db).QueryRowContext(ctx, q,
		rate.Currency,
		rate.PerMinute.StringFixed(2),
		rate.EffectiveAt,
		rate.CreatedAt,
	).Scan(&rate.ID)
	if err != nil {
		return fmt.Errorf("insert rate: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ListByCurrency(ctx context.Context, currency string) ([]Rate, error) {
	const q = `
SELECT id, currency, per_minute, effective_at, created_at
FROM call_rates
WHERE currency = $1
ORDER BY effective_at DESC, id DESC
`
	rows, err := storage.QuerierFrom(ctx, r.db).QueryContext(ctx, q, currency)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	defer rows.Close()

	var out []Rate
	for rows.Next() {
		var rt Rate
		var perMin string
		if err := rows.Scan(&rt.ID, &rt.Currency, &perMin, &rt.EffectiveAt, &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		p, err := decimal.NewFromString(perMin)
		if err != nil {
			return nil, fmt.Errorf("parse rate %q: %w", perMin, err)
		}
		rt.PerMinute = p
		out = append(out, rt)
	}
	return out, rows.Err()
}
