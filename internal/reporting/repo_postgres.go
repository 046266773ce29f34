package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"callpay-platform/internal/calls"
	"callpay-platform/internal/storage"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) ListSessions(ctx context.Context, from, to time.Time, userID int64) ([]calls.Session, error) {
	q := `
SELECT id, caller_id, callee_id, status, started_at, ended_at, duration_sec, cost, created_at, updated_at
FROM call_sessions
WHERE created_at >= $1 AND created_at < $2
`
	args := []any{from, to}
	if userID != 0 {
		q += ` AND caller_id = $3`
		args = append(args, userID)
	}
	q += ` ORDER BY created_at ASC, id ASC`

	rows, err := storage.QuerierFrom(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list report sessions: %w", err)
	}
	defer rows.Close()

	var out []calls.Session
	for rows.Next() {
		var s calls.Session
		var cost sql.NullString
		if err := rows.Scan(
			&s.ID,
			&s.CallerID,
			&s.CalleeID,
			&s.Status,
			&s.StartedAt,
			&s.EndedAt,
			&s.DurationSec,
			&cost,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan report session: %w", err)
		}
		if cost.Valid {
			c, err := decimal.NewFromString(cost.String)
			if err != nil {
				return nil, fmt.Errorf("parse cost %q: %w", cost.String, err)
			}
			s.Cost = &c
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListLedger(ctx context.Context, from, to time.Time, userID int64) ([]LedgerEntry, error) {
	q := `
SELECT w.user_id, t.type, t.amount, t.reference, t.created_at
FROM transactions t
JOIN wallets w ON w.id = t.wallet_id
WHERE t.created_at >= $1 AND t.created_at < $2
`
	args := []any{from, to}
	if userID != 0 {
		q += ` AND w.user_id = $3`
		args = append(args, userID)
	}
	q += ` ORDER BY t.created_at ASC, t.id ASC`

	rows, err := storage.QuerierFrom(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list report ledger: %w", err)
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var amount string
		if err := rows.Scan(&e.UserID, &e.Type, &amount, &e.Reference, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		a, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		e.Amount = a
		out = append(out, e)
	}
	return out, rows.Err()
}
