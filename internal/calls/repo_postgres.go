package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"callpay-platform/internal/storage"
)

// NOTE: This repository assumes the following tables exist (see schema.sql):
// - call_sessions
// - call_events   (append-only)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const sessionColumns = `
id, caller_id, callee_id, status, started_at, ended_at, duration_sec, cost, created_at, updated_at
`

func (r *PostgresRepo) Create(ctx context.Context, s *Session) error {
	const q = `
INSERT INTO call_sessions (caller_id, callee_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`
	err := storage.QuerierFrom(ctx, r.db).QueryRowContext(ctx, q,
		s.CallerID,
		s.CalleeID,
		s.Status,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create call session: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM call_sessions WHERE id = $1`
	return r.scanSession(storage.QuerierFrom(ctx, r.db).QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) GetByIDForUpdate(ctx context.Context, id int64) (Session, error) {
	// Row lock serializes concurrent terminations of the same session.
	q := `SELECT ` + sessionColumns + ` FROM call_sessions WHERE id = $1 FOR UPDATE`
	return r.scanSession(storage.QuerierFrom(ctx, r.db).QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) scanSession(row *sql.Row) (Session, error) {
	var s Session
	var cost sql.NullString
	if err := row.Scan(
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
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("scan call session: %w", err)
	}
	if cost.Valid {
		c, err := decimal.NewFromString(cost.String)
		if err != nil {
			return Session{}, fmt.Errorf("parse cost %q: %w", cost.String, err)
		}
		s.Cost = &c
	}
	return s, nil
}

func (r *PostgresRepo) Update(ctx context.Context, s *Session) error {
	const q = `
UPDATE call_sessions
SET status = $2, started_at = $3, ended_at = $4, duration_sec = $5, cost = $6, updated_at = $7
WHERE id = $1
`
	var cost any
	if s.Cost != nil {
		cost = s.Cost.StringFixed(2)
	}
	res, err := storage.QuerierFrom(ctx, r.db).ExecContext(ctx, q,
		s.ID,
		s.Status,
		s.StartedAt,
		s.EndedAt,
		s.DurationSec,
		cost,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update call session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *PostgresRepo) ListByParticipant(ctx context.Context, userID int64) ([]Session, error) {
	q := `
SELECT ` + sessionColumns + `
FROM call_sessions
WHERE caller_id = $1 OR callee_id = $1
ORDER BY created_at DESC, id DESC
`
	rows, err := storage.QuerierFrom(ctx, r.db).QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list call sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
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
			return nil, fmt.Errorf("scan call session: %w", err)
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

func (r *PostgresRepo) AppendEvent(ctx context.Context, e *Event) error {
	const q = `
INSERT INTO call_events (session_id, type, actor_user_id, metadata, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`
	err := storage.QuerierFrom(ctx, r.db).QueryRowContext(ctx, q,
		e.SessionID,
		e.Type,
		e.ActorUserID,
		e.Metadata,
		e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("append call event: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ListEvents(ctx context.Context, sessionID int64) ([]Event, error) {
	const q = `
SELECT id, session_id, type, actor_user_id, metadata, created_at
FROM call_events
WHERE session_id = $1
ORDER BY created_at ASC, id ASC
`
	rows, err := storage.QuerierFrom(ctx, r.db).QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list call events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Type, &e.ActorUserID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan call event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
