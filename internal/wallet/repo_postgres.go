package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"callpay-platform/internal/storage"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// NOTE: This repository assumes the following tables exist (see schema.sql):
// - wallets      (unique on user_id)
// - transactions (append-only, unique on reference)

const pgUniqueViolation = "23505"

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) EnsureWallet(ctx context.Context, userID int64, currency string, now time.Time) error {
	const q = `
INSERT INTO wallets (user_id, balance, currency, created_at, updated_at)
VALUES ($1, 0, $2, $3, $3)
ON CONFLICT (user_id) DO NOTHING
`
	if _, err := storage.QuerierFrom(ctx, r.db).ExecContext(ctx, q, userID, currency, now); err != nil {
		return fmt.Errorf("ensure wallet: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetByUserID(ctx context.Context, userID int64) (Wallet, error) {
	const q = `
SELECT id, user_id, currency, balance, created_at, updated_at
FROM wallets
WHERE user_id = $1
`
	return r.scanWallet(storage.QuerierFrom(ctx, r.db).QueryRowContext(ctx, q, userID))
}

func (r *PostgresRepo) GetByUserIDForUpdate(ctx context.Context, userID int64) (Wallet, error) {
	// Lock the wallet row to serialize concurrent money operations per wallet.
	const q = `
SELECT id, user_id, currency, balance, created_at, updated_at
FROM wallets
WHERE user_id = $1
FOR UPDATE
`
	return r.scanWallet(storage.QuerierFrom(ctx, r.db).QueryRowContext(ctx, q, userID))
}

func (r *PostgresRepo) scanWallet(row *sql.Row) (Wallet, error) {
	var w Wallet
	var balance string
	if err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Currency,
		&balance,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, fmt.Errorf("scan wallet: %w", err)
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return Wallet{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	w.Balance = b
	return w, nil
}

func (r *PostgresRepo) SetBalance(ctx context.Context, walletID int64, balance decimal.Decimal, updatedAt time.Time) error {
	const q = `
UPDATE wallets
SET balance = $2, updated_at = $3
WHERE id = $1
`
	res, err := storage.QuerierFrom(ctx, r.db).ExecContext(ctx, q, walletID, balance.StringFixed(2), updatedAt)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *PostgresRepo) InsertTransaction(ctx context.Context, t *Transaction) error {
	const q = `
INSERT INTO transactions (wallet_id, type, amount, reference, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`
	err := storage.QuerierFrom(ctx, r.db).QueryRowContext(ctx, q,
		t.WalletID,
		t.Type,
		t.Amount.StringFixed(2),
		t.Reference,
		t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateReference
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ListTransactionsByWallet(ctx context.Context, walletID int64) ([]Transaction, error) {
	const q = `
SELECT id, wallet_id, type, amount, reference, created_at
FROM transactions
WHERE wallet_id = $1
ORDER BY created_at DESC, id DESC
`
	rows, err := storage.QuerierFrom(ctx, r.db).QueryContext(ctx, q, walletID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		var amount string
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Type, &amount, &t.Reference, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		a, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		t.Amount = a
		out = append(out, t)
	}
	return out, rows.Err()
}
