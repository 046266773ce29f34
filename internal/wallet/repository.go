package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository is the persistence contract for wallets and their ledger.
//
// Contract notes:
// - All methods respect the ambient unit of work (storage.TxRunner); writes
//   issued inside InTx commit or roll back together.
// - GetByUserIDForUpdate must serialize concurrent writers on the same wallet
//   (row lock in Postgres, store lock in memory) so a check-then-write debit
//   cannot race a concurrent mutation.
// - InsertTransaction returns ErrDuplicateReference when the reference is
//   already present; the ledger is append-only.
type Repository interface {
	// EnsureWallet creates the wallet row at balance 0 if absent. Concurrent
	// first access for one user must not create duplicate rows.
	EnsureWallet(ctx context.Context, userID int64, currency string, now time.Time) error

	GetByUserID(ctx context.Context, userID int64) (Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, userID int64) (Wallet, error)

	SetBalance(ctx context.Context, walletID int64, balance decimal.Decimal, updatedAt time.Time) error

	InsertTransaction(ctx context.Context, t *Transaction) error

	// ListTransactionsByWallet returns entries newest-first.
	ListTransactionsByWallet(ctx context.Context, walletID int64) ([]Transaction, error)
}
