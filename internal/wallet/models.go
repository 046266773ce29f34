package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the per-user balance container. Exactly one row exists per user,
// created lazily on first access.
//
// Money invariants:
// - Balance is never negative.
// - Balance moves only together with an appended Transaction; the signed sum
//   of a wallet's transactions always reconciles with Balance (to two places).
type Wallet struct {
	ID       int64  `json:"id" db:"id"`
	UserID   int64  `json:"user_id" db:"user_id"`
	Currency string `json:"currency" db:"currency"`

	// Balance is fixed-point with two decimal places (NUMERIC(18,2)).
	Balance decimal.Decimal `json:"balance" db:"balance"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Transaction is an immutable, append-only ledger entry.
// Reference is globally unique; replays of the same reference are rejected.
type Transaction struct {
	ID       int64           `json:"id" db:"id"`
	WalletID int64           `json:"wallet_id" db:"wallet_id"`
	Type     TransactionType `json:"type" db:"type"`

	// Amount is always positive; Type carries the sign.
	Amount decimal.Decimal `json:"amount" db:"amount"`

	Reference string    `json:"reference" db:"reference"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

// Balance is the read-model returned by balance lookups.
type Balance struct {
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}
