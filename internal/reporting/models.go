package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"callpay-platform/internal/wallet"
)

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics.
// UserID zero means platform-wide.
type CallsSummaryRequest struct {
	Range  TimeRange `json:"range"`
	UserID int64     `json:"user_id,omitempty"`
}

type CallsSummary struct {
	UserID int64 `json:"user_id,omitempty"`

	TotalCalls   int `json:"total_calls"`
	EndedCalls   int `json:"ended_calls"`
	FailedCalls  int `json:"failed_calls"`
	ActiveCalls  int `json:"active_calls"`
	PendingCalls int `json:"pending_calls"`

	TotalDurationSec   int64 `json:"total_duration_sec"`
	AverageDurationSec int64 `json:"average_duration_sec"`

	TotalBilled decimal.Decimal `json:"total_billed"`
}

// SpendSummaryRequest requests aggregated ledger metrics.
// Spend is derived from immutable ledger entries.
type SpendSummaryRequest struct {
	Range  TimeRange `json:"range"`
	UserID int64     `json:"user_id,omitempty"`
}

type SpendSummary struct {
	UserID   int64  `json:"user_id,omitempty"`
	Currency string `json:"currency"`

	TotalCredits decimal.Decimal `json:"total_credits"`
	TotalDebits  decimal.Decimal `json:"total_debits"`
	NetDelta     decimal.Decimal `json:"net_delta"`

	// CallSpend is the portion of debits attributable to call billing.
	CallSpend decimal.Decimal `json:"call_spend"`
}

// LedgerEntry is a ledger row joined with its owning user, the unit the spend
// report aggregates over.
type LedgerEntry struct {
	UserID    int64                  `json:"user_id"`
	Type      wallet.TransactionType `json:"type"`
	Amount    decimal.Decimal        `json:"amount"`
	Reference string                 `json:"reference"`
	CreatedAt time.Time              `json:"created_at"`
}
