package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rate is a per-minute call rate that takes effect at EffectiveAt. Rates are
// append-only; changing the price means inserting a new row, so historical
// bills stay explainable.
type Rate struct {
	ID          int64           `json:"id" db:"id"`
	Currency    string          `json:"currency" db:"currency"`
	PerMinute   decimal.Decimal `json:"per_minute" db:"per_minute"`
	EffectiveAt time.Time       `json:"effective_at" db:"effective_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
