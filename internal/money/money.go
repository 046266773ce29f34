package money

import (
	"github.com/shopspring/decimal"
)

// All monetary values in this service are fixed-point decimals rounded to two
// places. Every write path must pass through Round before persisting; no code
// should do float arithmetic on money.

// Places is the single rounding policy for the whole service.
const Places = 2

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// Round applies the service-wide rounding policy (half away from zero).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// FromString parses a decimal amount (e.g. "100.00").
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// FromInt builds an amount from whole units.
func FromInt(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// IsPositive reports whether d > 0.
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.Zero)
}

// PerMinuteCost converts elapsed seconds at a per-minute rate into a rounded
// amount: seconds * rate / 60.
func PerMinuteCost(durationSec int64, ratePerMinute decimal.Decimal) decimal.Decimal {
	if durationSec <= 0 {
		return Zero
	}
	return Round(ratePerMinute.Mul(decimal.NewFromInt(durationSec)).Div(decimal.NewFromInt(60)))
}
