package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"callpay-platform/internal/apperr"
	"callpay-platform/internal/money"
)

// RateRepository abstracts rate storage.
type RateRepository interface {
	// GetEffective returns the newest rate for the currency with
	// EffectiveAt <= at.
	GetEffective(ctx context.Context, currency string, at time.Time) (Rate, error)
	Insert(ctx context.Context, r *Rate) error
	ListByCurrency(ctx context.Context, currency string) ([]Rate, error)
}

var (
	ErrRateNotFound = apperr.New(apperr.CodeNotFound, "no rate configured for currency")
	ErrInvalidRate  = apperr.New(apperr.CodeInvalidAmount, "rate must be greater than 0")
)

// Service resolves the per-minute rate to bill a call at. Calls are billed at
// the rate that was effective when they started, so a price change never
// reprices calls already in progress.
type Service struct {
	repo        RateRepository
	defaultRate decimal.Decimal
	clock       func() time.Time
}

func NewService(repo RateRepository, defaultRate decimal.Decimal) *Service {
	return &Service{repo: repo, defaultRate: defaultRate, clock: time.Now}
}

// PerMinuteRate returns the effective rate for currency at the given instant,
// falling back to the configured default when no rate row exists.
func (s *Service) PerMinuteRate(ctx context.Context, currency string, at time.Time) (decimal.Decimal, error) {
	if s.repo == nil {
		return s.defaultRate, nil
	}
	r, err := s.repo.GetEffective(ctx, currency, at)
	if err != nil {
		if errors.Is(err, ErrRateNotFound) {
			return s.defaultRate, nil
		}
		return decimal.Decimal{}, err
	}
	return r.PerMinute, nil
}

// SetRate schedules a new per-minute rate. A zero effectiveAt means now.
func (s *Service) SetRate(ctx context.Context, currency string, perMinute decimal.Decimal, effectiveAt time.Time) (Rate, error) {
	if currency == "" {
		return Rate{}, apperr.New(apperr.CodeValidation, "currency is required")
	}
	perMinute = money.Round(perMinute)
	if !money.IsPositive(perMinute) {
		return Rate{}, ErrInvalidRate
	}
	now := s.clock().UTC()
	if effectiveAt.IsZero() {
		effectiveAt = now
	}
	r := Rate{
		Currency:    currency,
		PerMinute:   perMinute,
		EffectiveAt: effectiveAt.UTC(),
		CreatedAt:   now,
	}
	if err := s.repo.Insert(ctx, &r); err != nil {
		return Rate{}, err
	}
	return r, nil
}

// History returns all rates for a currency, newest effective first.
func (s *Service) History(ctx context.Context, currency string) ([]Rate, error) {
	return s.repo.ListByCurrency(ctx, currency)
}
