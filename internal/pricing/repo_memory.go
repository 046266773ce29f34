package pricing

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is the in-memory RateRepository used by tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	rates  []Rate
	nextID int64
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{nextID: 1} }

func (r *MemoryRepo) GetEffective(ctx context.Context, currency string, at time.Time) (Rate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *Rate
	for i := range r.rates {
		rt := &r.rates[i]
		if rt.Currency != currency || rt.EffectiveAt.After(at) {
			continue
		}
		if best == nil || rt.EffectiveAt.After(best.EffectiveAt) {
			best = rt
		}
	}
	if best == nil {
		return Rate{}, ErrRateNotFound
	}
	return *best, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, rate *Rate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rate.ID = r.nextID
	r.nextID++
	r.rates = append(r.rates, *rate)
	return nil
}

func (r *MemoryRepo) ListByCurrency(ctx context.Context, currency string) ([]Rate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Rate
	for _, rt := range r.rates {
		if rt.Currency == currency {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveAt.After(out[j].EffectiveAt) })
	return out, nil
}
