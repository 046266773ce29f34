package reporting

import (
	"context"
	"sync"
	"time"

	"callpay-platform/internal/calls"
)

// MemoryRepo is an in-memory reporting source for tests. Feed it finished
// fixtures; it never derives anything itself.
type MemoryRepo struct {
	mu       sync.RWMutex
	sessions []calls.Session
	ledger   []LedgerEntry
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) AddSession(s calls.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
}

func (r *MemoryRepo) AddLedger(e LedgerEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ledger = append(r.ledger, e)
}

func (r *MemoryRepo) ListSessions(ctx context.Context, from, to time.Time, userID int64) ([]calls.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []calls.Session
	for _, s := range r.sessions {
		if s.CreatedAt.Before(from) || !s.CreatedAt.Before(to) {
			continue
		}
		if userID != 0 && s.CallerID != userID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *MemoryRepo) ListLedger(ctx context.Context, from, to time.Time, userID int64) ([]LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []LedgerEntry
	for _, e := range r.ledger {
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		if userID != 0 && e.UserID != userID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
