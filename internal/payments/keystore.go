package payments

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"callpay-platform/internal/storage"
)

// KeyStore records webhook idempotency keys. Record returns true when the key
// was newly stored and false when it was already present. The store is written
// inside the same unit of work that applies the wallet credit, so a key only
// becomes durable together with its effect.
type KeyStore interface {
	Record(ctx context.Context, key string, seenAt time.Time) (bool, error)
}

// PostgresKeyStore backs KeyStore with the webhook_events table. Uniqueness is
// enforced by the primary key on idempotency_key.
type PostgresKeyStore struct {
	db *sql.DB
}

func NewPostgresKeyStore(db *sql.DB) *PostgresKeyStore { return &PostgresKeyStore{db: db} }

func (s *PostgresKeyStore) Record(ctx context.Context, key string, seenAt time.Time) (bool, error) {
	const q = `
INSERT INTO webhook_events (idempotency_key, received_at)
VALUES ($1, $2)
ON CONFLICT (idempotency_key) DO NOTHING
`
	res, err := storage.QuerierFrom(ctx, s.db).ExecContext(ctx, q, key, seenAt)
	if err != nil {
		return false, fmt.Errorf("record webhook key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record webhook key: %w", err)
	}
	return n == 1, nil
}

// MemoryKeyStore is the in-memory KeyStore used by tests.
type MemoryKeyStore struct {
	mu   sync.Mutex
	keys map[string]time.Time
}

func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: map[string]time.Time{}}
}

func (s *MemoryKeyStore) Record(ctx context.Context, key string, seenAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = seenAt
	return true, nil
}

func (s *MemoryKeyStore) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[string]time.Time, len(s.keys))
	for k, v := range s.keys {
		cp[k] = v
	}
	return cp
}

func (s *MemoryKeyStore) Restore(snap any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = snap.(map[string]time.Time)
}
