package storage

import (
	"context"
	"sync"
)

// Snapshotter is implemented by in-memory repositories that participate in a
// MemRunner unit of work. Snapshot returns an opaque deep copy of repository
// state; Restore replaces state with a previously taken snapshot.
type Snapshotter interface {
	Snapshot() any
	Restore(snap any)
}

// MemRunner is the in-memory TxRunner used by tests. It is not durable and not
// intended for production use. A single mutex serializes all units of work,
// which also gives the per-wallet writer serialization the ledger requires;
// rollback is implemented by snapshotting every registered repository up front
// and restoring on error.
type MemRunner struct {
	mu     sync.Mutex
	stores []Snapshotter
}

func NewMemRunner(stores ...Snapshotter) *MemRunner {
	return &MemRunner{stores: stores}
}

type memTxKey struct{}

func (r *MemRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snaps := make([]any, len(r.stores))
	for i, s := range r.stores {
		snaps[i] = s.Snapshot()
	}

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		for i, s := range r.stores {
			s.Restore(snaps[i])
		}
		return err
	}
	return nil
}
