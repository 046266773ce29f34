package wallet

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryRepo is an in-memory Repository for tests. It is not durable and not
// intended for production use. Writer serialization and rollback come from the
// storage.MemRunner it is registered with.
type MemoryRepo struct {
	mu sync.RWMutex

	walletsByUser map[int64]Wallet
	txns          []Transaction
	refs          map[string]struct{}

	nextWalletID int64
	nextTxnID    int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		walletsByUser: make(map[int64]Wallet),
		refs:          make(map[string]struct{}),
		nextWalletID:  1,
		nextTxnID:     1,
	}
}

type memorySnapshot struct {
	walletsByUser map[int64]Wallet
	txns          []Transaction
	refs          map[string]struct{}
	nextWalletID  int64
	nextTxnID     int64
}

func (r *MemoryRepo) Snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := memorySnapshot{
		walletsByUser: make(map[int64]Wallet, len(r.walletsByUser)),
		txns:          append([]Transaction(nil), r.txns...),
		refs:          make(map[string]struct{}, len(r.refs)),
		nextWalletID:  r.nextWalletID,
		nextTxnID:     r.nextTxnID,
	}
	for k, v := range r.walletsByUser {
		snap.walletsByUser[k] = v
	}
	for k := range r.refs {
		snap.refs[k] = struct{}{}
	}
	return snap
}

func (r *MemoryRepo) Restore(snap any) {
	s := snap.(memorySnapshot)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.walletsByUser = s.walletsByUser
	r.txns = s.txns
	r.refs = s.refs
	r.nextWalletID = s.nextWalletID
	r.nextTxnID = s.nextTxnID
}

func (r *MemoryRepo) EnsureWallet(ctx context.Context, userID int64, currency string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.walletsByUser[userID]; ok {
		return nil
	}
	w := Wallet{
		ID:        r.nextWalletID,
		UserID:    userID,
		Currency:  currency,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.nextWalletID++
	r.walletsByUser[userID] = w
	return nil
}

func (r *MemoryRepo) GetByUserID(ctx context.Context, userID int64) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.walletsByUser[userID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (r *MemoryRepo) GetByUserIDForUpdate(ctx context.Context, userID int64) (Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *MemoryRepo) SetBalance(ctx context.Context, walletID int64, balance decimal.Decimal, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, w := range r.walletsByUser {
		if w.ID == walletID {
			w.Balance = balance
			w.UpdatedAt = updatedAt
			r.walletsByUser[userID] = w
			return nil
		}
	}
	return ErrWalletNotFound
}

func (r *MemoryRepo) InsertTransaction(ctx context.Context, t *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.refs[t.Reference]; dup {
		return ErrDuplicateReference
	}
	t.ID = r.nextTxnID
	r.nextTxnID++
	r.refs[t.Reference] = struct{}{}
	r.txns = append(r.txns, *t)
	return nil
}

func (r *MemoryRepo) ListTransactionsByWallet(ctx context.Context, walletID int64) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Transaction
	for _, t := range r.txns {
		if t.WalletID == walletID {
			out = append(out, t)
		}
	}
	// newest first; insertion ids break created_at ties
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
