package wallet

import (
	"context"
	"time"

	"callpay-platform/internal/money"
	"callpay-platform/internal/storage"

	"github.com/shopspring/decimal"
)

// Service owns the wallet ledger.
//
// Money invariants:
// - No balance update without a ledger entry, committed in the same unit.
// - Ledger is append-only (immutable).
// - Balance never goes negative; overdraw attempts fail cleanly.
// - Every monetary value is rounded to two places on write.
//
// Concurrency:
// - Per-wallet writers are serialized via GetByUserIDForUpdate. Of several
//   concurrent debits that would jointly overdraw a wallet, exactly one wins.
// - Transfer locks both wallets in ascending user-id order to avoid deadlocks
//   between opposite-direction transfers.
type Service struct {
	repo     Repository
	runner   storage.TxRunner
	currency string
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, runner storage.TxRunner, currency string) *Service {
	return &Service{repo: repo, runner: runner, currency: currency, clock: time.Now}
}

// GetOrCreateWallet returns the user's wallet, creating it at balance 0 on
// first access. Safe under concurrent first access for the same user.
func (s *Service) GetOrCreateWallet(ctx context.Context, userID int64) (Wallet, error) {
	if userID <= 0 {
		return Wallet{}, ErrInvalidRequest
	}

	var out Wallet
	err := s.runner.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.EnsureWallet(ctx, userID, s.currency, s.clock().UTC()); err != nil {
			return err
		}
		w, err := s.repo.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		out = w
		return nil
	})
	return out, err
}

// GetBalance returns the current balance and currency, creating the wallet
// lazily like every other first access.
func (s *Service) GetBalance(ctx context.Context, userID int64) (Balance, error) {
	w, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{Balance: w.Balance, Currency: w.Currency}, nil
}

// ListTransactions returns the user's ledger entries newest-first.
func (s *Service) ListTransactions(ctx context.Context, userID int64) ([]Transaction, error) {
	w, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTransactionsByWallet(ctx, w.ID)
}

// Fund credits the user's wallet in one atomic unit: locate-or-create wallet,
// add amount, append a CREDIT entry. Reference reuse fails DuplicateReference.
func (s *Service) Fund(ctx context.Context, userID int64, amount decimal.Decimal, reference string) (Wallet, Transaction, error) {
	amount, err := s.checkMutation(userID, amount, reference)
	if err != nil {
		return Wallet{}, Transaction{}, err
	}

	var outWallet Wallet
	var outTxn Transaction

	err = s.runner.InTx(ctx, func(ctx context.Context) error {
		now := s.clock().UTC()
		if err := s.repo.EnsureWallet(ctx, userID, s.currency, now); err != nil {
			return err
		}
		w, err := s.repo.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		w.Balance = money.Round(w.Balance.Add(amount))
		if err := s.repo.SetBalance(ctx, w.ID, w.Balance, now); err != nil {
			return err
		}
		w.UpdatedAt = now

		txn := Transaction{
			WalletID:  w.ID,
			Type:      TransactionTypeCredit,
			Amount:    amount,
			Reference: reference,
			CreatedAt: now,
		}
		if err := s.repo.InsertTransaction(ctx, &txn); err != nil {
			return err
		}

		outWallet = w
		outTxn = txn
		return nil
	})

	return outWallet, outTxn, err
}

// Debit subtracts from an existing wallet in one atomic unit. The wallet must
// exist and hold at least the amount.
func (s *Service) Debit(ctx context.Context, userID int64, amount decimal.Decimal, reference string) (Wallet, Transaction, error) {
	amount, err := s.checkMutation(userID, amount, reference)
	if err != nil {
		return Wallet{}, Transaction{}, err
	}

	var outWallet Wallet
	var outTxn Transaction

	err = s.runner.InTx(ctx, func(ctx context.Context) error {
		w, err := s.repo.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if w.Balance.LessThan(amount) {
			return ErrInsufficientBalance
		}

		now := s.clock().UTC()
		w.Balance = money.Round(w.Balance.Sub(amount))
		if err := s.repo.SetBalance(ctx, w.ID, w.Balance, now); err != nil {
			return err
		}
		w.UpdatedAt = now

		txn := Transaction{
			WalletID:  w.ID,
			Type:      TransactionTypeDebit,
			Amount:    amount,
			Reference: reference,
			CreatedAt: now,
		}
		if err := s.repo.InsertTransaction(ctx, &txn); err != nil {
			return err
		}

		outWallet = w
		outTxn = txn
		return nil
	})

	return outWallet, outTxn, err
}

// TransferResult reports both post-transfer wallets.
type TransferResult struct {
	From Wallet `json:"from"`
	To   Wallet `json:"to"`
}

// Transfer moves amount between two users as one atomic unit. The destination
// wallet is created if absent. Ledger legs are tagged "<ref>-DEBIT" and
// "<ref>-CREDIT".
func (s *Service) Transfer(ctx context.Context, fromUserID, toUserID int64, amount decimal.Decimal, reference string) (TransferResult, error) {
	if fromUserID == toUserID {
		return TransferResult{}, ErrSameParty
	}
	amount, err := s.checkMutation(fromUserID, amount, reference)
	if err != nil {
		return TransferResult{}, err
	}
	if toUserID <= 0 {
		return TransferResult{}, ErrInvalidRequest
	}

	var out TransferResult

	err = s.runner.InTx(ctx, func(ctx context.Context) error {
		now := s.clock().UTC()

		if _, err := s.repo.GetByUserID(ctx, fromUserID); err != nil {
			return err
		}
		if err := s.repo.EnsureWallet(ctx, toUserID, s.currency, now); err != nil {
			return err
		}

		// Lock in ascending user-id order; opposite-direction transfers on the
		// same pair otherwise deadlock.
		first, second := fromUserID, toUserID
		if second < first {
			first, second = second, first
		}
		locked := make(map[int64]Wallet, 2)
		for _, uid := range []int64{first, second} {
			w, err := s.repo.GetByUserIDForUpdate(ctx, uid)
			if err != nil {
				return err
			}
			locked[uid] = w
		}
		from, to := locked[fromUserID], locked[toUserID]

		if from.Balance.LessThan(amount) {
			return ErrInsufficientBalance
		}

		from.Balance = money.Round(from.Balance.Sub(amount))
		if err := s.repo.SetBalance(ctx, from.ID, from.Balance, now); err != nil {
			return err
		}
		from.UpdatedAt = now
		debit := Transaction{
			WalletID:  from.ID,
			Type:      TransactionTypeDebit,
			Amount:    amount,
			Reference: reference + "-DEBIT",
			CreatedAt: now,
		}
		if err := s.repo.InsertTransaction(ctx, &debit); err != nil {
			return err
		}

		to.Balance = money.Round(to.Balance.Add(amount))
		if err := s.repo.SetBalance(ctx, to.ID, to.Balance, now); err != nil {
			return err
		}
		to.UpdatedAt = now
		credit := Transaction{
			WalletID:  to.ID,
			Type:      TransactionTypeCredit,
			Amount:    amount,
			Reference: reference + "-CREDIT",
			CreatedAt: now,
		}
		if err := s.repo.InsertTransaction(ctx, &credit); err != nil {
			return err
		}

		out = TransferResult{From: from, To: to}
		return nil
	})

	return out, err
}

// checkMutation validates common mutation inputs and normalizes the amount to
// the service-wide two-place rounding policy.
func (s *Service) checkMutation(userID int64, amount decimal.Decimal, reference string) (decimal.Decimal, error) {
	if userID <= 0 || reference == "" {
		return decimal.Decimal{}, ErrInvalidRequest
	}
	amount = money.Round(amount)
	if !money.IsPositive(amount) {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return amount, nil
}
