package calls

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"callpay-platform/internal/money"
	"callpay-platform/internal/storage"
	"callpay-platform/internal/wallet"
	"callpay-platform/pkg/logger"
	"callpay-platform/pkg/utils"
)

// Debiter is the slice of the wallet service the billing step needs.
type Debiter interface {
	Debit(ctx context.Context, userID int64, amount decimal.Decimal, reference string) (wallet.Wallet, wallet.Transaction, error)
}

// RateSource resolves the per-minute rate effective at a given instant.
type RateSource interface {
	PerMinuteRate(ctx context.Context, currency string, at time.Time) (decimal.Decimal, error)
}

// Service drives the call session state machine and bills the caller exactly
// once, when a session leaves ACTIVE. The billing debit and the session
// finalization share one unit of work: if the debit fails, the session stays
// ACTIVE and the failure surfaces to the caller.
type Service struct {
	repo    Repository
	wallets Debiter
	runner  storage.TxRunner

	// rdb enforces the per-caller concurrent-call cap. nil disables the cap.
	rdb      *redis.Client
	maxCalls int
	slotTTL  time.Duration

	// rates, when set, resolves the rate effective at call start. Otherwise
	// ratePerMinute applies to every call.
	rates         RateSource
	currency      string
	ratePerMinute decimal.Decimal

	clock func() time.Time
}

type ServiceOptions struct {
	RatePerMinute decimal.Decimal
	Rates         RateSource
	Currency      string
	Redis         *redis.Client
	MaxCalls      int
	SlotTTL       time.Duration
}

func NewService(repo Repository, wallets Debiter, runner storage.TxRunner, opts ServiceOptions) *Service {
	return &Service{
		repo:          repo,
		wallets:       wallets,
		runner:        runner,
		rdb:           opts.Redis,
		maxCalls:      opts.MaxCalls,
		slotTTL:       opts.SlotTTL,
		rates:         opts.Rates,
		currency:      opts.Currency,
		ratePerMinute: opts.RatePerMinute,
		clock:         time.Now,
	}
}

// Initiate creates a new session in INITIATED for callerID -> calleeID.
func (s *Service) Initiate(ctx context.Context, callerID, calleeID int64) (Session, error) {
	if calleeID <= 0 {
		return Session{}, ErrInvalidCallee
	}
	if callerID == calleeID {
		return Session{}, ErrSameParty
	}

	if err := s.acquireSlot(ctx, callerID); err != nil {
		return Session{}, err
	}

	now := s.clock().UTC()
	sess := Session{
		CallerID:  callerID,
		CalleeID:  calleeID,
		Status:    StatusInitiated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.runner.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, &sess); err != nil {
			return err
		}
		return s.repo.AppendEvent(ctx, &Event{
			SessionID:   sess.ID,
			Type:        EventCreated,
			ActorUserID: callerID,
			CreatedAt:   now,
		})
	})
	if err != nil {
		s.releaseSlot(ctx, callerID)
		return Session{}, err
	}
	return sess, nil
}

// Accept transitions INITIATED or RINGING to ACTIVE. Only the callee may
// accept; acceptance stamps StartedAt, the anchor for billing.
func (s *Service) Accept(ctx context.Context, userID, sessionID int64) (Session, error) {
	var out Session
	err := s.runner.InTx(ctx, func(ctx context.Context) error {
		sess, err := s.repo.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.CalleeID != userID {
			if sess.CallerID != userID {
				return ErrNotParticipant
			}
			return ErrNotCallee
		}
		if sess.Status.Terminal() {
			return ErrAlreadyCompleted
		}
		if sess.Status != StatusInitiated && sess.Status != StatusRinging {
			return ErrInvalidTransition
		}

		now := s.clock().UTC()
		sess.Status = StatusActive
		sess.StartedAt = &now
		sess.UpdatedAt = now
		if err := s.repo.Update(ctx, &sess); err != nil {
			return err
		}
		if err := s.repo.AppendEvent(ctx, &Event{
			SessionID:   sess.ID,
			Type:        EventAccepted,
			ActorUserID: userID,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		out = sess
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return out, nil
}

// Reject moves a not-yet-answered session to FAILED. Nothing is billed.
func (s *Service) Reject(ctx context.Context, userID, sessionID int64) (Session, error) {
	var out Session
	var callerID int64
	err := s.runner.InTx(ctx, func(ctx context.Context) error {
		sess, err := s.repo.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.CalleeID != userID {
			if sess.CallerID != userID {
				return ErrNotParticipant
			}
			return ErrNotCallee
		}
		if sess.Status.Terminal() {
			return ErrAlreadyCompleted
		}
		if sess.Status == StatusActive {
			return ErrInvalidTransition
		}

		now := s.clock().UTC()
		zeroDur := int64(0)
		zeroCost := money.Zero
		sess.Status = StatusFailed
		sess.EndedAt = &now
		sess.DurationSec = &zeroDur
		sess.Cost = &zeroCost
		sess.UpdatedAt = now
		if err := s.repo.Update(ctx, &sess); err != nil {
			return err
		}
		if err := s.repo.AppendEvent(ctx, &Event{
			SessionID:   sess.ID,
			Type:        EventRejected,
			ActorUserID: userID,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		out = sess
		callerID = sess.CallerID
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	s.releaseSlot(ctx, callerID)
	return out, nil
}

// End terminates an ACTIVE session and bills the caller for the elapsed talk
// time. Ending an already terminal session is a no-op that returns the stored
// session, so retried termination requests never double-bill.
func (s *Service) End(ctx context.Context, userID, sessionID int64) (Session, error) {
	var out Session
	var callerID int64
	terminalNoop := false

	err := s.runner.InTx(ctx, func(ctx context.Context) error {
		sess, err := s.repo.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.CallerID != userID && sess.CalleeID != userID {
			return ErrNotParticipant
		}
		if sess.Status.Terminal() {
			out = sess
			terminalNoop = true
			return nil
		}
		if sess.Status != StatusActive {
			return ErrInvalidTransition
		}

		now := s.clock().UTC()
		duration := int64(now.Sub(*sess.StartedAt).Seconds())
		if duration < 0 {
			duration = 0
		}
		cost := money.PerMinuteCost(duration, s.billingRate(ctx, *sess.StartedAt))

		sess.Status = StatusEnded
		sess.EndedAt = &now
		sess.DurationSec = &duration
		sess.Cost = &cost
		sess.UpdatedAt = now
		if err := s.repo.Update(ctx, &sess); err != nil {
			return err
		}

		if money.IsPositive(cost) {
			ref := fmt.Sprintf("CALL-%d-%d", sess.ID, now.UnixMilli())
			if _, _, err := s.wallets.Debit(ctx, sess.CallerID, cost, ref); err != nil {
				return fmt.Errorf("bill call %d: %w", sess.ID, err)
			}
		}

		meta := fmt.Sprintf(`{"endedBy":%d,"durationSec":%d,"cost":%q}`, userID, duration, cost.StringFixed(2))
		if err := s.repo.AppendEvent(ctx, &Event{
			SessionID:   sess.ID,
			Type:        EventEnded,
			ActorUserID: userID,
			Metadata:    meta,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		out = sess
		callerID = sess.CallerID
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	if !terminalNoop {
		s.releaseSlot(ctx, callerID)
	}
	return out, nil
}

// Heartbeat records liveness from a participant. A callee heartbeat on an
// INITIATED session means the callee's device saw the call, which promotes it
// to RINGING.
func (s *Service) Heartbeat(ctx context.Context, userID, sessionID int64) (Session, error) {
	var out Session
	err := s.runner.InTx(ctx, func(ctx context.Context) error {
		sess, err := s.repo.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.CallerID != userID && sess.CalleeID != userID {
			return ErrNotParticipant
		}
		if sess.Status.Terminal() {
			return ErrAlreadyCompleted
		}

		now := s.clock().UTC()
		if sess.Status == StatusInitiated && sess.CalleeID == userID {
			sess.Status = StatusRinging
			sess.UpdatedAt = now
			if err := s.repo.Update(ctx, &sess); err != nil {
				return err
			}
		}
		if err := s.repo.AppendEvent(ctx, &Event{
			SessionID:   sess.ID,
			Type:        EventHeartbeat,
			ActorUserID: userID,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		out = sess
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return out, nil
}

// Get returns a session to one of its participants.
func (s *Service) Get(ctx context.Context, userID, sessionID int64) (Session, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.CallerID != userID && sess.CalleeID != userID {
		return Session{}, ErrNotParticipant
	}
	return sess, nil
}

// List returns the user's call history, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]Session, error) {
	return s.repo.ListByParticipant(ctx, userID)
}

// Events returns the event trail of a session to one of its participants.
func (s *Service) Events(ctx context.Context, userID, sessionID int64) ([]Event, error) {
	if _, err := s.Get(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, sessionID)
}

// billingRate resolves the per-minute rate effective at call start. Billing at
// start time means a mid-call price change never reprices the call.
func (s *Service) billingRate(ctx context.Context, startedAt time.Time) decimal.Decimal {
	if s.rates == nil {
		return s.ratePerMinute
	}
	rate, err := s.rates.PerMinuteRate(ctx, s.currency, startedAt)
	if err != nil {
		logger.From(ctx).Warn("rate lookup failed, using default", "error", err)
		return s.ratePerMinute
	}
	return rate
}

func (s *Service) acquireSlot(ctx context.Context, callerID int64) error {
	if s.rdb == nil || s.maxCalls <= 0 {
		return nil
	}
	ok, err := utils.AcquireCallSlot(ctx, s.rdb, callerID, s.maxCalls, s.slotTTL)
	if err != nil {
		// The cap is advisory. A broken Redis must not take calling down.
		logger.From(ctx).Warn("call slot acquire failed", "error", err)
		return nil
	}
	if !ok {
		return ErrTooManyCalls
	}
	return nil
}

func (s *Service) releaseSlot(ctx context.Context, callerID int64) {
	if s.rdb == nil || s.maxCalls <= 0 || callerID <= 0 {
		return
	}
	if err := utils.ReleaseCallSlot(ctx, s.rdb, callerID); err != nil {
		logger.From(ctx).Warn("call slot release failed", "error", err)
	}
}
