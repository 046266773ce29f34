package reporting

import (
	"context"
	"errors"
	"strings"
	"time"

	"callpay-platform/internal/apperr"
	"callpay-platform/internal/calls"
	"callpay-platform/internal/money"
	"callpay-platform/internal/wallet"
)

var ErrInvalidRange = apperr.New(apperr.CodeValidation, "a valid from/to range is required")

// Repository abstracts data access for reporting.
//
// Implementations must query immutable sources (the ledger and finished call
// records); reports are read-only and never mutate state.
type Repository interface {
	// ListSessions returns sessions created in [from, to). userID zero means
	// all users; otherwise sessions where the user is the caller.
	ListSessions(ctx context.Context, from, to time.Time, userID int64) ([]calls.Session, error)

	// ListLedger returns ledger entries created in [from, to) joined with the
	// owning user. userID zero means all users.
	ListLedger(ctx context.Context, from, to time.Time, userID int64) ([]LedgerEntry, error)
}

type Service struct {
	repo     Repository
	currency string
}

func NewService(repo Repository, currency string) *Service {
	return &Service{repo: repo, currency: currency}
}

const callReferencePrefix = "CALL-"

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if err := s.check(req.Range); err != nil {
		return CallsSummary{}, err
	}

	sessions, err := s.repo.ListSessions(ctx, req.Range.From, req.Range.To, req.UserID)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{UserID: req.UserID, TotalBilled: money.Zero}
	for _, sess := range sessions {
		out.TotalCalls++
		switch sess.Status {
		case calls.StatusEnded:
			out.EndedCalls++
		case calls.StatusFailed:
			out.FailedCalls++
		case calls.StatusActive:
			out.ActiveCalls++
		case calls.StatusInitiated, calls.StatusRinging:
			out.PendingCalls++
		}
		if sess.DurationSec != nil {
			out.TotalDurationSec += *sess.DurationSec
		}
		if sess.Cost != nil {
			out.TotalBilled = out.TotalBilled.Add(*sess.Cost)
		}
	}
	if out.EndedCalls > 0 {
		out.AverageDurationSec = out.TotalDurationSec / int64(out.EndedCalls)
	}
	return out, nil
}

func (s *Service) SpendSummary(ctx context.Context, req SpendSummaryRequest) (SpendSummary, error) {
	if err := s.check(req.Range); err != nil {
		return SpendSummary{}, err
	}

	entries, err := s.repo.ListLedger(ctx, req.Range.From, req.Range.To, req.UserID)
	if err != nil {
		return SpendSummary{}, err
	}

	out := SpendSummary{
		UserID:       req.UserID,
		Currency:     s.currency,
		TotalCredits: money.Zero,
		TotalDebits:  money.Zero,
		CallSpend:    money.Zero,
	}
	for _, e := range entries {
		switch e.Type {
		case wallet.TransactionTypeCredit:
			out.TotalCredits = out.TotalCredits.Add(e.Amount)
		case wallet.TransactionTypeDebit:
			out.TotalDebits = out.TotalDebits.Add(e.Amount)
			if strings.HasPrefix(e.Reference, callReferencePrefix) {
				out.CallSpend = out.CallSpend.Add(e.Amount)
			}
		}
	}
	out.NetDelta = out.TotalCredits.Sub(out.TotalDebits)
	return out, nil
}

func (s *Service) check(r TimeRange) error {
	if s.repo == nil {
		return errors.New("reporting: repository not configured")
	}
	if r.From.IsZero() || r.To.IsZero() || !r.To.After(r.From) {
		return ErrInvalidRange
	}
	return nil
}
