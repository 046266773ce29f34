package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"callpay-platform/internal/apperr"
	"callpay-platform/internal/audit"
	"callpay-platform/internal/money"
	"callpay-platform/internal/storage"
	"callpay-platform/internal/wallet"
)

// Webhook failures. Signature and key problems are reported before any state
// is touched; a replayed key is not an error, it short-circuits to success.
var (
	ErrMissingSignature      = apperr.New(apperr.CodeValidation, "missing webhook signature")
	ErrInvalidSignature      = apperr.New(apperr.CodeForbidden, "invalid webhook signature")
	ErrMissingIdempotencyKey = apperr.New(apperr.CodeValidation, "missing idempotency key")
	ErrMalformedPayload      = apperr.New(apperr.CodeValidation, "malformed webhook payload")
)

const eventPaymentCompleted = "payment.completed"

type webhookEnvelope struct {
	Event string      `json:"event"`
	Data  webhookData `json:"data"`
}

type webhookData struct {
	UserID    int64           `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
}

// Outcome reports what processing a webhook did.
type Outcome struct {
	Credited  bool
	Replay    bool
	UserID    int64
	Reference string
}

// WalletFunder is the slice of the wallet service the webhook needs.
type WalletFunder interface {
	Fund(ctx context.Context, userID int64, amount decimal.Decimal, reference string) (wallet.Wallet, wallet.Transaction, error)
}

// WebhookService verifies and applies provider payment notifications.
//
// Processing order is fixed: authenticate the raw body first, then guard on
// the idempotency key, then credit. The key record and the ledger credit
// commit in one unit of work, so a crash between them cannot leave a consumed
// key with no credit.
type WebhookService struct {
	secret string
	funder WalletFunder
	keys   KeyStore
	runner storage.TxRunner
	audit  *audit.Service
	clock  func() time.Time
}

func NewWebhookService(secret string, funder WalletFunder, keys KeyStore, runner storage.TxRunner, auditSvc *audit.Service) *WebhookService {
	return &WebhookService{
		secret: secret,
		funder: funder,
		keys:   keys,
		runner: runner,
		audit:  auditSvc,
		clock:  time.Now,
	}
}

func (s *WebhookService) Process(ctx context.Context, rawBody []byte, signature, idemKey string) (Outcome, error) {
	if signature == "" {
		return Outcome{}, ErrMissingSignature
	}
	if idemKey == "" {
		return Outcome{}, ErrMissingIdempotencyKey
	}
	if !VerifySignature(s.secret, rawBody, signature) {
		return Outcome{}, ErrInvalidSignature
	}

	var env webhookEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return Outcome{}, ErrMalformedPayload
	}
	if env.Event != eventPaymentCompleted {
		return Outcome{}, apperr.Newf(apperr.CodeValidation, "unsupported webhook event %q", env.Event)
	}
	d := env.Data
	if d.UserID <= 0 || d.Reference == "" {
		return Outcome{}, ErrMalformedPayload
	}

	// A failed payment is acknowledged so the provider stops retrying, but
	// no money moves and the key stays unconsumed.
	if d.Status != string(IntentPaid) {
		s.logAudit(ctx, d.UserID, "payment webhook ignored", rawBody)
		return Outcome{UserID: d.UserID, Reference: d.Reference}, nil
	}

	amount := money.Round(d.Amount)
	if !money.IsPositive(amount) {
		return Outcome{}, ErrMalformedPayload
	}

	out := Outcome{UserID: d.UserID, Reference: d.Reference}
	err := s.runner.InTx(ctx, func(ctx context.Context) error {
		fresh, err := s.keys.Record(ctx, idemKey, s.clock().UTC())
		if err != nil {
			return err
		}
		if !fresh {
			out.Replay = true
			return nil
		}
		if _, _, err := s.funder.Fund(ctx, d.UserID, amount, d.Reference); err != nil {
			return fmt.Errorf("apply webhook credit: %w", err)
		}
		out.Credited = true
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	if out.Credited {
		s.logAudit(ctx, d.UserID, "wallet credited via payment webhook", rawBody)
	}
	return out, nil
}

func (s *WebhookService) logAudit(ctx context.Context, userID int64, message string, rawBody []byte) {
	if s.audit == nil {
		return
	}
	// Best-effort; a lost audit row never fails the webhook.
	_ = s.audit.LogPaymentWebhook(ctx, userID, message, string(rawBody))
}
