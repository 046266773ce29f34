package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"callpay-platform/internal/storage"
	"callpay-platform/internal/wallet"
)

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

const testSecret = "whsec-test"

func newTestWebhook(t *testing.T) (*WebhookService, *wallet.Service, *wallet.MemoryRepo) {
	t.Helper()
	repo := wallet.NewMemoryRepo()
	keys := NewMemoryKeyStore()
	runner := storage.NewMemRunner(repo, keys)
	wallets := wallet.NewService(repo, runner, "NGN")
	svc := NewWebhookService(testSecret, wallets, keys, runner, nil)
	return svc, wallets, repo
}

func payload(t *testing.T, userID int64, amount, reference, status string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": "payment.completed",
		"data": map[string]any{
			"userId":    userID,
			"amount":    amount,
			"currency":  "NGN",
			"reference": reference,
			"status":    status,
		},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return body
}

func TestProcess_PaidCreditsWallet(t *testing.T) {
	svc, wallets, _ := newTestWebhook(t)
	ctx := context.Background()

	body := payload(t, 1, "250.00", "PAY-1", "PAID")
	out, err := svc.Process(ctx, body, ComputeSignature(testSecret, body), "idem-1")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !out.Credited || out.Replay {
		t.Fatalf("expected fresh credit, got %+v", out)
	}

	bal, err := wallets.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Balance.StringFixed(2) != "250.00" {
		t.Fatalf("expected 250.00, got %s", bal.Balance)
	}
}

func TestProcess_ReplayCreditsOnce(t *testing.T) {
	svc, wallets, _ := newTestWebhook(t)
	ctx := context.Background()

	body := payload(t, 1, "100.00", "PAY-2", "PAID")
	sig := ComputeSignature(testSecret, body)

	for i := 0; i < 3; i++ {
		out, err := svc.Process(ctx, body, sig, "idem-2")
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if i == 0 && !out.Credited {
			t.Fatal("first delivery should credit")
		}
		if i > 0 && (!out.Replay || out.Credited) {
			t.Fatalf("attempt %d should be a no-op replay, got %+v", i, out)
		}
	}

	bal, err := wallets.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Balance.StringFixed(2) != "100.00" {
		t.Fatalf("expected single credit of 100.00, got %s", bal.Balance)
	}
}

func TestProcess_FailedStatusIgnored(t *testing.T) {
	svc, wallets, _ := newTestWebhook(t)
	ctx := context.Background()

	body := payload(t, 1, "100.00", "PAY-3", "FAILED")
	out, err := svc.Process(ctx, body, ComputeSignature(testSecret, body), "idem-3")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Credited || out.Replay {
		t.Fatalf("failed payment must not move money, got %+v", out)
	}

	if _, err := wallets.GetBalance(ctx, 1); !errors.Is(err, wallet.ErrWalletNotFound) {
		t.Fatalf("no wallet should exist, got %v", err)
	}
}

func TestProcess_RejectsBadSignature(t *testing.T) {
	svc, _, _ := newTestWebhook(t)
	ctx := context.Background()

	body := payload(t, 1, "100.00", "PAY-4", "PAID")
	if _, err := svc.Process(ctx, body, ComputeSignature("wrong-secret", body), "idem-4"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if _, err := svc.Process(ctx, body, "", "idem-4"); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
	if _, err := svc.Process(ctx, body, ComputeSignature(testSecret, body), ""); !errors.Is(err, ErrMissingIdempotencyKey) {
		t.Fatalf("expected ErrMissingIdempotencyKey, got %v", err)
	}
}

func TestProcess_TamperedBodyRejected(t *testing.T) {
	svc, _, _ := newTestWebhook(t)
	ctx := context.Background()

	body := payload(t, 1, "100.00", "PAY-5", "PAID")
	sig := ComputeSignature(testSecret, body)
	tampered := payload(t, 1, "999.00", "PAY-5", "PAID")

	if _, err := svc.Process(ctx, tampered, sig, "idem-5"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestProcess_DuplicateReferenceRollsBackKey(t *testing.T) {
	svc, wallets, _ := newTestWebhook(t)
	ctx := context.Background()

	// Occupy the ledger reference so the credit inside the webhook fails.
	if _, _, err := wallets.Fund(ctx, 1, mustDec(t, "10.00"), "PAY-6"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	body := payload(t, 1, "100.00", "PAY-6", "PAID")
	sig := ComputeSignature(testSecret, body)
	if _, err := svc.Process(ctx, body, sig, "idem-6"); !errors.Is(err, wallet.ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference, got %v", err)
	}

	// The key must have rolled back with the failed credit, so a retry with a
	// fixed reference still goes through.
	fixed := payload(t, 1, "100.00", "PAY-6b", "PAID")
	out, err := svc.Process(ctx, fixed, ComputeSignature(testSecret, fixed), "idem-6")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !out.Credited {
		t.Fatalf("retry should credit, got %+v", out)
	}
}

func TestProcess_MalformedPayload(t *testing.T) {
	svc, _, _ := newTestWebhook(t)
	ctx := context.Background()

	cases := [][]byte{
		[]byte(`not json`),
		payload(t, 0, "100.00", "PAY-7", "PAID"),
		payload(t, 1, "-5.00", "PAY-7", "PAID"),
		payload(t, 1, "100.00", "", "PAID"),
	}
	for i, body := range cases {
		if _, err := svc.Process(ctx, body, ComputeSignature(testSecret, body), fmt.Sprintf("idem-7-%d", i)); !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("case %d: expected ErrMalformedPayload, got %v", i, err)
		}
	}
}

func TestMockGateway_CreatesPendingIntent(t *testing.T) {
	gw := NewMockGateway("")
	intent, err := gw.CreateIntent(context.Background(), 5, mustDec(t, "100.00"), "NGN")
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if intent.Status != IntentPending {
		t.Errorf("status = %q, want PENDING", intent.Status)
	}
	if intent.Reference == "" || intent.CheckoutURL == "" {
		t.Errorf("reference/checkout not set: %+v", intent)
	}

	if _, err := gw.CreateIntent(context.Background(), 5, mustDec(t, "0"), "NGN"); !errors.Is(err, ErrInvalidIntentAmount) {
		t.Errorf("expected ErrInvalidIntentAmount, got %v", err)
	}
}
