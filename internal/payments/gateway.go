package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"callpay-platform/internal/apperr"
	"callpay-platform/internal/money"
)

// IntentStatus is the lifecycle state of a funding intent at the provider.
type IntentStatus string

const (
	IntentPending IntentStatus = "PENDING"
	IntentPaid    IntentStatus = "PAID"
	IntentFailed  IntentStatus = "FAILED"
)

// PaymentIntent is a provider-side funding attempt. The wallet is only
// credited when the provider later confirms the intent over the webhook;
// creating an intent never moves money.
type PaymentIntent struct {
	Reference   string          `json:"reference"`
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	CheckoutURL string          `json:"checkout_url"`
	Status      IntentStatus    `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Gateway creates funding intents with the payment provider.
type Gateway interface {
	CreateIntent(ctx context.Context, userID int64, amount decimal.Decimal, currency string) (PaymentIntent, error)
}

var ErrInvalidIntentAmount = apperr.New(apperr.CodeInvalidAmount, "amount must be greater than 0")

// MockGateway stands in for a real provider during development. References it
// issues are globally unique so they can safely double as ledger references.
type MockGateway struct {
	checkoutBase string
	clock        func() time.Time
}

func NewMockGateway(checkoutBase string) *MockGateway {
	if checkoutBase == "" {
		checkoutBase = "https://pay.example.com/checkout"
	}
	return &MockGateway{checkoutBase: checkoutBase, clock: time.Now}
}

func (g *MockGateway) CreateIntent(ctx context.Context, userID int64, amount decimal.Decimal, currency string) (PaymentIntent, error) {
	amount = money.Round(amount)
	if !money.IsPositive(amount) {
		return PaymentIntent{}, ErrInvalidIntentAmount
	}

	ref, err := newReference(userID, g.clock())
	if err != nil {
		return PaymentIntent{}, err
	}
	return PaymentIntent{
		Reference:   ref,
		UserID:      userID,
		Amount:      amount,
		Currency:    currency,
		CheckoutURL: fmt.Sprintf("%s/%s", g.checkoutBase, ref),
		Status:      IntentPending,
		CreatedAt:   g.clock().UTC(),
	}, nil
}

func newReference(userID int64, now time.Time) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate payment reference: %w", err)
	}
	return fmt.Sprintf("PAY-%d-%d-%s", userID, now.UnixMilli(), hex.EncodeToString(buf)), nil
}
