package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"callpay-platform/internal/auth"
	"callpay-platform/internal/calls"
	"callpay-platform/internal/config"
	"callpay-platform/internal/payments"
	"callpay-platform/internal/rbac"
	"callpay-platform/internal/storage"
	"callpay-platform/internal/wallet"
)

const webhookSecret = "whsec-test"

type testAPI struct {
	router  *gin.Engine
	auth    *auth.Manager
	wallets *wallet.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret-at-least-32-bytes-long!!",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}

	walletRepo := wallet.NewMemoryRepo()
	callRepo := calls.NewMemoryRepo()
	keys := payments.NewMemoryKeyStore()
	runner := storage.NewMemRunner(walletRepo, callRepo, keys)
	wallets := wallet.NewService(walletRepo, runner, "NGN")
	callSvc := calls.NewService(callRepo, wallets, runner, calls.ServiceOptions{
		RatePerMinute: decimal.NewFromInt(5),
	})

	h := Handlers{
		Auth:     mgr,
		Wallets:  wallets,
		Calls:    callSvc,
		Webhook:  payments.NewWebhookService(webhookSecret, wallets, keys, runner, nil),
		Gateway:  payments.NewMockGateway(""),
		Currency: "NGN",
	}

	r := gin.New()
	r.POST("/webhooks/payments", h.PaymentWebhook)
	r.POST("/v1/auth/token", h.IssueToken)

	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(mgr))
	v1.GET("/wallet/balance", h.GetWalletBalance)
	v1.GET("/wallet/transactions", h.ListWalletTransactions)
	v1.POST("/wallet/fund-intent", h.CreateFundIntent)
	v1.POST("/wallet/transfer", h.Transfer)
	v1.POST("/calls", h.InitiateCall)
	v1.POST("/calls/:id/accept", h.AcceptCall)
	v1.POST("/calls/:id/end", h.EndCall)

	admin := v1.Group("/admin")
	admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
	admin.POST("/wallets/:user_id/credit", h.AdminCreditWallet)

	return &testAPI{router: r, auth: mgr, wallets: wallets}
}

func (a *testAPI) token(t *testing.T, userID int64, role string) string {
	t.Helper()
	pair, err := a.auth.IssuePair(time.Now(), userID, role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return pair.AccessToken
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestAPI_RequiresAuthentication(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/v1/wallet/balance", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAPI_BalanceNotFoundBeforeFunding(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, 1, "user")
	w := api.do(t, http.MethodGet, "/v1/wallet/balance", tok, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body %s", w.Code, w.Body)
	}
}

func TestAPI_WebhookFundThenBalance(t *testing.T) {
	api := newTestAPI(t)

	body, _ := json.Marshal(map[string]any{
		"event": "payment.completed",
		"data": map[string]any{
			"userId": 1, "amount": "300.00", "currency": "NGN",
			"reference": "PAY-w1", "status": "PAID",
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(body))
	req.Header.Set(HeaderWebhookSignature, payments.ComputeSignature(webhookSecret, body))
	req.Header.Set(HeaderIdempotencyKey, "idem-w1")
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("webhook status = %d, body %s", w.Code, w.Body)
	}

	tok := api.token(t, 1, "user")
	res := api.do(t, http.MethodGet, "/v1/wallet/balance", tok, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("balance status = %d, body %s", res.Code, res.Body)
	}
	var bal struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &bal); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bal.Balance.StringFixed(2) != "300.00" {
		t.Fatalf("balance = %s, want 300.00", bal.Balance)
	}
}

func TestAPI_WebhookAuthStatusCodes(t *testing.T) {
	api := newTestAPI(t)
	body := []byte(`{"event":"payment.completed","data":{"userId":1,"amount":"10.00","reference":"PAY-w2","status":"PAID"}}`)

	// Missing signature: validation failure.
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(body))
	req.Header.Set(HeaderIdempotencyKey, "idem-w2")
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing signature status = %d, want 400", w.Code)
	}

	// Wrong signature: authentication failure.
	req = httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(body))
	req.Header.Set(HeaderWebhookSignature, payments.ComputeSignature("other-secret", body))
	req.Header.Set(HeaderIdempotencyKey, "idem-w2")
	w = httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature status = %d, want 401", w.Code)
	}

	// Missing idempotency key.
	req = httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(body))
	req.Header.Set(HeaderWebhookSignature, payments.ComputeSignature(webhookSecret, body))
	w = httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing key status = %d, want 400", w.Code)
	}
}

func TestAPI_ErrorCodeMapping(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, 1, "user")

	// Transfer to self: 422 SAME_PARTY.
	w := api.do(t, http.MethodPost, "/v1/wallet/transfer", tok, map[string]any{
		"to_user_id": 1, "amount": "10.00", "reference": "T1",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("same party status = %d, want 422, body %s", w.Code, w.Body)
	}

	// Transfer without a wallet: 404 NOT_FOUND.
	w = api.do(t, http.MethodPost, "/v1/wallet/transfer", tok, map[string]any{
		"to_user_id": 2, "amount": "10.00", "reference": "T2",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing wallet status = %d, want 404, body %s", w.Code, w.Body)
	}

	// Calling yourself: 422 SAME_PARTY.
	w = api.do(t, http.MethodPost, "/v1/calls", tok, map[string]any{"callee_id": 1})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("self call status = %d, want 422, body %s", w.Code, w.Body)
	}
}

func TestAPI_CallLifecycleWithInsufficientFunds(t *testing.T) {
	api := newTestAPI(t)
	caller := api.token(t, 1, "user")
	callee := api.token(t, 2, "user")

	w := api.do(t, http.MethodPost, "/v1/calls", caller, map[string]any{"callee_id": 2})
	if w.Code != http.StatusCreated {
		t.Fatalf("initiate status = %d, body %s", w.Code, w.Body)
	}
	var sess calls.Session
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = api.do(t, http.MethodPost, fmt.Sprintf("/v1/calls/%d/accept", sess.ID), callee, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("accept status = %d, body %s", w.Code, w.Body)
	}

	// Zero-length call is free, so ending immediately succeeds with no wallet.
	w = api.do(t, http.MethodPost, fmt.Sprintf("/v1/calls/%d/end", sess.ID), caller, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("end status = %d, body %s", w.Code, w.Body)
	}
}

func TestAPI_AdminCreditRBAC(t *testing.T) {
	api := newTestAPI(t)

	userTok := api.token(t, 1, "user")
	w := api.do(t, http.MethodPost, "/v1/admin/wallets/2/credit", userTok, map[string]any{
		"amount": "50.00", "reference": "ADM-1", "reason": "goodwill",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403, body %s", w.Code, w.Body)
	}

	adminTok := api.token(t, 9, "admin")
	w = api.do(t, http.MethodPost, "/v1/admin/wallets/2/credit", adminTok, map[string]any{
		"amount": "50.00", "reference": "ADM-1", "reason": "goodwill",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("admin credit status = %d, body %s", w.Code, w.Body)
	}

	// Replaying the same reference conflicts.
	w = api.do(t, http.MethodPost, "/v1/admin/wallets/2/credit", adminTok, map[string]any{
		"amount": "50.00", "reference": "ADM-1", "reason": "goodwill",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate reference status = %d, want 409, body %s", w.Code, w.Body)
	}
}

func TestAPI_FundIntentNeverMovesMoney(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, 1, "user")

	w := api.do(t, http.MethodPost, "/v1/wallet/fund-intent", tok, map[string]any{"amount": "100.00"})
	if w.Code != http.StatusCreated {
		t.Fatalf("intent status = %d, body %s", w.Code, w.Body)
	}
	var intent payments.PaymentIntent
	if err := json.Unmarshal(w.Body.Bytes(), &intent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if intent.Status != payments.IntentPending || intent.CheckoutURL == "" {
		t.Fatalf("unexpected intent: %+v", intent)
	}

	// Balance is still absent until the webhook confirms payment.
	w = api.do(t, http.MethodGet, "/v1/wallet/balance", tok, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("balance status = %d, want 404", w.Code)
	}
}
