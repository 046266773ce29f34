package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"callpay-platform/internal/apperr"
	"callpay-platform/internal/audit"
	"callpay-platform/internal/auth"
	"callpay-platform/internal/calls"
	"callpay-platform/internal/payments"
	"callpay-platform/internal/pricing"
	"callpay-platform/internal/reporting"
	"callpay-platform/internal/wallet"
	"callpay-platform/pkg/logger"
)

// Webhook authentication headers. The signature covers the raw request body.
const (
	HeaderWebhookSignature = "X-Webhook-Signature"
	HeaderIdempotencyKey   = "X-Idempotency-Key"
)

// maxWebhookBody caps provider payload size.
const maxWebhookBody = 1 << 20

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth    *auth.Manager
	Wallets *wallet.Service
	Calls   *calls.Service
	Webhook *payments.WebhookService
	Gateway payments.Gateway
	Audit   *audit.Service
	Rates   *pricing.Service
	Reports *reporting.Service

	Currency string
}

// --- Auth ---

type tokenRequest struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// IssueToken issues a JWT token pair.
//
// NOTE: Development-only endpoint. Real deployments must validate credentials.
func (h Handlers) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.CodeValidation, "invalid json"))
		return
	}
	if req.UserID <= 0 {
		respondError(c, apperr.New(apperr.CodeValidation, "user_id is required"))
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// --- Wallet ---

func (h Handlers) GetWallet(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	w, err := h.Wallets.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h Handlers) GetWalletBalance(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	bal, err := h.Wallets.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bal)
}

func (h Handlers) ListWalletTransactions(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	txns, err := h.Wallets.ListTransactions(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if txns == nil {
		txns = []wallet.Transaction{}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

type fundIntentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CreateFundIntent starts a provider checkout. The wallet is credited later,
// by the provider webhook, never here.
func (h Handlers) CreateFundIntent(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req fundIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.CodeValidation, "invalid json"))
		return
	}
	intent, err := h.Gateway.CreateIntent(c.Request.Context(), userID, req.Amount, h.Currency)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

type transferRequest struct {
	ToUserID  int64           `json:"to_user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

func (h Handlers) Transfer(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.CodeValidation, "invalid json"))
		return
	}
	res, err := h.Wallets.Transfer(c.Request.Context(), userID, req.ToUserID, req.Amount, req.Reference)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Admin ---

type adminCreditRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
	Reason    string          `json:"reason"`
}

// AdminCreditWallet credits any user's wallet. RBAC: admin only; every use is
// written to the audit trail.
func (h Handlers) AdminCreditWallet(c *gin.Context) {
	actorID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	actorRole, _ := auth.Role(c.Request.Context())

	targetID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || targetID <= 0 {
		respondError(c, apperr.New(apperr.CodeValidation, "invalid user_id"))
		return
	}
	var req adminCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.CodeValidation, "invalid json"))
		return
	}
	if req.Reason == "" {
		respondError(c, apperr.New(apperr.CodeValidation, "reason is required"))
		return
	}

	w, txn, err := h.Wallets.Fund(c.Request.Context(), targetID, req.Amount, req.Reference)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.Audit != nil {
		meta := `{"reference":` + strconv.Quote(txn.Reference) + `,"amount":` + strconv.Quote(txn.Amount.StringFixed(2)) + `}`
		if err := h.Audit.LogAdminAction(c.Request.Context(), actorID, actorRole, targetID, req.Reason, meta); err != nil {
			logger.From(c.Request.Context()).Warn("audit write failed", "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"wallet": w, "transaction": txn})
}

type setRateRequest struct {
	Currency    string          `json:"currency"`
	PerMinute   decimal.Decimal `json:"per_minute"`
	EffectiveAt time.Time       `json:"effective_at"`
}

// AdminSetRate schedules a new per-minute call rate. RBAC: admin only.
func (h Handlers) AdminSetRate(c *gin.Context) {
	actorID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	actorRole, _ := auth.Role(c.Request.Context())

	var req setRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.CodeValidation, "invalid json"))
		return
	}
	if req.Currency == "" {
		req.Currency = h.Currency
	}
	rate, err := h.Rates.SetRate(c.Request.Context(), req.Currency, req.PerMinute, req.EffectiveAt)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.Audit != nil {
		meta := `{"currency":` + strconv.Quote(rate.Currency) + `,"per_minute":` + strconv.Quote(rate.PerMinute.StringFixed(2)) + `}`
		if err := h.Audit.LogAdminAction(c.Request.Context(), actorID, actorRole, 0, "call rate changed", meta); err != nil {
			logger.From(c.Request.Context()).Warn("audit write failed", "error", err)
		}
	}
	c.JSON(http.StatusCreated, rate)
}

func (h Handlers) AdminListRates(c *gin.Context) {
	currency := c.DefaultQuery("currency", h.Currency)
	rates, err := h.Rates.History(c.Request.Context(), currency)
	if err != nil {
		respondError(c, err)
		return
	}
	if rates == nil {
		rates = []pricing.Rate{}
	}
	c.JSON(http.StatusOK, gin.H{"rates": rates})
}

// reportRange parses the shared from/to/user_id query parameters.
func reportRange(c *gin.Context) (reporting.TimeRange, int64, error) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return reporting.TimeRange{}, 0, apperr.New(apperr.CodeValidation, "from must be RFC3339")
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return reporting.TimeRange{}, 0, apperr.New(apperr.CodeValidation, "to must be RFC3339")
	}
	var userID int64
	if raw := c.Query("user_id"); raw != "" {
		userID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			return reporting.TimeRange{}, 0, apperr.New(apperr.CodeValidation, "invalid user_id")
		}
	}
	return reporting.TimeRange{From: from, To: to}, userID, nil
}

func (h Handlers) AdminCallsReport(c *gin.Context) {
	rng, userID, err := reportRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	sum, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{Range: rng, UserID: userID})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h Handlers) AdminSpendReport(c *gin.Context) {
	rng, userID, err := reportRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	sum, err := h.Reports.SpendSummary(c.Request.Context(), reporting.SpendSummaryRequest{Range: rng, UserID: userID})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// --- Calls ---

type initiateCallRequest struct {
	CalleeID int64 `json:"callee_id"`
}

func (h Handlers) InitiateCall(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req initiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.CodeValidation, "invalid json"))
		return
	}
	sess, err := h.Calls.Initiate(c.Request.Context(), userID, req.CalleeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// sessionAction adapts the shared session transition shape.
func (h Handlers) sessionAction(c *gin.Context, fn func(ctx *gin.Context, userID, sessionID int64) (calls.Session, error)) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		respondError(c, apperr.New(apperr.CodeValidation, "invalid session id"))
		return
	}
	sess, err := fn(c, userID, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h Handlers) AcceptCall(c *gin.Context) {
	h.sessionAction(c, func(c *gin.Context, userID, sessionID int64) (calls.Session, error) {
		return h.Calls.Accept(c.Request.Context(), userID, sessionID)
	})
}

func (h Handlers) RejectCall(c *gin.Context) {
	h.sessionAction(c, func(c *gin.Context, userID, sessionID int64) (calls.Session, error) {
		return h.Calls.Reject(c.Request.Context(), userID, sessionID)
	})
}

func (h Handlers) EndCall(c *gin.Context) {
	h.sessionAction(c, func(c *gin.Context, userID, sessionID int64) (calls.Session, error) {
		return h.Calls.End(c.Request.Context(), userID, sessionID)
	})
}

func (h Handlers) HeartbeatCall(c *gin.Context) {
	h.sessionAction(c, func(c *gin.Context, userID, sessionID int64) (calls.Session, error) {
		return h.Calls.Heartbeat(c.Request.Context(), userID, sessionID)
	})
}

func (h Handlers) GetCall(c *gin.Context) {
	h.sessionAction(c, func(c *gin.Context, userID, sessionID int64) (calls.Session, error) {
		return h.Calls.Get(c.Request.Context(), userID, sessionID)
	})
}

func (h Handlers) ListCalls(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	sessions, err := h.Calls.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if sessions == nil {
		sessions = []calls.Session{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h Handlers) ListCallEvents(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		respondError(c, apperr.New(apperr.CodeValidation, "invalid session id"))
		return
	}
	events, err := h.Calls.Events(c.Request.Context(), userID, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if events == nil {
		events = []calls.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// --- Payment webhook ---

// PaymentWebhook receives provider notifications. It reads the raw body so
// the signature check covers the exact bytes on the wire.
func (h Handlers) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	out, err := h.Webhook.Process(
		c.Request.Context(),
		body,
		c.GetHeader(HeaderWebhookSignature),
		c.GetHeader(HeaderIdempotencyKey),
	)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"credited": out.Credited,
			"replay":   out.Replay,
		})
	case errors.Is(err, payments.ErrInvalidSignature):
		// Authentication failure, not validation.
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
	default:
		respondError(c, err)
	}
}
