package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"callpay-platform/internal/httpapi"
	"callpay-platform/internal/rbac"
	"callpay-platform/pkg/utils"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc, db *sql.DB, rdb *redis.Client) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		status := gin.H{"status": "ok"}
		code := http.StatusOK
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			status["postgres"] = "down"
			code = http.StatusServiceUnavailable
		}
		if rdb != nil {
			if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
				status["redis"] = "down"
				code = http.StatusServiceUnavailable
			}
		}
		c.JSON(code, status)
	})

	// Provider webhooks (public; authenticated by HMAC signature, not JWT).
	r.POST("/webhooks/payments", h.PaymentWebhook)

	// Token issuance (public, development only).
	r.POST("/v1/auth/token", h.IssueToken)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		wallets := v1.Group("/wallet")
		{
			wallets.GET("", h.GetWallet)
			wallets.GET("/balance", h.GetWalletBalance)
			wallets.GET("/transactions", h.ListWalletTransactions)
			wallets.POST("/fund-intent", h.CreateFundIntent)
			wallets.POST("/transfer", h.Transfer)
		}

		callsGroup := v1.Group("/calls")
		{
			callsGroup.POST("", h.InitiateCall)
			callsGroup.GET("", h.ListCalls)
			callsGroup.GET("/:id", h.GetCall)
			callsGroup.GET("/:id/events", h.ListCallEvents)
			callsGroup.POST("/:id/accept", h.AcceptCall)
			callsGroup.POST("/:id/reject", h.RejectCall)
			callsGroup.POST("/:id/end", h.EndCall)
			callsGroup.POST("/:id/heartbeat", h.HeartbeatCall)
		}

		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.POST("/wallets/:user_id/credit", h.AdminCreditWallet)
			admin.POST("/rates", h.AdminSetRate)
			admin.GET("/rates", h.AdminListRates)
			admin.GET("/reports/calls", h.AdminCallsReport)
			admin.GET("/reports/spend", h.AdminSpendReport)
		}
	}
}
