package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"callpay-platform/internal/audit"
	"callpay-platform/internal/auth"
	"callpay-platform/internal/calls"
	"callpay-platform/internal/config"
	"callpay-platform/internal/httpapi"
	"callpay-platform/internal/payments"
	"callpay-platform/internal/pricing"
	"callpay-platform/internal/reporting"
	"callpay-platform/internal/storage"
	"callpay-platform/internal/wallet"
	"callpay-platform/pkg/logger"
	"callpay-platform/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Service wiring. Everything that moves money shares one TxRunner so
	// composed operations commit atomically.
	runner := storage.NewSQLRunner(db)

	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	wallets := wallet.NewService(wallet.NewPostgresRepo(db), runner, cfg.Billing.Currency)
	rates := pricing.NewService(pricing.NewPostgresRepo(db), cfg.Billing.RatePerMinute)
	callSvc := calls.NewService(calls.NewPostgresRepo(db), wallets, runner, calls.ServiceOptions{
		RatePerMinute: cfg.Billing.RatePerMinute,
		Rates:         rates,
		Currency:      cfg.Billing.Currency,
		Redis:         rdb,
		MaxCalls:      cfg.Billing.MaxConcurrentCalls,
		SlotTTL:       cfg.Billing.CallSlotTTL,
	})
	reports := reporting.NewService(reporting.NewPostgresRepo(db), cfg.Billing.Currency)
	webhook := payments.NewWebhookService(
		cfg.Payment.WebhookSecret,
		wallets,
		payments.NewPostgresKeyStore(db),
		runner,
		auditSvc,
	)

	h := httpapi.Handlers{
		Auth:     authManager,
		Wallets:  wallets,
		Calls:    callSvc,
		Webhook:  webhook,
		Gateway:  payments.NewMockGateway(""),
		Audit:    auditSvc,
		Rates:    rates,
		Reports:  reports,
		Currency: cfg.Billing.Currency,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager), db, rdb)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
