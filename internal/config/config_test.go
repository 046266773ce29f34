package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:     AppConfig{Env: "local", Port: 8080},
		DB:      DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "callpay"},
		Redis:   RedisConfig{Host: "localhost", Port: 6379},
		Auth:    AuthConfig{JWTSecret: "jwt-secret"},
		Payment: PaymentConfig{WebhookSecret: "hook-secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Billing.RatePerMinute.String() != "5" {
		t.Fatalf("expected default rate 5, got %s", c.Billing.RatePerMinute)
	}
	if c.Billing.Currency != "NGN" {
		t.Fatalf("expected default currency NGN, got %q", c.Billing.Currency)
	}
	if c.Billing.CallSlotTTL != 4*time.Hour {
		t.Fatalf("expected default slot ttl, got %v", c.Billing.CallSlotTTL)
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "callpay"
	c.Auth.JWTAudience = "callpay-api"
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_SSLMODE") {
		t.Fatalf("expected DB_SSLMODE error, got %v", err)
	}
}

func TestValidate_WebhookSecretRequired(t *testing.T) {
	c := validConfig()
	c.Payment.WebhookSecret = ""
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "PAYMENT_WEBHOOK_SECRET") {
		t.Fatalf("expected webhook secret error, got %v", err)
	}
}

func TestValidate_WebhookSecretMustNotReuseJWTSecret(t *testing.T) {
	c := validConfig()
	c.Payment.WebhookSecret = c.Auth.JWTSecret
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("expected distinct-secret error, got %v", err)
	}
}
