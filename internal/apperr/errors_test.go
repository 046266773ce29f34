package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelIdentity(t *testing.T) {
	sentinel := New(CodeNotFound, "wallet not found")

	wrapped := fmt.Errorf("debit: %w", sentinel)
	if !errors.Is(wrapped, sentinel) {
		t.Fatalf("expected errors.Is to match wrapped sentinel")
	}

	var ae *Error
	if !errors.As(wrapped, &ae) {
		t.Fatalf("expected errors.As to extract *Error")
	}
	if ae.Code != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", ae.Code)
	}
}

func TestNewf(t *testing.T) {
	e := Newf(CodeInvalidAmount, "amount must be > 0, got %s", "-1")
	if e.Message != "amount must be > 0, got -1" {
		t.Fatalf("unexpected message: %q", e.Message)
	}
}
