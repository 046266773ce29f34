package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPerMinuteRate_FallsBackToDefault(t *testing.T) {
	svc := NewService(NewMemoryRepo(), decimal.NewFromInt(5))

	rate, err := svc.PerMinuteRate(context.Background(), "NGN", time.Now())
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if !rate.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("rate = %s, want default 5", rate)
	}
}

func TestPerMinuteRate_UsesEffectiveDating(t *testing.T) {
	svc := NewService(NewMemoryRepo(), decimal.NewFromInt(5))
	ctx := context.Background()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.SetRate(ctx, "NGN", decimal.NewFromInt(4), t0); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	if _, err := svc.SetRate(ctx, "NGN", decimal.NewFromInt(6), t0.AddDate(0, 1, 0)); err != nil {
		t.Fatalf("set rate: %v", err)
	}

	// Before any rate is effective the default applies.
	rate, err := svc.PerMinuteRate(ctx, "NGN", t0.Add(-time.Hour))
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if !rate.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("pre-effective rate = %s, want 5", rate)
	}

	rate, err = svc.PerMinuteRate(ctx, "NGN", t0.AddDate(0, 0, 15))
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if !rate.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("january rate = %s, want 4", rate)
	}

	rate, err = svc.PerMinuteRate(ctx, "NGN", t0.AddDate(0, 2, 0))
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if !rate.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("march rate = %s, want 6", rate)
	}
}

func TestSetRate_Validation(t *testing.T) {
	svc := NewService(NewMemoryRepo(), decimal.NewFromInt(5))
	ctx := context.Background()

	if _, err := svc.SetRate(ctx, "NGN", decimal.Zero, time.Time{}); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
	if _, err := svc.SetRate(ctx, "", decimal.NewFromInt(5), time.Time{}); err == nil {
		t.Fatal("expected error for missing currency")
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	svc := NewService(NewMemoryRepo(), decimal.NewFromInt(5))
	ctx := context.Background()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := svc.SetRate(ctx, "NGN", decimal.NewFromInt(int64(4+i)), t0.AddDate(0, i, 0)); err != nil {
			t.Fatalf("set rate: %v", err)
		}
	}

	hist, err := svc.History(ctx, "NGN")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("expected 3 rates, got %d", len(hist))
	}
	if !hist[0].PerMinute.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected newest rate first, got %s", hist[0].PerMinute)
	}
}
