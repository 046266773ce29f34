package audit

import (
	"context"
	"testing"
	"time"
)

func TestService_AppendFillsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return fixed }

	if err := svc.LogAdminAction(context.Background(), 7, "admin", 42, "manual credit", `{"amount":"50.00"}`); err != nil {
		t.Fatalf("LogAdminAction: %v", err)
	}

	events := repo.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.ID == "" {
		t.Error("expected generated id")
	}
	if !e.CreatedAt.Equal(fixed) {
		t.Errorf("created_at = %v, want %v", e.CreatedAt, fixed)
	}
	if e.Type != EventTypeAdminAction {
		t.Errorf("type = %q", e.Type)
	}
	if e.ActorUserID != 7 || e.WalletUserID != 42 {
		t.Errorf("actor/wallet = %d/%d", e.ActorUserID, e.WalletUserID)
	}
}

func TestService_RejectsMissingType(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if err := svc.Append(context.Background(), Event{Message: "no type"}); err != ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestService_WebhookEventsHaveNoActor(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogPaymentWebhook(context.Background(), 9, "funded", `{"reference":"PAY-1"}`); err != nil {
		t.Fatalf("LogPaymentWebhook: %v", err)
	}

	e := repo.Events()[0]
	if e.Type != EventTypePaymentWebhook {
		t.Errorf("type = %q", e.Type)
	}
	if e.ActorUserID != 0 || e.ActorRole != "" {
		t.Errorf("webhook events must be provider-originated, got actor %d/%q", e.ActorUserID, e.ActorRole)
	}
}
