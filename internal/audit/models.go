package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Capture is best-effort; money and call flows must never block on audit
//   failures.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event (0 for
	// provider-originated events such as webhooks).
	ActorUserID int64 `json:"actor_user_id,omitempty" db:"actor_user_id"`
	// ActorRole records the role at the time of action.
	ActorRole string `json:"actor_role,omitempty" db:"actor_role"`

	// Target identifiers (optional, depending on the event type).
	WalletUserID int64 `json:"wallet_user_id,omitempty" db:"wallet_user_id"`
	SessionID    int64 `json:"session_id,omitempty" db:"session_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeAdminAction    EventType = "admin_action"
	EventTypePaymentWebhook EventType = "payment_webhook"
)
