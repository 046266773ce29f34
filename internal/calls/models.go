package calls

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is one billable call between two users.
//
// Status machine:
//
//	INITIATED -> RINGING -> ACTIVE -> ENDED
//	INITIATED/RINGING ----> FAILED   (rejected before pickup)
//
// ENDED and FAILED are terminal. DurationSec and Cost are nil until the
// session reaches a terminal state; billing happens exactly once, when the
// session transitions out of ACTIVE.
type Session struct {
	ID       int64 `json:"id" db:"id"`
	CallerID int64 `json:"caller_id" db:"caller_id"`
	CalleeID int64 `json:"callee_id" db:"callee_id"`

	Status Status `json:"status" db:"status"`

	// StartedAt is set when the callee accepts.
	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	// DurationSec is whole seconds of billed talk time.
	DurationSec *int64           `json:"duration_sec,omitempty" db:"duration_sec"`
	Cost        *decimal.Decimal `json:"cost,omitempty" db:"cost"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusInitiated Status = "INITIATED"
	StatusRinging   Status = "RINGING"
	StatusActive    Status = "ACTIVE"
	StatusEnded     Status = "ENDED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether the session can never change again.
func (s Status) Terminal() bool {
	return s == StatusEnded || s == StatusFailed
}

// Event is an append-only record of something happening to a session.
type Event struct {
	ID          int64     `json:"id" db:"id"`
	SessionID   int64     `json:"session_id" db:"session_id"`
	Type        EventType `json:"type" db:"type"`
	ActorUserID int64     `json:"actor_user_id" db:"actor_user_id"`
	Metadata    string    `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventCreated   EventType = "CREATED"
	EventAccepted  EventType = "ACCEPTED"
	EventRejected  EventType = "REJECTED"
	EventEnded     EventType = "ENDED"
	EventHeartbeat EventType = "HEARTBEAT"
)
