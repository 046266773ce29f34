package calls

import "context"

// Repository is the persistence contract for call sessions and their events.
//
// GetByIDForUpdate must lock the session row for the remainder of the ambient
// unit of work so concurrent terminations of the same session serialize.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id int64) (Session, error)
	GetByIDForUpdate(ctx context.Context, id int64) (Session, error)
	Update(ctx context.Context, s *Session) error

	// ListByParticipant returns sessions where the user is caller or callee,
	// newest first.
	ListByParticipant(ctx context.Context, userID int64) ([]Session, error)

	AppendEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, sessionID int64) ([]Event, error)
}
