package calls

import "callpay-platform/internal/apperr"

var (
	ErrSessionNotFound   = apperr.New(apperr.CodeNotFound, "call session not found")
	ErrNotParticipant    = apperr.New(apperr.CodeForbidden, "user is not a participant of this call")
	ErrNotCallee         = apperr.New(apperr.CodeForbidden, "only the callee can perform this action")
	ErrInvalidTransition = apperr.New(apperr.CodeInvalidTransition, "call is not in a state that allows this action")
	ErrAlreadyCompleted  = apperr.New(apperr.CodeAlreadyCompleted, "call session is already completed")
	ErrSameParty         = apperr.New(apperr.CodeSameParty, "caller and callee must be different users")
	ErrTooManyCalls      = apperr.New(apperr.CodeTooManyCalls, "concurrent call limit reached")
	ErrInvalidCallee     = apperr.New(apperr.CodeValidation, "callee id is required")
)
