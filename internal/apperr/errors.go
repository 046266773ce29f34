package apperr

import "fmt"

// Code is a stable, machine-readable failure reason.
// Codes are part of the API contract; never rename an existing one.
type Code string

const (
	CodeValidation          Code = "VALIDATION"
	CodeInvalidAmount       Code = "INVALID_AMOUNT"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeSameParty           Code = "SAME_PARTY"
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodeAlreadyCompleted    Code = "ALREADY_COMPLETED"
	CodeDuplicateReference  Code = "DUPLICATE_REFERENCE"
	CodeTooManyCalls        Code = "TOO_MANY_CALLS"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
)

// Error is a typed domain failure. Services return these for business-rule,
// authorization, validation, and not-found outcomes; infrastructure errors are
// returned as plain wrapped errors and must never be dressed up as an *Error.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

// New builds a domain error. Packages declare their failures as package-level
// sentinels (errors.Is compares by identity for these).
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
