package wallet

import "callpay-platform/internal/apperr"

// Domain failures. These are returned as typed results and carry stable reason
// codes for the transport layer; infrastructure errors are wrapped separately
// and never aliased to one of these.
var (
	ErrWalletNotFound      = apperr.New(apperr.CodeNotFound, "wallet not found")
	ErrInvalidAmount       = apperr.New(apperr.CodeInvalidAmount, "amount must be greater than 0")
	ErrInsufficientBalance = apperr.New(apperr.CodeInsufficientBalance, "insufficient balance")
	ErrDuplicateReference  = apperr.New(apperr.CodeDuplicateReference, "transaction reference already used")
	ErrSameParty           = apperr.New(apperr.CodeSameParty, "cannot transfer to the same user")
	ErrInvalidRequest      = apperr.New(apperr.CodeValidation, "invalid request")
)
