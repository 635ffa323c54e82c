package apperrors

import (
	"errors"
)

var (
	// Credentials (account secret, CVV) do not match
	ErrAuthFailed = errors.New("authentication failed")

	// Entity exists but belongs to somebody else
	ErrForbidden = errors.New("operation forbidden")

	// Malformed or nonsensical input: self-transfer, non-positive amount, wrong card type, etc.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrAccountNotFound     = errors.New("account not found")
	ErrCardNumberTaken     = errors.New("card number already taken")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrCreditExceeded      = errors.New("credit limit exceeded")
	ErrFrozen              = errors.New("account is frozen")
	ErrTransactionNotFound = errors.New("transaction not found")

	ErrApplicationNotFound  = errors.New("application not found")
	ErrApplicationProcessed = errors.New("application already processed")

	ErrLoanNotFound = errors.New("loan not found")

	// Transient store failure (lock timeout, deadlock, serialization failure)
	// The whole operation was rolled back and may be retried by the caller
	ErrRetryable = errors.New("temporary storage failure, retry later")
)
