package service

import "errors"

// Business-rule failures. All of them leave the underlying records
// unchanged; the API layer translates them to user-facing responses.
var (
	// ErrAccessDenied - the caller is not the party allowed to act
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidState - the action is not valid in the current lifecycle state
	ErrInvalidState = errors.New("invalid state for this action")

	// ErrInvalidConfirmationCode - the presented receipt code does not match
	ErrInvalidConfirmationCode = errors.New("invalid confirmation code")

	// ErrAlreadyConfirmed - the caller already confirmed receipt; idempotent no-op
	ErrAlreadyConfirmed = errors.New("receipt already confirmed")

	// ErrAlreadyResolved - the proposal already left pending; idempotent no-op
	ErrAlreadyResolved = errors.New("proposal already resolved")

	// ErrValidation - malformed input
	ErrValidation = errors.New("validation failed")
)
