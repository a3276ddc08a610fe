// Package common defines shared constants and sentinel errors used across
// the keygate server and client. Callers should use errors.Is to match them.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Authentication gate.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrHardwareMismatch   = errors.New("account is bound to another machine")

	// Lookups by identity or code.
	ErrUserNotFound   = errors.New("user not found")
	ErrKeyNotFound    = errors.New("activation key not found")
	ErrKeyAlreadyUsed = errors.New("activation key already used")

	// Admin control.
	ErrForbidden = errors.New("forbidden")

	// Store-level errors. ErrStoreUnavailable is the only retryable kind.
	ErrConflict         = errors.New("already exists")
	ErrStoreUnavailable = errors.New("store unavailable")

	// Input validation at the service edge.
	ErrInvalidArgument = errors.New("invalid argument")

	// Identity and admin tokens.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// IsRetryable reports whether the caller may retry the failed operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
