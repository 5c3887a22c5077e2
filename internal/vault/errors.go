package vault

import (
	"errors"

	"treasury-vault/internal/storage"
)

// Vault errors
var (
	// ErrUnauthorized is returned when the caller cannot prove the required role.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSystemHalted is returned for trading transitions while the vault is halted.
	ErrSystemHalted = errors.New("system halted")

	// ErrLimitExceeded is returned when a signal amount exceeds the per-trade maximum.
	ErrLimitExceeded = errors.New("trade limit exceeded")

	// ErrNotFound is returned when a referenced signal, trade or snapshot does not exist.
	ErrNotFound = storage.ErrNotFound

	// ErrInvalidInput is returned for malformed arguments.
	ErrInvalidInput = storage.ErrInvalidInput

	// ErrAlreadyInitialized is returned by Initialize on an initialized vault.
	ErrAlreadyInitialized = errors.New("vault already initialized")

	// ErrNotInitialized is returned by every operation that needs a configuration before Initialize.
	ErrNotInitialized = errors.New("vault not initialized")

	// ErrSignalNotPending is returned by ApproveTrade for a signal that was already evaluated.
	ErrSignalNotPending = errors.New("signal is not pending")

	// ErrSignalNotApproved is returned by ExecuteTrade for a signal the risk gate has not approved.
	ErrSignalNotApproved = errors.New("signal is not approved")

	// ErrAuditDisabled is returned by audit queries when no audit sink is configured.
	ErrAuditDisabled = errors.New("audit journal disabled")
)

// outcome classifies err for transition metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrSystemHalted):
		return "halted"
	case errors.Is(err, ErrLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrAlreadyInitialized),
		errors.Is(err, ErrNotInitialized),
		errors.Is(err, ErrSignalNotPending),
		errors.Is(err, ErrSignalNotApproved):
		return "conflict"
	default:
		return "error"
	}
}
