package api

import (
	"errors"
	"fmt"
	"net/http"

	"treasury-vault/internal/auth"
	"treasury-vault/internal/vault"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeUnauthenticated    = "unauthenticated"
	CodeForbidden          = "forbidden"
	CodeHalted             = "halted"
	CodeLimitExceeded      = "limit_exceeded"
	CodeNotFound           = "not_found"
	CodeInvalidInput       = "invalid_input"
	CodeAlreadyInitialized = "already_initialized"
	CodeNotInitialized     = "not_initialized"
	CodeSignalNotPending   = "signal_not_pending"
	CodeSignalNotApproved  = "signal_not_approved"
	CodeAuditDisabled      = "audit_disabled"
	CodeInternal           = "internal"
)

// classify maps a vault error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrMissingInvocation),
		errors.Is(err, auth.ErrBadSignature),
		errors.Is(err, auth.ErrReplayedNonce):
		return http.StatusUnauthorized, CodeUnauthenticated
	case errors.Is(err, vault.ErrUnauthorized):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, vault.ErrSystemHalted):
		return http.StatusConflict, CodeHalted
	case errors.Is(err, vault.ErrLimitExceeded):
		return http.StatusUnprocessableEntity, CodeLimitExceeded
	case errors.Is(err, vault.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, vault.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, vault.ErrAlreadyInitialized):
		return http.StatusConflict, CodeAlreadyInitialized
	case errors.Is(err, vault.ErrNotInitialized):
		return http.StatusConflict, CodeNotInitialized
	case errors.Is(err, vault.ErrSignalNotPending):
		return http.StatusConflict, CodeSignalNotPending
	case errors.Is(err, vault.ErrSignalNotApproved):
		return http.StatusConflict, CodeSignalNotApproved
	case errors.Is(err, vault.ErrAuditDisabled):
		return http.StatusServiceUnavailable, CodeAuditDisabled
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// sentinels maps error codes back to the vault errors they came from.
var sentinels = map[string]error{
	CodeUnauthenticated:    vault.ErrUnauthorized,
	CodeForbidden:          vault.ErrUnauthorized,
	CodeHalted:             vault.ErrSystemHalted,
	CodeLimitExceeded:      vault.ErrLimitExceeded,
	CodeNotFound:           vault.ErrNotFound,
	CodeInvalidInput:       vault.ErrInvalidInput,
	CodeAlreadyInitialized: vault.ErrAlreadyInitialized,
	CodeNotInitialized:     vault.ErrNotInitialized,
	CodeSignalNotPending:   vault.ErrSignalNotPending,
	CodeSignalNotApproved:  vault.ErrSignalNotApproved,
	CodeAuditDisabled:      vault.ErrAuditDisabled,
}

// Error is a non-2xx response received by Client.
// It unwraps to the matching vault error, so errors.Is works across the wire.
type Error struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *Error) Error() string {
	return fmt.Sprintf("vaultd: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return sentinels[e.Code]
}
