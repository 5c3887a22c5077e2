package auth

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
)

// Oracle errors
var (
	ErrUnauthorized      = errors.New("not authorized")
	ErrMissingInvocation = errors.New("no invocation in context")
	ErrBadSignature      = errors.New("bad invocation signature")
	ErrReplayedNonce     = errors.New("nonce already used")
)

// Oracle proves that the current call was authorized by an identity.
type Oracle interface {
	// RequireAuthorizedAs fails unless the call in ctx was authorized by identity.
	RequireAuthorizedAs(ctx context.Context, identity string) error
}

// SignatureOracle verifies ed25519-signed invocations carried in the context.
// It checks the signature only; nonce ordering is enforced by the caller
// against durable state, see CheckNonce.
type SignatureOracle struct{}

// NewSignatureOracle creates a new SignatureOracle.
func NewSignatureOracle() *SignatureOracle {
	return &SignatureOracle{}
}

var _ Oracle = (*SignatureOracle)(nil)

// RequireAuthorizedAs implements Oracle.
func (o *SignatureOracle) RequireAuthorizedAs(ctx context.Context, identity string) error {
	inv, ok := InvocationFrom(ctx)
	if !ok {
		return ErrMissingInvocation
	}
	if inv.Signer != identity {
		return fmt.Errorf("%w: signed by %s", ErrUnauthorized, inv.Signer)
	}

	pub, err := ParseIdentity(inv.Signer)
	if err != nil {
		return err
	}
	digest := inv.Digest()
	if !ed25519.Verify(pub, digest[:], inv.Signature) {
		return ErrBadSignature
	}
	return nil
}

// CheckNonce fails with ErrReplayedNonce unless nonce is greater than last,
// the last nonce accepted from the same signer.
func CheckNonce(nonce, last uint64) error {
	if nonce <= last {
		return fmt.Errorf("%w: %d <= %d", ErrReplayedNonce, nonce, last)
	}
	return nil
}

// CallerOracle trusts the caller identity placed in the context by WithCaller.
// Used by in-process agents and tests.
type CallerOracle struct{}

var _ Oracle = CallerOracle{}

// RequireAuthorizedAs implements Oracle.
func (CallerOracle) RequireAuthorizedAs(ctx context.Context, identity string) error {
	caller, ok := CallerFrom(ctx)
	if !ok {
		return ErrMissingInvocation
	}
	if caller != identity {
		return fmt.Errorf("%w: caller %s", ErrUnauthorized, caller)
	}
	return nil
}
