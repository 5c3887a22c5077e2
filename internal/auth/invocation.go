package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
)

// Invocation is one signed request to perform a vault operation.
type Invocation struct {
	Operation string
	Args      []string
	Signer    string // identity of the signing agent
	Nonce     uint64 // strictly increasing per signer
	Signature []byte
}

// NewInvocation creates an unsigned invocation.
func NewInvocation(signer string, nonce uint64, operation string, args ...string) *Invocation {
	return &Invocation{
		Operation: operation,
		Args:      args,
		Signer:    signer,
		Nonce:     nonce,
	}
}

// Digest returns the SHA256 of the invocation fields, each written as a
// 4-byte big-endian length followed by its bytes. The argument count
// precedes the arguments and the nonce is appended as 8 big-endian bytes.
func (inv *Invocation) Digest() [32]byte {
	h := sha256.New()
	var n [8]byte
	field := func(s string) {
		binary.BigEndian.PutUint32(n[:4], uint32(len(s)))
		h.Write(n[:4])
		h.Write([]byte(s))
	}

	field(inv.Operation)
	binary.BigEndian.PutUint32(n[:4], uint32(len(inv.Args)))
	h.Write(n[:4])
	for _, arg := range inv.Args {
		field(arg)
	}
	field(inv.Signer)
	binary.BigEndian.PutUint64(n[:], inv.Nonce)
	h.Write(n[:])

	var digest [32]byte
	h.Sum(digest[:0])
	return digest
}

// Sign sets Signature using priv.
func (inv *Invocation) Sign(priv ed25519.PrivateKey) {
	digest := inv.Digest()
	inv.Signature = ed25519.Sign(priv, digest[:])
}

type invocationKey struct{}
type callerKey struct{}

// WithInvocation attaches a signed invocation to ctx.
func WithInvocation(ctx context.Context, inv *Invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, inv)
}

// InvocationFrom returns the invocation attached to ctx, if any.
func InvocationFrom(ctx context.Context) (*Invocation, bool) {
	inv, ok := ctx.Value(invocationKey{}).(*Invocation)
	return inv, ok && inv != nil
}

// WithCaller attaches an already-authenticated caller identity to ctx.
func WithCaller(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, callerKey{}, identity)
}

// CallerFrom returns the caller identity attached to ctx, if any.
func CallerFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(callerKey{}).(string)
	return id, ok && id != ""
}
