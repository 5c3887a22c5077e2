package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ErrInvalidIdentity is returned when a string is not a base58-encoded ed25519 public key.
var ErrInvalidIdentity = errors.New("invalid identity")

// ParseIdentity decodes a base58 identity into an ed25519 public key.
// The 32 bytes must be a valid point on the curve.
func ParseIdentity(s string) (ed25519.PublicKey, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidIdentity)
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if !isOnCurve(raw) {
		return nil, fmt.Errorf("%w: not an ed25519 public key", ErrInvalidIdentity)
	}
	return ed25519.PublicKey(raw), nil
}

// EncodeIdentity returns the base58 identity of a public key.
func EncodeIdentity(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}

// GenerateKey creates a new agent key pair using entropy from rand.
// A nil rand uses crypto/rand.
func GenerateKey(rand io.Reader) (string, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return "", nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return EncodeIdentity(pub), priv, nil
}

// EncodePrivateKey returns the base58 form of a 64-byte private key.
func EncodePrivateKey(priv ed25519.PrivateKey) string {
	return base58.Encode(priv)
}

// DecodePrivateKey parses a base58 private key produced by EncodePrivateKey.
func DecodePrivateKey(s string) (ed25519.PrivateKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("decode private key: want %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return ed25519.PrivateKey(raw), nil
}

// IdentityOf returns the identity of a private key.
func IdentityOf(priv ed25519.PrivateKey) string {
	return EncodeIdentity(priv.Public().(ed25519.PublicKey))
}

func isOnCurve(point []byte) bool {
	if len(point) != ed25519.PublicKeySize {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
