// Package signing computes and checks the keyed digests that accompany
// job messages between the enqueuing environment and the worker.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrInvalidDigest is returned when a supplied digest is empty or does not
// match the digest computed over the message with the shared secret.
var ErrInvalidDigest = errors.New("invalid message digest")

// Verifier generates and verifies HMAC-SHA256 hex digests of message bodies.
// The shared secret is used directly as the HMAC key. A Verifier is immutable
// after construction and safe for concurrent use.
type Verifier struct {
	key []byte
}

// NewVerifier creates a Verifier keyed with the shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{key: []byte(secret)}
}

// GenerateDigest returns the lowercase hex HMAC-SHA256 digest of message.
func (v *Verifier) GenerateDigest(message []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks digest against the digest of message. The comparison is
// constant-time. An empty digest never verifies.
func (v *Verifier) Verify(message []byte, digest string) error {
	if digest == "" {
		return ErrInvalidDigest
	}
	expected := v.GenerateDigest(message)
	if !hmac.Equal([]byte(digest), []byte(expected)) {
		return ErrInvalidDigest
	}
	return nil
}
