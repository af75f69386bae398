// Package sha256 provides the content digest stamped on exported documents.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher produces hex-encoded SHA-256 digests.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashString hashes the bytes of s.
func (h *Hasher) HashString(s string) string {
	d := sha256.New()
	_, _ = d.Write([]byte(s))
	return hex.EncodeToString(d.Sum(nil))
}
