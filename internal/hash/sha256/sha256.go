// Package sha256 provides SHA-256 hashing utilities.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// Digest accumulates a SHA-256 sum as bytes are streamed through it.
type Digest struct {
	h hash.Hash
}

// NewDigest returns an empty Digest.
func NewDigest() *Digest {
	return &Digest{h: sha256.New()}
}

// Write adds p to the running sum. It never returns an error.
func (d *Digest) Write(p []byte) (int, error) {
	return d.h.Write(p) //nolint:wrapcheck // hash.Hash writes never fail
}

// Hex returns the hex digest of everything written so far.
func (d *Digest) Hex() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
