// Package merkle builds the SATOR commitment tree: one SHA-256 digest per
// artifact section, a bundle root over the six section digests, and the
// rolling event chain that records the artifact's decision history.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// DigestSize is the width of every commitment, on-chain and off.
const DigestSize = sha256.Size

// Digest is a SHA-256 output.
type Digest [DigestSize]byte

// Sum hashes data.
func Sum(data []byte) Digest {
	return sha256.Sum256(data)
}

// Hex returns the lowercase hex form of d.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) String() string {
	return d.Hex()
}

// IsZero reports whether d is all zero bytes, the value of an unset slot.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// ParseDigest reads a hex digest, with or without a "sha256:" prefix.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "sha256:"))
	if err != nil {
		return d, fmt.Errorf("invalid digest hex: %w", err)
	}
	if len(raw) != DigestSize {
		return d, fmt.Errorf("invalid digest length %d, want %d", len(raw), DigestSize)
	}
	copy(d[:], raw)
	return d, nil
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.Hex()), nil
}

func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
