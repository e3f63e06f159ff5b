// Package pda derives program addresses for incident anchor accounts.
//
// A program address is the SHA-256 of the seeds, the owning program id and
// the marker "ProgramDerivedAddress", accepted only when it is not a valid
// Ed25519 point so that no private key can sign for it.
package pda

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	// MaxSeeds is the maximum number of seeds, including the bump.
	MaxSeeds = 16
	// MaxSeedLength is the maximum length of a single seed.
	MaxSeedLength = 32

	// IncidentAnchorSeed prefixes every incident anchor derivation.
	IncidentAnchorSeed = "incident_anchor"

	pdaMarker = "ProgramDerivedAddress"
)

var (
	ErrOnCurve       = errors.New("pda: address is on the ed25519 curve")
	ErrMaxSeedLength = errors.New("pda: seed limits exceeded")
	ErrNoViableBump  = errors.New("pda: no viable bump seed")
)

// CreateProgramAddress hashes seeds with programID. It fails with ErrOnCurve
// when the digest is a valid curve point.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, fmt.Errorf("%w: %d seeds", ErrMaxSeedLength, len(seeds))
	}
	h := sha256.New()
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, fmt.Errorf("%w: seed %d is %d bytes", ErrMaxSeedLength, i, len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var out PublicKey
	copy(out[:], h.Sum(nil))
	if IsOnCurve(out[:]) {
		return PublicKey{}, ErrOnCurve
	}
	return out, nil
}

// FindProgramAddress searches bumps from 255 down to 1, appending the bump as
// the final seed, and returns the first off-curve address.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return PublicKey{}, 0, fmt.Errorf("%w: %d seeds leaves no room for bump", ErrMaxSeedLength, len(seeds))
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	bump := []byte{0}
	withBump[len(seeds)] = bump

	for b := 255; b >= 1; b-- {
		bump[0] = uint8(b)
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(b), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return PublicKey{}, 0, err
		}
	}
	return PublicKey{}, 0, ErrNoViableBump
}

// IncidentSeeds returns the seeds, without bump, for an incident anchor account.
func IncidentSeeds(incidentID uint64) [][]byte {
	id := make([]byte, 8)
	binary.LittleEndian.PutUint64(id, incidentID)
	return [][]byte{[]byte(IncidentAnchorSeed), id}
}

// DeriveIncidentAnchor returns the anchor account address and bump for incidentID.
func DeriveIncidentAnchor(programID PublicKey, incidentID uint64) (PublicKey, uint8, error) {
	return FindProgramAddress(IncidentSeeds(incidentID), programID)
}

// IsValidAddress reports whether address is the canonical anchor address for incidentID.
func IsValidAddress(programID, address PublicKey, incidentID uint64) bool {
	derived, _, err := DeriveIncidentAnchor(programID, incidentID)
	return err == nil && derived == address
}

// IsOnCurve reports whether b is the compressed encoding of an Ed25519 point.
// Non-canonical y encodings are accepted, matching the ledger runtime.
func IsOnCurve(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
