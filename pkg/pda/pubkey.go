package pda

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// PublicKeySize is the width of a ledger address in bytes.
const PublicKeySize = 32

// ErrInvalidPublicKey is returned when a base58 string does not decode to 32 bytes.
var ErrInvalidPublicKey = errors.New("pda: invalid public key")

// PublicKey is a 32-byte ledger address. Its text form is base58.
type PublicKey [PublicKeySize]byte

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	if s == "" {
		return pk, fmt.Errorf("%w: empty", ErrInvalidPublicKey)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("%w: decoded %d bytes", ErrInvalidPublicKey, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// MustParsePublicKey is ParsePublicKey for constants; it panics on error.
func MustParsePublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PublicKeyFromBytes copies b into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("%w: %d bytes", ErrInvalidPublicKey, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns a copy of the key bytes.
func (pk PublicKey) Bytes() []byte {
	out := make([]byte, PublicKeySize)
	copy(out, pk[:])
	return out
}

func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

func (pk *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

func (pk PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(pk.String())
}

func (pk *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return pk.UnmarshalText([]byte(s))
}
