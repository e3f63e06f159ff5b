package merkle

import (
	"errors"
	"math"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/canonicalize"
)

// ErrChainFull is returned when the on-chain u32 event counter would overflow.
var ErrChainFull = errors.New("event chain count exhausted")

// ComputeEventChainHead links event onto prev: SHA-256(prev || event).
func ComputeEventChainHead(prev, event Digest) Digest {
	var buf [2 * DigestSize]byte
	copy(buf[:DigestSize], prev[:])
	copy(buf[DigestSize:], event[:])
	return Sum(buf[:])
}

// HashEvent canonicalizes and hashes a single event payload.
func HashEvent(v any) (Digest, error) {
	return canonicalize.Hash(v)
}

// EventChain is an append-only hash chain seeded with an artifact's
// initial event hash. It is not safe for concurrent use.
type EventChain struct {
	head  Digest
	count uint32
}

// NewEventChain starts a chain at seed with zero events.
func NewEventChain(seed Digest) *EventChain {
	return &EventChain{head: seed}
}

// Append links event into the chain and returns the new head.
func (c *EventChain) Append(event Digest) (Digest, error) {
	if c.count == math.MaxUint32 {
		return c.head, ErrChainFull
	}
	c.head = ComputeEventChainHead(c.head, event)
	c.count++
	return c.head, nil
}

// Head returns the current chain head.
func (c *EventChain) Head() Digest {
	return c.head
}

// Count returns the number of appended events.
func (c *EventChain) Count() uint32 {
	return c.count
}

// ReplayEventChain folds events onto seed and returns the resulting head and count.
func ReplayEventChain(seed Digest, events []Digest) (Digest, uint32, error) {
	c := NewEventChain(seed)
	for _, e := range events {
		if _, err := c.Append(e); err != nil {
			return c.Head(), c.Count(), err
		}
	}
	return c.Head(), c.Count(), nil
}
