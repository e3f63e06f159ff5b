package verifier

import (
	"strconv"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/merkle"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/record"
)

// Event chain field names used in mismatch reports.
const (
	FieldEventChainHead = "event_chain_head"
	FieldEventCount     = "event_count"
)

// CheckEventChain replays events onto seed, normally the artifact's initial
// event hash, and compares the result with the record's chain head and
// count. An empty result means the local log matches the anchor.
func CheckEventChain(rec *record.OnChainRecord, seed merkle.Digest, events []merkle.Digest) ([]Mismatch, error) {
	head, count, err := merkle.ReplayEventChain(seed, events)
	if err != nil {
		return nil, err
	}
	mismatches := make([]Mismatch, 0)
	if head != rec.EventChainHead {
		mismatches = append(mismatches, Mismatch{
			Field:    FieldEventChainHead,
			OnChain:  rec.EventChainHead.Hex(),
			Computed: head.Hex(),
		})
	}
	if count != rec.EventCount {
		mismatches = append(mismatches, Mismatch{
			Field:    FieldEventCount,
			OnChain:  strconv.FormatUint(uint64(rec.EventCount), 10),
			Computed: strconv.FormatUint(uint64(count), 10),
		})
	}
	return mismatches, nil
}
