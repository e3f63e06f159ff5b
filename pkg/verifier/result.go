package verifier

import (
	"fmt"
	"time"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/merkle"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/record"
)

// Mismatch is one field whose anchored and recomputed values differ.
// Hash values are lowercase hex.
type Mismatch struct {
	Field    string `json:"field"`
	OnChain  string `json:"on_chain"`
	Computed string `json:"computed"`
}

// Result is the outcome of one verification. It is never persisted.
type Result struct {
	Verified        bool                   `json:"verified"`
	IncidentID      uint64                 `json:"incident_id"`
	Address         string                 `json:"address,omitempty"`
	OnChain         *record.OnChainRecord  `json:"on_chain"`
	Computed        *merkle.ArtifactHashes `json:"computed"`
	Mismatches      []Mismatch             `json:"mismatches"`
	Timestamp       time.Time              `json:"timestamp"`
	ExplorerURL     string                 `json:"explorer_url"`
	VerifierVersion string                 `json:"verifier_version"`
}

// Status is the derived state of an incident after verification.
type Status string

const (
	StatusVerified        Status = "verified"
	StatusTampered        Status = "tampered"
	StatusNotAnchored     Status = "not_anchored"
	StatusPendingApproval Status = "pending_approval"
)

// Status derives the incident state. A mismatch always reads as tampered;
// matching hashes on a record still awaiting approval read as pending.
func (r *Result) Status() Status {
	switch {
	case r.OnChain == nil:
		return StatusNotAnchored
	case !r.Verified:
		return StatusTampered
	case record.StatusOf(r.OnChain) == record.StatusPendingApproval:
		return StatusPendingApproval
	default:
		return StatusVerified
	}
}

// FirstMismatch returns the most significant mismatch in compare order.
func (r *Result) FirstMismatch() (Mismatch, bool) {
	if len(r.Mismatches) == 0 {
		return Mismatch{}, false
	}
	return r.Mismatches[0], true
}

// Summary is a one-line human verdict.
func (r *Result) Summary() string {
	if r.OnChain == nil {
		return fmt.Sprintf("FAIL: incident %d is not anchored", r.IncidentID)
	}
	total := len(CompareOrder)
	if r.Verified {
		return fmt.Sprintf("PASS: %d/%d hash fields match", total, total)
	}
	return fmt.Sprintf("FAIL: %d/%d hash fields differ", len(r.Mismatches), total)
}
