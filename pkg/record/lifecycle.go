package record

import (
	"errors"
	"fmt"
	"math"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/merkle"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
)

// AnchorStatus is the stored lifecycle state of an incident anchor.
// Verified and Tampered are not stored; the verifier derives them.
type AnchorStatus string

const (
	StatusNotAnchored     AnchorStatus = "not_anchored"
	StatusPendingApproval AnchorStatus = "pending_approval"
	StatusAnchored        AnchorStatus = "anchored"
)

// StatusOf returns the lifecycle state of r. A nil record is not anchored.
func StatusOf(r *OnChainRecord) AnchorStatus {
	switch {
	case r == nil:
		return StatusNotAnchored
	case r.RequiresApproval && !r.ApprovalTimestamp.IsSome():
		return StatusPendingApproval
	default:
		return StatusAnchored
	}
}

// CanBeUpdatedBy reports whether signer, acting with role, may write r.
// The owner always may. Otherwise the recorded supervisor may, or any
// Supervisor or Admin when no supervisor is recorded.
func (r *OnChainRecord) CanBeUpdatedBy(signer pda.PublicKey, role Role) bool {
	if signer == r.Operator {
		return true
	}
	if sup, ok := r.Supervisor.Get(); ok {
		return signer == sup || role == RoleAdmin
	}
	return role.AtLeast(RoleSupervisor)
}

// CreateParams describes the first anchor write for an incident.
type CreateParams struct {
	Operator         pda.PublicKey
	IncidentID       uint64
	Hashes           *merkle.ArtifactHashes
	Role             Role
	Supervisor       Option[pda.PublicKey]
	RequiresApproval bool
	PacketURI        string
	Bump             uint8
	Now              int64
}

// NewRecord builds the account created by the first anchor write. The event
// chain starts at the artifact's initial event hash with zero events.
// Employee writes must request approval; Supervisor and Admin writes may
// anchor directly.
func NewRecord(p CreateParams) (*OnChainRecord, error) {
	if !p.Role.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, uint8(p.Role))
	}
	if p.Role == RoleEmployee && !p.RequiresApproval {
		return nil, ErrApprovalRequired
	}
	if len(p.PacketURI) > MaxPacketURILen {
		return nil, fmt.Errorf("%w: %d bytes", ErrURITooLong, len(p.PacketURI))
	}
	if p.Hashes == nil {
		return nil, errors.New("record: hashes are required")
	}
	rec := &OnChainRecord{
		Operator:         p.Operator,
		IncidentID:       p.IncidentID,
		EventChainHead:   p.Hashes.InitialEventHash,
		OperatorRole:     p.Role,
		Supervisor:       p.Supervisor,
		RequiresApproval: p.RequiresApproval,
		PacketURI:        p.PacketURI,
		CreatedAt:        p.Now,
		UpdatedAt:        p.Now,
		Bump:             p.Bump,
	}
	rec.SetHashes(p.Hashes)
	return rec, nil
}

// ApplyApproval records a Supervisor or Admin approval at ts, moving a
// pending record to anchored.
func ApplyApproval(r *OnChainRecord, approver pda.PublicKey, role Role, ts int64) error {
	if !role.AtLeast(RoleSupervisor) {
		return fmt.Errorf("%w: %s cannot approve", ErrUnauthorized, role)
	}
	if sup, ok := r.Supervisor.Get(); ok && sup != approver && role != RoleAdmin {
		return fmt.Errorf("%w: approver is not the recorded supervisor", ErrUnauthorized)
	}
	r.ApprovalTimestamp = Some(ts)
	r.RequiresApproval = false
	r.UpdatedAt = ts
	return nil
}

// UpdateHashes re-anchors r to new artifact hashes on behalf of signer.
// An Employee update puts the record back into pending approval.
func UpdateHashes(r *OnChainRecord, signer pda.PublicKey, role Role, h *merkle.ArtifactHashes, ts int64) error {
	if !r.CanBeUpdatedBy(signer, role) {
		return ErrUnauthorized
	}
	r.SetHashes(h)
	if role == RoleEmployee {
		r.RequiresApproval = true
		r.ApprovalTimestamp = None[int64]()
	}
	r.UpdatedAt = ts
	return nil
}

// AppendEvent links event onto the record's chain head and bumps the count.
func AppendEvent(r *OnChainRecord, event merkle.Digest, ts int64) error {
	if r.EventCount == math.MaxUint32 {
		return merkle.ErrChainFull
	}
	r.EventChainHead = merkle.ComputeEventChainHead(r.EventChainHead, event)
	r.EventCount++
	r.UpdatedAt = ts
	return nil
}
