// Package record encodes and decodes IncidentAnchor ledger accounts.
//
// Every account has the same size: optional fields keep their value slot
// when absent and the packet URI is padded to its maximum length.
package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/merkle"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
)

// OnChainRecord is the decoded IncidentAnchor account.
type OnChainRecord struct {
	Operator              pda.PublicKey         `json:"operator"`
	IncidentID            uint64                `json:"incident_id"`
	IncidentCoreHash      merkle.Digest         `json:"incident_core_hash"`
	EvidenceSetHash       merkle.Digest         `json:"evidence_set_hash"`
	ContradictionsHash    merkle.Digest         `json:"contradictions_hash"`
	TrustReceiptHash      merkle.Digest         `json:"trust_receipt_hash"`
	OperatorDecisionsHash merkle.Digest         `json:"operator_decisions_hash"`
	TimelineHash          merkle.Digest         `json:"timeline_hash"`
	BundleRootHash        merkle.Digest         `json:"bundle_root_hash"`
	EventChainHead        merkle.Digest         `json:"event_chain_head"`
	EventCount            uint32                `json:"event_count"`
	OperatorRole          Role                  `json:"operator_role"`
	Supervisor            Option[pda.PublicKey] `json:"supervisor"`
	RequiresApproval      bool                  `json:"requires_approval"`
	ApprovalTimestamp     Option[int64]         `json:"approval_timestamp"`
	PacketURI             string                `json:"packet_uri"`
	CreatedAt             int64                 `json:"created_at"`
	UpdatedAt             int64                 `json:"updated_at"`
	Bump                  uint8                 `json:"bump"`
}

// Hash returns the stored digest for a hash field name, in the naming used
// by merkle.ArtifactHashes.
func (r *OnChainRecord) Hash(field string) (merkle.Digest, bool) {
	switch field {
	case merkle.FieldIncidentCoreHash:
		return r.IncidentCoreHash, true
	case merkle.FieldEvidenceSetHash:
		return r.EvidenceSetHash, true
	case merkle.FieldContradictionsHash:
		return r.ContradictionsHash, true
	case merkle.FieldTrustReceiptHash:
		return r.TrustReceiptHash, true
	case merkle.FieldOperatorDecisionsHash:
		return r.OperatorDecisionsHash, true
	case merkle.FieldTimelineHash:
		return r.TimelineHash, true
	case merkle.FieldBundleRootHash:
		return r.BundleRootHash, true
	default:
		return merkle.Digest{}, false
	}
}

// SetHashes copies the section and bundle root digests from h.
func (r *OnChainRecord) SetHashes(h *merkle.ArtifactHashes) {
	r.IncidentCoreHash = h.IncidentCoreHash
	r.EvidenceSetHash = h.EvidenceSetHash
	r.ContradictionsHash = h.ContradictionsHash
	r.TrustReceiptHash = h.TrustReceiptHash
	r.OperatorDecisionsHash = h.OperatorDecisionsHash
	r.TimelineHash = h.TimelineHash
	r.BundleRootHash = h.BundleRootHash
}

// Decode parses full account data: discriminator followed by payload.
func Decode(data []byte) (*OnChainRecord, error) {
	if len(data) < DiscriminatorSize {
		return nil, &DecodeError{Field: "discriminator", Offset: 0, Err: fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, DiscriminatorSize, len(data))}
	}
	if !bytes.Equal(data[:DiscriminatorSize], Discriminator[:]) {
		return nil, &DecodeError{Field: "discriminator", Offset: 0, Err: ErrDiscriminator}
	}
	return DecodePayload(data[DiscriminatorSize:])
}

// DecodePayload parses the account payload. Trailing bytes past the fixed
// layout are ignored; a short buffer is an error.
func DecodePayload(payload []byte) (*OnChainRecord, error) {
	if len(payload) < PayloadSize {
		return nil, &DecodeError{Field: "payload", Offset: len(payload), Err: fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, PayloadSize, len(payload))}
	}

	rd := NewReader(payload)
	rec := &OnChainRecord{}
	var err error

	if rec.Operator, err = rd.ReadPublicKey("operator"); err != nil {
		return nil, err
	}
	if rec.IncidentID, err = rd.ReadU64("incident_id"); err != nil {
		return nil, err
	}
	hashes := []struct {
		field string
		dst   *merkle.Digest
	}{
		{merkle.FieldIncidentCoreHash, &rec.IncidentCoreHash},
		{merkle.FieldEvidenceSetHash, &rec.EvidenceSetHash},
		{merkle.FieldContradictionsHash, &rec.ContradictionsHash},
		{merkle.FieldTrustReceiptHash, &rec.TrustReceiptHash},
		{merkle.FieldOperatorDecisionsHash, &rec.OperatorDecisionsHash},
		{merkle.FieldTimelineHash, &rec.TimelineHash},
		{merkle.FieldBundleRootHash, &rec.BundleRootHash},
		{"event_chain_head", &rec.EventChainHead},
	}
	for _, h := range hashes {
		if *h.dst, err = rd.ReadHash(h.field); err != nil {
			return nil, err
		}
	}
	if rec.EventCount, err = rd.ReadU32("event_count"); err != nil {
		return nil, err
	}

	roleOff := rd.Offset()
	role, err := rd.ReadU8("operator_role")
	if err != nil {
		return nil, err
	}
	rec.OperatorRole = Role(role)
	if !rec.OperatorRole.Valid() {
		return nil, &DecodeError{Field: "operator_role", Offset: roleOff, Err: fmt.Errorf("%w: %d", ErrInvalidRole, role)}
	}

	if rec.Supervisor, err = rd.ReadOptionalPublicKey("supervisor"); err != nil {
		return nil, err
	}
	if rec.RequiresApproval, err = rd.ReadBool("requires_approval"); err != nil {
		return nil, err
	}
	if rec.ApprovalTimestamp, err = rd.ReadOptionalI64("approval_timestamp"); err != nil {
		return nil, err
	}
	if rec.PacketURI, err = rd.ReadPaddedString("packet_uri", MaxPacketURILen); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = rd.ReadI64("created_at"); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = rd.ReadI64("updated_at"); err != nil {
		return nil, err
	}
	if rec.Bump, err = rd.ReadU8("bump"); err != nil {
		return nil, err
	}
	return rec, nil
}

// Encode writes full account data for r. It is the inverse of Decode.
func Encode(r *OnChainRecord) ([]byte, error) {
	if len(r.PacketURI) > MaxPacketURILen {
		return nil, fmt.Errorf("%w: %d bytes", ErrURITooLong, len(r.PacketURI))
	}
	if !utf8.ValidString(r.PacketURI) {
		return nil, ErrInvalidURI
	}
	if !r.OperatorRole.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, uint8(r.OperatorRole))
	}

	out := make([]byte, AccountSize)
	copy(out, Discriminator[:])
	p := out[DiscriminatorSize:]
	le := binary.LittleEndian

	copy(p[OffsetOperator:], r.Operator[:])
	le.PutUint64(p[OffsetIncidentID:], r.IncidentID)
	copy(p[OffsetIncidentCoreHash:], r.IncidentCoreHash[:])
	copy(p[OffsetEvidenceSetHash:], r.EvidenceSetHash[:])
	copy(p[OffsetContradictionsHash:], r.ContradictionsHash[:])
	copy(p[OffsetTrustReceiptHash:], r.TrustReceiptHash[:])
	copy(p[OffsetOperatorDecisionsHash:], r.OperatorDecisionsHash[:])
	copy(p[OffsetTimelineHash:], r.TimelineHash[:])
	copy(p[OffsetBundleRootHash:], r.BundleRootHash[:])
	copy(p[OffsetEventChainHead:], r.EventChainHead[:])
	le.PutUint32(p[OffsetEventCount:], r.EventCount)
	p[OffsetOperatorRole] = byte(r.OperatorRole)

	if sup, ok := r.Supervisor.Get(); ok {
		p[OffsetSupervisor] = 1
		copy(p[OffsetSupervisor+1:], sup[:])
	}
	if r.RequiresApproval {
		p[OffsetRequiresApproval] = 1
	}
	if ts, ok := r.ApprovalTimestamp.Get(); ok {
		p[OffsetApprovalTimestamp] = 1
		le.PutUint64(p[OffsetApprovalTimestamp+1:], uint64(ts))
	}

	le.PutUint32(p[OffsetPacketURI:], uint32(len(r.PacketURI)))
	copy(p[OffsetPacketURI+4:], r.PacketURI)

	le.PutUint64(p[OffsetCreatedAt:], uint64(r.CreatedAt))
	le.PutUint64(p[OffsetUpdatedAt:], uint64(r.UpdatedAt))
	p[OffsetBump] = r.Bump
	return out, nil
}
