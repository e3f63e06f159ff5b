package merkle

import (
	"fmt"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/artifact"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/canonicalize"
)

// Hash field names, in SectionOrder. These are the names used on-chain and
// in verification mismatch reports.
const (
	FieldIncidentCoreHash      = "incident_core_hash"
	FieldEvidenceSetHash       = "evidence_set_hash"
	FieldContradictionsHash    = "contradictions_hash"
	FieldTrustReceiptHash      = "trust_receipt_hash"
	FieldOperatorDecisionsHash = "operator_decisions_hash"
	FieldTimelineHash          = "timeline_hash"
	FieldBundleRootHash        = "bundle_root_hash"
	FieldInitialEventHash      = "initial_event_hash"
)

// SectionHashFields maps artifact.SectionOrder positions to field names.
var SectionHashFields = [6]string{
	FieldIncidentCoreHash,
	FieldEvidenceSetHash,
	FieldContradictionsHash,
	FieldTrustReceiptHash,
	FieldOperatorDecisionsHash,
	FieldTimelineHash,
}

// ArtifactHashes is the full commitment set for one artifact.
type ArtifactHashes struct {
	IncidentCoreHash      Digest `json:"incident_core_hash"`
	EvidenceSetHash       Digest `json:"evidence_set_hash"`
	ContradictionsHash    Digest `json:"contradictions_hash"`
	TrustReceiptHash      Digest `json:"trust_receipt_hash"`
	OperatorDecisionsHash Digest `json:"operator_decisions_hash"`
	TimelineHash          Digest `json:"timeline_hash"`
	BundleRootHash        Digest `json:"bundle_root_hash"`
	InitialEventHash      Digest `json:"initial_event_hash"`
}

// Sections returns the six section digests in SectionOrder.
func (h *ArtifactHashes) Sections() [6]Digest {
	return [6]Digest{
		h.IncidentCoreHash,
		h.EvidenceSetHash,
		h.ContradictionsHash,
		h.TrustReceiptHash,
		h.OperatorDecisionsHash,
		h.TimelineHash,
	}
}

// SectionHash hashes one section value.
func SectionHash(v any) (Digest, error) {
	return canonicalize.Hash(v)
}

// BundleRoot hashes the 192-byte concatenation of the six section digests.
// The argument order is the protocol order; permuting it changes the root.
func BundleRoot(sections [6]Digest) Digest {
	buf := make([]byte, 0, len(sections)*DigestSize)
	for _, d := range sections {
		buf = append(buf, d[:]...)
	}
	return Sum(buf)
}

// ComputeArtifactHashes canonicalizes and hashes every section of a, builds
// the bundle root, and hashes the whole artifact into the initial event hash.
func ComputeArtifactHashes(a *artifact.DecisionArtifact) (*ArtifactHashes, error) {
	var sections [6]Digest
	for i, s := range artifact.SectionOrder {
		d, err := SectionHash(a.Section(s))
		if err != nil {
			return nil, fmt.Errorf("hash section %s: %w", s, err)
		}
		sections[i] = d
	}

	initial, err := canonicalize.Hash(a.Document())
	if err != nil {
		return nil, fmt.Errorf("hash artifact: %w", err)
	}

	return &ArtifactHashes{
		IncidentCoreHash:      sections[0],
		EvidenceSetHash:       sections[1],
		ContradictionsHash:    sections[2],
		TrustReceiptHash:      sections[3],
		OperatorDecisionsHash: sections[4],
		TimelineHash:          sections[5],
		BundleRootHash:        BundleRoot(sections),
		InitialEventHash:      initial,
	}, nil
}
