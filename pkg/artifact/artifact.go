// Package artifact models the decision artifact that SATOR anchors on-chain.
//
// The six sections are opaque to this package: they are carried as generic
// structured values and only ever serialized, never interpreted.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/canonicalize"
)

// Section names one of the six hashed parts of a DecisionArtifact.
type Section string

const (
	SectionIncident          Section = "incident"
	SectionEvidence          Section = "evidence"
	SectionContradictions    Section = "contradictions"
	SectionTrustReceipt      Section = "trust_receipt"
	SectionOperatorDecisions Section = "operator_decisions"
	SectionTimeline          Section = "timeline"
)

// SectionOrder is the order in which section digests are concatenated into
// the bundle root. It is part of the anchor protocol and must never change.
var SectionOrder = [6]Section{
	SectionIncident,
	SectionEvidence,
	SectionContradictions,
	SectionTrustReceipt,
	SectionOperatorDecisions,
	SectionTimeline,
}

// Metadata field names.
const (
	FieldArtifactID = "artifact_id"
	FieldIncidentID = "incident_id"
	FieldScenarioID = "scenario_id"
	FieldCreatedAt  = "created_at"
	FieldOperator   = "operator"
)

// ErrInvalidArtifact is returned when a document cannot be read as an artifact.
var ErrInvalidArtifact = errors.New("invalid decision artifact")

// DecisionArtifact is the unit being protected.
type DecisionArtifact struct {
	ArtifactID string
	IncidentID string
	ScenarioID string
	CreatedAt  string
	Operator   string

	Incident          any
	Evidence          any
	Contradictions    any
	TrustReceipt      any
	OperatorDecisions any
	Timeline          any

	// Extra holds top-level fields outside the known set. They take part in
	// the whole-artifact hash exactly as supplied.
	Extra map[string]any

	// present records metadata keys seen by UnmarshalJSON, so an explicit
	// empty string survives a parse/serialize cycle.
	present map[string]bool
}

// New returns an empty artifact with a fresh artifact id and creation time.
func New(incidentID, scenarioID, operator string) *DecisionArtifact {
	return &DecisionArtifact{
		ArtifactID: uuid.NewString(),
		IncidentID: incidentID,
		ScenarioID: scenarioID,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		Operator:   operator,
	}
}

// Section returns the value of the named section.
func (a *DecisionArtifact) Section(s Section) any {
	switch s {
	case SectionIncident:
		return a.Incident
	case SectionEvidence:
		return a.Evidence
	case SectionContradictions:
		return a.Contradictions
	case SectionTrustReceipt:
		return a.TrustReceipt
	case SectionOperatorDecisions:
		return a.OperatorDecisions
	case SectionTimeline:
		return a.Timeline
	}
	return nil
}

// SetSection replaces the value of the named section.
func (a *DecisionArtifact) SetSection(s Section, v any) error {
	switch s {
	case SectionIncident:
		a.Incident = v
	case SectionEvidence:
		a.Evidence = v
	case SectionContradictions:
		a.Contradictions = v
	case SectionTrustReceipt:
		a.TrustReceipt = v
	case SectionOperatorDecisions:
		a.OperatorDecisions = v
	case SectionTimeline:
		a.Timeline = v
	default:
		return fmt.Errorf("unknown section %q", s)
	}
	return nil
}

// Document returns the whole artifact as a generic map. A metadata field is
// omitted only when it is empty and was not present in the parsed document.
func (a *DecisionArtifact) Document() map[string]any {
	doc := make(map[string]any, 11+len(a.Extra))
	for k, v := range a.Extra {
		doc[k] = v
	}
	doc[FieldArtifactID] = a.meta(FieldArtifactID, a.ArtifactID)
	doc[FieldIncidentID] = a.meta(FieldIncidentID, a.IncidentID)
	doc[FieldScenarioID] = a.meta(FieldScenarioID, a.ScenarioID)
	doc[FieldCreatedAt] = a.meta(FieldCreatedAt, a.CreatedAt)
	doc[FieldOperator] = a.meta(FieldOperator, a.Operator)
	for _, s := range SectionOrder {
		doc[string(s)] = a.Section(s)
	}
	return doc
}

func (a *DecisionArtifact) meta(field, v string) any {
	if v == "" && !a.present[field] {
		return canonicalize.Undefined
	}
	return v
}

// MarshalJSON writes the artifact in its canonical form.
func (a *DecisionArtifact) MarshalJSON() ([]byte, error) {
	return canonicalize.Canonicalize(a.Document())
}

// UnmarshalJSON reads an artifact document. Numbers are kept as json.Number
// so their canonical form does not depend on float parsing.
func (a *DecisionArtifact) UnmarshalJSON(data []byte) error {
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if doc == nil {
		return fmt.Errorf("%w: document is null", ErrInvalidArtifact)
	}
	return a.fromDocument(doc)
}

func (a *DecisionArtifact) fromDocument(doc map[string]any) error {
	*a = DecisionArtifact{}
	var err error
	meta := []struct {
		field string
		dst   *string
	}{
		{FieldArtifactID, &a.ArtifactID},
		{FieldIncidentID, &a.IncidentID},
		{FieldScenarioID, &a.ScenarioID},
		{FieldCreatedAt, &a.CreatedAt},
		{FieldOperator, &a.Operator},
	}
	for _, m := range meta {
		v, ok := doc[m.field]
		if !ok {
			continue
		}
		s, isString := v.(string)
		if !isString {
			err = errors.Join(err, fmt.Errorf("%w: %s must be a string", ErrInvalidArtifact, m.field))
			continue
		}
		*m.dst = s
		if a.present == nil {
			a.present = make(map[string]bool, len(meta))
		}
		a.present[m.field] = true
	}
	if err != nil {
		return err
	}

	for _, s := range SectionOrder {
		_ = a.SetSection(s, doc[string(s)])
	}

	known := map[string]bool{
		FieldArtifactID: true, FieldIncidentID: true, FieldScenarioID: true,
		FieldCreatedAt: true, FieldOperator: true,
	}
	for _, s := range SectionOrder {
		known[string(s)] = true
	}
	for k, v := range doc {
		if known[k] {
			continue
		}
		if a.Extra == nil {
			a.Extra = make(map[string]any)
		}
		a.Extra[k] = v
	}
	return nil
}

// Parse validates data against the artifact schema and decodes it.
func Parse(data []byte) (*DecisionArtifact, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var a DecisionArtifact
	if err := a.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &a, nil
}

// Load reads and parses an artifact file.
func Load(path string) (*DecisionArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	return Parse(data)
}
