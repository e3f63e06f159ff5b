package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/canonicalize"
)

const sampleDoc = `{
  "artifact_id": "art-001",
  "incident_id": "INC-42",
  "scenario_id": "fire-suppression",
  "created_at": "2026-01-15T10:00:00Z",
  "operator": "op-7",
  "incident": {"title": "Pressure excursion", "severity": 3},
  "evidence": [{"sensor": "PT-101", "value": 12.50}],
  "contradictions": [],
  "trust_receipt": {"score": 0.82, "reason_codes": ["SENSOR_AGREE"]},
  "operator_decisions": [{"action": "isolate", "at": "2026-01-15T10:02:00Z"}],
  "timeline": [{"t": 0, "event": "alarm"}],
  "site": "plant-3"
}`

func TestParse_ReadsMetadataSectionsAndExtra(t *testing.T) {
	a, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "art-001", a.ArtifactID)
	assert.Equal(t, "INC-42", a.IncidentID)
	assert.Equal(t, "fire-suppression", a.ScenarioID)
	assert.Equal(t, "2026-01-15T10:00:00Z", a.CreatedAt)
	assert.Equal(t, "op-7", a.Operator)
	assert.Equal(t, map[string]any{"site": "plant-3"}, a.Extra)

	ev, ok := a.Evidence.([]any)
	require.True(t, ok)
	require.Len(t, ev, 1)
	assert.Equal(t, json.Number("12.50"), ev[0].(map[string]any)["value"])

	s, err := canonicalize.String(a.Section(SectionEvidence))
	require.NoError(t, err)
	assert.Equal(t, `[{"sensor":"PT-101","value":12.5}]`, s)
}

func TestParse_MissingSectionRejected(t *testing.T) {
	_, err := Parse([]byte(`{"incident":{},"evidence":[],"contradictions":[],"trust_receipt":{},"operator_decisions":[]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArtifact)
}

func TestParse_NonStringMetadataRejected(t *testing.T) {
	_, err := Parse([]byte(`{"operator": 7, "incident":{},"evidence":[],"contradictions":[],"trust_receipt":{},"operator_decisions":[],"timeline":[]}`))
	assert.ErrorIs(t, err, ErrInvalidArtifact)
}

func TestParse_NotJSON(t *testing.T) {
	_, err := Parse([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidArtifact)
}

func TestDocument_RoundTripIsStable(t *testing.T) {
	a, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	first, err := json.Marshal(a)
	require.NoError(t, err)

	var b DecisionArtifact
	require.NoError(t, json.Unmarshal(first, &b))
	second, err := json.Marshal(&b)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))

	orig, err := canonicalize.String(json.RawMessage(sampleDoc))
	require.NoError(t, err)
	assert.Equal(t, orig, string(first))
}

func TestDocument_OmitsUnsetMetadata(t *testing.T) {
	a := &DecisionArtifact{Incident: map[string]any{}}
	s, err := canonicalize.String(a.Document())
	require.NoError(t, err)
	assert.Equal(t, `{"contradictions":null,"evidence":null,"incident":{},"operator_decisions":null,"timeline":null,"trust_receipt":null}`, s)
}

func TestDocument_KeepsPresentEmptyMetadata(t *testing.T) {
	doc := `{"artifact_id":"a","scenario_id":"","operator":"","incident":{},"evidence":[],` +
		`"contradictions":[],"trust_receipt":{},"operator_decisions":[],"timeline":[]}`
	a, err := Parse([]byte(doc))
	require.NoError(t, err)

	out, err := a.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"artifact_id":"a","contradictions":[],"evidence":[],"incident":{},`+
		`"operator":"","operator_decisions":[],"scenario_id":"","timeline":[],"trust_receipt":{}}`, string(out))

	again, err := Parse(out)
	require.NoError(t, err)
	h1, err := canonicalize.HashHex(a.Document())
	require.NoError(t, err)
	h2, err := canonicalize.HashHex(again.Document())
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	absent, err := Parse([]byte(`{"artifact_id":"a","incident":{},"evidence":[],` +
		`"contradictions":[],"trust_receipt":{},"operator_decisions":[],"timeline":[]}`))
	require.NoError(t, err)
	h3, err := canonicalize.HashHex(absent.Document())
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestSetSection(t *testing.T) {
	a := &DecisionArtifact{}
	for i, s := range SectionOrder {
		require.NoError(t, a.SetSection(s, i))
	}
	for i, s := range SectionOrder {
		assert.Equal(t, i, a.Section(s))
	}
	assert.Error(t, a.SetSection("summary", 1))
	assert.Nil(t, a.Section("summary"))
}

func TestNew_AssignsIdentity(t *testing.T) {
	a := New("INC-1", "drill", "op-1")
	_, err := uuid.Parse(a.ArtifactID)
	require.NoError(t, err)
	assert.NotEmpty(t, a.CreatedAt)
	assert.Equal(t, "INC-1", a.IncidentID)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o600))

	a, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "art-001", a.ArtifactID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
