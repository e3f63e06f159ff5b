package merkle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/artifact"
)

func fixture() *artifact.DecisionArtifact {
	return &artifact.DecisionArtifact{
		ArtifactID:        "art-001",
		IncidentID:        "INC-42",
		Incident:          map[string]any{"severity": 3, "id": "INC-42"},
		Evidence:          []any{map[string]any{"value": 12.5, "sensor": "PT-101"}},
		Contradictions:    []any{},
		TrustReceipt:      map[string]any{"score": 0.82},
		OperatorDecisions: []any{},
		Timeline:          []any{map[string]any{"t": 0, "event": "alarm"}},
	}
}

func mustDigest(t *testing.T, s string) Digest {
	t.Helper()
	d, err := ParseDigest(s)
	require.NoError(t, err)
	return d
}

func TestComputeArtifactHashes_KnownVectors(t *testing.T) {
	h, err := ComputeArtifactHashes(fixture())
	require.NoError(t, err)

	assert.Equal(t, "5373cf811d50282a2d386ce44d75d00c2a7706ef7f5b0d2c268d911387ad6710", h.IncidentCoreHash.Hex())
	assert.Equal(t, "e81bd6c8648007942d0186bbb640309a3ca4e79694a933af25a2f10a377e1c6d", h.EvidenceSetHash.Hex())
	assert.Equal(t, "4f53cda18c2baa0c0354bb5f9a3ecbe5ed12ab4d8e11ba873c2f11161202b945", h.ContradictionsHash.Hex())
	assert.Equal(t, "bf6808c3bcfdef5f6f77b6c80ca380eb339e80640fa433b5e026589f4822b171", h.TrustReceiptHash.Hex())
	assert.Equal(t, "4f53cda18c2baa0c0354bb5f9a3ecbe5ed12ab4d8e11ba873c2f11161202b945", h.OperatorDecisionsHash.Hex())
	assert.Equal(t, "a54cdde18316fe2059202f14b1e285333e2fff769f15c27e68983a050ffda846", h.TimelineHash.Hex())
	assert.Equal(t, "cc5faa333c4d95f8c6ad3867bdd2360c7cac56af5abfe47987c9503b1cdb0cb4", h.BundleRootHash.Hex())
	assert.Equal(t, "db90ecebc1ca879d7fe1ce34ace8c4d9dbdcf2143eb4be093c69c5c1fb80087d", h.InitialEventHash.Hex())
}

func TestComputeArtifactHashes_Stable(t *testing.T) {
	a := fixture()
	h1, err := ComputeArtifactHashes(a)
	require.NoError(t, err)
	h2, err := ComputeArtifactHashes(a)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestComputeArtifactHashes_SingleLeafSensitivity(t *testing.T) {
	base, err := ComputeArtifactHashes(fixture())
	require.NoError(t, err)

	for i, section := range artifact.SectionOrder {
		t.Run(string(section), func(t *testing.T) {
			a := fixture()
			require.NoError(t, a.SetSection(section, map[string]any{"edited": true}))

			h, err := ComputeArtifactHashes(a)
			require.NoError(t, err)

			got := h.Sections()
			want := base.Sections()
			for j := range got {
				if j == i {
					assert.NotEqual(t, want[j], got[j], "edited section hash must change")
				} else {
					assert.Equal(t, want[j], got[j], "section %s must not change", artifact.SectionOrder[j])
				}
			}
			assert.NotEqual(t, base.BundleRootHash, h.BundleRootHash)
			assert.NotEqual(t, base.InitialEventHash, h.InitialEventHash)
		})
	}
}

func TestComputeArtifactHashes_MetadataOnlyAffectsInitialEvent(t *testing.T) {
	base, err := ComputeArtifactHashes(fixture())
	require.NoError(t, err)

	a := fixture()
	a.Operator = "op-9"
	h, err := ComputeArtifactHashes(a)
	require.NoError(t, err)

	assert.Equal(t, base.BundleRootHash, h.BundleRootHash)
	assert.NotEqual(t, base.InitialEventHash, h.InitialEventHash)
}

func TestComputeArtifactHashes_EvidenceKeyOrder(t *testing.T) {
	var a, b artifact.DecisionArtifact
	require.NoError(t, json.Unmarshal([]byte(`{"evidence":{"sensor":"PT-101","value":12.5,"unit":"bar"}}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"evidence":{"unit":"bar","value":12.5,"sensor":"PT-101"}}`), &b))

	ha, err := ComputeArtifactHashes(&a)
	require.NoError(t, err)
	hb, err := ComputeArtifactHashes(&b)
	require.NoError(t, err)
	assert.Equal(t, ha.EvidenceSetHash, hb.EvidenceSetHash)
	assert.Equal(t, ha.BundleRootHash, hb.BundleRootHash)
}

func TestBundleRoot_OrderMatters(t *testing.T) {
	h, err := ComputeArtifactHashes(fixture())
	require.NoError(t, err)

	s := h.Sections()
	assert.Equal(t, h.BundleRootHash, BundleRoot(s))

	swapped := s
	swapped[0], swapped[5] = swapped[5], swapped[0]
	assert.NotEqual(t, h.BundleRootHash, BundleRoot(swapped))
}

func TestComputeEventChainHead(t *testing.T) {
	var zero, ones Digest
	for i := range ones {
		ones[i] = 1
	}

	ab := ComputeEventChainHead(zero, ones)
	ba := ComputeEventChainHead(ones, zero)
	assert.Equal(t, "5c85955f709283ecce2b74f1b1552918819f390911816e7bb466805a38ab87f3", ab.Hex())
	assert.Equal(t, "037d6dfb3a369a41e01100fdd53c35ee3fb69ddec5830d61e1138d066a4c2285", ba.Hex())
	assert.NotEqual(t, ab, ba)
}

func TestEventChain_ReplayMatchesIncremental(t *testing.T) {
	seed := mustDigest(t, "db90ecebc1ca879d7fe1ce34ace8c4d9dbdcf2143eb4be093c69c5c1fb80087d")

	var events []Digest
	for _, payload := range []any{
		map[string]any{"action": "isolate"},
		map[string]any{"action": "approve", "by": "sup-1"},
	} {
		e, err := HashEvent(payload)
		require.NoError(t, err)
		events = append(events, e)
	}

	chain := NewEventChain(seed)
	assert.Equal(t, seed, chain.Head())
	for _, e := range events {
		_, err := chain.Append(e)
		require.NoError(t, err)
	}

	head, count, err := ReplayEventChain(seed, events)
	require.NoError(t, err)
	assert.Equal(t, chain.Head(), head)
	assert.Equal(t, uint32(2), count)
	assert.Equal(t, ComputeEventChainHead(ComputeEventChainHead(seed, events[0]), events[1]), head)

	reordered, _, err := ReplayEventChain(seed, []Digest{events[1], events[0]})
	require.NoError(t, err)
	assert.NotEqual(t, head, reordered)
}

func TestDigest_TextForms(t *testing.T) {
	d := Sum([]byte("sator"))
	parsed, err := ParseDigest("sha256:" + d.Hex())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	b, err := json.Marshal(struct {
		D Digest `json:"d"`
	}{d})
	require.NoError(t, err)
	assert.Equal(t, `{"d":"`+d.Hex()+`"}`, string(b))

	_, err = ParseDigest("abcd")
	assert.Error(t, err)
	_, err = ParseDigest("zz")
	assert.Error(t, err)
	assert.True(t, Digest{}.IsZero())
	assert.False(t, d.IsZero())
}
