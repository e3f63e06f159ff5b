package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/artifact"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/merkle"
)

// runHashCmd implements `sator-anchor hash`.
func runHashCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("hash", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		artifactPath string
		jsonOutput   bool
	)
	cmd.StringVar(&artifactPath, "artifact", "", "Path to decision artifact JSON (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output hashes as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if artifactPath == "" {
		return fail(stderr, "--artifact is required")
	}

	a, err := artifact.Load(artifactPath)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	h, err := merkle.ComputeArtifactHashes(a)
	if err != nil {
		return fail(stderr, "hash artifact: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(h, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}
	printHashes(stdout, h)
	return 0
}

func printHashes(w io.Writer, h *merkle.ArtifactHashes) {
	rows := []struct {
		name string
		d    merkle.Digest
	}{
		{merkle.FieldIncidentCoreHash, h.IncidentCoreHash},
		{merkle.FieldEvidenceSetHash, h.EvidenceSetHash},
		{merkle.FieldContradictionsHash, h.ContradictionsHash},
		{merkle.FieldTrustReceiptHash, h.TrustReceiptHash},
		{merkle.FieldOperatorDecisionsHash, h.OperatorDecisionsHash},
		{merkle.FieldTimelineHash, h.TimelineHash},
		{merkle.FieldBundleRootHash, h.BundleRootHash},
		{merkle.FieldInitialEventHash, h.InitialEventHash},
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%-24s %s\n", r.name, r.d.Hex())
	}
}
