package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/artifact"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/artifacts"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/merkle"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/record"
)

// runPublishCmd implements `sator-anchor publish`: the artifact is stored in
// canonical form in the PACKET_STORAGE_TYPE store and its URI printed for
// use as the record's packet_uri.
func runPublishCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("publish", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		artifactPath string
		jsonOutput   bool
	)
	cmd.StringVar(&artifactPath, "artifact", "", "Path to decision artifact JSON (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output as JSON")

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
	canonical, err := a.MarshalJSON()
	if err != nil {
		return fail(stderr, "serialize artifact: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	st, err := artifacts.NewStoreFromEnv(ctx)
	if err != nil {
		return fail(stderr, "packet store: %v", err)
	}
	uri, err := artifacts.Publish(ctx, st, canonical, record.MaxPacketURILen)
	if err != nil {
		return fail(stderr, "store packet: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]any{"packet_uri": uri, "hashes": h}, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}
	_, _ = fmt.Fprintf(stdout, "Packet: %s\n", uri)
	printHashes(stdout, h)
	return 0
}
