package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/artifact"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/merkle"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/verifier"
)

// runChainCmd implements `sator-anchor chain`: replay a JSON array of events
// from a seed and, with --incident, compare against the anchored chain head.
// The seed is --seed or the initial event hash of --artifact.
func runChainCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("chain", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		seedHex      string
		artifactPath string
		eventsPath   string
		incidentArg  string
	)
	cmd.StringVar(&seedHex, "seed", "", "Hex digest the chain starts from")
	cmd.StringVar(&artifactPath, "artifact", "", "Artifact whose initial event hash seeds the chain")
	cmd.StringVar(&eventsPath, "events", "", "JSON array of events, oldest first (REQUIRED)")
	cmd.StringVar(&incidentArg, "incident", "", "Compare with this incident's anchor")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if eventsPath == "" {
		return fail(stderr, "--events is required")
	}
	if (seedHex == "") == (artifactPath == "") {
		return fail(stderr, "exactly one of --seed or --artifact is required")
	}

	var seed merkle.Digest
	if seedHex != "" {
		d, err := merkle.ParseDigest(seedHex)
		if err != nil {
			return fail(stderr, "--seed: %v", err)
		}
		seed = d
	} else {
		a, err := artifact.Load(artifactPath)
		if err != nil {
			return fail(stderr, "%v", err)
		}
		h, err := merkle.ComputeArtifactHashes(a)
		if err != nil {
			return fail(stderr, "hash artifact: %v", err)
		}
		seed = h.InitialEventHash
	}

	events, err := loadEvents(eventsPath)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	head, count, err := merkle.ReplayEventChain(seed, events)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	_, _ = fmt.Fprintf(stdout, "Head:   %s\n", head.Hex())
	_, _ = fmt.Fprintf(stdout, "Events: %d\n", count)

	if incidentArg == "" {
		return 0
	}
	incident, err := parseIncident(incidentArg)
	if err != nil {
		return fail(stderr, "%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	rt, err := setup(ctx, stderr)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	defer rt.Close()

	rec, _, err := rt.newVerifier().FetchRecord(ctx, incident)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	mismatches, err := verifier.CheckEventChain(rec, seed, events)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	if len(mismatches) == 0 {
		_, _ = fmt.Fprintf(stdout, "%s✅ Event chain matches incident %d%s\n", ColorGreen, incident, ColorReset)
		return 0
	}
	_, _ = fmt.Fprintf(stdout, "%s❌ Event chain differs from incident %d%s\n", ColorRed, incident, ColorReset)
	for _, m := range mismatches {
		_, _ = fmt.Fprintf(stdout, "  - %s: on-chain %s, computed %s\n", m.Field, m.OnChain, m.Computed)
	}
	return 1
}

// loadEvents reads a JSON array and hashes each element canonically.
func loadEvents(path string) ([]merkle.Digest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events %s: %w", path, err)
	}
	var raw []any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("events %s must be a JSON array: %w", path, err)
	}
	out := make([]merkle.Digest, 0, len(raw))
	for i, ev := range raw {
		d, err := merkle.HashEvent(ev)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}
