package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/ledger"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
)

// runMirrorCmd implements `sator-anchor mirror`: fetch the listed incidents
// from the live ledger so the snapshot store can serve them offline.
func runMirrorCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("mirror", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var list string
	cmd.StringVar(&list, "incidents", "", "Comma-separated incident ids (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if list == "" {
		return fail(stderr, "--incidents is required")
	}
	var ids []uint64
	for _, part := range strings.Split(list, ",") {
		id, err := parseIncident(strings.TrimSpace(part))
		if err != nil {
			return fail(stderr, "%v", err)
		}
		ids = append(ids, id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	rt, err := setup(ctx, stderr)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	defer rt.Close()
	if rt.snapshot == nil {
		return fail(stderr, "SATOR_SNAPSHOT_DSN is required")
	}
	if rt.rpc == nil {
		return fail(stderr, "mirror needs a live ledger; unset SATOR_OFFLINE")
	}

	mirror := rt.snapshot.Mirror(rt.rpc)
	var copied, absent int
	for _, id := range ids {
		addr, _, err := pda.DeriveIncidentAnchor(rt.program, id)
		if err != nil {
			return fail(stderr, "derive address: %v", err)
		}
		if _, err := mirror.FetchAccount(ctx, addr); err != nil {
			if errors.Is(err, ledger.ErrAccountNotFound) {
				absent++
				_, _ = fmt.Fprintf(stdout, "incident %d: not anchored\n", id)
				continue
			}
			return fail(stderr, "incident %d: %v", id, err)
		}
		copied++
		_, _ = fmt.Fprintf(stdout, "incident %d: %s\n", id, addr)
	}
	_, _ = fmt.Fprintf(stdout, "Mirrored %d, not anchored %d\n", copied, absent)
	return 0
}
