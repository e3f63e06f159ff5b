package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/config"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/explorer"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
)

// runAddressCmd implements `sator-anchor address`. It needs no ledger access.
func runAddressCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("address", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		incident   uint64
		programID  string
		jsonOutput bool
	)
	cfg := config.Load()
	cmd.Uint64Var(&incident, "incident", 0, "Incident id")
	cmd.StringVar(&programID, "program", cfg.ProgramID, "Program id (default $SATOR_PROGRAM_ID)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if programID == "" {
		return fail(stderr, "--program or SATOR_PROGRAM_ID is required")
	}
	program, err := pda.ParsePublicKey(programID)
	if err != nil {
		return fail(stderr, "program id: %v", err)
	}

	addr, bump, err := pda.DeriveIncidentAnchor(program, incident)
	if err != nil {
		// No viable bump is a configuration error, never retried.
		return fail(stderr, "derive address: %v", err)
	}
	url := explorer.AddressURL(addr.String(), cfg.ExplorerCluster())

	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]any{
			"incident_id":  incident,
			"program_id":   program.String(),
			"address":      addr.String(),
			"bump":         bump,
			"explorer_url": url,
		}, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}
	_, _ = fmt.Fprintf(stdout, "Address:  %s\n", addr)
	_, _ = fmt.Fprintf(stdout, "Bump:     %d\n", bump)
	_, _ = fmt.Fprintf(stdout, "Explorer: %s\n", url)
	return 0
}
