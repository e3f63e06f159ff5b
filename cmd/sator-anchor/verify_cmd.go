package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/artifact"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/artifacts"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/verifier"
)

// runVerifyCmd implements `sator-anchor verify`.
//
// Recomputes every hash of the artifact and compares it with the anchored
// record. --json-out writes the full result for auditors.
//
// Exit codes:
//
//	0 = verification passed
//	1 = verification failed or incident not anchored
//	2 = runtime error
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		incidentArg  string
		artifactPath string
		fromPacket   bool
		jsonOutput   bool
		jsonOutFile  string
		timeout      time.Duration
	)
	cmd.StringVar(&incidentArg, "incident", "", "Incident id (REQUIRED)")
	cmd.StringVar(&artifactPath, "artifact", "", "Path to decision artifact JSON")
	cmd.BoolVar(&fromPacket, "from-packet", false, "Load the artifact from the record's packet_uri")
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON to stdout")
	cmd.StringVar(&jsonOutFile, "json-out", "", "Write the result to a file (auditor mode)")
	cmd.DurationVar(&timeout, "timeout", 2*time.Minute, "Overall deadline")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if incidentArg == "" {
		return fail(stderr, "--incident is required")
	}
	incident, err := parseIncident(incidentArg)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	if (artifactPath == "") == !fromPacket {
		return fail(stderr, "exactly one of --artifact or --from-packet is required")
	}

	var a *artifact.DecisionArtifact
	if artifactPath != "" {
		if a, err = artifact.Load(artifactPath); err != nil {
			return fail(stderr, "%v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	rt, err := setup(ctx, stderr)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	defer rt.Close()

	var res *verifier.Result
	if fromPacket {
		resolver, rerr := artifacts.NewResolverFromEnv(ctx, &http.Client{Timeout: 30 * time.Second}, nil)
		if rerr != nil {
			return fail(stderr, "packet store: %v", rerr)
		}
		res, err = rt.newVerifier(verifier.WithPacketFetcher(resolver)).VerifyFromPacket(ctx, incident)
	} else {
		res, err = rt.newVerifier().Verify(ctx, incident, a)
	}
	if err != nil {
		return fail(stderr, "verification failed: %v", err)
	}

	if jsonOutFile != "" {
		data, _ := json.MarshalIndent(res, "", "  ")
		if writeErr := os.WriteFile(jsonOutFile, data, 0o644); writeErr != nil {
			return fail(stderr, "cannot write audit report: %v", writeErr)
		}
		_, _ = fmt.Fprintf(stdout, "Audit report written to %s\n", jsonOutFile)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(res, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		printResult(stdout, res)
	}

	if !res.Verified {
		return 1
	}
	return 0
}

func printResult(w io.Writer, res *verifier.Result) {
	if res.Verified {
		_, _ = fmt.Fprintf(w, "%s✅ Anchor verification PASSED%s\n", ColorGreen, ColorReset)
	} else {
		_, _ = fmt.Fprintf(w, "%s❌ Anchor verification FAILED%s\n", ColorRed, ColorReset)
	}
	_, _ = fmt.Fprintf(w, "Incident: %d\n", res.IncidentID)
	_, _ = fmt.Fprintf(w, "Status:   %s\n", res.Status())
	_, _ = fmt.Fprintf(w, "Result:   %s\n", res.Summary())
	if res.Address != "" {
		_, _ = fmt.Fprintf(w, "Address:  %s\n", res.Address)
		_, _ = fmt.Fprintf(w, "Explorer: %s\n", res.ExplorerURL)
	}
	for _, m := range res.Mismatches {
		_, _ = fmt.Fprintf(w, "  - %s: on-chain %s, computed %s\n", m.Field, m.OnChain, m.Computed)
	}
}
