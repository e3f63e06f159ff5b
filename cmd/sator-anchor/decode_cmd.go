package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/ledger"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/merkle"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/record"
)

// runDecodeCmd implements `sator-anchor decode`. The record comes either
// from the ledger (--incident) or from a file of raw account bytes (--file).
func runDecodeCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("decode", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		incidentArg string
		file        string
		isBase64    bool
		jsonOutput  bool
	)
	cmd.StringVar(&incidentArg, "incident", "", "Incident id to fetch from the ledger")
	cmd.StringVar(&file, "file", "", "File holding raw account data")
	cmd.BoolVar(&isBase64, "base64", false, "File content is base64 encoded")
	cmd.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if (incidentArg == "") == (file == "") {
		return fail(stderr, "exactly one of --incident or --file is required")
	}

	var (
		rec     *record.OnChainRecord
		address string
	)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fail(stderr, "read %s: %v", file, err)
		}
		if isBase64 {
			data, err = base64.StdEncoding.DecodeString(string(bytes.TrimSpace(data)))
			if err != nil {
				return fail(stderr, "base64: %v", err)
			}
		}
		rec, err = record.Decode(data)
		if err != nil {
			return fail(stderr, "decode: %v", err)
		}
	} else {
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

		r, addr, err := rt.newVerifier().FetchRecord(ctx, incident)
		if errors.Is(err, ledger.ErrAccountNotFound) {
			_, _ = fmt.Fprintf(stderr, "Incident %d is not anchored (%s)\n", incident, addr)
			return 1
		}
		if err != nil {
			return fail(stderr, "%v", err)
		}
		rec, address = r, addr.String()
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]any{
			"address": address,
			"status":  record.StatusOf(rec),
			"record":  rec,
		}, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}
	printRecord(stdout, address, rec)
	return 0
}

func printRecord(w io.Writer, address string, rec *record.OnChainRecord) {
	if address != "" {
		_, _ = fmt.Fprintf(w, "Address:           %s\n", address)
	}
	_, _ = fmt.Fprintf(w, "Incident:          %d\n", rec.IncidentID)
	_, _ = fmt.Fprintf(w, "Status:            %s\n", record.StatusOf(rec))
	_, _ = fmt.Fprintf(w, "Operator:          %s (%s)\n", rec.Operator, rec.OperatorRole)
	if sup, ok := rec.Supervisor.Get(); ok {
		_, _ = fmt.Fprintf(w, "Supervisor:        %s\n", sup)
	}
	if ts, ok := rec.ApprovalTimestamp.Get(); ok {
		_, _ = fmt.Fprintf(w, "Approved:          %s\n", time.Unix(ts, 0).UTC().Format(time.RFC3339))
	}
	for _, field := range []string{
		merkle.FieldIncidentCoreHash,
		merkle.FieldEvidenceSetHash,
		merkle.FieldContradictionsHash,
		merkle.FieldTrustReceiptHash,
		merkle.FieldOperatorDecisionsHash,
		merkle.FieldTimelineHash,
		merkle.FieldBundleRootHash,
	} {
		d, _ := rec.Hash(field)
		_, _ = fmt.Fprintf(w, "%-24s %s\n", field, d.Hex())
	}
	_, _ = fmt.Fprintf(w, "%-24s %s (%d events)\n", "event_chain_head", rec.EventChainHead.Hex(), rec.EventCount)
	if rec.PacketURI != "" {
		_, _ = fmt.Fprintf(w, "Packet:            %s\n", rec.PacketURI)
	}
	_, _ = fmt.Fprintf(w, "Updated:           %s\n", time.Unix(rec.UpdatedAt, 0).UTC().Format(time.RFC3339))
}
