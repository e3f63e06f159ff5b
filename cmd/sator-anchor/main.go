package main

import (
	"fmt"
	"io"
	"os"
)

const version = "0.1.0"

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
//
// Exit codes:
//
//	0 = success / verification passed
//	1 = verification failed
//	2 = usage or runtime error
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "hash":
		return runHashCmd(args[2:], stdout, stderr)
	case "address":
		return runAddressCmd(args[2:], stdout, stderr)
	case "decode":
		return runDecodeCmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "chain":
		return runChainCmd(args[2:], stdout, stderr)
	case "explorer":
		return runExplorerCmd(args[2:], stdout, stderr)
	case "publish":
		return runPublishCmd(args[2:], stdout, stderr)
	case "mirror":
		return runMirrorCmd(args[2:], stdout, stderr)
	case "serve", "server":
		return runServeCmd(args[2:], stdout, stderr)
	case "version":
		_, _ = fmt.Fprintf(stdout, "sator-anchor %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

// ANSI Colors
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorRed   = "\033[31m"
	ColorGreen = "\033[32m"
	ColorBlue  = "\033[34m"
	ColorCyan  = "\033[36m"
	ColorGray  = "\033[37m"
)

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintf(w, "%sSATOR anchor %s%s\n", ColorBold+ColorBlue, version, ColorReset)
	_, _ = fmt.Fprintf(w, "%sDecision artifacts, anchored and checked.%s\n", ColorGray, ColorReset)
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintf(w, "%sUSAGE:%s\n", ColorBold, ColorReset)
	_, _ = fmt.Fprintln(w, "  sator-anchor <command> [flags]")
	_, _ = fmt.Fprintln(w, "")

	printSection(w, "ARTIFACTS")
	printCommand(w, "hash", "Compute anchor hashes of an artifact (--artifact, --json)")
	printCommand(w, "publish", "Store an artifact packet and print its URI (--artifact)")

	printSection(w, "LEDGER")
	printCommand(w, "address", "Derive the anchor address of an incident (--incident)")
	printCommand(w, "decode", "Decode an anchor record (--incident | --file)")
	printCommand(w, "mirror", "Copy anchor records into the snapshot store (--incidents)")
	printCommand(w, "explorer", "Print explorer links (--address | --tx)")

	printSection(w, "VERIFICATION")
	printCommand(w, "verify", "Verify an artifact against its anchor (--incident, --artifact | --from-packet)")
	printCommand(w, "chain", "Replay an event log and compare with the anchor (--events)")

	printSection(w, "SERVER")
	printCommand(w, "serve", "Run the HTTP API")
	printCommand(w, "version", "Show version information")
	printCommand(w, "help", "Show this help")
	_, _ = fmt.Fprintln(w, "")
}

func printSection(w io.Writer, title string) {
	_, _ = fmt.Fprintf(w, "%s%s:%s\n", ColorBold+ColorCyan, title, ColorReset)
}

func printCommand(w io.Writer, name, desc string) {
	_, _ = fmt.Fprintf(w, "  %s%-10s%s %s\n", ColorGreen, name, ColorReset, desc)
}
