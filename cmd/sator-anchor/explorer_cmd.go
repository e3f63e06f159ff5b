package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/config"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/explorer"
)

// runExplorerCmd implements `sator-anchor explorer`.
func runExplorerCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("explorer", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	cfg := config.Load()
	var (
		address   string
		tx        string
		cluster   string
		customURL string
	)
	cmd.StringVar(&address, "address", "", "Account address")
	cmd.StringVar(&tx, "tx", "", "Transaction signature")
	cmd.StringVar(&cluster, "cluster", cfg.Cluster, "Cluster: mainnet-beta, devnet, testnet or custom")
	cmd.StringVar(&customURL, "custom-url", "", "RPC URL for the custom cluster")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if (address == "") == (tx == "") {
		return fail(stderr, "exactly one of --address or --tx is required")
	}

	c := explorer.Cluster{Name: cluster, CustomURL: customURL}
	if address != "" {
		_, _ = fmt.Fprintln(stdout, explorer.AddressURL(address, c))
		_, _ = fmt.Fprintln(stdout, explorer.SolscanAddressURL(address, c))
		return 0
	}
	_, _ = fmt.Fprintln(stdout, explorer.TxURL(tx, c))
	_, _ = fmt.Fprintln(stdout, explorer.SolscanTxURL(tx, c))
	return 0
}
