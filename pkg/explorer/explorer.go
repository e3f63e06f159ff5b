// Package explorer builds human-facing block explorer links. No network
// access is involved.
package explorer

import (
	"net/url"
	"strings"
)

const (
	primaryBase   = "https://explorer.solana.com"
	secondaryBase = "https://solscan.io"

	ClusterMainnet = "mainnet-beta"
	ClusterDevnet  = "devnet"
	ClusterTestnet = "testnet"
	ClusterCustom  = "custom"
)

// Cluster identifies a ledger network. CustomURL is only used when Name is
// "custom".
type Cluster struct {
	Name      string
	CustomURL string
}

// Named returns a cluster without a custom RPC URL.
func Named(name string) Cluster {
	return Cluster{Name: name}
}

func (c Cluster) isMainnet() bool {
	return c.Name == "" || c.Name == ClusterMainnet
}

func (c Cluster) primaryQuery() string {
	if c.isMainnet() {
		return ""
	}
	q := "?cluster=" + url.QueryEscape(c.Name)
	if c.Name == ClusterCustom && c.CustomURL != "" {
		q += "&customUrl=" + url.QueryEscape(c.CustomURL)
	}
	return q
}

func (c Cluster) secondaryQuery() string {
	if c.isMainnet() {
		return ""
	}
	return "?cluster=" + url.QueryEscape(c.Name)
}

// AddressURL links to an account on the primary explorer.
func AddressURL(address string, c Cluster) string {
	return primaryBase + "/address/" + pathEscape(address) + c.primaryQuery()
}

// TxURL links to a transaction on the primary explorer.
func TxURL(signature string, c Cluster) string {
	return primaryBase + "/tx/" + pathEscape(signature) + c.primaryQuery()
}

// SolscanAddressURL links to an account on the secondary explorer.
func SolscanAddressURL(address string, c Cluster) string {
	return secondaryBase + "/account/" + pathEscape(address) + c.secondaryQuery()
}

// SolscanTxURL links to a transaction on the secondary explorer.
func SolscanTxURL(signature string, c Cluster) string {
	return secondaryBase + "/tx/" + pathEscape(signature) + c.secondaryQuery()
}

func pathEscape(s string) string {
	return url.PathEscape(strings.TrimSpace(s))
}
