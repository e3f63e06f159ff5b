// Package ledger reads incident anchor accounts from a ledger.
//
// AccountFetcher is the only dependency the verifier has on the ledger. The
// JSON-RPC client talks to a live cluster; MemoryLedger and the SQL snapshot
// store in pkg/store serve tests and offline verification.
package ledger

import (
	"context"
	"errors"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
)

// ErrAccountNotFound reports that no account exists at the address. It is a
// normal outcome, not a failure.
var ErrAccountNotFound = errors.New("ledger: account not found")

// AccountFetcher returns the raw data of the account at addr, or
// ErrAccountNotFound.
type AccountFetcher interface {
	FetchAccount(ctx context.Context, addr pda.PublicKey) ([]byte, error)
}

// FetcherFunc adapts a function to AccountFetcher.
type FetcherFunc func(ctx context.Context, addr pda.PublicKey) ([]byte, error)

func (f FetcherFunc) FetchAccount(ctx context.Context, addr pda.PublicKey) ([]byte, error) {
	return f(ctx, addr)
}
