package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/config"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/ledger"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/observability"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/store"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/verifier"
)

// runtime is the wired ledger stack shared by the ledger-facing commands.
type runtime struct {
	cfg      *config.Config
	program  pda.PublicKey
	logger   *slog.Logger
	obs      *observability.Provider
	rpc      *ledger.RPCClient
	snapshot *store.SnapshotStore
	fetcher  ledger.AccountFetcher
	closers  []func() error
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// setup resolves configuration and builds the fetcher chain:
// RPC client, then snapshot mirror, then Redis cache. Offline
// configurations read the snapshot store alone.
func setup(ctx context.Context, stderr io.Writer) (*runtime, error) {
	cfg, err := config.Resolve()
	if err != nil {
		return nil, err
	}
	program, err := cfg.Program()
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, program: program, logger: newLogger(cfg, stderr), obs: observability.Noop()}
	slog.SetDefault(rt.logger)

	if cfg.OTelEnabled {
		oc := observability.DefaultConfig()
		oc.Enabled = true
		oc.OTLPEndpoint = cfg.OTelEndpoint
		obs, err := observability.New(ctx, oc)
		if err != nil {
			rt.logger.WarnContext(ctx, "observability disabled", "error", err)
		} else {
			rt.obs = obs
			rt.closers = append(rt.closers, func() error { return obs.Shutdown(context.Background()) })
		}
	}

	if cfg.SnapshotDSN != "" {
		snap, db, err := store.Open(ctx, cfg.SnapshotDriver, cfg.SnapshotDSN)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.snapshot = snap
		rt.closers = append(rt.closers, db.Close)
	}

	if cfg.Offline() {
		rt.fetcher = rt.snapshot
		rt.logger.DebugContext(ctx, "offline mode", "snapshot", cfg.SnapshotDriver)
		return rt, nil
	}

	rt.rpc = ledger.NewRPCClient(cfg.RPCURL,
		ledger.WithHTTPClient(&http.Client{Timeout: cfg.RPCTimeout}),
		ledger.WithCommitment(cfg.Commitment),
		ledger.WithRateLimit(cfg.RPCRate, int(math.Ceil(cfg.RPCRate))),
		ledger.WithLogger(rt.logger.With("component", "ledger-rpc")),
	)
	rt.fetcher = rt.rpc
	if rt.snapshot != nil {
		rt.fetcher = rt.snapshot.Mirror(rt.fetcher)
	}
	if cfg.RedisAddr != "" {
		rc := ledger.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, 0)
		rt.closers = append(rt.closers, rc.Close)
		rt.fetcher = ledger.NewCachedFetcher(rt.fetcher, rc, cfg.CacheTTL)
	}
	return rt, nil
}

func (rt *runtime) newVerifier(opts ...verifier.Option) *verifier.Verifier {
	base := []verifier.Option{
		verifier.WithCluster(rt.cfg.ExplorerCluster()),
		verifier.WithObservability(rt.obs),
		verifier.WithLogger(rt.logger.With("component", "verifier")),
	}
	return verifier.New(rt.program, rt.fetcher, append(base, opts...)...)
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil && !errors.Is(err, context.Canceled) {
			rt.logger.Warn("shutdown", "error", err)
		}
	}
	rt.closers = nil
}

func fail(stderr io.Writer, format string, args ...any) int {
	_, _ = fmt.Fprintf(stderr, "Error: "+format+"\n", args...)
	return 2
}

func parseIncident(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("--incident must be an unsigned 64-bit integer: %q", s)
	}
	return id, nil
}
