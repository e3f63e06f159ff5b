package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/api"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/artifacts"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/verifier"
)

// runServeCmd implements `sator-anchor serve` and blocks until SIGINT or
// SIGTERM.
func runServeCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("serve", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		addr  string
		rps   float64
		burst int
	)
	cmd.StringVar(&addr, "addr", "", "Listen address (default :$PORT)")
	cmd.Float64Var(&rps, "rps", 20, "Per-client request rate; 0 disables limiting")
	cmd.IntVar(&burst, "burst", 40, "Per-client burst")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx, stderr)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	defer rt.Close()
	if addr == "" {
		addr = ":" + rt.cfg.Port
	}

	var vopts []verifier.Option
	if resolver, err := artifacts.NewResolverFromEnv(ctx, &http.Client{Timeout: 30 * time.Second},
		artifacts.AllowHosts(rt.cfg.PacketHosts...)); err == nil {
		vopts = append(vopts, verifier.WithPacketFetcher(resolver))
	} else {
		rt.logger.WarnContext(ctx, "packet verification disabled", "error", err)
	}

	opts := []api.Option{api.WithLogger(rt.logger.With("component", "api"))}
	if st, err := artifacts.NewStoreFromEnv(ctx); err == nil {
		opts = append(opts, api.WithPacketStore(st))
	} else {
		rt.logger.WarnContext(ctx, "packet publishing disabled", "error", err)
	}
	if rps > 0 {
		rl := api.NewRateLimiter(rps, burst)
		go rl.Run(ctx)
		opts = append(opts, api.WithRateLimiter(rl))
	}
	if rt.rpc != nil {
		opts = append(opts, api.WithHealthCheck(func(ctx context.Context) error {
			_, err := rt.rpc.GetSlot(ctx)
			return err
		}))
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(rt.newVerifier(vopts...), opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	_, _ = fmt.Fprintf(stdout, "%sSATOR anchor API%s listening on %s (program %s, cluster %s)\n",
		ColorBold+ColorBlue, ColorReset, addr, rt.program, rt.cfg.Cluster)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fail(stderr, "server: %v", err)
		}
	case <-ctx.Done():
		rt.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fail(stderr, "shutdown: %v", err)
		}
	}
	return 0
}
