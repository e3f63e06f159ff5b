// Package verifier checks a decision artifact against its on-ledger anchor.
//
// Verification recomputes every hash from the supplied artifact and compares
// it with the anchored record. It trusts only SHA-256, the canonical
// serialization and the record layout; the ledger is a source of bytes, not
// of truth about the artifact.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/artifact"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/explorer"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/ledger"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/merkle"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/observability"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/record"
)

const VerifierVersion = "0.1.0"

// FieldAnchor names the synthetic mismatch reported when no record exists.
const FieldAnchor = "anchor"

var (
	// ErrCorruptRecord wraps decode failures of an account that does exist.
	ErrCorruptRecord = errors.New("verifier: corrupt anchor record")
	ErrNilArtifact   = errors.New("verifier: nil artifact")
	ErrNoPacket      = errors.New("verifier: record has no packet uri")
	ErrNoPacketStore = errors.New("verifier: no packet store configured")
)

// CompareOrder is the order hash fields are compared and reported in.
var CompareOrder = [7]string{
	merkle.FieldIncidentCoreHash,
	merkle.FieldEvidenceSetHash,
	merkle.FieldContradictionsHash,
	merkle.FieldTrustReceiptHash,
	merkle.FieldOperatorDecisionsHash,
	merkle.FieldTimelineHash,
	merkle.FieldBundleRootHash,
}

// PacketFetcher resolves a record's packet_uri to artifact bytes.
type PacketFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Verifier is safe for concurrent use.
type Verifier struct {
	programID   pda.PublicKey
	fetcher     ledger.AccountFetcher
	cluster     explorer.Cluster
	packets     PacketFetcher
	obs         *observability.Provider
	logger      *slog.Logger
	now         func() time.Time
	parallelism int
}

type Option func(*Verifier)

func WithCluster(c explorer.Cluster) Option {
	return func(v *Verifier) { v.cluster = c }
}

func WithPacketFetcher(p PacketFetcher) Option {
	return func(v *Verifier) { v.packets = p }
}

func WithObservability(p *observability.Provider) Option {
	return func(v *Verifier) {
		if p != nil {
			v.obs = p
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithClock sets the time source for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithParallelism bounds concurrent verifications in VerifyMany.
func WithParallelism(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.parallelism = n
		}
	}
}

func New(programID pda.PublicKey, fetcher ledger.AccountFetcher, opts ...Option) *Verifier {
	v := &Verifier{
		programID:   programID,
		fetcher:     fetcher,
		cluster:     explorer.Named(explorer.ClusterDevnet),
		obs:         observability.Noop(),
		logger:      slog.Default().With("component", "verifier"),
		now:         time.Now,
		parallelism: 8,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ProgramID returns the program the verifier derives addresses under.
func (v *Verifier) ProgramID() pda.PublicKey {
	return v.programID
}

// Cluster returns the explorer cluster used for result links.
func (v *Verifier) Cluster() explorer.Cluster {
	return v.cluster
}

// FetchRecord derives the anchor address for incidentID and decodes the
// account there. A missing account yields ledger.ErrAccountNotFound; an
// undecodable one yields ErrCorruptRecord.
func (v *Verifier) FetchRecord(ctx context.Context, incidentID uint64) (*record.OnChainRecord, pda.PublicKey, error) {
	addr, _, err := pda.DeriveIncidentAnchor(v.programID, incidentID)
	if err != nil {
		return nil, pda.PublicKey{}, fmt.Errorf("derive anchor address: %w", err)
	}
	rec, err := v.fetchAt(ctx, addr)
	return rec, addr, err
}

func (v *Verifier) fetchAt(ctx context.Context, addr pda.PublicKey) (*record.OnChainRecord, error) {
	data, err := v.fetcher.FetchAccount(ctx, addr)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch anchor %s: %w", addr, err)
	}
	rec, err := record.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %w", ErrCorruptRecord, addr, err)
	}
	return rec, nil
}

// Verify recomputes the hashes of a and compares them with the anchor for
// incidentID. An absent anchor is a failed verification, not an error.
func (v *Verifier) Verify(ctx context.Context, incidentID uint64, a *artifact.DecisionArtifact) (*Result, error) {
	if a == nil {
		return nil, ErrNilArtifact
	}
	addr, _, err := pda.DeriveIncidentAnchor(v.programID, incidentID)
	if err != nil {
		return nil, fmt.Errorf("derive anchor address: %w", err)
	}

	ctx, done := v.obs.TrackOperation(ctx, "sator.verify",
		observability.VerifyAttributes(incidentID, addr.String(), v.cluster.Name)...)

	var res *Result
	rec, err := v.fetchAt(ctx, addr)
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		res, err = v.absent(incidentID), nil
	case err == nil:
		res, err = v.compareRecord(incidentID, addr, rec, a)
	}
	done(err)
	if err != nil {
		return nil, err
	}
	v.report(ctx, res)
	return res, nil
}

// VerifyFromPacket fetches the anchor for incidentID, loads the artifact
// from the record's packet_uri, and verifies it against that record.
func (v *Verifier) VerifyFromPacket(ctx context.Context, incidentID uint64) (*Result, error) {
	if v.packets == nil {
		return nil, ErrNoPacketStore
	}
	addr, _, err := pda.DeriveIncidentAnchor(v.programID, incidentID)
	if err != nil {
		return nil, fmt.Errorf("derive anchor address: %w", err)
	}

	ctx, done := v.obs.TrackOperation(ctx, "sator.verify_packet",
		observability.VerifyAttributes(incidentID, addr.String(), v.cluster.Name)...)

	res, err := v.verifyPacket(ctx, incidentID, addr)
	done(err)
	if err != nil {
		return nil, err
	}
	v.report(ctx, res)
	return res, nil
}

func (v *Verifier) verifyPacket(ctx context.Context, incidentID uint64, addr pda.PublicKey) (*Result, error) {
	rec, err := v.fetchAt(ctx, addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return v.absent(incidentID), nil
	}
	if err != nil {
		return nil, err
	}
	if rec.PacketURI == "" {
		return nil, fmt.Errorf("%w: incident %d", ErrNoPacket, incidentID)
	}

	data, err := v.packets.Fetch(ctx, rec.PacketURI)
	if err != nil {
		return nil, fmt.Errorf("fetch packet %s: %w", rec.PacketURI, err)
	}
	observability.AddSpanEvent(ctx, "packet.fetched")

	a, err := artifact.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse packet %s: %w", rec.PacketURI, err)
	}
	return v.compareRecord(incidentID, addr, rec, a)
}

// Request is one item of a batch verification.
type Request struct {
	IncidentID uint64
	Artifact   *artifact.DecisionArtifact
}

// VerifyMany verifies independent incidents concurrently. Results keep the
// order of reqs. The first error cancels the remaining work.
func (v *Verifier) VerifyMany(ctx context.Context, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.parallelism)

	for i, req := range reqs {
		g.Go(func() error {
			res, err := v.Verify(gctx, req.IncidentID, req.Artifact)
			if err != nil {
				return fmt.Errorf("incident %d: %w", req.IncidentID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (v *Verifier) absent(incidentID uint64) *Result {
	return &Result{
		Verified:        false,
		IncidentID:      incidentID,
		Mismatches:      []Mismatch{{Field: FieldAnchor, OnChain: "null", Computed: "exists"}},
		Timestamp:       v.now().UTC(),
		VerifierVersion: VerifierVersion,
	}
}

func (v *Verifier) compareRecord(incidentID uint64, addr pda.PublicKey, rec *record.OnChainRecord, a *artifact.DecisionArtifact) (*Result, error) {
	computed, err := merkle.ComputeArtifactHashes(a)
	if err != nil {
		return nil, fmt.Errorf("compute artifact hashes: %w", err)
	}
	mismatches := CompareHashes(rec, computed)
	return &Result{
		Verified:        len(mismatches) == 0,
		IncidentID:      incidentID,
		Address:         addr.String(),
		OnChain:         rec,
		Computed:        computed,
		Mismatches:      mismatches,
		Timestamp:       v.now().UTC(),
		ExplorerURL:     explorer.AddressURL(addr.String(), v.cluster),
		VerifierVersion: VerifierVersion,
	}, nil
}

func (v *Verifier) report(ctx context.Context, res *Result) {
	status := res.Status()
	v.obs.RecordOutcome(ctx, string(status), observability.AttrMismatchCount.Int(len(res.Mismatches)))
	observability.SetSpanAttributes(ctx,
		observability.AttrOutcome.String(string(status)),
		observability.AttrMismatchCount.Int(len(res.Mismatches)),
	)

	attrs := []any{"incident_id", res.IncidentID, "status", status, "mismatches", len(res.Mismatches)}
	if m, ok := res.FirstMismatch(); ok {
		attrs = append(attrs, "first_mismatch", m.Field)
	}
	if res.Verified {
		v.logger.InfoContext(ctx, "verification passed", attrs...)
	} else {
		v.logger.WarnContext(ctx, "verification failed", attrs...)
	}
}

// CompareHashes diffs the seven committed hash fields in CompareOrder.
func CompareHashes(rec *record.OnChainRecord, computed *merkle.ArtifactHashes) []Mismatch {
	want := map[string]merkle.Digest{
		merkle.FieldIncidentCoreHash:      computed.IncidentCoreHash,
		merkle.FieldEvidenceSetHash:       computed.EvidenceSetHash,
		merkle.FieldContradictionsHash:    computed.ContradictionsHash,
		merkle.FieldTrustReceiptHash:      computed.TrustReceiptHash,
		merkle.FieldOperatorDecisionsHash: computed.OperatorDecisionsHash,
		merkle.FieldTimelineHash:          computed.TimelineHash,
		merkle.FieldBundleRootHash:        computed.BundleRootHash,
	}
	mismatches := make([]Mismatch, 0)
	for _, field := range CompareOrder {
		onChain, _ := rec.Hash(field)
		if onChain != want[field] {
			mismatches = append(mismatches, Mismatch{
				Field:    field,
				OnChain:  onChain.Hex(),
				Computed: want[field].Hex(),
			})
		}
	}
	return mismatches
}
