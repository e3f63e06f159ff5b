// Package store keeps SQL snapshots of IncidentAnchor accounts.
//
// A snapshot store is an offline mirror of ledger state: it can be filled
// from a live fetcher and later serve as the fetcher itself, so
// verification runs without network access. SQLite (modernc.org/sqlite) and
// Postgres (lib/pq) are supported.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/ledger"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/record"
)

// Dialect selects placeholder style and column types.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS anchor_snapshots (
	address TEXT PRIMARY KEY,
	incident_id INTEGER NOT NULL,
	data BLOB NOT NULL,
	slot INTEGER NOT NULL DEFAULT 0,
	fetched_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS anchor_snapshots_incident ON anchor_snapshots (incident_id);
`

const pgSchema = `
CREATE TABLE IF NOT EXISTS anchor_snapshots (
	address TEXT PRIMARY KEY,
	incident_id BIGINT NOT NULL,
	data BYTEA NOT NULL,
	slot BIGINT NOT NULL DEFAULT 0,
	fetched_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS anchor_snapshots_incident ON anchor_snapshots (incident_id);
`

// Snapshot is the stored copy of one account.
type Snapshot struct {
	Address    pda.PublicKey
	IncidentID uint64
	Data       []byte
	Slot       uint64
	FetchedAt  time.Time
}

// SnapshotStore implements ledger.AccountFetcher over a SQL table.
type SnapshotStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	logger  *slog.Logger
}

func NewSnapshotStore(db *sql.DB, dialect Dialect) *SnapshotStore {
	return &SnapshotStore{
		db:      db,
		dialect: dialect,
		now:     time.Now,
		logger:  slog.Default().With("component", "snapshot_store"),
	}
}

// Init creates the snapshot table if it does not exist.
func (s *SnapshotStore) Init(ctx context.Context) error {
	schema := sqliteSchema
	if s.dialect == DialectPostgres {
		schema = pgSchema
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init snapshot schema: %w", err)
	}
	return nil
}

// Save inserts or replaces the snapshot for snap.Address. A zero FetchedAt
// is stamped with the current time.
func (s *SnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = s.now()
	}
	query := s.rebind(`
		INSERT INTO anchor_snapshots (address, incident_id, data, slot, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET
			incident_id = excluded.incident_id,
			data = excluded.data,
			slot = excluded.slot,
			fetched_at = excluded.fetched_at
	`)
	_, err := s.db.ExecContext(ctx, query,
		snap.Address.String(),
		int64(snap.IncidentID), // two's complement; ids above MaxInt64 round-trip through the cast
		snap.Data,
		int64(snap.Slot),
		snap.FetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.Address, err)
	}
	return nil
}

// SaveRecord encodes rec and stores it at its derived address under programID.
func (s *SnapshotStore) SaveRecord(ctx context.Context, programID pda.PublicKey, rec *record.OnChainRecord, slot uint64) (pda.PublicKey, error) {
	addr, bump, err := pda.DeriveIncidentAnchor(programID, rec.IncidentID)
	if err != nil {
		return pda.PublicKey{}, err
	}
	rec.Bump = bump
	data, err := record.Encode(rec)
	if err != nil {
		return pda.PublicKey{}, err
	}
	return addr, s.Save(ctx, Snapshot{Address: addr, IncidentID: rec.IncidentID, Data: data, Slot: slot})
}

// Get returns the snapshot at addr or ledger.ErrAccountNotFound.
func (s *SnapshotStore) Get(ctx context.Context, addr pda.PublicKey) (*Snapshot, error) {
	query := s.rebind(`SELECT address, incident_id, data, slot, fetched_at FROM anchor_snapshots WHERE address = ?`)
	row := s.db.QueryRowContext(ctx, query, addr.String())
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", addr, err)
	}
	return snap, nil
}

// FetchAccount serves stored account data.
func (s *SnapshotStore) FetchAccount(ctx context.Context, addr pda.PublicKey) ([]byte, error) {
	snap, err := s.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	return snap.Data, nil
}

// List returns up to limit snapshots ordered by incident id.
func (s *SnapshotStore) List(ctx context.Context, limit int) ([]Snapshot, error) {
	query := s.rebind(`SELECT address, incident_id, data, slot, fetched_at FROM anchor_snapshots ORDER BY incident_id LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]Snapshot, 0)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the snapshot at addr. Deleting a missing row is not an error.
func (s *SnapshotStore) Delete(ctx context.Context, addr pda.PublicKey) error {
	query := s.rebind(`DELETE FROM anchor_snapshots WHERE address = ?`)
	if _, err := s.db.ExecContext(ctx, query, addr.String()); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", addr, err)
	}
	return nil
}

// Mirror returns a fetcher that reads from upstream and records every
// account it sees. Snapshot write failures are logged and do not fail the
// fetch.
func (s *SnapshotStore) Mirror(upstream ledger.AccountFetcher) ledger.AccountFetcher {
	return ledger.FetcherFunc(func(ctx context.Context, addr pda.PublicKey) ([]byte, error) {
		data, err := upstream.FetchAccount(ctx, addr)
		if err != nil {
			return nil, err
		}
		snap := Snapshot{Address: addr, Data: data}
		if rec, decodeErr := record.Decode(data); decodeErr == nil {
			snap.IncidentID = rec.IncidentID
		}
		if err := s.Save(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "snapshot write failed", "address", addr.String(), "error", err)
		}
		return data, nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var (
		address    string
		incidentID int64
		data       []byte
		slot       int64
		fetchedAt  string
	)
	if err := row.Scan(&address, &incidentID, &data, &slot, &fetchedAt); err != nil {
		return nil, err
	}
	addr, err := pda.ParsePublicKey(address)
	if err != nil {
		return nil, fmt.Errorf("stored address %q: %w", address, err)
	}
	return &Snapshot{
		Address:    addr,
		IncidentID: uint64(incidentID),
		Data:       data,
		Slot:       uint64(slot),
		FetchedAt:  parseTime(fetchedAt),
	}, nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SnapshotStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
