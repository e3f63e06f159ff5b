package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/ledger"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/merkle"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/record"
)

var programID = pda.MustParsePublicKey("5P8REXo8Jqu2ha8uQJRqm2HviKCpLa1sxsoEpLyhZCHf")

func testRecord(t *testing.T, id uint64) *record.OnChainRecord {
	t.Helper()
	h := &merkle.ArtifactHashes{
		IncidentCoreHash: merkle.Sum([]byte("incident")),
		BundleRootHash:   merkle.Sum([]byte("bundle")),
		InitialEventHash: merkle.Sum([]byte("initial")),
	}
	rec, err := record.NewRecord(record.CreateParams{
		IncidentID: id,
		Hashes:     h,
		Role:       record.RoleAdmin,
		PacketURI:  "file:///var/sator/packets/x.json",
		Now:        1700000000,
	})
	require.NoError(t, err)
	return rec
}

func TestSnapshotStore_SaveSQLMock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewSnapshotStore(db, DialectSQLite)
	addr := pda.MustParsePublicKey("DJbHq6FXTgWwor1XbjA9RAkSgHcyGebHnMcnMKzo7JfP")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec("INSERT INTO anchor_snapshots").
		WithArgs(addr.String(), int64(42), []byte{1, 2, 3}, int64(900), "2026-01-02T03:04:05Z").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = s.Save(context.Background(), Snapshot{Address: addr, IncidentID: 42, Data: []byte{1, 2, 3}, Slot: 900, FetchedAt: at})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStore_PostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewSnapshotStore(db, DialectPostgres)
	addr := pda.MustParsePublicKey("DJbHq6FXTgWwor1XbjA9RAkSgHcyGebHnMcnMKzo7JfP")

	mock.ExpectQuery(regexp.QuoteMeta("FROM anchor_snapshots WHERE address = $1")).
		WithArgs(addr.String()).
		WillReturnRows(sqlmock.NewRows([]string{"address", "incident_id", "data", "slot", "fetched_at"}))

	_, err = s.FetchAccount(context.Background(), addr)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStore_QueryErrorIsNotAbsence(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	boom := errors.New("disk I/O error")
	mock.ExpectQuery("SELECT address").WillReturnError(boom)

	_, err = NewSnapshotStore(db, DialectSQLite).FetchAccount(context.Background(), pda.PublicKey{})
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ledger.ErrAccountNotFound))
}

func TestRebind(t *testing.T) {
	pg := NewSnapshotStore(nil, DialectPostgres)
	assert.Equal(t, "VALUES ($1, $2, $3)", pg.rebind("VALUES (?, ?, ?)"))

	lite := NewSnapshotStore(nil, DialectSQLite)
	assert.Equal(t, "VALUES (?, ?)", lite.rebind("VALUES (?, ?)"))
}

func openMemory(t *testing.T) *SnapshotStore {
	t.Helper()
	s, db, err := Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return s
}

func TestSnapshotStore_SQLiteRoundTrip(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	rec := testRecord(t, 42)
	addr, err := s.SaveRecord(ctx, programID, rec, 1234)
	require.NoError(t, err)
	assert.Equal(t, "DJbHq6FXTgWwor1XbjA9RAkSgHcyGebHnMcnMKzo7JfP", addr.String())

	data, err := s.FetchAccount(ctx, addr)
	require.NoError(t, err)
	decoded, err := record.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), decoded.IncidentID)
	assert.Equal(t, uint8(254), decoded.Bump)
	assert.Equal(t, rec.BundleRootHash, decoded.BundleRootHash)

	snap, err := s.Get(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), snap.Slot)
	assert.False(t, snap.FetchedAt.IsZero())

	// Upsert replaces in place.
	rec.PacketURI = "s3://sator/42.json"
	_, err = s.SaveRecord(ctx, programID, rec, 1300)
	require.NoError(t, err)
	snap, err = s.Get(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1300), snap.Slot)

	require.NoError(t, s.Delete(ctx, addr))
	_, err = s.FetchAccount(ctx, addr)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestSnapshotStore_ListOrdersByIncident(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	for _, id := range []uint64{7, 1, 42} {
		_, err := s.SaveRecord(ctx, programID, testRecord(t, id), 0)
		require.NoError(t, err)
	}

	snaps, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, []uint64{1, 7, 42}, []uint64{snaps[0].IncidentID, snaps[1].IncidentID, snaps[2].IncidentID})

	snaps, err = s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestSnapshotStore_Mirror(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	live := ledger.NewMemoryLedger()
	addr, err := live.PutRecord(programID, testRecord(t, 7))
	require.NoError(t, err)

	mirrored := s.Mirror(live)
	data, err := mirrored.FetchAccount(ctx, addr)
	require.NoError(t, err)

	// The mirror now answers offline.
	stored, err := s.FetchAccount(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	snap, err := s.Get(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), snap.IncidentID)

	_, err = mirrored.FetchAccount(ctx, pda.PublicKey{1})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, _, err := Open(context.Background(), "mysql", "")
	assert.Error(t, err)
}
