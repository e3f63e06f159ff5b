package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open connects to a snapshot database and ensures the schema exists.
// driver is "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string) (*SnapshotStore, *sql.DB, error) {
	var dialect Dialect
	switch driver {
	case "sqlite", "sqlite3":
		driver, dialect = "sqlite", DialectSQLite
	case "postgres", "postgresql":
		driver, dialect = "postgres", DialectPostgres
	default:
		return nil, nil, fmt.Errorf("unsupported snapshot driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if dialect == DialectSQLite {
		// Each sqlite connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := NewSnapshotStore(db, dialect)
	if err := s.Init(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return s, db, nil
}
