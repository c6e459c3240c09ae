// Package sqlite stores sessions and email logs in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/jrsteele09/payslip-server/storage/migrations"
	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at storagePath and applies
// migrations.
func New(ctx context.Context, storagePath string) (*Store, error) {
	const op = "storage.sqlite.New"

	if dir := filepath.Dir(storagePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := migrations.Up("sqlite3://" + storagePath); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := sql.Open("sqlite3", storagePath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Sessions() *SessionRepo {
	return &SessionRepo{db: s.db}
}

func (s *Store) EmailLogs() *EmailLogRepo {
	return &EmailLogRepo{db: s.db}
}

func (s *Store) Close() error {
	return s.db.Close()
}
