package crud

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var _ Store = &SQLiteStore{}

const createArtifactsTable = `CREATE TABLE IF NOT EXISTS crash_artifacts (
	crash_id   TEXT    NOT NULL,
	name       TEXT    NOT NULL,
	data       BLOB    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (crash_id, name)
)`

// SQLiteStore keeps artifacts as rows of a single table keyed by crash ID and
// artifact name. Wrap it with NewBackingStore (or NewSQLiteStore) so that the
// database is opened on demand.
type SQLiteStore struct {
	path string
	db   *sql.DB
}

// NewSQLiteStore creates a storage engine that uses the SQLite database at
// path, creating it when missing. The database stays open after first use
// until Close is called.
func NewSQLiteStore(path string) *BackingStore {
	bs := NewBackingStore(&SQLiteStore{path: path})
	bs.AutoClose = false
	return bs
}

func (s *SQLiteStore) Connect() error {
	if strings.TrimSpace(s.path) == "" {
		return fmt.Errorf("sqlite storage path is required")
	}
	dsn := filepath.Clean(s.path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return errors.Wrap(err, "open sqlite db")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "ping sqlite db")
	}
	if _, err := db.Exec(createArtifactsTable); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "create crash_artifacts table")
	}
	s.db = db
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// IsRetriable treats a busy or locked database as transient.
func (s *SQLiteStore) IsRetriable(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

func (s *SQLiteStore) Submit(ctx context.Context, crashID string, name string, data []byte) error {
	if s.db == nil {
		return fmt.Errorf("sqlite storage is not connected")
	}
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crash_artifacts (crash_id, name, data, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (crash_id, name) DO UPDATE SET
		   data = excluded.data,
		   updated_at = excluded.updated_at`,
		crashID, name, data, time.Now().UTC().UnixMilli(),
	)
	return err
}

func (s *SQLiteStore) Fetch(ctx context.Context, crashID string, name string) ([]byte, error) {
	if s.db == nil {
		return nil, fmt.Errorf("sqlite storage is not connected")
	}
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM crash_artifacts WHERE crash_id = ? AND name = ?`,
		crashID, name,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrRecordDoesNotExist, "no row for %s %s", crashID, name)
		}
		return nil, err
	}
	return data, nil
}
