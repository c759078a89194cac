// Package store is the local durable state of the sync engine: the pending
// operation log, drafts, the device identity, and the last-sync marker.
// Everything lives in a single sqlite database under the base directory so
// queued work survives restarts and crashes.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const dbFile = ".scribe/scribe.db"

// Store wraps the local database connection.
type Store struct {
	conn    *sql.DB
	baseDir string
}

// Create initializes the local database under baseDir. It is safe to call
// on an already-initialized directory.
func Create(baseDir string) (*Store, error) {
	dbPath := filepath.Join(baseDir, dbFile)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return open(baseDir, dbPath)
}

// Open opens an existing local database under baseDir.
func Open(baseDir string) (*Store, error) {
	dbPath := filepath.Join(baseDir, dbFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: run 'scribe init' first")
	}
	return open(baseDir, dbPath)
}

// OpenDB wraps an already-open connection. Used by tests with in-memory
// databases.
func OpenDB(conn *sql.DB) (*Store, error) {
	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func open(baseDir, dbPath string) (*Store, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL allows concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")
	conn.Exec("PRAGMA foreign_keys=ON")

	s := &Store{conn: conn, baseDir: baseDir}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Conn returns the underlying *sql.DB for use in transactions.
func (s *Store) Conn() *sql.DB {
	return s.conn
}

// Ping checks the database connection is alive.
func (s *Store) Ping() error {
	return s.conn.Ping()
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.conn.Close()
}

// parseTimestamp tries the timestamp formats sqlite drivers emit.
func parseTimestamp(ts string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05 -0700 -0700", // Go time.Time.String() with numeric tz
		"2006-01-02 15:04:05 -0700 MST",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, ts); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", ts)
}

// fmtTimestamp renders a timestamp the way every write in this package
// stores it, so reads never hit driver-dependent formats.
func fmtTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
