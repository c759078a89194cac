// Package serverdb is the storage layer for scribe-sync, the reference
// sync server. It keeps one append-only event table for all devices and
// deduplicates replayed operations on (device_id, op_id).
package serverdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scribesync/scribe/internal/models"
)

// ServerDB wraps the server database connection.
type ServerDB struct {
	conn *sql.DB
	path string
}

// Open opens the server database, creating and initializing it if the
// file does not exist.
func Open(dbPath string) (*ServerDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	return initDB(conn, dbPath)
}

// OpenDB initializes a ServerDB on an existing connection. Tests use
// this with in-memory databases.
func OpenDB(conn *sql.DB) (*ServerDB, error) {
	return initDB(conn, "")
}

func initDB(conn *sql.DB, path string) (*ServerDB, error) {
	if _, err := conn.Exec(serverSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	db := &ServerDB{conn: conn, path: path}
	if _, err := db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// Ping checks the database connection is alive.
func (db *ServerDB) Ping() error {
	return db.conn.Ping()
}

// Close checkpoints the WAL and closes the database connection.
func (db *ServerDB) Close() error {
	db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return db.conn.Close()
}

// RunMigrations runs any pending database migrations.
func (db *ServerDB) RunMigrations() (int, error) {
	if _, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_info (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return 0, fmt.Errorf("create schema_info: %w", err)
	}

	currentVersion := db.getSchemaVersion()
	if currentVersion >= ServerSchemaVersion {
		return 0, nil
	}

	migrationsRun := 0
	for _, m := range migrations {
		if m.Version > currentVersion {
			if _, err := db.conn.Exec(m.SQL); err != nil {
				return migrationsRun, fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
			}
			if err := db.setSchemaVersion(m.Version); err != nil {
				return migrationsRun, fmt.Errorf("set version %d: %w", m.Version, err)
			}
			migrationsRun++
		}
	}

	if currentVersion == 0 {
		if err := db.setSchemaVersion(ServerSchemaVersion); err != nil {
			return migrationsRun, err
		}
	}

	return migrationsRun, nil
}

func (db *ServerDB) getSchemaVersion() int {
	var version string
	err := db.conn.QueryRow("SELECT value FROM schema_info WHERE key = 'version'").Scan(&version)
	if err != nil {
		return 0
	}
	var v int
	fmt.Sscanf(version, "%d", &v)
	return v
}

func (db *ServerDB) setSchemaVersion(version int) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", version))
	return err
}

// OperationRecord is one operation as received from a device.
type OperationRecord struct {
	OpID       int64
	EntityType string
	EntityID   int64
	Kind       string
	Payload    json.RawMessage
	RecordedAt string
}

// Validate checks the fields a device controls. The server never trusts
// the client's vocabulary.
func (op OperationRecord) Validate() error {
	if op.OpID <= 0 {
		return fmt.Errorf("op_id must be positive, got %d", op.OpID)
	}
	if !models.ValidEntityType(op.EntityType) {
		return fmt.Errorf("invalid entity type: %q", op.EntityType)
	}
	if !models.ValidOpKind(op.Kind) {
		return fmt.Errorf("invalid operation kind: %q", op.Kind)
	}
	return nil
}

// InsertOperations appends a device's operations to the event log inside
// one transaction. Replays of an already-stored (device_id, op_id) pair
// are counted as duplicates and skipped, so a device that missed an
// acknowledgement can safely retransmit its whole pending set.
func (db *ServerDB) InsertOperations(deviceID string, ops []OperationRecord, receivedAt time.Time) (accepted, duplicates int, err error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO events (device_id, op_id, entity_type, entity_id, kind, payload, recorded_at, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	received := receivedAt.UTC().Format(time.RFC3339Nano)
	for _, op := range ops {
		payload := string(op.Payload)
		if payload == "" {
			payload = "{}"
		}
		res, err := stmt.Exec(deviceID, op.OpID, op.EntityType, op.EntityID, op.Kind, payload, op.RecordedAt, received)
		if err != nil {
			return 0, 0, fmt.Errorf("insert event op_id=%d: %w", op.OpID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			duplicates++
		} else {
			accepted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}
	return accepted, duplicates, nil
}

// Stats summarizes the event log for the status endpoint.
type Stats struct {
	EventCount    int64
	DeviceCount   int64
	LastServerSeq int64
	LastEventTime string
}

// Stats reads aggregate counters over the event log.
func (db *ServerDB) Stats() (*Stats, error) {
	var s Stats
	err := db.conn.QueryRow(`
		SELECT COUNT(*),
		       COUNT(DISTINCT device_id),
		       COALESCE(MAX(server_seq), 0),
		       COALESCE(MAX(received_at), '')
		FROM events`).Scan(&s.EventCount, &s.DeviceCount, &s.LastServerSeq, &s.LastEventTime)
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	return &s, nil
}

// Event is one stored row, for inspection tooling.
type Event struct {
	ServerSeq  int64
	DeviceID   string
	OpID       int64
	EntityType string
	EntityID   int64
	Kind       string
	Payload    json.RawMessage
	RecordedAt string
	ReceivedAt string
}

// EventsSince returns events with server_seq greater than the cursor, in
// sequence order, capped at limit.
func (db *ServerDB) EventsSince(cursor int64, limit int) ([]Event, error) {
	rows, err := db.conn.Query(`
		SELECT server_seq, device_id, op_id, entity_type, entity_id, kind, payload, recorded_at, received_at
		FROM events WHERE server_seq > ? ORDER BY server_seq ASC LIMIT ?`, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var payload string
		if err := rows.Scan(&e.ServerSeq, &e.DeviceID, &e.OpID, &e.EntityType, &e.EntityID, &e.Kind, &payload, &e.RecordedAt, &e.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		out = append(out, e)
	}
	return out, rows.Err()
}
