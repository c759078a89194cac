package store

import "fmt"

// SchemaVersion is the current local schema version.
const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_info (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS device (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	device_id  TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS oplog (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_type TEXT NOT NULL,
	entity_id   INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	payload     JSON NOT NULL,
	recorded_at DATETIME NOT NULL,
	synced_at   DATETIME,
	server_seq  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_oplog_pending ON oplog(id) WHERE synced_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_oplog_entity ON oplog(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS drafts (
	scope_key TEXT PRIMARY KEY,
	content   TEXT NOT NULL,
	saved_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_state (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	last_sync_at DATETIME
);
`

// migration is a single versioned schema change.
type migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations run in order against databases below the current version.
// The base schema above is version 1; later changes append entries here.
var migrations = []migration{}

func (s *Store) migrate() error {
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	current := s.schemaVersion()
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if _, err := s.conn.Exec(m.SQL); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
	}

	if _, err := s.conn.Exec(
		`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		fmt.Sprint(SchemaVersion),
	); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

func (s *Store) schemaVersion() int {
	var v int
	err := s.conn.QueryRow(`SELECT value FROM schema_info WHERE key = 'version'`).Scan(&v)
	if err != nil {
		return 0
	}
	return v
}
