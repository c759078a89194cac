package serverdb

// ServerSchemaVersion is the current server schema version.
const ServerSchemaVersion = 1

const serverSchema = `
CREATE TABLE IF NOT EXISTS schema_info (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	server_seq INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id TEXT NOT NULL,
	op_id INTEGER NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '{}',
	recorded_at TEXT NOT NULL,
	received_at TEXT NOT NULL,
	UNIQUE (device_id, op_id)
);

CREATE INDEX IF NOT EXISTS idx_events_device ON events(device_id);
CREATE INDEX IF NOT EXISTS idx_events_entity ON events(entity_type, entity_id);
`

type migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations run in order for databases behind ServerSchemaVersion.
var migrations = []migration{}
