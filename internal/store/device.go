package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DeviceID returns this installation's stable device identity, minting and
// persisting one on first use. The id is never regenerated unless the local
// database is removed.
func (s *Store) DeviceID() (string, error) {
	var id string
	err := s.conn.QueryRow(`SELECT device_id FROM device WHERE id = 1`).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("read device id: %w", err)
	}

	id = uuid.NewString()
	// INSERT OR IGNORE + re-read handles a concurrent first mint
	if _, err := s.conn.Exec(
		`INSERT OR IGNORE INTO device (id, device_id, created_at) VALUES (1, ?, ?)`,
		id, fmtTimestamp(time.Now()),
	); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	if err := s.conn.QueryRow(`SELECT device_id FROM device WHERE id = 1`).Scan(&id); err != nil {
		return "", fmt.Errorf("re-read device id: %w", err)
	}
	return id, nil
}
