package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scribesync/scribe/internal/models"
)

// RecordOperation appends a confirmed local mutation to the operation log.
// It is a purely local write and must succeed regardless of connectivity;
// that is the whole point of the log. Returns the assigned log id.
func (s *Store) RecordOperation(et models.EntityType, entityID int64, kind models.OpKind, payload json.RawMessage, at time.Time) (int64, error) {
	if !models.ValidEntityType(string(et)) {
		return 0, fmt.Errorf("record operation: unknown entity type %q", et)
	}
	if !models.ValidOpKind(string(kind)) {
		return 0, fmt.Errorf("record operation: unknown kind %q", kind)
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	res, err := s.conn.Exec(
		`INSERT INTO oplog (entity_type, entity_id, kind, payload, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		string(et), entityID, string(kind), string(payload), fmtTimestamp(at),
	)
	if err != nil {
		return 0, fmt.Errorf("record operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record operation id: %w", err)
	}
	return id, nil
}

// PendingOperations returns unacknowledged log entries in recording order,
// oldest first. The returned slice is the snapshot a reconciliation attempt
// works against.
func (s *Store) PendingOperations() ([]models.Operation, error) {
	rows, err := s.conn.Query(`
		SELECT id, entity_type, entity_id, kind, payload, recorded_at
		FROM oplog WHERE synced_at IS NULL ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query pending operations: %w", err)
	}
	defer rows.Close()

	var ops []models.Operation
	for rows.Next() {
		var (
			op      models.Operation
			et      string
			kind    string
			payload string
			tsStr   string
		)
		if err := rows.Scan(&op.ID, &et, &op.EntityID, &kind, &payload, &tsStr); err != nil {
			return nil, fmt.Errorf("scan oplog row: %w", err)
		}
		op.EntityType = models.EntityType(et)
		op.Kind = models.OpKind(kind)
		op.Payload = json.RawMessage(payload)
		op.RecordedAt, err = parseTimestamp(tsStr)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at id=%d: %w", op.ID, err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// AckOperations marks exactly the given log ids as transmitted. Entries
// recorded after the snapshot was taken keep a NULL synced_at and stay in
// the pending set; acknowledgement is never a blanket clear.
func (s *Store) AckOperations(ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin ack: %w", err)
	}
	defer tx.Rollback()

	ts := fmtTimestamp(at)
	for _, id := range ids {
		if _, err := tx.Exec(`UPDATE oplog SET synced_at = ? WHERE id = ?`, ts, id); err != nil {
			return fmt.Errorf("ack operation id=%d: %w", id, err)
		}
	}
	return tx.Commit()
}

// CountPending returns the number of unacknowledged log entries.
func (s *Store) CountPending() (int64, error) {
	var n int64
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM oplog WHERE synced_at IS NULL`).Scan(&n)
	return n, err
}

// CountSynced returns the number of acknowledged log entries.
func (s *Store) CountSynced() (int64, error) {
	var n int64
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM oplog WHERE synced_at IS NOT NULL`).Scan(&n)
	return n, err
}

// ResetSyncHistory clears synced_at on all acknowledged entries so they are
// re-sent to a new server. Returns the number of entries re-queued.
func (s *Store) ResetSyncHistory() (int64, error) {
	res, err := s.conn.Exec(`UPDATE oplog SET synced_at = NULL, server_seq = NULL WHERE synced_at IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("reset sync history: %w", err)
	}
	n, _ := res.RowsAffected()
	if _, err := s.conn.Exec(`UPDATE sync_state SET last_sync_at = NULL`); err != nil {
		return n, fmt.Errorf("reset last sync: %w", err)
	}
	return n, nil
}

// LastSyncAt returns the time of the last successful reconciliation, or nil
// if the device has never synced.
func (s *Store) LastSyncAt() (*time.Time, error) {
	var ts sql.NullString
	err := s.conn.QueryRow(`SELECT last_sync_at FROM sync_state WHERE id = 1`).Scan(&ts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !ts.Valid || ts.String == "" {
		return nil, nil
	}
	t, err := parseTimestamp(ts.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SetLastSyncAt records the server-assigned timestamp of a successful
// reconciliation.
func (s *Store) SetLastSyncAt(t time.Time) error {
	_, err := s.conn.Exec(
		`INSERT INTO sync_state (id, last_sync_at) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET last_sync_at = excluded.last_sync_at`,
		fmtTimestamp(t),
	)
	if err != nil {
		return fmt.Errorf("set last sync: %w", err)
	}
	return nil
}
