package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/scribesync/scribe/internal/models"
)

// PutDraft writes the draft for a scope, replacing any previous content.
// One row per scope: a new save overwrites, never appends.
func (s *Store) PutDraft(scope models.ScopeKey, content string, at time.Time) error {
	_, err := s.conn.Exec(
		`INSERT INTO drafts (scope_key, content, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(scope_key) DO UPDATE SET content = excluded.content, saved_at = excluded.saved_at`,
		scope.String(), content, fmtTimestamp(at),
	)
	if err != nil {
		return fmt.Errorf("put draft %s: %w", scope, err)
	}
	return nil
}

// GetDraft returns the draft for a scope, or nil when none exists.
func (s *Store) GetDraft(scope models.ScopeKey) (*models.Draft, error) {
	var (
		content string
		tsStr   string
	)
	err := s.conn.QueryRow(
		`SELECT content, saved_at FROM drafts WHERE scope_key = ?`, scope.String(),
	).Scan(&content, &tsStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft %s: %w", scope, err)
	}
	savedAt, err := parseTimestamp(tsStr)
	if err != nil {
		return nil, fmt.Errorf("parse draft saved_at %s: %w", scope, err)
	}
	return &models.Draft{Scope: scope, Content: content, SavedAt: savedAt}, nil
}

// DeleteDraft removes the draft for a scope. Deleting a scope with no draft
// is a no-op, not an error.
func (s *Store) DeleteDraft(scope models.ScopeKey) error {
	if _, err := s.conn.Exec(`DELETE FROM drafts WHERE scope_key = ?`, scope.String()); err != nil {
		return fmt.Errorf("delete draft %s: %w", scope, err)
	}
	return nil
}

// ListDrafts returns all drafts, most recently saved first.
func (s *Store) ListDrafts() ([]models.Draft, error) {
	rows, err := s.conn.Query(`SELECT scope_key, content, saved_at FROM drafts ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []models.Draft
	for rows.Next() {
		var (
			keyStr  string
			content string
			tsStr   string
		)
		if err := rows.Scan(&keyStr, &content, &tsStr); err != nil {
			return nil, fmt.Errorf("scan draft row: %w", err)
		}
		scope, err := models.ParseScopeKey(keyStr)
		if err != nil {
			return nil, fmt.Errorf("bad draft scope %q: %w", keyStr, err)
		}
		savedAt, err := parseTimestamp(tsStr)
		if err != nil {
			return nil, fmt.Errorf("parse draft saved_at %q: %w", keyStr, err)
		}
		drafts = append(drafts, models.Draft{Scope: scope, Content: content, SavedAt: savedAt})
	}
	return drafts, rows.Err()
}
