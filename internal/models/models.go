// Package models defines the entity and operation types shared by the
// sync engine, the local store, and the wire protocol.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EntityType identifies the kind of entity a mutation applies to.
type EntityType string

const (
	EntityNote     EntityType = "note"
	EntityJournal  EntityType = "journal"
	EntityDocument EntityType = "document"
	EntityPost     EntityType = "post"
)

// EntityTypes lists all valid entity types in display order.
var EntityTypes = []EntityType{EntityNote, EntityJournal, EntityDocument, EntityPost}

// ValidEntityType reports whether s names a known entity type.
func ValidEntityType(s string) bool {
	switch EntityType(s) {
	case EntityNote, EntityJournal, EntityDocument, EntityPost:
		return true
	}
	return false
}

// ParseEntityType converts a string to an EntityType, accepting plural forms.
func ParseEntityType(s string) (EntityType, error) {
	s = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "s"))
	if !ValidEntityType(s) {
		return "", fmt.Errorf("unknown entity type %q (want note, journal, document or post)", s)
	}
	return EntityType(s), nil
}

// OpKind is the kind of a recorded mutation.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// ValidOpKind reports whether s names a known operation kind.
func ValidOpKind(s string) bool {
	switch OpKind(s) {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Operation is a single confirmed local mutation awaiting transmission.
// Entries are immutable once recorded; ID is the local recording order.
type Operation struct {
	ID         int64
	EntityType EntityType
	EntityID   int64
	Kind       OpKind
	Payload    json.RawMessage
	RecordedAt time.Time
	SyncedAt   *time.Time
	ServerSeq  int64
}

// NewScopeID is the entity-id slot of a draft for an entity that does not
// exist yet.
const NewScopeID = "new"

// ScopeKey identifies a draft buffer: one per (entity type, entity id) pair,
// where the id may be the literal "new" for unsaved entities.
type ScopeKey struct {
	EntityType EntityType
	EntityID   string
}

// ScopeFor returns the scope key for an existing entity.
func ScopeFor(et EntityType, id int64) ScopeKey {
	return ScopeKey{EntityType: et, EntityID: strconv.FormatInt(id, 10)}
}

// ScopeForNew returns the scope key for a not-yet-created entity.
func ScopeForNew(et EntityType) ScopeKey {
	return ScopeKey{EntityType: et, EntityID: NewScopeID}
}

// ParseScopeKey parses a "type:id" string such as "note:7" or "post:new".
func ParseScopeKey(s string) (ScopeKey, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return ScopeKey{}, fmt.Errorf("invalid scope %q: want type:id", s)
	}
	et, err := ParseEntityType(parts[0])
	if err != nil {
		return ScopeKey{}, err
	}
	id := parts[1]
	if id != NewScopeID {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return ScopeKey{}, fmt.Errorf("invalid scope id %q: want a number or %q", id, NewScopeID)
		}
	}
	return ScopeKey{EntityType: et, EntityID: id}, nil
}

// String renders the scope key in its canonical "type:id" form.
func (k ScopeKey) String() string {
	return string(k.EntityType) + ":" + k.EntityID
}

// Draft is an in-progress edit buffer persisted locally, keyed by scope.
// Drafts are independent of confirmed mutations and never synchronized.
type Draft struct {
	Scope   ScopeKey
	Content string
	SavedAt time.Time
}
