package store

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/scribesync/scribe/internal/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	s, err := OpenDB(conn)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return s
}

func record(t *testing.T, s *Store, et models.EntityType, id int64, kind models.OpKind) int64 {
	t.Helper()
	opID, err := s.RecordOperation(et, id, kind, json.RawMessage(`{"title":"x"}`), time.Now())
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	return opID
}

func TestRecordAndPendingOrder(t *testing.T) {
	s := setupStore(t)

	record(t, s, models.EntityNote, 7, models.OpCreate)
	record(t, s, models.EntityNote, 7, models.OpUpdate)
	record(t, s, models.EntityPost, 3, models.OpCreate)

	ops, err := s.PendingOperations()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("pending: got %d, want 3", len(ops))
	}
	// Recording order, oldest first
	if ops[0].Kind != models.OpCreate || ops[0].EntityID != 7 {
		t.Errorf("ops[0]: got %s %s/%d", ops[0].Kind, ops[0].EntityType, ops[0].EntityID)
	}
	if ops[1].Kind != models.OpUpdate {
		t.Errorf("ops[1]: got %s, want update", ops[1].Kind)
	}
	if ops[2].EntityType != models.EntityPost {
		t.Errorf("ops[2]: got %s, want post", ops[2].EntityType)
	}
	for i := 1; i < len(ops); i++ {
		if ops[i].ID <= ops[i-1].ID {
			t.Errorf("ids not increasing: %d then %d", ops[i-1].ID, ops[i].ID)
		}
	}
}

func TestRecordValidation(t *testing.T) {
	s := setupStore(t)

	if _, err := s.RecordOperation("widget", 1, models.OpCreate, nil, time.Now()); err == nil {
		t.Fatal("expected error for unknown entity type")
	}
	if _, err := s.RecordOperation(models.EntityNote, 1, "upsert", nil, time.Now()); err == nil {
		t.Fatal("expected error for unknown kind")
	}

	// Empty payload is allowed (deletes carry none)
	if _, err := s.RecordOperation(models.EntityNote, 1, models.OpDelete, nil, time.Now()); err != nil {
		t.Fatalf("delete with empty payload: %v", err)
	}
}

func TestAckIsScopedToSnapshot(t *testing.T) {
	s := setupStore(t)

	a := record(t, s, models.EntityNote, 1, models.OpCreate)
	b := record(t, s, models.EntityNote, 2, models.OpCreate)

	snapshot := []int64{a, b}

	// An entry recorded mid-flight must survive the ack of the earlier batch
	c := record(t, s, models.EntityNote, 3, models.OpCreate)

	if err := s.AckOperations(snapshot, time.Now()); err != nil {
		t.Fatalf("ack: %v", err)
	}

	ops, err := s.PendingOperations()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("pending after ack: got %d, want 1", len(ops))
	}
	if ops[0].ID != c {
		t.Fatalf("survivor: got id %d, want %d", ops[0].ID, c)
	}

	n, err := s.CountSynced()
	if err != nil {
		t.Fatalf("count synced: %v", err)
	}
	if n != 2 {
		t.Fatalf("synced count: got %d, want 2", n)
	}
}

func TestAckEmptyIsNoop(t *testing.T) {
	s := setupStore(t)
	if err := s.AckOperations(nil, time.Now()); err != nil {
		t.Fatalf("ack nil: %v", err)
	}
}

func TestLastSyncRoundTrip(t *testing.T) {
	s := setupStore(t)

	got, err := s.LastSyncAt()
	if err != nil {
		t.Fatalf("last sync: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil before first sync, got %v", got)
	}

	want := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	if err := s.SetLastSyncAt(want); err != nil {
		t.Fatalf("set last sync: %v", err)
	}

	got, err = s.LastSyncAt()
	if err != nil {
		t.Fatalf("last sync: %v", err)
	}
	if got == nil || !got.Equal(want) {
		t.Fatalf("last sync: got %v, want %v", got, want)
	}
}

func TestResetSyncHistory(t *testing.T) {
	s := setupStore(t)

	a := record(t, s, models.EntityNote, 1, models.OpCreate)
	record(t, s, models.EntityNote, 2, models.OpCreate)

	if err := s.AckOperations([]int64{a}, time.Now()); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if err := s.SetLastSyncAt(time.Now()); err != nil {
		t.Fatalf("set last sync: %v", err)
	}

	n, err := s.ResetSyncHistory()
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n != 1 {
		t.Fatalf("requeued: got %d, want 1", n)
	}

	pending, err := s.CountPending()
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pending != 2 {
		t.Fatalf("pending after reset: got %d, want 2", pending)
	}

	last, err := s.LastSyncAt()
	if err != nil {
		t.Fatalf("last sync: %v", err)
	}
	if last != nil {
		t.Fatalf("last sync should be cleared, got %v", last)
	}
}

func TestDeviceIDStable(t *testing.T) {
	s := setupStore(t)

	first, err := s.DeviceID()
	if err != nil {
		t.Fatalf("device id: %v", err)
	}
	if first == "" {
		t.Fatal("device id should not be empty")
	}

	second, err := s.DeviceID()
	if err != nil {
		t.Fatalf("device id: %v", err)
	}
	if second != first {
		t.Fatalf("device id changed: %q then %q", first, second)
	}
}

func TestDraftOverwriteAndClear(t *testing.T) {
	s := setupStore(t)
	scope := models.ScopeFor(models.EntityNote, 7)

	if err := s.PutDraft(scope, "first", time.Now()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PutDraft(scope, "second", time.Now()); err != nil {
		t.Fatalf("put: %v", err)
	}

	d, err := s.GetDraft(scope)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d == nil || d.Content != "second" {
		t.Fatalf("draft: got %+v, want content 'second'", d)
	}

	// Distinct scopes do not interfere
	other := models.ScopeForNew(models.EntityNote)
	if err := s.PutDraft(other, "unrelated", time.Now()); err != nil {
		t.Fatalf("put other: %v", err)
	}

	if err := s.DeleteDraft(scope); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Idempotent
	if err := s.DeleteDraft(scope); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	d, err = s.GetDraft(scope)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if d != nil {
		t.Fatalf("draft should be gone, got %+v", d)
	}

	remaining, err := s.ListDrafts()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Scope != other {
		t.Fatalf("remaining drafts: got %+v", remaining)
	}
}
