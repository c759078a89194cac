package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/scribesync/scribe/internal/clock"
	"github.com/scribesync/scribe/internal/models"
	"github.com/scribesync/scribe/internal/store"
	"github.com/scribesync/scribe/internal/syncclient"
)

// testServer is a minimal in-process sync authority.
type testServer struct {
	mu        sync.Mutex
	srv       *httptest.Server
	healthy   bool
	syncDelay time.Duration
	now       time.Time
	exchanges int
	received  []syncclient.OperationInput
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{healthy: true, now: time.Now().UTC().Truncate(time.Second)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		healthy := ts.healthy
		ts.mu.Unlock()
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("POST /v1/sync", func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		delay := ts.syncDelay
		ts.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}

		var req syncclient.SyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		ts.mu.Lock()
		ts.exchanges++
		ts.received = append(ts.received, req.Operations...)
		resp := syncclient.SyncResponse{
			Success:           true,
			Accepted:          len(req.Operations),
			LastSyncTimestamp: ts.now.Format(time.RFC3339Nano),
		}
		ts.mu.Unlock()
		json.NewEncoder(w).Encode(resp)
	})
	ts.srv = httptest.NewServer(mux)
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) exchangeCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.exchanges
}

func (ts *testServer) setHealthy(ok bool) {
	ts.mu.Lock()
	ts.healthy = ok
	ts.mu.Unlock()
}

func (ts *testServer) setSyncDelay(d time.Duration) {
	ts.mu.Lock()
	ts.syncDelay = d
	ts.mu.Unlock()
}

func setupEngine(t *testing.T, ts *testServer, warnings *[]error) (*Engine, *clock.Fake) {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	st, err := store.OpenDB(conn)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	fc := clock.NewFake(time.Unix(1_700_000_000, 0))
	var mu sync.Mutex
	e, err := Open(context.Background(), Options{
		ServerURL:     ts.srv.URL,
		Store:         st,
		Clock:         fc,
		SyncInterval:  300 * time.Second,
		Settle:        2 * time.Second,
		ProbeInterval: 30 * time.Second,
		OnWarning: func(err error) {
			if warnings != nil {
				mu.Lock()
				*warnings = append(*warnings, err)
				mu.Unlock()
			}
		},
	})
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e, fc
}

func TestOfflineRecordThenReconnectSyncs(t *testing.T) {
	ts := newTestServer(t)
	e, fc := setupEngine(t, ts, nil)
	ctx := context.Background()

	// Device offline: no connectivity has been verified
	if e.Status().HasConnectivity {
		t.Fatal("setup: connectivity should start unverified")
	}

	// User creates note id=7 while offline; recording must succeed
	if err := e.RecordCreate(models.EntityNote, 7, json.RawMessage(`{"title":"offline note"}`)); err != nil {
		t.Fatalf("record: %v", err)
	}

	ops, err := e.PendingOperations()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(ops) != 1 || ops[0].EntityType != models.EntityNote || ops[0].EntityID != 7 || ops[0].Kind != models.OpCreate {
		t.Fatalf("pending: got %+v", ops)
	}

	// A manual trigger while offline is refused, not failed
	started, err := e.SyncNow(ctx)
	if err != nil || started {
		t.Fatalf("offline trigger: started=%v err=%v", started, err)
	}
	if ts.exchangeCount() != 0 {
		t.Fatal("exchange happened while offline")
	}

	// Connectivity returns; scheduler settles for 2 time-units, then syncs
	if !e.Probe(ctx) {
		t.Fatal("probe should succeed")
	}
	if ts.exchangeCount() != 0 {
		t.Fatal("sync fired before settle delay")
	}
	fc.Advance(2 * time.Second)

	if ts.exchangeCount() != 1 {
		t.Fatalf("exchanges: got %d, want 1", ts.exchangeCount())
	}

	ops, err = e.PendingOperations()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(ops) != 0 {
		t.Fatalf("pending after sync: got %d entries", len(ops))
	}

	st := e.Status()
	if st.LastSyncAt == nil || !st.LastSyncAt.Equal(ts.now) {
		t.Fatalf("lastSync: got %v, want %v", st.LastSyncAt, ts.now)
	}
	if st.PendingCount != 0 || st.SyncedCount != 1 {
		t.Fatalf("counts: pending=%d synced=%d", st.PendingCount, st.SyncedCount)
	}
}

func TestTimeoutWarnsThenPeriodicRetrySucceeds(t *testing.T) {
	ts := newTestServer(t)
	var warnings []error
	e, fc := setupEngine(t, ts, &warnings)
	ctx := context.Background()

	e.Probe(ctx)
	if err := e.RecordUpdate(models.EntityDocument, 2, json.RawMessage(`{"body":"x"}`)); err != nil {
		t.Fatalf("record: %v", err)
	}
	fc.Advance(2 * time.Second) // drain the reconnection trigger
	firstExchanges := ts.exchangeCount()

	if err := e.RecordUpdate(models.EntityDocument, 2, json.RawMessage(`{"body":"y"}`)); err != nil {
		t.Fatalf("record: %v", err)
	}

	// Reconciliation call exceeds its deadline
	ts.setSyncDelay(200 * time.Millisecond)
	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	started, err := e.SyncNow(shortCtx)
	cancel()
	if !started {
		t.Fatal("attempt should have run")
	}
	if err == nil {
		t.Fatal("expected timeout failure")
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings: got %d, want 1", len(warnings))
	}
	if e.Status().IsSyncing {
		t.Fatal("isSyncing stuck after timeout")
	}

	ops, _ := e.PendingOperations()
	if len(ops) != 1 {
		t.Fatalf("pending after timeout: got %d, want 1 (unchanged)", len(ops))
	}

	// Next periodic trigger retries successfully
	ts.setSyncDelay(0)
	fc.Advance(300 * time.Second)

	if ts.exchangeCount() <= firstExchanges+1 {
		t.Fatalf("no retry exchange: %d", ts.exchangeCount())
	}
	ops, _ = e.PendingOperations()
	if len(ops) != 0 {
		t.Fatalf("pending after retry: got %d", len(ops))
	}
}

func TestBackToBackManualSyncsRunOneExchange(t *testing.T) {
	ts := newTestServer(t)
	e, _ := setupEngine(t, ts, nil)
	ctx := context.Background()

	e.Probe(ctx)
	if err := e.RecordCreate(models.EntityPost, 1, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("record: %v", err)
	}

	ts.setSyncDelay(100 * time.Millisecond)

	results := make(chan bool, 2)
	go func() {
		started, _ := e.SyncNow(ctx)
		results <- started
	}()
	// Give the first call a moment to take the guard
	time.Sleep(20 * time.Millisecond)
	started2, _ := e.SyncNow(ctx)
	started1 := <-results

	if started1 == started2 {
		t.Fatalf("exactly one attempt should run: got %v and %v", started1, started2)
	}
	if ts.exchangeCount() != 1 {
		t.Fatalf("exchanges: got %d, want 1", ts.exchangeCount())
	}
}

func TestMidFlightRecordRidesNextCycle(t *testing.T) {
	ts := newTestServer(t)
	e, fc := setupEngine(t, ts, nil)
	ctx := context.Background()

	e.Probe(ctx)
	if err := e.RecordCreate(models.EntityNote, 1, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("record: %v", err)
	}

	ts.setSyncDelay(100 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		e.SyncNow(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond) // sync is in flight with its snapshot taken

	if err := e.RecordCreate(models.EntityNote, 2, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("record mid-flight: %v", err)
	}
	<-done

	// The earlier ack must not have swallowed the mid-flight record
	ops, _ := e.PendingOperations()
	if len(ops) != 1 || ops[0].EntityID != 2 {
		t.Fatalf("mid-flight op dropped: %+v", ops)
	}

	ts.setSyncDelay(0)
	fc.Advance(300 * time.Second)
	ops, _ = e.PendingOperations()
	if len(ops) != 0 {
		t.Fatalf("pending after next cycle: %+v", ops)
	}
}

func TestProbeFailureStaysSilent(t *testing.T) {
	ts := newTestServer(t)
	var warnings []error
	e, _ := setupEngine(t, ts, &warnings)
	ctx := context.Background()

	ts.setHealthy(false)
	if e.Probe(ctx) {
		t.Fatal("probe should fail")
	}
	if e.Status().HasConnectivity {
		t.Fatal("connectivity after failed probe")
	}
	// Expected offline signal, never a user-visible warning
	if len(warnings) != 0 {
		t.Fatalf("probe failure produced warnings: %v", warnings)
	}
}

func TestDraftsFlowThroughEngine(t *testing.T) {
	ts := newTestServer(t)
	e, fc := setupEngine(t, ts, nil)
	scope := models.ScopeFor(models.EntityJournal, 4)

	e.SaveDraft(scope, "dear diary v1")
	e.SaveDraft(scope, "dear diary v2")
	fc.Advance(2 * time.Second)

	d, err := e.LoadDraft(scope)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d == nil || d.Content != "dear diary v2" {
		t.Fatalf("draft: got %+v", d)
	}

	if err := e.ClearDraft(scope); err != nil {
		t.Fatalf("clear: %v", err)
	}
	d, _ = e.LoadDraft(scope)
	if d != nil {
		t.Fatalf("draft after clear: %+v", d)
	}
}
