package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/scribesync/scribe/internal/serverdb"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	store, err := serverdb.OpenDB(conn)
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv := NewServer(Config{MaxBatch: 5}, store)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postSync(t *testing.T, ts *httptest.Server, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/sync", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestHealthz(t *testing.T) {
	ts := setupServer(t)

	resp, err := http.Get(ts.URL + "/healthz?ts=123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Errorf("Cache-Control: got %q", cc)
	}
	var health map[string]string
	json.NewDecoder(resp.Body).Decode(&health)
	if health["status"] != "ok" {
		t.Errorf("health body: %v", health)
	}
}

func TestSyncAcceptsAndDeduplicates(t *testing.T) {
	ts := setupServer(t)
	body := `{"device_id":"dev-1","operations":[
		{"op_id":1,"entity_type":"note","entity_id":7,"kind":"create","payload":{"title":"a"},"recorded_at":"2026-08-25T10:00:00Z"},
		{"op_id":2,"entity_type":"note","entity_id":7,"kind":"update","payload":{"title":"b"},"recorded_at":"2026-08-25T10:01:00Z"}
	]}`

	resp, raw := postSync(t, ts, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d body %s", resp.StatusCode, raw)
	}
	var sr SyncResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sr.Success || sr.Accepted != 2 || sr.Duplicates != 0 {
		t.Fatalf("first sync: %+v", sr)
	}
	if sr.LastSyncTimestamp == "" {
		t.Fatal("missing server timestamp")
	}

	// Replay the same batch: everything is a duplicate, still success
	resp, raw = postSync(t, ts, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replay status: got %d", resp.StatusCode)
	}
	json.Unmarshal(raw, &sr)
	if !sr.Success || sr.Accepted != 0 || sr.Duplicates != 2 {
		t.Fatalf("replay: %+v", sr)
	}
}

func TestSyncRejectsBadInput(t *testing.T) {
	ts := setupServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing device", `{"operations":[]}`},
		{"invalid json", `{`},
		{"unknown entity type", `{"device_id":"d","operations":[{"op_id":1,"entity_type":"widget","entity_id":1,"kind":"create"}]}`},
		{"unknown kind", `{"device_id":"d","operations":[{"op_id":1,"entity_type":"note","entity_id":1,"kind":"merge"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, raw := postSync(t, ts, tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status: got %d", resp.StatusCode)
			}
			var apiErr APIError
			if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Code != ErrCodeBadRequest {
				t.Fatalf("error body: %s", raw)
			}
		})
	}
}

func TestSyncBatchCap(t *testing.T) {
	ts := setupServer(t) // MaxBatch 5

	var ops []string
	for i := 1; i <= 6; i++ {
		ops = append(ops, fmt.Sprintf(`{"op_id":%d,"entity_type":"note","entity_id":1,"kind":"create"}`, i))
	}
	body := `{"device_id":"d","operations":[` + strings.Join(ops, ",") + `]}`

	resp, raw := postSync(t, ts, body)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: got %d body %s", resp.StatusCode, raw)
	}
}

func TestSyncStatus(t *testing.T) {
	ts := setupServer(t)
	postSync(t, ts, `{"device_id":"dev-1","operations":[
		{"op_id":1,"entity_type":"journal","entity_id":3,"kind":"create","payload":{},"recorded_at":"2026-08-25T10:00:00Z"}
	]}`)

	resp, err := http.Get(ts.URL + "/v1/sync/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()

	var st SyncStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.EventCount != 1 || st.DeviceCount != 1 || st.LastServerSeq != 1 {
		t.Fatalf("status: %+v", st)
	}
	if st.LastEventTime == "" {
		t.Error("missing last event time")
	}
}
