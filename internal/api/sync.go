package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/scribesync/scribe/internal/serverdb"
)

// SyncRequest is the JSON body for POST /v1/sync.
type SyncRequest struct {
	DeviceID   string           `json:"device_id"`
	Operations []OperationInput `json:"operations"`
}

// OperationInput is a single operation in a sync request.
type OperationInput struct {
	OpID       int64           `json:"op_id"`
	EntityType string          `json:"entity_type"`
	EntityID   int64           `json:"entity_id"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt string          `json:"recorded_at"`
}

// SyncResponse is the JSON response for a sync exchange. The timestamp
// is server-assigned; devices persist it as their last-sync marker.
type SyncResponse struct {
	Success           bool   `json:"success"`
	LastSyncTimestamp string `json:"last_sync_timestamp"`
	Accepted          int    `json:"accepted"`
	Duplicates        int    `json:"duplicates,omitempty"`
	Message           string `json:"message,omitempty"`
}

// SyncStatusResponse is the JSON response for GET /v1/sync/status.
type SyncStatusResponse struct {
	EventCount    int64  `json:"event_count"`
	DeviceCount   int64  `json:"device_count"`
	LastServerSeq int64  `json:"last_server_seq"`
	LastEventTime string `json:"last_event_time,omitempty"`
}

// handleSync handles POST /v1/sync: validate the batch, append it with
// dedup, and hand back the authoritative timestamp.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}

	if req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "device_id is required")
		return
	}
	if len(req.Operations) > s.config.MaxBatch {
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge,
			fmt.Sprintf("batch exceeds %d operations", s.config.MaxBatch))
		return
	}

	records := make([]serverdb.OperationRecord, 0, len(req.Operations))
	for i, op := range req.Operations {
		rec := serverdb.OperationRecord{
			OpID:       op.OpID,
			EntityType: op.EntityType,
			EntityID:   op.EntityID,
			Kind:       op.Kind,
			Payload:    op.Payload,
			RecordedAt: op.RecordedAt,
		}
		if err := rec.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest,
				fmt.Sprintf("operation %d: %v", i, err))
			return
		}
		records = append(records, rec)
	}

	now := time.Now().UTC()
	accepted, duplicates, err := s.store.InsertOperations(req.DeviceID, records, now)
	if err != nil {
		logFor(r.Context()).Error("insert operations", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to store operations")
		return
	}

	logFor(r.Context()).Info("sync",
		"device", req.DeviceID,
		"accepted", accepted,
		"duplicates", duplicates,
	)

	writeJSON(w, http.StatusOK, SyncResponse{
		Success:           true,
		LastSyncTimestamp: now.Format(time.RFC3339Nano),
		Accepted:          accepted,
		Duplicates:        duplicates,
	})
}

// handleSyncStatus handles GET /v1/sync/status.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		logFor(r.Context()).Error("read stats", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to read status")
		return
	}
	writeJSON(w, http.StatusOK, SyncStatusResponse{
		EventCount:    stats.EventCount,
		DeviceCount:   stats.DeviceCount,
		LastServerSeq: stats.LastServerSeq,
		LastEventTime: stats.LastEventTime,
	})
}
