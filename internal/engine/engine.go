// Package engine is the caller-facing surface of the offline-first sync
// engine. It wires the local store, connectivity monitor, scheduler, sync
// client, and draft saver together: UI layers record mutations and read
// status through it, and never touch the internals directly.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scribesync/scribe/internal/clock"
	"github.com/scribesync/scribe/internal/connectivity"
	"github.com/scribesync/scribe/internal/draft"
	"github.com/scribesync/scribe/internal/models"
	"github.com/scribesync/scribe/internal/scheduler"
	"github.com/scribesync/scribe/internal/store"
	"github.com/scribesync/scribe/internal/syncclient"
)

// Options configures an Engine. Zero durations fall back to the engine
// defaults; a nil Clock uses real time.
type Options struct {
	BaseDir   string
	ServerURL string

	AutoSync      bool
	SyncInterval  time.Duration
	Settle        time.Duration
	ProbeInterval time.Duration
	DraftDebounce time.Duration

	// AutoSyncTimeout bounds the synchronous push after a mutation.
	AutoSyncTimeout time.Duration

	// OnWarning receives non-fatal sync failures for user-visible
	// notification ("some changes could not be synchronized").
	OnWarning func(err error)

	// Clock is injectable for tests.
	Clock clock.Clock

	// Store overrides opening BaseDir; used by tests with in-memory
	// databases.
	Store *store.Store
}

// Status is a read-only snapshot for display.
type Status struct {
	DeviceID          string
	ServerURL         string
	IsSyncing         bool
	LastSyncAt        *time.Time
	TimeSinceLastSync time.Duration
	HasSynced         bool
	PlatformOnline    bool
	HasConnectivity   bool
	PendingCount      int64
	SyncedCount       int64
}

// Engine owns the sync state machine for one local installation.
type Engine struct {
	st       *store.Store
	ownStore bool
	client   *syncclient.Client
	monitor  *connectivity.Monitor
	sched    *scheduler.Scheduler
	drafts   *draft.Saver

	deviceID        string
	autoSync        bool
	autoSyncTimeout time.Duration
}

const defaultAutoSyncTimeout = 5 * time.Second

// Open builds an Engine from options, loads the device identity, and
// starts the connectivity and scheduling cycles.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	st := opts.Store
	ownStore := false
	if st == nil {
		var err error
		st, err = store.Open(opts.BaseDir)
		if err != nil {
			return nil, err
		}
		ownStore = true
	}

	deviceID, err := st.DeviceID()
	if err != nil {
		if ownStore {
			st.Close()
		}
		return nil, fmt.Errorf("device identity: %w", err)
	}

	lastSync, err := st.LastSyncAt()
	if err != nil {
		if ownStore {
			st.Close()
		}
		return nil, fmt.Errorf("load last sync: %w", err)
	}

	client := syncclient.New(opts.ServerURL, deviceID)

	var monOpts []connectivity.Option
	if opts.ProbeInterval > 0 {
		monOpts = append(monOpts, connectivity.WithProbeInterval(opts.ProbeInterval))
	}
	monitor := connectivity.NewMonitor(clk, client, monOpts...)

	e := &Engine{
		st:              st,
		ownStore:        ownStore,
		client:          client,
		monitor:         monitor,
		deviceID:        deviceID,
		autoSync:        opts.AutoSync,
		autoSyncTimeout: opts.AutoSyncTimeout,
	}
	if e.autoSyncTimeout <= 0 {
		e.autoSyncTimeout = defaultAutoSyncTimeout
	}

	e.sched = scheduler.New(clk, monitor, reconcilerFunc(e.reconcile), scheduler.Config{
		Interval:        opts.SyncInterval,
		Settle:          opts.Settle,
		InitialLastSync: lastSync,
		OnWarning:       opts.OnWarning,
	})
	e.drafts = draft.NewSaver(st, clk, opts.DraftDebounce)

	e.sched.Start(ctx)
	monitor.Start(ctx)
	return e, nil
}

type reconcilerFunc func(ctx context.Context) (time.Time, error)

func (f reconcilerFunc) Reconcile(ctx context.Context) (time.Time, error) { return f(ctx) }

// --- Mutation recording ---

// RecordCreate queues a create mutation. The local append always succeeds
// first; transmission is the scheduler's problem.
func (e *Engine) RecordCreate(et models.EntityType, id int64, payload json.RawMessage) error {
	return e.record(et, id, models.OpCreate, payload)
}

// RecordUpdate queues an update mutation.
func (e *Engine) RecordUpdate(et models.EntityType, id int64, payload json.RawMessage) error {
	return e.record(et, id, models.OpUpdate, payload)
}

// RecordDelete queues a delete mutation.
func (e *Engine) RecordDelete(et models.EntityType, id int64) error {
	return e.record(et, id, models.OpDelete, nil)
}

func (e *Engine) record(et models.EntityType, id int64, kind models.OpKind, payload json.RawMessage) error {
	if _, err := e.st.RecordOperation(et, id, kind, payload, time.Now()); err != nil {
		return err
	}
	slog.Debug("operation recorded", "entity", et, "id", id, "kind", kind)

	if e.autoSync && e.monitor.State().HasConnectivity {
		// Quick opportunistic push; failures are the scheduler's to
		// retry, not the caller's to handle
		ctx, cancel := context.WithTimeout(context.Background(), e.autoSyncTimeout)
		defer cancel()
		if _, err := e.sched.SyncNow(ctx); err != nil {
			slog.Debug("auto-sync after record", "err", err)
		}
	}
	return nil
}

// --- Sync control ---

// SyncNow runs a manual reconciliation attempt. It reports whether an
// attempt ran (false while offline or already in flight) and the attempt's
// error, if any.
func (e *Engine) SyncNow(ctx context.Context) (bool, error) {
	return e.sched.SyncNow(ctx)
}

// Probe forces a reachability check outside the periodic cycle.
func (e *Engine) Probe(ctx context.Context) bool {
	return e.monitor.Probe(ctx)
}

// SetOnline feeds a platform online/offline transition into the monitor.
func (e *Engine) SetOnline(ctx context.Context, online bool) {
	e.monitor.SetOnline(ctx, online)
}

// reconcile is the single reconciliation exchange. It snapshots the
// pending set first so entries recorded mid-flight are never acknowledged
// by this attempt.
func (e *Engine) reconcile(ctx context.Context) (time.Time, error) {
	snapshot, err := e.st.PendingOperations()
	if err != nil {
		return time.Time{}, fmt.Errorf("read pending: %w", err)
	}

	req := &syncclient.SyncRequest{DeviceID: e.deviceID}
	for _, op := range snapshot {
		req.Operations = append(req.Operations, syncclient.OperationInput{
			OpID:       op.ID,
			EntityType: string(op.EntityType),
			EntityID:   op.EntityID,
			Kind:       string(op.Kind),
			Payload:    op.Payload,
			RecordedAt: op.RecordedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	resp, err := e.client.Sync(ctx, req)
	if err != nil {
		return time.Time{}, fmt.Errorf("sync exchange: %w", err)
	}
	if !resp.Success {
		if resp.Message != "" {
			return time.Time{}, fmt.Errorf("server refused sync: %s", resp.Message)
		}
		return time.Time{}, errors.New("server refused sync")
	}

	serverTime, err := resp.ServerTime()
	if err != nil {
		return time.Time{}, err
	}

	ids := make([]int64, 0, len(snapshot))
	for _, op := range snapshot {
		ids = append(ids, op.ID)
	}
	if err := e.st.AckOperations(ids, serverTime); err != nil {
		return time.Time{}, fmt.Errorf("acknowledge: %w", err)
	}
	if err := e.st.SetLastSyncAt(serverTime); err != nil {
		return time.Time{}, fmt.Errorf("persist last sync: %w", err)
	}

	slog.Info("synchronized", "operations", len(snapshot), "server_time", serverTime)
	return serverTime, nil
}

// AutoSyncEnabled reports whether mutations trigger an immediate push.
func (e *Engine) AutoSyncEnabled() bool {
	return e.autoSync
}

// ServerStatus queries the server-side sync status.
func (e *Engine) ServerStatus(ctx context.Context) (*syncclient.StatusResponse, error) {
	return e.client.Status(ctx)
}

// --- Drafts ---

// SaveDraft debounces a draft write for the scope.
func (e *Engine) SaveDraft(scope models.ScopeKey, content string) {
	e.drafts.Save(scope, content)
}

// LoadDraft reads the persisted draft for a scope, or nil.
func (e *Engine) LoadDraft(scope models.ScopeKey) (*models.Draft, error) {
	return e.drafts.Load(scope)
}

// ClearDraft discards the draft for a scope, pending or persisted.
func (e *Engine) ClearDraft(scope models.ScopeKey) error {
	return e.drafts.Clear(scope)
}

// ListDrafts returns all persisted drafts, newest first.
func (e *Engine) ListDrafts() ([]models.Draft, error) {
	return e.st.ListDrafts()
}

// FlushDrafts persists pending draft saves immediately.
func (e *Engine) FlushDrafts() {
	e.drafts.Flush()
}

// --- Introspection ---

// PendingOperations returns the current pending set, for display.
func (e *Engine) PendingOperations() ([]models.Operation, error) {
	return e.st.PendingOperations()
}

// ResetSyncHistory re-queues all acknowledged operations and clears the
// last-sync marker, for pointing the client at a fresh server.
func (e *Engine) ResetSyncHistory() (int64, error) {
	return e.st.ResetSyncHistory()
}

// Status returns a display snapshot. TimeSinceLastSync is derived here and
// never feeds back into scheduling.
func (e *Engine) Status() Status {
	connState := e.monitor.State()
	st := Status{
		DeviceID:        e.deviceID,
		ServerURL:       e.client.BaseURL,
		IsSyncing:       e.sched.IsSyncing(),
		LastSyncAt:      e.sched.LastSyncAt(),
		PlatformOnline:  connState.PlatformOnline,
		HasConnectivity: connState.HasConnectivity,
	}
	st.TimeSinceLastSync, st.HasSynced = e.sched.TimeSinceLastSync()

	if n, err := e.st.CountPending(); err == nil {
		st.PendingCount = n
	}
	if n, err := e.st.CountSynced(); err == nil {
		st.SyncedCount = n
	}
	return st
}

// Close tears the engine down: timers cancelled, pending drafts flushed,
// in-flight results discarded. The store closes last.
func (e *Engine) Close() error {
	e.sched.Close()
	e.monitor.Close()
	e.drafts.Close()
	if e.ownStore {
		return e.st.Close()
	}
	return nil
}
