// Package scheduler decides when reconciliation runs: on reconnection
// after a settle delay, on a fixed period while connectivity holds, or on
// demand. Attempts are strictly serialized; a trigger that arrives while a
// sync is in flight is dropped, not queued, and operations recorded
// mid-flight simply ride the next cycle.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scribesync/scribe/internal/clock"
	"github.com/scribesync/scribe/internal/connectivity"
)

// Reconciler performs one reconciliation exchange with the remote
// authority and returns the server-assigned sync timestamp.
type Reconciler interface {
	Reconcile(ctx context.Context) (time.Time, error)
}

// ConnectivitySource is the subset of the connectivity monitor the
// scheduler needs.
type ConnectivitySource interface {
	State() connectivity.State
	Subscribe(fn func(connectivity.Event)) func()
}

const (
	defaultInterval = 300 * time.Second
	defaultSettle   = 2 * time.Second
)

// Config holds scheduler tuning.
type Config struct {
	// Interval between periodic reconciliation attempts.
	Interval time.Duration
	// Settle is the wait after reconnection before the first attempt, so
	// a flapping link does not fire a sync per flap.
	Settle time.Duration
	// InitialLastSync seeds the last-sync marker from persistent state.
	InitialLastSync *time.Time
	// OnWarning receives non-fatal reconciliation failures. The queue is
	// preserved and the scheduler returns to idle regardless.
	OnWarning func(err error)
}

// Scheduler is the Idle/Syncing state machine.
type Scheduler struct {
	clk  clock.Clock
	conn ConnectivitySource
	rec  Reconciler
	cfg  Config

	// syncing is the mutual-exclusion guard on the Idle -> Syncing
	// transition: compare-and-swap, never a blocking lock.
	syncing atomic.Bool

	mu            sync.Mutex
	lastSync      *time.Time
	settleTimer   clock.Timer
	periodicTimer clock.Timer
	unsubscribe   func()
	closed        bool
}

// New creates a Scheduler. Call Start to arm the periodic cycle and the
// reconnection trigger.
func New(clk clock.Clock, conn ConnectivitySource, rec Reconciler, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Settle <= 0 {
		cfg.Settle = defaultSettle
	}
	return &Scheduler{clk: clk, conn: conn, rec: rec, cfg: cfg, lastSync: cfg.InitialLastSync}
}

// Start subscribes to connectivity transitions and arms the periodic
// timer.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.unsubscribe = s.conn.Subscribe(func(e connectivity.Event) {
		switch e {
		case connectivity.EventReconnected:
			s.armSettle(ctx)
		case connectivity.EventOffline:
			s.cancelSettle()
		}
	})
	s.armPeriodicLocked(ctx)
	s.mu.Unlock()
}

// SyncNow is the manual trigger. It reports whether an attempt actually
// ran and, if it did, the attempt's error. A call while a sync is already
// in flight — or while definitely offline — is a no-op returning false.
func (s *Scheduler) SyncNow(ctx context.Context) (bool, error) {
	return s.attempt(ctx, "manual")
}

// attempt is the single Idle -> Syncing transition point for every trigger
// source.
func (s *Scheduler) attempt(ctx context.Context, reason string) (bool, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return false, nil
	}

	// Guard: while definitely offline, refuse rather than attempt and
	// fail — no spurious failure reports.
	if !s.conn.State().HasConnectivity {
		slog.Debug("sync skipped: no connectivity", "trigger", reason)
		return false, nil
	}

	if !s.syncing.CompareAndSwap(false, true) {
		slog.Debug("sync skipped: already in flight", "trigger", reason)
		return false, nil
	}
	defer s.syncing.Store(false)

	slog.Debug("sync started", "trigger", reason)
	serverTime, err := s.rec.Reconcile(ctx)

	s.mu.Lock()
	if s.closed {
		// Session torn down mid-flight: discard the result
		s.mu.Unlock()
		return false, nil
	}
	if err == nil {
		t := serverTime
		s.lastSync = &t
	}
	warn := s.cfg.OnWarning
	s.mu.Unlock()

	if err != nil {
		slog.Warn("sync failed, queue preserved for retry", "trigger", reason, "err", err)
		if warn != nil {
			warn(err)
		}
		return true, err
	}
	slog.Debug("sync completed", "trigger", reason, "server_time", serverTime)
	return true, nil
}

// IsSyncing reports whether a reconciliation attempt is in flight.
func (s *Scheduler) IsSyncing() bool {
	return s.syncing.Load()
}

// LastSyncAt returns the time of the last successful reconciliation, or
// nil if none has completed this session or before it.
func (s *Scheduler) LastSyncAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSync == nil {
		return nil
	}
	t := *s.lastSync
	return &t
}

// TimeSinceLastSync returns how long ago the last successful sync was.
// Derived for display only; scheduling never reads it.
func (s *Scheduler) TimeSinceLastSync() (time.Duration, bool) {
	last := s.LastSyncAt()
	if last == nil {
		return 0, false
	}
	return s.clk.Now().Sub(*last), true
}

// Close cancels all timers and the connectivity subscription. An in-flight
// attempt may finish but its result is discarded.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.settleTimer != nil {
		s.settleTimer.Stop()
		s.settleTimer = nil
	}
	if s.periodicTimer != nil {
		s.periodicTimer.Stop()
		s.periodicTimer = nil
	}
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// armSettle schedules the post-reconnection attempt. A new reconnection
// resets the window.
func (s *Scheduler) armSettle(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.settleTimer != nil {
		s.settleTimer.Stop()
	}
	s.settleTimer = s.clk.AfterFunc(s.cfg.Settle, func() {
		s.attempt(ctx, "reconnected")
	})
}

func (s *Scheduler) cancelSettle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settleTimer != nil {
		s.settleTimer.Stop()
		s.settleTimer = nil
	}
}

func (s *Scheduler) armPeriodicLocked(ctx context.Context) {
	if s.closed {
		return
	}
	s.periodicTimer = s.clk.AfterFunc(s.cfg.Interval, func() {
		s.attempt(ctx, "periodic")
		s.mu.Lock()
		s.armPeriodicLocked(ctx)
		s.mu.Unlock()
	})
}
