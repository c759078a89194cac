// Package connectivity tracks whether the client really can reach the sync
// server, as opposed to what the platform reports. The platform's online
// signal is necessary but not sufficient: hasConnectivity only ever becomes
// true after a successful probe, and is forced false the moment the
// platform goes offline.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/scribesync/scribe/internal/clock"
)

// State is the monitor's view of connectivity at an instant.
type State struct {
	PlatformOnline  bool
	HasConnectivity bool
	LastOnlineAt    *time.Time
}

// Event is a connectivity transition delivered to subscribers.
type Event int

const (
	// EventReconnected fires when a probe succeeds after connectivity was
	// absent.
	EventReconnected Event = iota
	// EventOffline fires when the platform reports loss of link.
	EventOffline
)

func (e Event) String() string {
	switch e {
	case EventReconnected:
		return "reconnected"
	case EventOffline:
		return "offline"
	}
	return "unknown"
}

// Prober performs the active reachability check. Satisfied by
// *syncclient.Client.
type Prober interface {
	Ping(ctx context.Context) error
}

const defaultProbeInterval = 30 * time.Second

// Monitor owns the connectivity state. It subscribes to platform
// online/offline notifications via SetOnline, probes on demand and on a
// fixed period while the platform reports online, and notifies subscribers
// of transitions.
type Monitor struct {
	clk           clock.Clock
	prober        Prober
	probeInterval time.Duration

	mu         sync.Mutex
	state      State
	subs       map[int]func(Event)
	nextSubID  int
	probeTimer clock.Timer
	closed     bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithProbeInterval overrides the periodic probe interval.
func WithProbeInterval(d time.Duration) Option {
	return func(m *Monitor) { m.probeInterval = d }
}

// NewMonitor creates a Monitor. The platform is assumed online until told
// otherwise; connectivity starts unverified and stays false until the
// first successful probe.
func NewMonitor(clk clock.Clock, prober Prober, opts ...Option) *Monitor {
	m := &Monitor{
		clk:           clk,
		prober:        prober,
		probeInterval: defaultProbeInterval,
		subs:          make(map[int]func(Event)),
		state:         State{PlatformOnline: true},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Start kicks off the first probe and the periodic probe cycle.
func (m *Monitor) Start(ctx context.Context) {
	m.scheduleProbe(ctx, 0)
}

// State returns the latest known connectivity state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a callback for connectivity transitions and returns
// its unsubscribe function. Callbacks run outside the monitor's lock.
func (m *Monitor) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSubID++
	id := m.nextSubID
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// SetOnline is the platform online/offline intake. Online triggers a probe
// to verify real connectivity; offline is authoritative and forces
// hasConnectivity false immediately, with no probe.
func (m *Monitor) SetOnline(ctx context.Context, online bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if online {
		now := m.clk.Now()
		m.state.PlatformOnline = true
		m.state.LastOnlineAt = &now
		m.mu.Unlock()
		slog.Debug("connectivity: platform online, probing")
		m.scheduleProbe(ctx, 0)
		return
	}

	m.state.PlatformOnline = false
	m.state.HasConnectivity = false
	m.stopProbeTimerLocked()
	subs := m.subscribersLocked()
	m.mu.Unlock()

	slog.Debug("connectivity: platform offline")
	for _, fn := range subs {
		fn(EventOffline)
	}
}

// Probe runs the reachability check and updates state. On success it
// reports true and, when transitioning from no connectivity, notifies
// subscribers of reconnection. Any failure is the expected "still offline"
// signal: it only flips hasConnectivity false and is never surfaced as an
// error.
func (m *Monitor) Probe(ctx context.Context) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	err := m.prober.Ping(ctx)

	m.mu.Lock()
	if m.closed {
		// Result discarded: no state mutation after teardown
		m.mu.Unlock()
		return false
	}

	if err != nil {
		m.state.HasConnectivity = false
		m.rescheduleProbeLocked(ctx)
		m.mu.Unlock()
		slog.Debug("connectivity: probe failed", "err", err)
		return false
	}

	regained := !m.state.HasConnectivity
	m.state.HasConnectivity = true
	var subs []func(Event)
	if regained {
		subs = m.subscribersLocked()
	}
	m.rescheduleProbeLocked(ctx)
	m.mu.Unlock()

	if regained {
		slog.Debug("connectivity: regained")
		for _, fn := range subs {
			fn(EventReconnected)
		}
	}
	return true
}

// Close cancels the probe timer and detaches all subscribers. No timers
// survive teardown and no state changes after it.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.stopProbeTimerLocked()
	m.subs = make(map[int]func(Event))
}

func (m *Monitor) scheduleProbe(ctx context.Context, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.stopProbeTimerLocked()
	m.probeTimer = m.clk.AfterFunc(delay, func() {
		m.Probe(ctx)
	})
}

// rescheduleProbeLocked arms the next periodic probe. Silent upstream loss
// is only detectable by probing, so the cycle runs whenever the platform
// still claims to be online.
func (m *Monitor) rescheduleProbeLocked(ctx context.Context) {
	if m.closed || !m.state.PlatformOnline || m.probeInterval <= 0 {
		return
	}
	m.stopProbeTimerLocked()
	m.probeTimer = m.clk.AfterFunc(m.probeInterval, func() {
		m.Probe(ctx)
	})
}

func (m *Monitor) stopProbeTimerLocked() {
	if m.probeTimer != nil {
		m.probeTimer.Stop()
		m.probeTimer = nil
	}
}

func (m *Monitor) subscribersLocked() []func(Event) {
	subs := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	return subs
}
