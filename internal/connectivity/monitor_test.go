package connectivity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scribesync/scribe/internal/clock"
)

// stubProber fails until reachable is set true, counting calls.
type stubProber struct {
	reachable bool
	calls     int
}

func (p *stubProber) Ping(ctx context.Context) error {
	p.calls++
	if !p.reachable {
		return errors.New("connection refused")
	}
	return nil
}

func setupMonitor(t *testing.T) (*Monitor, *stubProber, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(time.Unix(1_700_000_000, 0))
	p := &stubProber{}
	m := NewMonitor(fc, p, WithProbeInterval(30*time.Second))
	t.Cleanup(m.Close)
	return m, p, fc
}

func TestConnectivityOnlyAfterSuccessfulProbe(t *testing.T) {
	m, p, _ := setupMonitor(t)
	ctx := context.Background()

	// Platform online by default, but nothing verified yet
	if m.State().HasConnectivity {
		t.Fatal("connectivity should start false")
	}

	if ok := m.Probe(ctx); ok {
		t.Fatal("probe should fail while unreachable")
	}
	if m.State().HasConnectivity {
		t.Fatal("failed probe must not set connectivity")
	}

	p.reachable = true
	if ok := m.Probe(ctx); !ok {
		t.Fatal("probe should succeed")
	}
	if !m.State().HasConnectivity {
		t.Fatal("successful probe must set connectivity")
	}
}

func TestOfflineForcesConnectivityFalse(t *testing.T) {
	m, p, _ := setupMonitor(t)
	ctx := context.Background()

	p.reachable = true
	m.Probe(ctx)
	if !m.State().HasConnectivity {
		t.Fatal("setup: expected connectivity")
	}

	callsBefore := p.calls
	m.SetOnline(ctx, false)

	st := m.State()
	if st.PlatformOnline {
		t.Fatal("platform should be offline")
	}
	if st.HasConnectivity {
		t.Fatal("offline must force connectivity false")
	}
	// Loss of link is authoritative: no probe issued
	if p.calls != callsBefore {
		t.Fatalf("offline triggered a probe: %d calls before, %d after", callsBefore, p.calls)
	}
}

func TestOnlineEventTriggersProbeAndRecordsTime(t *testing.T) {
	m, p, fc := setupMonitor(t)
	ctx := context.Background()

	m.SetOnline(ctx, false)
	p.reachable = true

	m.SetOnline(ctx, true)
	st := m.State()
	if !st.PlatformOnline {
		t.Fatal("platform should be online")
	}
	if st.LastOnlineAt == nil || !st.LastOnlineAt.Equal(fc.Now()) {
		t.Fatalf("lastOnlineAt: got %v, want %v", st.LastOnlineAt, fc.Now())
	}
	// The online event is necessary but not sufficient
	if st.HasConnectivity {
		t.Fatal("connectivity must wait for the probe")
	}

	fc.Advance(0)
	if !m.State().HasConnectivity {
		t.Fatal("probe after online event should set connectivity")
	}
	if p.calls != 1 {
		t.Fatalf("probe calls: got %d, want 1", p.calls)
	}
}

func TestPeriodicProbeCatchesSilentLoss(t *testing.T) {
	m, p, fc := setupMonitor(t)
	ctx := context.Background()

	p.reachable = true
	m.Start(ctx)
	fc.Advance(0)
	if !m.State().HasConnectivity {
		t.Fatal("setup: expected connectivity")
	}

	// Upstream goes away without any platform event
	p.reachable = false
	fc.Advance(30 * time.Second)

	if m.State().HasConnectivity {
		t.Fatal("periodic probe should detect silent loss")
	}
	if !m.State().PlatformOnline {
		t.Fatal("platform state untouched by probe failure")
	}

	// And keeps probing, so recovery is noticed too
	p.reachable = true
	fc.Advance(30 * time.Second)
	if !m.State().HasConnectivity {
		t.Fatal("periodic probe should detect recovery")
	}
}

func TestNoPeriodicProbeWhileOffline(t *testing.T) {
	m, p, fc := setupMonitor(t)
	ctx := context.Background()

	p.reachable = true
	m.Start(ctx)
	fc.Advance(0)

	m.SetOnline(ctx, false)
	calls := p.calls
	fc.Advance(5 * time.Minute)
	if p.calls != calls {
		t.Fatalf("probes while platform offline: %d", p.calls-calls)
	}
}

func TestSubscribeReconnectedAndOffline(t *testing.T) {
	m, p, fc := setupMonitor(t)
	ctx := context.Background()

	var events []Event
	unsub := m.Subscribe(func(e Event) { events = append(events, e) })

	p.reachable = true
	m.Probe(ctx)
	m.Probe(ctx) // already connected: no second notification
	m.SetOnline(ctx, false)

	if len(events) != 2 {
		t.Fatalf("events: got %v", events)
	}
	if events[0] != EventReconnected || events[1] != EventOffline {
		t.Fatalf("events: got %v", events)
	}

	unsub()
	m.SetOnline(ctx, true)
	fc.Advance(0)
	if len(events) != 2 {
		t.Fatalf("unsubscribed callback still firing: %v", events)
	}
}

func TestCloseCancelsTimersAndFreezesState(t *testing.T) {
	m, p, fc := setupMonitor(t)
	ctx := context.Background()

	p.reachable = true
	m.Start(ctx)
	fc.Advance(0)

	m.Close()
	if n := fc.PendingTimers(); n != 0 {
		t.Fatalf("pending timers after close: %d", n)
	}

	st := m.State()
	m.SetOnline(ctx, false)
	m.Probe(ctx)
	if m.State() != st {
		t.Fatal("state mutated after teardown")
	}
}
