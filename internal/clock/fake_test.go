package clock

import (
	"testing"
	"time"
)

func TestFakeAdvanceFiresInOrder(t *testing.T) {
	f := NewFake(time.Unix(1000, 0))

	var fired []string
	f.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
	f.AfterFunc(1*time.Second, func() { fired = append(fired, "a") })
	f.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })

	f.Advance(5 * time.Second)

	if got := len(fired); got != 3 {
		t.Fatalf("fired: got %d, want 3", got)
	}
	if fired[0] != "a" || fired[1] != "b" || fired[2] != "c" {
		t.Fatalf("order: got %v", fired)
	}
	if !f.Now().Equal(time.Unix(1005, 0)) {
		t.Fatalf("now: got %v", f.Now())
	}
}

func TestFakeStopPreventsFire(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	fired := false
	timer := f.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("first Stop should report true")
	}
	if timer.Stop() {
		t.Fatal("second Stop should report false")
	}

	f.Advance(2 * time.Second)
	if fired {
		t.Fatal("stopped timer fired")
	}
	if f.PendingTimers() != 0 {
		t.Fatalf("pending: got %d, want 0", f.PendingTimers())
	}
}

func TestFakeCallbackMayReschedule(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 3 {
			f.AfterFunc(time.Second, tick)
		}
	}
	f.AfterFunc(time.Second, tick)

	f.Advance(10 * time.Second)
	if count != 3 {
		t.Fatalf("count: got %d, want 3", count)
	}
}

func TestFakePartialAdvance(t *testing.T) {
	f := NewFake(time.Unix(0, 0))

	fired := false
	f.AfterFunc(5*time.Second, func() { fired = true })

	f.Advance(4 * time.Second)
	if fired {
		t.Fatal("timer fired early")
	}
	f.Advance(time.Second)
	if !fired {
		t.Fatal("timer did not fire at deadline")
	}
}
