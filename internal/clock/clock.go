// Package clock abstracts time so the engine's debounce, settle, and
// periodic timers can be driven deterministically in tests. Every timer in
// the engine goes through this interface; there are no ad hoc time.Timer
// uses elsewhere.
package clock

import "time"

// Timer is a handle to a scheduled callback that can be cancelled.
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented the
	// callback from firing.
	Stop() bool
}

// Clock schedules delayed callbacks and reads the current time.
type Clock interface {
	Now() time.Time
	// AfterFunc runs fn once after d has elapsed, on an unspecified
	// goroutine.
	AfterFunc(d time.Duration, fn func()) Timer
}

type realClock struct{}

// New returns a Clock backed by the time package.
func New() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{t: time.AfterFunc(d, fn)}
}

type realTimer struct{ t *time.Timer }

func (rt realTimer) Stop() bool { return rt.t.Stop() }
