package watch

import "time"

// Clock abstracts timer creation so tests can drive the poll loop with
// virtual time instead of sleeping.
type Clock interface {
	NewTimer(d time.Duration) Timer
}

// Timer is the minimal surface of time.Timer the watcher needs.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// realClock implements Clock using the system timer.
type realClock struct{}

func (realClock) NewTimer(d time.Duration) Timer {
	return realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) C() <-chan time.Time { return r.t.C }

func (r realTimer) Stop() bool { return r.t.Stop() }
