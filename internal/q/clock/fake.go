package clock

import (
	"sync"
	"time"
)

// Fake is a Clock driven by explicit Advance calls. Callbacks run synchronously
// on the goroutine that calls Advance, in due-time order (insertion order for
// equal due times), which makes timer-dependent behavior deterministic in tests.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

// NewFake returns a Fake positioned at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t := &fakeTimer{
		clock: f,
		due:   f.now.Add(d),
		seq:   f.seq,
		fn:    fn,
	}
	f.timers = append(f.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer that becomes due,
// in due-time order. A callback may schedule further timers; those fire too if
// they fall within the advanced window.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		t := f.popNextDue(target)
		if t == nil {
			break
		}
		t.fn()
	}

	f.mu.Lock()
	f.now = target
	f.mu.Unlock()
}

// PendingCount returns the number of timers not yet fired or stopped.
func (f *Fake) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// popNextDue removes and returns the earliest timer due at or before target,
// advancing now to its due time. Returns nil if none is due.
func (f *Fake) popNextDue(target time.Time) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()

	best := -1
	for i, t := range f.timers {
		if t.due.After(target) {
			continue
		}
		if best == -1 || t.due.Before(f.timers[best].due) || (t.due.Equal(f.timers[best].due) && t.seq < f.timers[best].seq) {
			best = i
		}
	}
	if best == -1 {
		return nil
	}
	t := f.timers[best]
	f.timers = append(f.timers[:best], f.timers[best+1:]...)
	if t.due.After(f.now) {
		f.now = t.due
	}
	return t
}

type fakeTimer struct {
	clock *Fake
	due   time.Time
	seq   int
	fn    func()
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	for i, other := range t.clock.timers {
		if other == t {
			t.clock.timers = append(t.clock.timers[:i], t.clock.timers[i+1:]...)
			return true
		}
	}
	return false
}
