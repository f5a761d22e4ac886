// Package clock abstracts wall-clock time and timer scheduling so that
// components with deferred work (auto-save intervals, retry backoff) can be
// tested against virtual time instead of real delays.
package clock

import (
	"time"
)

// Clock provides the current time and one-shot timer scheduling.
type Clock interface {
	Now() time.Time

	// AfterFunc schedules fn to run after d. fn runs at most once.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a scheduled callback that can be canceled.
type Timer interface {
	// Stop cancels the timer. It reports whether the callback was prevented
	// from running (false if it already ran or was already stopped).
	Stop() bool
}

// System returns a Clock backed by the runtime's real clock.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
