package domain

import "github.com/jonboulle/clockwork"

// clock is a package-level time source for entry timestamps so tests can
// freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for entry timestamps. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
