// Package timer provides the one-shot countdown used by the poll loop for
// heartbeat windows, blink cadence and music status polling.
//
// A Delay never fires on its own. The owner polls JustFinished once per loop
// iteration, which keeps every state change on the loop goroutine.
package timer

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Delay is a restartable one-shot countdown.
type Delay struct {
	clock    clockwork.Clock
	start    time.Time
	duration time.Duration
	running  bool
}

// New creates a stopped Delay reading time from clock.
// A nil clock falls back to the real wall clock.
func New(clock clockwork.Clock) *Delay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Delay{clock: clock}
}

// Start arms the delay for d, replacing any countdown in progress.
func (d *Delay) Start(duration time.Duration) {
	d.duration = duration
	d.start = d.clock.Now()
	d.running = true
}

// Restart re-arms the delay with the most recent duration.
func (d *Delay) Restart() {
	d.Start(d.duration)
}

// Stop disarms the delay. JustFinished will not report it.
func (d *Delay) Stop() {
	d.running = false
}

// IsRunning reports whether the delay is armed and has not yet been reported finished.
func (d *Delay) IsRunning() bool {
	return d.running
}

// JustFinished returns true exactly once after the duration elapses, then
// leaves the delay stopped.
func (d *Delay) JustFinished() bool {
	if !d.running {
		return false
	}
	if d.clock.Since(d.start) < d.duration {
		return false
	}
	d.running = false
	return true
}

// Duration returns the most recently armed duration.
func (d *Delay) Duration() time.Duration {
	return d.duration
}

// Remaining returns the time left before the delay finishes, or zero when stopped.
func (d *Delay) Remaining() time.Duration {
	if !d.running {
		return 0
	}
	left := d.duration - d.clock.Since(d.start)
	if left < 0 {
		return 0
	}
	return left
}
