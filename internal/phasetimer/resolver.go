// Package phasetimer derives the remaining seconds for the active phase from
// the server deadline and the wall clock, and raises each threshold signal
// exactly once per phase activation.
package phasetimer

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Signal is a one-shot countdown threshold crossing.
type Signal int

const (
	// SignalWarning fires the first time remaining reads 10 or below.
	SignalWarning Signal = iota
	// SignalCritical fires the first time remaining falls in (0, 3].
	SignalCritical
	// SignalExpired fires once when remaining reaches 0.
	SignalExpired
)

const (
	warningThreshold  = 10
	criticalThreshold = 3
)

// String names the signal for logs.
func (s Signal) String() string {
	switch s {
	case SignalWarning:
		return "warning"
	case SignalCritical:
		return "critical"
	case SignalExpired:
		return "expired"
	}
	return "unknown"
}

// Resolver tracks one phase's countdown. Activate installs a deadline and
// re-arms the one-shot signals; Tick samples the clock and reports any
// thresholds crossed since the last sample. Tick tolerates drift: a tick
// that jumps past a threshold still fires it.
type Resolver struct {
	clock    clockwork.Clock
	deadline int64 // epoch seconds; zero means no countdown
	duration int

	warned   bool
	critical bool
	expired  bool
}

// NewResolver returns a resolver with no active countdown.
func NewResolver(clock clockwork.Clock) *Resolver {
	return &Resolver{clock: clock}
}

// Activate installs the timer for a newly entered phase and re-arms all
// one-shot signals. A zero deadline means the phase shows only the fallback
// duration and never raises signals; expiry is driven by server deadlines
// alone.
func (r *Resolver) Activate(deadline int64, duration int) {
	r.deadline = deadline
	r.duration = duration
	r.warned = false
	r.critical = false
	r.expired = false
}

// Deactivate clears the countdown, used when the active phase is untimed.
func (r *Resolver) Deactivate() {
	r.Activate(0, 0)
}

// Remaining returns the seconds left and whether a countdown is active.
func (r *Resolver) Remaining() (int, bool) {
	if r.deadline == 0 {
		return 0, false
	}
	remaining := r.deadline - r.clock.Now().Unix()
	if remaining < 0 {
		remaining = 0
	}
	return int(remaining), true
}

// FallbackDuration returns the display value used before a deadline is known.
func (r *Resolver) FallbackDuration() int {
	return r.duration
}

// Tick samples the countdown and returns the threshold signals crossed since
// the previous tick, each at most once per activation. Repeated zero reads
// after expiry return nothing.
func (r *Resolver) Tick() []Signal {
	remaining, active := r.Remaining()
	if !active {
		return nil
	}

	var fired []Signal
	if !r.warned && remaining <= warningThreshold && remaining > 0 {
		r.warned = true
		fired = append(fired, SignalWarning)
	}
	if !r.critical && remaining <= criticalThreshold && remaining > 0 {
		r.critical = true
		fired = append(fired, SignalCritical)
	}
	if !r.expired && remaining == 0 {
		r.expired = true
		fired = append(fired, SignalExpired)
	}
	return fired
}

// TickInterval is the sampling cadence for countdown recomputation.
const TickInterval = time.Second
