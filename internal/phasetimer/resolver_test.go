package phasetimer

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func containsSignal(signals []Signal, want Signal) bool {
	for _, s := range signals {
		if s == want {
			return true
		}
	}
	return false
}

// runCountdown ticks the resolver once per simulated second for n seconds and
// returns every signal fired, keyed by the remaining value at fire time.
func runCountdown(t *testing.T, clock *clockwork.FakeClock, r *Resolver, seconds int) map[Signal]int {
	t.Helper()
	fired := make(map[Signal]int)
	for i := 0; i < seconds; i++ {
		clock.Advance(time.Second)
		remaining, _ := r.Remaining()
		for _, s := range r.Tick() {
			if _, dup := fired[s]; dup {
				t.Fatalf("signal %s fired twice", s)
			}
			fired[s] = remaining
		}
	}
	return fired
}

func TestThresholdSignalsFireExactlyOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewResolver(clock)
	r.Activate(clock.Now().Unix()+12, 0)

	fired := runCountdown(t, clock, r, 15)

	if at, ok := fired[SignalWarning]; !ok || at != 10 {
		t.Fatalf("warning: fired=%v at remaining=%d, want once at 10", ok, at)
	}
	if at, ok := fired[SignalCritical]; !ok || at < 1 || at > 3 {
		t.Fatalf("critical: fired=%v at remaining=%d, want once in (0,3]", ok, at)
	}
	if at, ok := fired[SignalExpired]; !ok || at != 0 {
		t.Fatalf("expired: fired=%v at remaining=%d, want once at 0", ok, at)
	}
}

func TestTicksAfterExpiryRaiseNothing(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewResolver(clock)
	r.Activate(clock.Now().Unix()+2, 0)

	runCountdown(t, clock, r, 5)
	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		if signals := r.Tick(); len(signals) != 0 {
			t.Fatalf("post-expiry tick raised %v", signals)
		}
	}
}

func TestCoarseTickStillFiresCrossedThresholds(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewResolver(clock)
	r.Activate(clock.Now().Unix()+20, 0)

	// One big jump from 20s remaining to 8s: the warning threshold was
	// crossed between ticks and must still fire.
	clock.Advance(12 * time.Second)
	signals := r.Tick()
	if !containsSignal(signals, SignalWarning) {
		t.Fatalf("expected warning on drifted tick, got %v", signals)
	}
	if containsSignal(signals, SignalCritical) {
		t.Fatal("critical must not fire at 8s remaining")
	}
}

func TestNoDeadlineNoSignals(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewResolver(clock)
	r.Activate(0, 300)

	if _, active := r.Remaining(); active {
		t.Fatal("expected no countdown without a deadline")
	}
	if r.FallbackDuration() != 300 {
		t.Fatalf("expected fallback duration 300, got %d", r.FallbackDuration())
	}
	for i := 0; i < 30; i++ {
		clock.Advance(time.Second)
		if signals := r.Tick(); len(signals) != 0 {
			t.Fatalf("deadline-less resolver raised %v", signals)
		}
	}
}

func TestActivateRearmsSignals(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewResolver(clock)
	r.Activate(clock.Now().Unix()+2, 0)
	runCountdown(t, clock, r, 3)

	// A new phase activation gets its own one-shot budget.
	r.Activate(clock.Now().Unix()+12, 0)
	fired := runCountdown(t, clock, r, 15)
	if _, ok := fired[SignalWarning]; !ok {
		t.Fatal("expected warning after re-activation")
	}
	if _, ok := fired[SignalExpired]; !ok {
		t.Fatal("expected expiry after re-activation")
	}
}

func TestRemainingClampsAtZero(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewResolver(clock)
	r.Activate(clock.Now().Unix()-100, 0)
	remaining, active := r.Remaining()
	if !active || remaining != 0 {
		t.Fatalf("got remaining=%d active=%v, want 0 and active", remaining, active)
	}
}
