package presence

import (
	"testing"
	"time"
)

func newTestTracker(start time.Time) (*Tracker, *time.Time) {
	current := start
	tr := New(20 * time.Second)
	tr.now = func() time.Time { return current }
	return tr, &current
}

func TestAnnounceRegistersCode(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tr, _ := newTestTracker(start)

	if tr.IsKnown("AB12") {
		t.Error("code should not be known before announce")
	}
	tr.Announce("AB12")
	if !tr.IsKnown("AB12") {
		t.Error("code should be known after announce")
	}
	if tr.Len() != 1 {
		t.Errorf("expected 1 live code, got %d", tr.Len())
	}

	// Announce again is a refresh, not a duplicate.
	tr.Announce("AB12")
	if tr.Len() != 1 {
		t.Errorf("expected 1 live code after re-announce, got %d", tr.Len())
	}
}

func TestHeartbeatNeverRegisters(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tr, _ := newTestTracker(start)

	if tr.Heartbeat("GHOST") {
		t.Error("heartbeat for unknown code should not be acknowledged")
	}
	if tr.IsKnown("GHOST") {
		t.Error("heartbeat must not register an unknown code")
	}

	tr.Announce("AB12")
	if !tr.Heartbeat("AB12") {
		t.Error("heartbeat for known code should be acknowledged")
	}
}

func TestSweepEvictsStaleCodes(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tr, _ := newTestTracker(start)

	tr.Announce("AB12")

	// Within the stale timeout nothing is evicted.
	evicted := tr.Sweep(start.Add(20 * time.Second))
	if len(evicted) != 0 {
		t.Errorf("expected no evictions at exactly the timeout, got %v", evicted)
	}
	if !tr.IsKnown("AB12") {
		t.Error("code should survive a sweep at exactly the timeout")
	}

	// One second past the timeout it goes.
	evicted = tr.Sweep(start.Add(21 * time.Second))
	if len(evicted) != 1 || evicted[0] != "AB12" {
		t.Errorf("expected [AB12] evicted, got %v", evicted)
	}
	if tr.IsKnown("AB12") {
		t.Error("code should be unknown after eviction")
	}
}

func TestHeartbeatExtendsLease(t *testing.T) {
	// Device announces at t=0, heartbeats at t=15s, then goes silent.
	// A sweep at t=36s must evict it (36-15=21 > 20).
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tr, current := newTestTracker(start)

	tr.Announce("AB12")

	*current = start.Add(15 * time.Second)
	if !tr.Heartbeat("AB12") {
		t.Fatal("heartbeat at t=15s should be acknowledged")
	}

	evicted := tr.Sweep(start.Add(30 * time.Second))
	if len(evicted) != 0 {
		t.Errorf("sweep at t=30s should evict nothing, got %v", evicted)
	}

	tr.Sweep(start.Add(36 * time.Second))
	if tr.IsKnown("AB12") {
		t.Error("code should be evicted by sweep at t=36s")
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tr, _ := newTestTracker(start)

	tr.Announce("AB12")
	tr.Announce("CD34")

	now := start.Add(25 * time.Second)
	first := tr.Sweep(now)
	if len(first) != 2 {
		t.Errorf("expected 2 evictions, got %v", first)
	}
	second := tr.Sweep(now)
	if len(second) != 0 {
		t.Errorf("repeated sweep should evict nothing, got %v", second)
	}
}
