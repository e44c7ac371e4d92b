package presence

import (
	"context"
	"log"
	"sync"
	"time"
)

// Tracker maintains the set of pairing codes that have recently proven
// liveness. Devices cannot push a disconnect signal, so liveness is inferred
// purely from heartbeat recency: a code silent for longer than the stale
// timeout is evicted on the next sweep.
//
// All methods are safe for concurrent use.
type Tracker struct {
	mu           sync.Mutex
	lastSeen     map[string]time.Time
	staleTimeout time.Duration
	now          func() time.Time
}

// New creates a Tracker that evicts codes after staleTimeout of silence.
func New(staleTimeout time.Duration) *Tracker {
	return &Tracker{
		lastSeen:     make(map[string]time.Time),
		staleTimeout: staleTimeout,
		now:          time.Now,
	}
}

// Announce registers code or refreshes its last-seen time. Idempotent.
func (t *Tracker) Announce(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen[code] = t.now()
}

// Heartbeat refreshes a known code's last-seen time and reports whether the
// code was known. An unknown code is never registered here; only Announce
// adds codes.
func (t *Tracker) Heartbeat(code string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.lastSeen[code]; !ok {
		return false
	}
	t.lastSeen[code] = t.now()
	return true
}

// IsKnown reports whether code is currently present.
func (t *Tracker) IsKnown(code string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.lastSeen[code]
	return ok
}

// Len returns the number of live codes.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastSeen)
}

// Sweep removes every entry whose silence exceeds the stale timeout,
// measured against a single snapshot of now, and returns the evicted codes.
func (t *Tracker) Sweep(now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var evicted []string
	for code, seen := range t.lastSeen {
		if now.Sub(seen) > t.staleTimeout {
			delete(t.lastSeen, code)
			evicted = append(evicted, code)
		}
	}
	return evicted
}

// RunSweeper sweeps on the given interval until ctx is cancelled.
func (t *Tracker) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, code := range t.Sweep(t.now()) {
				log.Printf("removing stale pairing code: %s", code)
			}
		}
	}
}
