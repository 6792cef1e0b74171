package services

import (
	"sync"
	"time"
)

// UsageWindow is the trailing window the usage limit is counted over.
const UsageWindow = 24 * time.Hour

// UsageTracker counts actions per identity over a sliding 24h window.
// Timestamps are pruned lazily on every read and write; a timestamp t is
// kept while t > now-24h, so an action exactly 24h old no longer counts.
//
// Safe for concurrent use.
type UsageTracker struct {
	// Now is the clock; defaults to time.Now.
	Now func() time.Time

	mu    sync.Mutex
	usage map[string][]time.Time
}

// NewUsageTracker returns an empty tracker using the wall clock.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{Now: time.Now, usage: make(map[string][]time.Time)}
}

// Count prunes identity's window and returns its size.
func (t *UsageTracker) Count(identity string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.prune(identity, t.now()))
}

// Increment prunes identity's window, records one action at now, and
// returns the new window size.
func (t *UsageTracker) Increment(identity string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	ts := append(t.prune(identity, now), now)
	t.usage[identity] = ts
	return len(ts)
}

// TryIncrement records one action for identity only when its window holds
// fewer than limit entries. The check and the charge happen under one lock.
// It returns the window size afterwards and whether the action was charged.
func (t *UsageTracker) TryIncrement(identity string, limit int) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	ts := t.prune(identity, now)
	if len(ts) >= limit {
		return len(ts), false
	}
	ts = append(ts, now)
	t.usage[identity] = ts
	return len(ts), true
}

// Compact drops identities whose window is empty and returns how many were
// removed.
func (t *UsageTracker) Compact() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	n := 0
	for id := range t.usage {
		if len(t.prune(id, now)) == 0 {
			delete(t.usage, id)
			n++
		}
	}
	return n
}

// prune rewrites identity's sequence in place. Caller holds mu.
func (t *UsageTracker) prune(identity string, now time.Time) []time.Time {
	if t.usage == nil {
		t.usage = make(map[string][]time.Time)
	}
	ts, ok := t.usage[identity]
	if !ok {
		return nil
	}
	cutoff := now.Add(-UsageWindow)
	kept := ts[:0]
	for _, at := range ts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	t.usage[identity] = kept
	return kept
}

func (t *UsageTracker) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}
