package watcher

import (
	"sync"
	"time"
)

// DebounceRecord is the last accepted fire for a logical key.
type DebounceRecord struct {
	Key         string
	LastFiredAt time.Time
}

// DebounceGate suppresses repeated triggers for the same key inside a fixed
// window. The window is measured from the first accepted event: rejected
// events do not extend it.
type DebounceGate struct {
	window time.Duration

	mu      sync.Mutex
	records map[string]*DebounceRecord
}

// NewDebounceGate creates a gate with the given window.
// A non-positive window falls back to DefaultDebounce.
func NewDebounceGate(window time.Duration) *DebounceGate {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &DebounceGate{
		window:  window,
		records: make(map[string]*DebounceRecord),
	}
}

// ShouldFire reports whether an event for key at now should be dispatched,
// recording now as the last fire time when it should.
func (g *DebounceGate) ShouldFire(key string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[key]
	if !ok {
		g.records[key] = &DebounceRecord{Key: key, LastFiredAt: now}
		return true
	}

	if now.Sub(rec.LastFiredAt) < g.window {
		return false
	}

	rec.LastFiredAt = now
	return true
}

// Window returns the configured debounce window.
func (g *DebounceGate) Window() time.Duration {
	return g.window
}

// Record returns a copy of the record for key, if one exists.
func (g *DebounceGate) Record(key string) (DebounceRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[key]
	if !ok {
		return DebounceRecord{}, false
	}
	return *rec, true
}
