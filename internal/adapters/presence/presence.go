// Package presence tracks candidate liveness for the observer view.
//
// Ingest paths heartbeat on every sample or trigger; the live view asks
// whether a heartbeat landed within the TTL. Absence of a heartbeat
// only flips the online flag, it never affects scoring.
package presence

import (
	"context"
	"sync"
	"time"
)

// defaultTTL is the liveness window for the online flag.
const defaultTTL = 30 * time.Second

// Tracker records session heartbeats and answers liveness queries.
type Tracker interface {
	// Heartbeat marks the session alive now.
	Heartbeat(ctx context.Context, sessionID string) error

	// Online reports whether a heartbeat landed within the TTL.
	Online(ctx context.Context, sessionID string) (bool, error)

	// Forget releases the session's entry, called at teardown.
	Forget(ctx context.Context, sessionID string) error

	// Close releases tracker resources.
	Close() error
}

// MemoryTracker implements Tracker with an in-process map.
type MemoryTracker struct {
	mu    sync.RWMutex
	beats map[string]time.Time
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryTracker creates an in-memory tracker with configuration options.
func NewMemoryTracker(opts ...MemoryOption) *MemoryTracker {
	t := &MemoryTracker{
		beats: make(map[string]time.Time),
		ttl:   defaultTTL,
		now:   time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Heartbeat marks the session alive now.
func (t *MemoryTracker) Heartbeat(ctx context.Context, sessionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.beats[sessionID] = t.now()
	return nil
}

// Online reports whether a heartbeat landed within the TTL.
func (t *MemoryTracker) Online(ctx context.Context, sessionID string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	beat, ok := t.beats[sessionID]
	if !ok {
		return false, nil
	}
	return t.now().Sub(beat) <= t.ttl, nil
}

// Forget releases the session's entry.
func (t *MemoryTracker) Forget(ctx context.Context, sessionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.beats, sessionID)
	return nil
}

// Close releases tracker resources.
func (t *MemoryTracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.beats)
	return nil
}
