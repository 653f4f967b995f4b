// Package signal defines the detection-sample source contract and the
// per-session feed that carries samples from an ingest source to the
// session runtime.
//
// The feed stands in for the camera stream: it is created once per
// session and its identity never changes for the session's lifetime.
// Sources (HTTP ingest, simulators) reattach to the same feed; the
// runtime never re-acquires it.
package signal

import (
	"context"
	"sync"
	"time"

	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
)

// Provider produces one detection sample per cycle. Implementations
// wrap inference pipelines or simulations. A provider whose model
// failed to initialize returns ErrUnavailable; callers degrade the
// affected modality and continue without it.
type Provider interface {
	// Sample returns the next detection sample, honoring ctx for
	// cancellation.
	Sample(ctx context.Context) (model.DetectionSample, error)
}

// Feed is a single-slot mailbox holding the newest sample for one
// session. Pushes overwrite; each pushed generation is taken at most
// once. Safe for concurrent use.
type Feed struct {
	mu       sync.Mutex
	latest   model.DetectionSample
	pending  bool
	pushedAt time.Time
	armedAt  time.Time
	now      func() time.Time
}

// NewFeed creates an empty feed.
func NewFeed(opts ...FeedOption) *Feed {
	f := &Feed{
		now: time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Push stores a sample as the pending one, replacing any sample not yet
// taken. Only the newest sample matters to the detection cycle.
func (f *Feed) Push(sample model.DetectionSample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = sample
	f.pending = true
	f.pushedAt = f.now()
}

// Take removes and returns the pending sample. ok is false when nothing
// new arrived since the last Take, so a cycle never evaluates the same
// sample twice.
func (f *Feed) Take() (model.DetectionSample, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.pending {
		return model.DetectionSample{}, false
	}
	f.pending = false
	return f.latest, true
}

// Arm starts the staleness watch. Called when the session enters its
// detection cycle; before Arm the feed never reports stale.
func (f *Feed) Arm() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armedAt = f.now()
}

// Stale reports whether no sample arrived within ttl. The watch runs
// from the later of Arm and the last push.
func (f *Feed) Stale(ttl time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ttl <= 0 {
		return false
	}
	ref := f.armedAt
	if f.pushedAt.After(ref) {
		ref = f.pushedAt
	}
	if ref.IsZero() {
		return false
	}
	return f.now().Sub(ref) > ttl
}

// LastPush returns when the newest sample arrived; zero if none ever
// did.
func (f *Feed) LastPush() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushedAt
}
