package session

import (
	"time"

	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/analysis"
	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/presence"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/debounce"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/scoring"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/violation"
	"github.com/BakulBd/GreenGuardian-sub000/internal/signal"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
)

// Option applies a configuration option to the Runtime.
type Option func(*Runtime)

// WithCyclePeriod sets the detection cycle period. Non-positive
// durations are ignored.
func WithCyclePeriod(d time.Duration) Option {
	return func(r *Runtime) {
		if d > 0 {
			r.cyclePeriod = d
		}
	}
}

// WithSampleTTL bounds how old the newest sample may be before the
// camera stream counts as lost. Non-positive durations are ignored.
func WithSampleTTL(d time.Duration) Option {
	return func(r *Runtime) {
		if d > 0 {
			r.sampleTTL = d
		}
	}
}

// WithMaxWarnings sets the warning count that forces submission.
// Non-positive values are ignored.
func WithMaxWarnings(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.maxWarnings = n
		}
	}
}

// WithReviewThreshold flags sessions finalized below this score.
// Negative values are ignored; zero flags nothing.
func WithReviewThreshold(n int) Option {
	return func(r *Runtime) {
		if n >= 0 {
			r.reviewThreshold = n
		}
	}
}

// WithSubmitRetry configures terminal-write attempts and the linear
// backoff unit. Non-positive values leave the defaults in place.
func WithSubmitRetry(attempts uint, delay time.Duration) Option {
	return func(r *Runtime) {
		if attempts > 0 {
			r.submitAttempts = attempts
		}
		if delay > 0 {
			r.submitRetryDelay = delay
		}
	}
}

// WithSnapshotEvery stores a frame thumbnail every n cycles; zero
// disables snapshots. Negative values are ignored.
func WithSnapshotEvery(n int) Option {
	return func(r *Runtime) {
		if n >= 0 {
			r.snapshotEvery = n
		}
	}
}

// WithDetector substitutes the per-session debounce context.
func WithDetector(detect *debounce.Context) Option {
	return func(r *Runtime) {
		if detect != nil {
			r.detect = detect
		}
	}
}

// WithClassifier substitutes the trigger classifier.
func WithClassifier(c *violation.Classifier) Option {
	return func(r *Runtime) {
		if c != nil {
			r.classifier = c
		}
	}
}

// WithScorer substitutes the behavior scoring engine.
func WithScorer(e *scoring.Engine) Option {
	return func(r *Runtime) {
		if e != nil {
			r.scorer = e
		}
	}
}

// WithFeed substitutes the sample feed. The feed's identity is fixed
// for the session's lifetime; sources reattach, the runtime never
// re-acquires.
func WithFeed(f *signal.Feed) Option {
	return func(r *Runtime) {
		if f != nil {
			r.feed = f
		}
	}
}

// WithEventSink wires the asynchronous violation-event writer.
func WithEventSink(sink EventSink) Option {
	return func(r *Runtime) {
		if sink != nil {
			r.events = sink
		}
	}
}

// WithNotifier wires the pending-notification queue.
func WithNotifier(n Notifier) Option {
	return func(r *Runtime) {
		if n != nil {
			r.queue = n
		}
	}
}

// WithAlertPolicy wires critical-alert evaluation.
func WithAlertPolicy(p AlertPolicy) Option {
	return func(r *Runtime) {
		if p != nil {
			r.alerts = p
		}
	}
}

// WithPresence wires the candidate liveness tracker.
func WithPresence(t presence.Tracker) Option {
	return func(r *Runtime) {
		if t != nil {
			r.presence = t
		}
	}
}

// WithAnalyzer wires post-submission document analysis for upload-mode
// sessions.
func WithAnalyzer(a analysis.Analyzer) Option {
	return func(r *Runtime) {
		if a != nil {
			r.analyzer = a
		}
	}
}

// WithClock substitutes the time source used for document timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runtime) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger used by the runtime.
func WithLogger(l logger.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l.Named("session")
		}
	}
}
