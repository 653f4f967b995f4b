package signal

import (
	"math/rand"
	"time"
)

// FeedOption applies a configuration option to a Feed.
type FeedOption func(*Feed)

// WithFeedClock substitutes the feed's time source for staleness
// arithmetic. Tests inject a manual clock.
func WithFeedClock(now func() time.Time) FeedOption {
	return func(f *Feed) {
		if now != nil {
			f.now = now
		}
	}
}

// SimOption applies a configuration option to a Simulator.
type SimOption func(*Simulator)

// WithScript sets the anomaly script replayed before the simulator
// settles into clean samples. Steps with non-positive counts are
// dropped.
func WithScript(steps ...Step) SimOption {
	return func(s *Simulator) {
		s.script = s.script[:0]
		for _, step := range steps {
			if step.Count > 0 {
				s.script = append(s.script, step)
			}
		}
	}
}

// WithSeed fixes the random seed for reproducible runs.
func WithSeed(seed int64) SimOption {
	return func(s *Simulator) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic seed for reproducible simulation
	}
}

// WithLatencyRange sets the simulated inference latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) SimOption {
	return func(s *Simulator) {
		if minLatency >= 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithSampleClock substitutes the capture timestamp source.
func WithSampleClock(now func() time.Time) SimOption {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

// WithUnavailable makes every Sample call fail with ErrUnavailable,
// standing in for a provider whose model never initialized.
func WithUnavailable() SimOption {
	return func(s *Simulator) {
		s.unavailable = true
	}
}
