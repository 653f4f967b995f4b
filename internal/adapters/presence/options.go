package presence

import "time"

// MemoryOption applies a configuration option to the MemoryTracker.
type MemoryOption func(*MemoryTracker)

// WithTTL sets the liveness window.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(t *MemoryTracker) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithClock sets the time source, used by tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(t *MemoryTracker) {
		if now != nil {
			t.now = now
		}
	}
}

// RedisOption applies a configuration option to the RedisTracker.
type RedisOption func(*RedisTracker)

// WithRedisTTL sets the key expiry used for heartbeats.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(t *RedisTracker) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithKeyPrefix sets the namespace prefix for presence keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(t *RedisTracker) {
		if prefix != "" {
			t.prefix = prefix
		}
	}
}
