package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BakulBd/GreenGuardian-sub000/pkg/metrics"
)

// defaultKeyPrefix namespaces presence keys in a shared Redis.
const defaultKeyPrefix = "guardian:presence:"

// RedisTracker implements Tracker on Redis so the online flag survives
// process restarts and is shared across instances. Expiry is delegated
// to Redis: a heartbeat is SET with the TTL, liveness is EXISTS.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisTracker creates a Redis-backed tracker with configuration options.
func NewRedisTracker(client *redis.Client, opts ...RedisOption) *RedisTracker {
	t := &RedisTracker{
		client: client,
		ttl:    defaultTTL,
		prefix: defaultKeyPrefix,
	}

	// Apply all options
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Heartbeat marks the session alive now.
func (t *RedisTracker) Heartbeat(ctx context.Context, sessionID string) error {
	if err := t.client.Set(ctx, t.key(sessionID), "1", t.ttl).Err(); err != nil {
		metrics.RecordErrorByComponent("presence", "heartbeat")
		return fmt.Errorf("presence heartbeat: %w", err)
	}
	return nil
}

// Online reports whether a heartbeat landed within the TTL.
func (t *RedisTracker) Online(ctx context.Context, sessionID string) (bool, error) {
	n, err := t.client.Exists(ctx, t.key(sessionID)).Result()
	if err != nil {
		metrics.RecordErrorByComponent("presence", "online")
		return false, fmt.Errorf("presence lookup: %w", err)
	}
	return n > 0, nil
}

// Forget releases the session's entry.
func (t *RedisTracker) Forget(ctx context.Context, sessionID string) error {
	if err := t.client.Del(ctx, t.key(sessionID)).Err(); err != nil {
		metrics.RecordErrorByComponent("presence", "forget")
		return fmt.Errorf("presence forget: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (t *RedisTracker) Close() error {
	return t.client.Close()
}

func (t *RedisTracker) key(sessionID string) string {
	return t.prefix + sessionID
}
