// Package notify defines the pending-notification queue between the
// detection paths and observer-facing delivery.
//
// Detection and lifecycle code enqueue without blocking; a consumer
// drains the queue on its own tick. Implementations may use channels or
// more advanced structures. The default is an in-memory bounded queue.
package notify

import (
	"context"
	"sync"

	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 4096
	defaultBufferSize    = 4096
)

// Notification represents the payload type flowing through the queue.
// Using the model.Notification type for type safety.
type Notification = model.Notification

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a notification to the queue.
	// Returns false if the queue is full and the notification was dropped.
	Enqueue(ctx context.Context, n Notification) bool

	// Dequeue returns a channel that will receive notifications as they
	// become available. The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Notification

	// Len returns the current number of pending notifications.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new notifications can be enqueued and the
	// dequeue channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	pending    chan Notification
	capacity   int
	bufferSize int
	mu         sync.RWMutex
	closed     bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity, // default capacity
		bufferSize: defaultBufferSize,    // default buffer size
	}

	// Apply all options
	for _, opt := range opts {
		opt(q)
	}

	// Initialize the pending channel with the configured buffer size
	q.pending = make(chan Notification, q.bufferSize)

	// Initialize metrics
	metrics.UpdateNotifyQueueCapacity(q.capacity)
	metrics.UpdateNotifyQueueSize(0)
	metrics.UpdateNotifyQueueUtilization(0.0)

	return q
}

// Enqueue adds a notification to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, n Notification) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordNotifyDropped()
		metrics.RecordErrorByComponent("notify", "closed")
		return false
	}

	// Check if we're at capacity
	if len(q.pending) >= q.capacity {
		metrics.RecordNotifyDropped()
		metrics.RecordErrorByComponent("notify", "capacity_exceeded")
		return false
	}

	select {
	case q.pending <- n:
		metrics.RecordNotifyEnqueued()
		// Update queue size and utilization
		currentSize := len(q.pending)
		metrics.UpdateNotifyQueueSize(currentSize)
		utilization := float64(currentSize) / float64(q.capacity)
		metrics.UpdateNotifyQueueUtilization(utilization)
		return true
	case <-ctx.Done():
		metrics.RecordNotifyDropped()
		metrics.RecordErrorByComponent("notify", "context_cancelled")
		return false // context cancelled
	default:
		metrics.RecordNotifyDropped()
		metrics.RecordErrorByComponent("notify", "queue_full")
		return false // queue is full
	}
}

// Dequeue returns a channel that will receive notifications as they
// become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Notification {
	// Wrap the channel to track delivery metrics
	dequeueChan := make(chan Notification)
	go func() {
		defer close(dequeueChan)
		for n := range q.pending {
			select {
			case dequeueChan <- n:
				metrics.RecordNotifyDelivered()
				// Update queue size and utilization after delivery
				currentSize := len(q.pending)
				metrics.UpdateNotifyQueueSize(currentSize)
				utilization := float64(currentSize) / float64(q.capacity)
				metrics.UpdateNotifyQueueUtilization(utilization)
			case <-ctx.Done():
				return
			}
		}
	}()
	return dequeueChan
}

// Len returns the current number of pending notifications.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.pending)
	metrics.UpdateNotifyQueueSize(size)
	utilization := float64(size) / float64(q.capacity)
	metrics.UpdateNotifyQueueUtilization(utilization)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil // already closed
	}

	// Close the pending channel to signal consumers to stop
	close(q.pending)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
