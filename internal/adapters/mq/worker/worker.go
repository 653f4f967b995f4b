// Package worker defines the asynchronous violation-event writer pool.
//
// Confirmed violations are submitted to a bounded queue and persisted
// by a pool of writers, so detection cycles never block on the store.
// Each write retries with linear backoff before the event is dropped.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/avast/retry-go/v5"

	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/metrics"
)

// Default writer configuration constants.
const (
	defaultWriterMultiplier = 2 // multiplier for runtime.NumCPU()
	defaultQueueSize        = 4096
	defaultWriteAttempts    = 3
	defaultRetryDelay       = 200 * time.Millisecond
	writerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Event abstracts what writers take off the queue.
// Using the model.ViolationEvent type for consistency.
type Event = model.ViolationEvent

// Appender persists violation events to the append-only log.
type Appender interface {
	AppendEvent(ctx context.Context, event Event) error
}

// Writer persists events from the shared queue until stopped.
type Writer interface {
	// Run starts the writer loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the writer.
	Shutdown(ctx context.Context) error
}

// EventWriter implements Writer for persisting violation events.
type EventWriter struct {
	events   <-chan Event
	appender Appender
	name     string

	// Retry configuration
	attempts   uint
	retryDelay time.Duration

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewEventWriter creates a new writer with configuration options.
func NewEventWriter(events <-chan Event, appender Appender, opts ...Option) *EventWriter {
	w := &EventWriter{
		events:     events,
		appender:   appender,
		name:       "event-writer", // default name
		attempts:   defaultWriteAttempts,
		retryDelay: defaultRetryDelay,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("event-writer"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with writer name if not already set
	if w.name != "event-writer" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the writer loop.
func (w *EventWriter) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-w.events:
			if !ok {
				// Channel closed, writer should stop
				return
			}

			// Persist the event
			if err := w.writeEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error writing violation event", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the writer.
func (w *EventWriter) Shutdown(ctx context.Context) error {
	// Signal shutdown
	select {
	case <-w.shutdown:
		// Already signalled
	default:
		close(w.shutdown)
	}

	// Wait for writer to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// writeEvent persists a single event with bounded linear-backoff retry.
func (w *EventWriter) writeEvent(ctx context.Context, event Event) error {
	// Track write latency
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordEventWriteLatency(float64(latency))
	}()

	attempt := 0
	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(w.attempts),
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			// Linear backoff: delay, 2*delay, 3*delay, ...
			return w.retryDelay * time.Duration(n+1)
		}),
	)
	err := r.Do(func() error {
		if attempt > 0 {
			metrics.RecordEventWriteRetry()
		}
		attempt++
		return w.appender.AppendEvent(ctx, event)
	})
	if err != nil {
		metrics.RecordEventWriteError()
		metrics.RecordErrorByComponent("event_writer", "append_error")
		w.logger.Error(ctx, "event write failed after retries",
			logger.String("eventID", event.ID),
			logger.String("sessionID", event.SessionID),
			logger.Error(err),
		)
		return fmt.Errorf("failed to write event %s: %w", event.ID, err)
	}

	return nil
}

// Pool manages multiple writers draining one shared queue.
type Pool struct {
	writers  []*EventWriter
	events   chan Event
	capacity int

	mu     sync.RWMutex
	closed bool

	// Logging
	logger logger.Logger
}

// NewPool creates a new writer pool with a bounded submission queue.
func NewPool(writerCount, queueSize int, appender Appender, opts ...Option) *Pool {
	if writerCount < 1 {
		writerCount = runtime.NumCPU() * defaultWriterMultiplier
	}
	if queueSize < 1 {
		queueSize = defaultQueueSize
	}

	pool := &Pool{
		writers:  make([]*EventWriter, writerCount),
		events:   make(chan Event, queueSize),
		capacity: queueSize,
		logger:   logger.Get().Named("event-writer-pool"),
	}

	for i := 0; i < writerCount; i++ {
		writerOpts := append([]Option{WithName("event-writer-" + strconv.Itoa(i))}, opts...)
		pool.writers[i] = NewEventWriter(pool.events, appender, writerOpts...)
	}

	return pool
}

// Start starts all writers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, writer := range p.writers {
		go writer.Run(ctx)
	}

	metrics.UpdateEventWriterActive(len(p.writers))
}

// Submit enqueues one confirmed violation for asynchronous persistence.
// Returns false if the queue is full or closed and the event was not
// accepted.
func (p *Pool) Submit(ctx context.Context, event Event) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		metrics.RecordErrorByComponent("event_writer", "closed")
		return false
	}

	select {
	case p.events <- event:
		return true
	case <-ctx.Done():
		metrics.RecordErrorByComponent("event_writer", "context_cancelled")
		return false
	default:
		metrics.RecordErrorByComponent("event_writer", "queue_full")
		return false
	}
}

// Len returns the current number of queued events.
func (p *Pool) Len() int {
	return len(p.events)
}

// Stop halts all writers without draining the backlog.
func (p *Pool) Stop() {
	for _, writer := range p.writers {
		select {
		case <-writer.shutdown:
			// Already signalled
		default:
			close(writer.shutdown)
		}
	}

	// Wait for all writers to finish
	for _, writer := range p.writers {
		select {
		case <-writer.done:
			// Writer finished
		case <-time.After(writerShutdownTimeout):
			// Writer timeout
		}
	}

	metrics.UpdateEventWriterActive(0)
}

// Shutdown gracefully shuts down the pool, letting writers drain the
// queued backlog first.
func (p *Pool) Shutdown(ctx context.Context) error {
	// Stop accepting new events; writers exit once the queue drains
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()

	// Wait for all writers to finish or context to timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, writer := range p.writers {
		select {
		case <-writer.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "event writer shutdown timed out", logger.Int("writer_id", i))
		}
	}

	metrics.UpdateEventWriterActive(0)
	return nil
}
