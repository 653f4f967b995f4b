// Package worker defines the asynchronous violation-event writer pool.
package worker

import (
	"time"

	"github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
)

// Option applies a configuration option to the EventWriter.
type Option func(*EventWriter)

// WithName sets the writer name for identification and logging.
func WithName(name string) Option {
	return func(w *EventWriter) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the writer.
func WithLogger(logger logger.Logger) Option {
	return func(w *EventWriter) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithAttempts sets how many times a write is attempted before the
// event is dropped.
func WithAttempts(attempts uint) Option {
	return func(w *EventWriter) {
		if attempts > 0 {
			w.attempts = attempts
		}
	}
}

// WithRetryDelay sets the base delay of the linear backoff between
// write attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(w *EventWriter) {
		if delay > 0 {
			w.retryDelay = delay
		}
	}
}
