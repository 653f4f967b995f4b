package analysis

import (
	"net/http"
	"time"

	"github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
)

// Option applies a configuration option to the HTTPAnalyzer.
type Option func(*HTTPAnalyzer)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(a *HTTPAnalyzer) {
		if client != nil {
			a.client = client
		}
	}
}

// WithTimeout bounds a single request to the service.
func WithTimeout(timeout time.Duration) Option {
	return func(a *HTTPAnalyzer) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// WithAttempts sets how many times a failed request is tried.
func WithAttempts(attempts uint) Option {
	return func(a *HTTPAnalyzer) {
		if attempts > 0 {
			a.attempts = attempts
		}
	}
}

// WithRetryDelay sets the base delay between attempts.
func WithRetryDelay(delay time.Duration) Option {
	return func(a *HTTPAnalyzer) {
		if delay > 0 {
			a.retryDelay = delay
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(a *HTTPAnalyzer) {
		if log != nil {
			a.logger = log.Named("analysis")
		}
	}
}
