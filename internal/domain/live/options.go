package live

import (
	"time"

	"golang.org/x/time/rate"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBounds sets the lower score bound of each non-critical bucket.
// Bounds must descend (low > medium > high > 0); invalid sets are
// ignored.
func WithBounds(lowMin, mediumMin, highMin int) Option {
	return func(s *Service) {
		if lowMin > mediumMin && mediumMin > highMin && highMin > 0 {
			s.lowMin = lowMin
			s.mediumMin = mediumMin
			s.highMin = highMin
		}
	}
}

// WithRecentLimit caps the recent event messages per session row.
// Non-positive values are ignored.
func WithRecentLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

// WithAlertInterval sets the minimum spacing between critical alerts
// across all sessions. Non-positive durations are ignored.
func WithAlertInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithClock substitutes the time source used for view timestamps and
// alert spacing. Tests inject a manual clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
