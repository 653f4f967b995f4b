package debounce

import "time"

// Option applies a configuration option to the Context.
type Option func(*Context)

// WithThreshold sets the consecutive-match count required to confirm a
// condition. Non-positive values are ignored.
func WithThreshold(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.threshold = n
		}
	}
}

// WithNoFaceGrace sets the extra cycles added to the no-face threshold.
// Zero disables the grace; negative values are ignored.
func WithNoFaceGrace(n int) Option {
	return func(c *Context) {
		if n >= 0 {
			c.noFaceGrace = n
		}
	}
}

// WithCooldown overrides the cooldown window for one condition.
// Non-positive durations are ignored.
func WithCooldown(cond Condition, d time.Duration) Option {
	return func(c *Context) {
		if d > 0 {
			c.cooldowns[cond] = d
		}
	}
}

// WithDefaultCooldown sets the window used by conditions without an
// explicit override. Non-positive durations are ignored.
func WithDefaultCooldown(d time.Duration) Option {
	return func(c *Context) {
		if d > 0 {
			c.defaultCooldown = d
		}
	}
}

// WithMinObjectScore sets the confidence floor below which object
// detections are ignored. Accepts [0,1]; out-of-range values are
// ignored.
func WithMinObjectScore(score float64) Option {
	return func(c *Context) {
		if score >= 0 && score <= 1 {
			c.minObjectScore = score
		}
	}
}

// WithClock substitutes the time source used for cooldown arithmetic.
// Tests inject a manual clock for deterministic windows.
func WithClock(now func() time.Time) Option {
	return func(c *Context) {
		if now != nil {
			c.now = now
		}
	}
}
