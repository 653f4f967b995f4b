// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load() layers file and env over it.
// - All blocking functions accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CycleSeconds is the detection cycle period driving sample evaluation.
	CycleSeconds int `koanf:"cycle_seconds"`

	// SampleTTLSeconds bounds how old the latest sample may be before the
	// camera stream counts as lost.
	SampleTTLSeconds int `koanf:"sample_ttl_seconds"`

	// DebounceThreshold is the consecutive-cycle count required before a
	// camera condition is confirmed.
	DebounceThreshold int `koanf:"debounce_threshold"`

	// NoFaceGraceCycles is added to the threshold for the no-face condition
	// to absorb brief occlusions and camera glitches.
	NoFaceGraceCycles int `koanf:"no_face_grace_cycles"`

	// CooldownSeconds maps a condition name to its post-confirmation
	// cooldown. Conditions absent from the map use DefaultCooldownSeconds.
	CooldownSeconds map[string]int `koanf:"cooldown_seconds"`

	// DefaultCooldownSeconds applies to conditions without an explicit entry.
	DefaultCooldownSeconds int `koanf:"default_cooldown_seconds"`

	// PenaltyWeights maps violation kinds to base penalty points.
	// Kinds absent from the map fall back to the built-in table.
	PenaltyWeights map[string]float64 `koanf:"penalty_weights"`

	// DecayStep is the per-repetition penalty reduction.
	DecayStep float64 `koanf:"decay_step"`

	// DecayFloor is the minimum fraction of the base penalty a repetition
	// can cost.
	DecayFloor float64 `koanf:"decay_floor"`

	// ReviewThreshold flags sessions finalized below this score.
	ReviewThreshold int `koanf:"review_threshold"`

	// MaxWarnings forces submission once a session accumulates this many
	// warnings.
	MaxWarnings int `koanf:"max_warnings"`

	// DefaultDurationMinutes applies when session creation omits a duration.
	DefaultDurationMinutes int `koanf:"default_duration_minutes"`

	// SubmitRetries bounds terminal-write attempts per submission trigger.
	SubmitRetries int `koanf:"submit_retries"`

	// SubmitRetryDelayMS is the linear backoff unit between terminal-write
	// attempts.
	SubmitRetryDelayMS int `koanf:"submit_retry_delay_ms"`

	// SnapshotEveryCycles controls how often a frame-reference snapshot is
	// stored for observers (0 disables).
	SnapshotEveryCycles int `koanf:"snapshot_every_cycles"`

	// Risk bucket lower bounds (score >= bound).
	RiskLowMin    int `koanf:"risk_low_min"`
	RiskMediumMin int `koanf:"risk_medium_min"`
	RiskHighMin   int `koanf:"risk_high_min"`

	// RecentEventLimit caps per-session recent event messages in live views.
	RecentEventLimit int `koanf:"recent_event_limit"`

	// AlertIntervalSeconds rate-limits critical alerts to one per interval.
	AlertIntervalSeconds int `koanf:"alert_interval_seconds"`

	// NotifyQueueSize bounds the pending-notification queue.
	NotifyQueueSize int `koanf:"notify_queue_size"`

	// EventWriterCount sets the number of async violation-event writers.
	EventWriterCount int `koanf:"event_writer_count"`

	// DedupeSize sets the size of the sample idempotence cache.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreBackend selects the persistent store: memory or postgres.
	StoreBackend string `koanf:"store_backend"`

	// PostgresURL is the DSN used when StoreBackend is postgres.
	PostgresURL string `koanf:"postgres_url"`

	// RedisAddr enables the Redis presence tracker when non-empty.
	RedisAddr string `koanf:"redis_addr"`

	// PresenceTTLSeconds is the liveness window for the online flag.
	PresenceTTLSeconds int `koanf:"presence_ttl_seconds"`

	// AnalysisURL enables the post-submission document analysis client when
	// non-empty.
	AnalysisURL string `koanf:"analysis_url"`

	// AnalysisTimeoutMS bounds a single analysis round trip.
	AnalysisTimeoutMS int `koanf:"analysis_timeout_ms"`
}

// Store backend names accepted by Validate.
const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
)

// New creates a Config populated with production defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		CycleSeconds:           7,
		SampleTTLSeconds:       15,
		DebounceThreshold:      3,
		NoFaceGraceCycles:      3,
		CooldownSeconds:        map[string]int{},
		DefaultCooldownSeconds: 30,
		PenaltyWeights:         map[string]float64{},
		DecayStep:              0.15,
		DecayFloor:             0.5,
		ReviewThreshold:        50,
		MaxWarnings:            5,
		DefaultDurationMinutes: 60,
		SubmitRetries:          3,
		SubmitRetryDelayMS:     500,
		SnapshotEveryCycles:    4,
		RiskLowMin:             85,
		RiskMediumMin:          65,
		RiskHighMin:            40,
		RecentEventLimit:       5,
		AlertIntervalSeconds:   10,
		NotifyQueueSize:        4096,
		EventWriterCount:       runtime.NumCPU() * 2,
		DedupeSize:             100_000,
		StoreBackend:           StoreBackendMemory,
		PostgresURL:            "",
		RedisAddr:              "",
		PresenceTTLSeconds:     30,
		AnalysisURL:            "",
		AnalysisTimeoutMS:      5000,
	}
}
