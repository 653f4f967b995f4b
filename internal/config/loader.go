package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if GUARDIAN_CONFIG is set
//  3. env (prefix GUARDIAN_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("GUARDIAN_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: GUARDIAN_ADDR, GUARDIAN_MAX_WARNINGS, ...
	// Map env keys like GUARDIAN_MAX_WARNINGS -> max_warnings (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("GUARDIAN_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "guardian_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.CycleSeconds <= 0:
		return fmt.Errorf("%w: cycle_seconds must be positive", ErrInvalidConfig)
	case c.DebounceThreshold <= 0:
		return fmt.Errorf("%w: debounce_threshold must be positive", ErrInvalidConfig)
	case c.NoFaceGraceCycles < 0:
		return fmt.Errorf("%w: no_face_grace_cycles must not be negative", ErrInvalidConfig)
	case c.DecayStep < 0 || c.DecayStep > 1:
		return fmt.Errorf("%w: decay_step must be within [0,1]", ErrInvalidConfig)
	case c.DecayFloor <= 0 || c.DecayFloor > 1:
		return fmt.Errorf("%w: decay_floor must be within (0,1]", ErrInvalidConfig)
	case c.MaxWarnings <= 0:
		return fmt.Errorf("%w: max_warnings must be positive", ErrInvalidConfig)
	case c.SubmitRetries <= 0:
		return fmt.Errorf("%w: submit_retries must be positive", ErrInvalidConfig)
	case c.RiskLowMin <= c.RiskMediumMin || c.RiskMediumMin <= c.RiskHighMin:
		return fmt.Errorf("%w: risk bucket bounds must descend low > medium > high", ErrInvalidConfig)
	case c.AlertIntervalSeconds <= 0:
		return fmt.Errorf("%w: alert_interval_seconds must be positive", ErrInvalidConfig)
	}

	switch c.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("%w: postgres_url required for the postgres store backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	return nil
}
