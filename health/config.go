package health

import (
	"fmt"
	"time"

	"github.com/kbukum/apikit/validation"
)

const (
	// DefaultPath is the liveness path probed when none is configured.
	DefaultPath = "/health"
	// DefaultStaleAfter is how long a probe result stays fresh.
	DefaultStaleAfter = 30 * time.Minute
	// DefaultProbeTimeout bounds a single probe.
	DefaultProbeTimeout = 10 * time.Second
)

// Config configures a Monitor.
type Config struct {
	// Path is the liveness path, relative to the client's base URL.
	Path string `yaml:"path" mapstructure:"path" validate:"omitempty,startswith=/"`

	// StaleAfter is the maximum age of a cached result before EnsureFresh probes again.
	StaleAfter time.Duration `yaml:"stale_after" mapstructure:"stale_after"`

	// ProbeTimeout bounds each probe independently of the callers waiting on it.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	if c.StaleAfter <= 0 {
		return fmt.Errorf("health: stale_after must be positive")
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("health: probe_timeout must be positive")
	}
	return nil
}
