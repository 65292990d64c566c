package observability

import (
	"time"

	"github.com/kbukum/apikit/validation"
)

// Config configures the OTLP/HTTP trace and metric exporters an
// application installs before creating API clients.
type Config struct {
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	Environment    string `yaml:"environment" mapstructure:"environment"`

	// Endpoint is the OTLP HTTP collector host:port.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`

	// SampleRate is the trace sampling ratio between 0 and 1.
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"min=0,max=1"`

	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// ApplyDefaults fills in zero-value fields for a local collector.
func (c *Config) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "apikit"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
}

// Validate checks the sampling ratio.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
