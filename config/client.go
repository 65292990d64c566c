package config

import (
	"fmt"

	"github.com/kbukum/apikit/health"
	"github.com/kbukum/apikit/httpclient"
	"github.com/kbukum/apikit/observability"
)

// ClientConfig is the configuration of an application that talks to one
// API: the client, its health monitor and telemetry export.
//
//	name: billing-worker
//	api:
//	  base_url: https://billing.example.com
//	  timeout: 10s
//	health:
//	  stale_after: 5m
type ClientConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	API           httpclient.Config    `yaml:"api" mapstructure:"api"`
	Health        health.Config        `yaml:"health" mapstructure:"health"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults applies defaults to every section. The service name is
// used as the client name and telemetry service name when those are unset.
func (c *ClientConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.API.Name == "" {
		c.API.Name = c.Name
	}
	c.API.ApplyDefaults()
	c.Health.ApplyDefaults()
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.ServiceVersion == "" {
		c.Observability.ServiceVersion = c.Version
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
}

// Validate validates every section.
func (c *ClientConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("config.api: %w", err)
	}
	if err := c.Health.Validate(); err != nil {
		return fmt.Errorf("config.health: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("config.observability: %w", err)
	}
	return nil
}

// LoadClient loads, defaults and validates a ClientConfig for the named
// application.
func LoadClient(name string, opts ...LoaderOption) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := LoadConfig(name, &cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
