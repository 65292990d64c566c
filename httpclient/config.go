package httpclient

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/apikit/validation"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultRequestIDHeader = "X-Request-Id"
	defaultClientIDHeader  = "X-Client-Id"
)

// Config configures the API client. It is loaded as part of a service
// config (see config.LoadConfig) and treated as opaque by the dispatcher.
type Config struct {
	// Name identifies the client in logs, spans and component summaries.
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is the base URL prepended to all request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout bounds non-streaming requests. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// ClientID is sent on every request. A random one is generated when empty.
	ClientID string `yaml:"client_id" mapstructure:"client_id"`

	// ClientIDHeader names the header carrying ClientID. Defaults to X-Client-Id.
	ClientIDHeader string `yaml:"client_id_header" mapstructure:"client_id_header"`

	// RequestIDHeader names the per-request id header. Defaults to X-Request-Id.
	RequestIDHeader string `yaml:"request_id_header" mapstructure:"request_id_header"`

	// TLS configures TLS settings for the HTTP transport.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// HTTP2 forces HTTP/2 negotiation on the default transport.
	HTTP2 bool `yaml:"http2" mapstructure:"http2"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "api"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.ClientID == "" {
		c.ClientID = uuid.NewString()
	}
	if c.ClientIDHeader == "" {
		c.ClientIDHeader = defaultClientIDHeader
	}
	if c.RequestIDHeader == "" {
		c.RequestIDHeader = defaultRequestIDHeader
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("httpclient: %w", err)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return err
		}
	}
	return nil
}
