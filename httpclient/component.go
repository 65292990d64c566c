package httpclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/apikit/component"
)

// Component wraps a Client with lifecycle management so it can be started
// and stopped alongside the other parts of an application.
type Component struct {
	config Config
	opts   []Option

	mu     sync.RWMutex
	client *Client
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a client component. The client is built in Start.
func NewComponent(cfg Config, opts ...Option) *Component {
	return &Component{config: cfg, opts: opts}
}

// Name returns the component name.
func (c *Component) Name() string {
	if c.config.Name == "" {
		return "api"
	}
	return c.config.Name
}

// Start builds the client.
func (c *Component) Start(_ context.Context) error {
	cl, err := New(c.config, c.opts...)
	if err != nil {
		return fmt.Errorf("start %s: %w", c.Name(), err)
	}
	c.mu.Lock()
	c.client = cl
	c.mu.Unlock()
	return nil
}

// Stop releases idle connections.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	cl := c.client
	c.client = nil
	c.mu.Unlock()
	if cl == nil {
		return nil
	}
	return cl.Close(ctx)
}

// Health reports whether the client has been started. Remote availability
// is tracked separately by a health monitor.
func (c *Component) Health(_ context.Context) component.Health {
	if c.Client() == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns a one-line summary of the component.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    c.Name(),
		Type:    "http-client",
		Details: c.config.BaseURL,
	}
}

// Client returns the started client, or nil before Start.
func (c *Component) Client() *Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}
