package health

import (
	"context"

	"github.com/kbukum/apikit/component"
)

// Component exposes a Monitor to an application's component registry.
// Start runs the first probe; Health refreshes lazily.
type Component struct {
	name    string
	monitor *Monitor
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent wraps m under the given component name.
func NewComponent(name string, m *Monitor) *Component {
	if name == "" {
		name = "api-health"
	}
	return &Component{name: name, monitor: m}
}

// Name returns the component name.
func (c *Component) Name() string { return c.name }

// Start probes the API once. An unavailable API does not fail startup.
func (c *Component) Start(ctx context.Context) error {
	c.monitor.EnsureFresh(ctx)
	return nil
}

// Stop is a no-op; the monitor holds no resources of its own.
func (c *Component) Stop(context.Context) error { return nil }

// Health maps the monitor state to a component status.
func (c *Component) Health(ctx context.Context) component.Health {
	snap := c.monitor.EnsureFresh(ctx)
	h := component.Health{Name: c.name, Message: snap.State.String()}
	switch snap.State {
	case StateHealthy:
		h.Status = component.StatusHealthy
	case StateUnhealthy:
		h.Status = component.StatusUnhealthy
	default:
		h.Status = component.StatusDegraded
	}
	return h
}

// Describe returns a one-line summary of the component.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    c.name,
		Type:    "health-monitor",
		Details: c.monitor.config.Path + " every " + c.monitor.config.StaleAfter.String(),
	}
}

// Monitor returns the wrapped monitor.
func (c *Component) Monitor() *Monitor { return c.monitor }
