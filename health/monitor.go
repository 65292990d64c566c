// Package health tracks the availability of a remote API.
//
// A Monitor caches the result of a liveness probe and refreshes it lazily:
// EnsureFresh probes only when the cached result is missing or older than
// the staleness window, and concurrent callers share a single in-flight
// probe. Probe failures of any kind are reported as unavailability, never
// as errors.
package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/kbukum/apikit/httpclient"
	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/observability"
)

// HealthyStatus is the only liveness status treated as available.
const HealthyStatus = "Healthy"

const probeKey = "probe"

// State is the probe lifecycle of a Monitor.
type State int

const (
	// StateUnknown means no probe has completed yet.
	StateUnknown State = iota
	// StateChecking means a probe is in flight.
	StateChecking
	// StateHealthy means the last probe reported the API healthy.
	StateHealthy
	// StateUnhealthy means the last probe failed or reported anything else.
	StateUnhealthy
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateChecking:
		return "checking"
	case StateHealthy:
		return "healthy"
	case StateUnhealthy:
		return "unhealthy"
	default:
		return "invalid"
	}
}

// Snapshot is a consistent view of a Monitor's cached state.
type Snapshot struct {
	State         State
	Available     bool
	LastCheckedAt time.Time
}

// liveness is the body served by the liveness path.
type liveness struct {
	Status string `json:"status"`
}

type observer struct {
	id uint64
	fn func(available bool)
}

// Monitor caches the availability of the API behind a client.
// It is safe for concurrent use.
type Monitor struct {
	section *httpclient.Section
	client  string
	config  Config
	log     *logger.Logger
	metrics *observability.Metrics
	now     func() time.Time
	flight  singleflight.Group

	mu            sync.Mutex
	state         State
	available     bool
	lastCheckedAt time.Time
	observers     []observer
	nextID        uint64
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithLogger sets the logger used for transitions and probe failures.
func WithLogger(l *logger.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

// WithMetrics records a probe counter by resulting state.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Monitor) { m.metrics = metrics }
}

// New creates a monitor that probes through client. The liveness path is
// sent without credentials.
func New(client *httpclient.Client, cfg Config, opts ...Option) (*Monitor, error) {
	if client == nil {
		return nil, errors.New("health: client is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Monitor{
		section: client.Section("health", cfg.Path),
		client:  client.Config().Name,
		config:  cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Get("health").WithFields(logger.Fields(logger.FieldClient, m.client))
	}
	return m, nil
}

// Config returns the effective configuration.
func (m *Monitor) Config() Config {
	return m.config
}

// EnsureFresh returns the cached state, probing first if there is no
// result yet or the last one is older than the staleness window.
//
// If ctx ends while a probe is in flight, EnsureFresh returns the current
// state without waiting; the probe itself keeps running and later callers
// observe its result.
func (m *Monitor) EnsureFresh(ctx context.Context) Snapshot {
	if snap, ok := m.fresh(); ok {
		return snap
	}
	return m.await(ctx, func() Snapshot {
		// A probe may have finished between the check above and joining.
		if snap, ok := m.fresh(); ok {
			return snap
		}
		return m.probe(ctx)
	})
}

// Refresh probes regardless of staleness. It joins a probe already in flight.
func (m *Monitor) Refresh(ctx context.Context) Snapshot {
	return m.await(ctx, func() Snapshot { return m.probe(ctx) })
}

func (m *Monitor) await(ctx context.Context, run func() Snapshot) Snapshot {
	ch := m.flight.DoChan(probeKey, func() (any, error) {
		return run(), nil
	})
	select {
	case res := <-ch:
		return res.Val.(Snapshot)
	case <-ctx.Done():
		return m.Status()
	}
}

// Status returns the cached state without probing.
func (m *Monitor) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// IsAvailable reports the cached availability without probing.
func (m *Monitor) IsAvailable() bool {
	return m.Status().Available
}

// LastCheckedAt returns the start time of the last probe, or the zero
// time if none has run.
func (m *Monitor) LastCheckedAt() time.Time {
	return m.Status().LastCheckedAt
}

// OnChange registers fn to be called whenever availability flips. The
// initial availability is false, so a first probe that fails does not
// notify. Observers run synchronously on the probing goroutine, in
// registration order; a panic in one is recovered and logged. The
// returned function removes fn.
func (m *Monitor) OnChange(fn func(available bool)) (unsubscribe func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.observers = append(m.observers, observer{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, o := range m.observers {
				if o.id == id {
					m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
					return
				}
			}
		})
	}
}

func (m *Monitor) snapshotLocked() Snapshot {
	return Snapshot{
		State:         m.state,
		Available:     m.available,
		LastCheckedAt: m.lastCheckedAt,
	}
}

// fresh reports whether a completed result exists within the window and
// no probe is in flight.
func (m *Monitor) fresh() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastCheckedAt.IsZero() || m.state == StateUnknown || m.state == StateChecking {
		return Snapshot{}, false
	}
	if m.now().Sub(m.lastCheckedAt) > m.config.StaleAfter {
		return Snapshot{}, false
	}
	return m.snapshotLocked(), true
}

// probe runs one liveness check and publishes its result. It must only
// run inside the flight group.
func (m *Monitor) probe(ctx context.Context) Snapshot {
	startedAt := m.now()

	m.mu.Lock()
	previous := m.state
	m.state = StateChecking
	m.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.ProbeTimeout)
	defer cancel()
	probeCtx, span := observability.StartSpan(probeCtx, observability.SpanHealthProbe)
	defer span.End()

	err := m.check(probeCtx)
	healthy := err == nil

	m.mu.Lock()
	wasAvailable := m.available
	m.available = healthy
	m.lastCheckedAt = startedAt
	if healthy {
		m.state = StateHealthy
	} else {
		m.state = StateUnhealthy
	}
	snap := m.snapshotLocked()
	var notify []observer
	if wasAvailable != healthy {
		notify = append(notify, m.observers...)
	}
	m.mu.Unlock()

	span.SetAttributes(
		attribute.String(observability.AttrClient, m.client),
		attribute.String(observability.AttrState, snap.State.String()),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	m.metrics.RecordProbe(probeCtx, m.client, snap.State.String())

	fields := logger.Fields(
		logger.FieldOperation, "probe "+m.config.Path,
		logger.FieldStatus, snap.State.String(),
		logger.FieldDuration, m.now().Sub(startedAt).Milliseconds(),
	)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		m.log.Warn("health probe failed", fields)
	}
	if previous != snap.State {
		m.log.Info("health state changed", logger.Fields(
			"from", previous.String(),
			"to", snap.State.String(),
		))
	}

	for _, o := range notify {
		m.notify(o, healthy)
	}
	return snap
}

// notify runs one observer. A panicking observer is logged and does not
// affect the others or the probe.
func (m *Monitor) notify(o observer, available bool) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("health observer panicked", logger.Fields(
				"observer", o.id,
				"panic", fmt.Sprint(r),
			))
		}
	}()
	o.fn(available)
}

// check performs the liveness request. Any failure, including a status
// other than HealthyStatus, is returned as an error.
func (m *Monitor) check(ctx context.Context) error {
	body, err := httpclient.Get[liveness](ctx, m.section, m.config.Path)
	if err != nil {
		return err
	}
	if body == nil {
		return errors.New("empty liveness response")
	}
	if body.Status != HealthyStatus {
		return fmt.Errorf("reported status %q", body.Status)
	}
	return nil
}
