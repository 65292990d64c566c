package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/apikit/logger"
)

// Metric names.
const (
	MetricRequests        = "apikit.client.requests"
	MetricRequestDuration = "apikit.client.request.duration"
	MetricRequestsActive  = "apikit.client.requests.active"
	MetricHealthProbes    = "apikit.health.probes"
)

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
// The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	cfg.ApplyDefaults()

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Metrics holds the instruments recorded by API clients and health
// monitors. A nil *Metrics records nothing.
type Metrics struct {
	requests        metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestsActive  metric.Int64UpDownCounter
	probes          metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requests, err := meter.Int64Counter(MetricRequests,
		metric.WithDescription("Completed API requests by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", MetricRequests, err)
	}
	requestDuration, err := meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("Duration of API requests until the response was classified"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", MetricRequestDuration, err)
	}
	requestsActive, err := meter.Int64UpDownCounter(MetricRequestsActive,
		metric.WithDescription("API requests in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", MetricRequestsActive, err)
	}
	probes, err := meter.Int64Counter(MetricHealthProbes,
		metric.WithDescription("Health probes by resulting state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", MetricHealthProbes, err)
	}

	return &Metrics{
		requests:        requests,
		requestDuration: requestDuration,
		requestsActive:  requestsActive,
		probes:          probes,
	}, nil
}

// NewGlobalMetrics creates the instruments on apikit's meter from the
// global provider.
func NewGlobalMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(TracerName))
}

// RecordRequestStart counts a request as in flight.
func (m *Metrics) RecordRequestStart(ctx context.Context, client string) {
	if m == nil {
		return
	}
	m.requestsActive.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrClient, client)))
}

// RecordRequestEnd records a finished request. status is the HTTP status
// or the client error class.
func (m *Metrics) RecordRequestEnd(ctx context.Context, client, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	clientAttr := attribute.String(AttrClient, client)
	m.requestsActive.Add(ctx, -1, metric.WithAttributes(clientAttr))
	m.requests.Add(ctx, 1, metric.WithAttributes(
		clientAttr,
		attribute.String("http.method", method),
		attribute.String("status", status),
	))
	m.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		clientAttr,
		attribute.String("http.method", method),
	))
}

// RecordProbe records a completed health probe.
func (m *Metrics) RecordProbe(ctx context.Context, client, state string) {
	if m == nil {
		return
	}
	m.probes.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrClient, client),
		attribute.String(AttrState, state),
	))
}
