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

	"github.com/skillsenselab/livescribe/logger"
)

// MeterConfig carries the OTLP metric exporter settings.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g. "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is how often accumulated metrics are pushed.
	Interval time.Duration
}

// InitMeter builds an OTLP-exporting meter provider and installs it as
// the otel global. The returned provider should be shut down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	res, err := serviceResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("metrics enabled", logger.Fields(
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider. Before Setup
// runs (or when observability is disabled) the global provider is a
// noop, so instruments created here record nothing.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// instrumentBuilder creates instruments while collecting the first
// error, so constructors can assemble a struct in one expression.
type instrumentBuilder struct {
	meter metric.Meter
	err   error
}

func (b *instrumentBuilder) counter(name, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc))
	b.record(name, err)
	return c
}

func (b *instrumentBuilder) updown(name, desc string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	b.record(name, err)
	return c
}

func (b *instrumentBuilder) seconds(name, desc string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	b.record(name, err)
	return h
}

func (b *instrumentBuilder) record(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("instrument %s: %w", name, err)
	}
}

// Metrics holds the HTTP request instruments. A nil *Metrics is valid
// and records nothing, so handlers never guard their calls.
type Metrics struct {
	requestTotal      metric.Int64Counter
	requestDuration   metric.Float64Histogram
	requestActive     metric.Int64UpDownCounter
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	errorTotal        metric.Int64Counter
}

// NewMetrics creates the request-level instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	b := &instrumentBuilder{meter: meter}
	m := &Metrics{
		requestTotal:      b.counter("http.request.total", "HTTP requests served"),
		requestDuration:   b.seconds("http.request.duration", "HTTP request latency"),
		requestActive:     b.updown("http.request.active", "HTTP requests in flight"),
		operationTotal:    b.counter("speech.operation.total", "Speech operations by status"),
		operationDuration: b.seconds("speech.operation.duration", "Speech operation latency"),
		errorTotal:        b.counter("service.errors", "Errors by type and component"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// RecordRequestStart marks a request entering the handler stack.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements active requests and records the completed
// request under its method, route, and status.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}

// RecordOperation records one execution of a named operation.
func (m *Metrics) RecordOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordError counts an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
