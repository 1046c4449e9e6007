package observability

import (
	"context"
	"fmt"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config drives the OTLP exporter bootstrap.
type Config struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
	// MetricInterval is the export interval for metrics.
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval"`
	// SampleRate is the trace sampling ratio in (0, 1]. Zero is treated
	// as unset; disable tracing with Enabled instead.
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// ApplyDefaults sets development-friendly defaults for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.MetricInterval == 0 {
		c.MetricInterval = 15 * time.Second
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate must be in [0, 1] (got: %v)", c.SampleRate)
	}
	if c.MetricInterval < 0 {
		return fmt.Errorf("observability.metric_interval must be non-negative (got: %v)", c.MetricInterval)
	}
	return nil
}

// Providers holds the initialized OpenTelemetry providers.
type Providers struct {
	meter  *sdkmetric.MeterProvider
	tracer *sdktrace.TracerProvider
}

// Setup initializes the meter and tracer providers from cfg. When
// observability is disabled it returns empty Providers whose Shutdown
// is a no-op; the global otel providers then stay no-ops as well.
func Setup(ctx context.Context, cfg Config, service, version, environment string) (*Providers, error) {
	if !cfg.Enabled {
		return &Providers{}, nil
	}

	mp, err := InitMeter(ctx, MeterConfig{
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    environment,
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
		Interval:       cfg.MetricInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init meter: %w", err)
	}

	tp, err := InitTracer(ctx, TracerConfig{
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    environment,
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
		SampleRate:     cfg.SampleRate,
	})
	if err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mp.Shutdown(shutdownCtx)
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	return &Providers{meter: mp, tracer: tp}, nil
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	var firstErr error
	if p.tracer != nil {
		if err := p.tracer.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if p.meter != nil {
		if err := p.meter.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
