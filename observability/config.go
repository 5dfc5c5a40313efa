package observability

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/kbukum/pipedata/errors"
)

// Config is the telemetry section of the application config.
type Config struct {
	// Enabled turns on OTLP export of traces and metrics.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Environment is the deployment environment (dev, staging, prod).
	Environment string `yaml:"environment" mapstructure:"environment"`
	// SampleRate is the trace sampling ratio. 0 means 1.0; a negative rate
	// samples nothing.
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
	// MetricInterval is how often metrics are exported.
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricInterval == 0 {
		c.MetricInterval = 15 * time.Second
	}
}

// Validate checks the config when telemetry is enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return errors.MissingField("telemetry.endpoint")
	}
	if c.SampleRate > 1 {
		return errors.InvalidConfig("telemetry.sample_rate", "must be at most 1.0")
	}
	if c.MetricInterval < 0 {
		return errors.InvalidConfig("telemetry.metric_interval", "must not be negative")
	}
	return nil
}

// resource fills the environment of res from the config when unset.
func (c *Config) resource(res Resource) Resource {
	if res.Environment == "" {
		res.Environment = c.Environment
	}
	return res
}

// TracerConfig derives the tracer settings for res.
func (c *Config) TracerConfig(res Resource) *TracerConfig {
	return &TracerConfig{
		Resource:   c.resource(res),
		Endpoint:   c.Endpoint,
		Insecure:   c.Insecure,
		SampleRate: c.SampleRate,
	}
}

// MeterConfig derives the meter settings for res.
func (c *Config) MeterConfig(res Resource) *MeterConfig {
	return &MeterConfig{
		Resource: c.resource(res),
		Endpoint: c.Endpoint,
		Insecure: c.Insecure,
		Interval: c.MetricInterval,
	}
}

// ShutdownFunc flushes and stops the telemetry providers.
type ShutdownFunc func(context.Context) error

// Init installs the global tracer and meter providers. When telemetry is
// disabled it does nothing and returns a no-op shutdown.
func Init(ctx context.Context, cfg Config, res Resource) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tp, err := InitTracer(ctx, cfg.TracerConfig(res))
	if err != nil {
		return nil, err
	}
	mp, err := InitMeter(ctx, cfg.MeterConfig(res))
	if err != nil {
		tp.Shutdown(ctx) //nolint:errcheck
		return nil, err
	}
	return func(ctx context.Context) error {
		return stderrors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
