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

	"github.com/kbukum/pipedata/logger"
	"github.com/kbukum/pipedata/pipeline"
)

// MeterConfig configures metric export.
type MeterConfig struct {
	Resource Resource
	// Endpoint is the OTLP HTTP collector, host:port.
	Endpoint string
	Insecure bool
	// Interval is how often metrics are pushed; 0 keeps the SDK default.
	Interval time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := config.Resource.build()
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
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

	logger.Info("Meter initialized", logger.Fields(
		logger.FieldJob, config.Resource.Job,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded for ingest runs.
type Metrics struct {
	runTotal     metric.Int64Counter
	runDuration  metric.Float64Histogram
	runActive    metric.Int64UpDownCounter
	stepInputs   metric.Int64Counter
	stepOutputs  metric.Int64Counter
	filesWritten metric.Int64Counter
	errorTotal   metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	runTotal, err := meter.Int64Counter("pipedata.run.total",
		metric.WithDescription("Total number of job runs by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipedata.run.total counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("pipedata.run.duration",
		metric.WithDescription("Duration of job runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipedata.run.duration histogram: %w", err)
	}

	runActive, err := meter.Int64UpDownCounter("pipedata.run.active",
		metric.WithDescription("Number of job runs in progress"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipedata.run.active gauge: %w", err)
	}

	stepInputs, err := meter.Int64Counter("pipedata.step.inputs",
		metric.WithDescription("Values consumed by each pipeline step"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipedata.step.inputs counter: %w", err)
	}

	stepOutputs, err := meter.Int64Counter("pipedata.step.outputs",
		metric.WithDescription("Values produced by each pipeline step"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipedata.step.outputs counter: %w", err)
	}

	filesWritten, err := meter.Int64Counter("pipedata.files.written",
		metric.WithDescription("Output files written"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipedata.files.written counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("pipedata.error.total",
		metric.WithDescription("Total errors by code and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipedata.error.total counter: %w", err)
	}

	return &Metrics{
		runTotal:     runTotal,
		runDuration:  runDuration,
		runActive:    runActive,
		stepInputs:   stepInputs,
		stepOutputs:  stepOutputs,
		filesWritten: filesWritten,
		errorTotal:   errorTotal,
	}, nil
}

// RecordRunStart increments the active run count.
func (m *Metrics) RecordRunStart(ctx context.Context, job string) {
	m.runActive.Add(ctx, 1, metric.WithAttributes(attribute.String("job", job)))
}

// RecordRun decrements active runs and records the finished run.
func (m *Metrics) RecordRun(ctx context.Context, job, status string, duration time.Duration) {
	jobAttr := attribute.String("job", job)
	m.runActive.Add(ctx, -1, metric.WithAttributes(jobAttr))
	m.runTotal.Add(ctx, 1, metric.WithAttributes(jobAttr, attribute.String("status", status)))
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(jobAttr))
}

// RecordReport adds the step counts of one run. Steps are keyed by position
// and name so repeated step names stay apart.
func (m *Metrics) RecordReport(ctx context.Context, job string, report pipeline.Report) {
	for i, sc := range report {
		attrs := metric.WithAttributes(
			attribute.String("job", job),
			attribute.String("step", sc.Name),
			attribute.Int("position", i),
		)
		m.stepInputs.Add(ctx, int64(sc.Inputs), attrs)
		m.stepOutputs.Add(ctx, int64(sc.Outputs), attrs)
	}
}

// RecordFiles counts output files written by a run.
func (m *Metrics) RecordFiles(ctx context.Context, job string, n int) {
	m.filesWritten.Add(ctx, int64(n), metric.WithAttributes(attribute.String("job", job)))
}

// RecordError records an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
