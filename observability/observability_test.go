package observability

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/pipeline"
)

func TestConfigDefaultsAndValidate(t *testing.T) {
	var cfg Config
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled config should validate: %v", err)
	}

	cfg = Config{Enabled: true}
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.SampleRate != 1.0 || cfg.MetricInterval != 15*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.SampleRate = 2
	if err := cfg.Validate(); !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
		t.Fatalf("expected INVALID_CONFIG, got %v", err)
	}

	c := &Config{Endpoint: "collector:4318", Environment: "prod", SampleRate: 0.5, MetricInterval: time.Minute}
	tc := c.TracerConfig(Resource{Service: "svc", Version: "v1", Job: "orders"})
	if tc.Resource.Service != "svc" || tc.Resource.Environment != "prod" || tc.Endpoint != "collector:4318" || tc.SampleRate != 0.5 {
		t.Fatalf("unexpected tracer config: %+v", tc)
	}
	mc := c.MeterConfig(Resource{Service: "svc", Environment: "staging"})
	if mc.Resource.Environment != "staging" || mc.Interval != time.Minute {
		t.Fatalf("unexpected meter config: %+v", mc)
	}
}

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{}, testResource)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitEnabled(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	}()

	shutdown, err := Init(context.Background(), Config{Enabled: true, Insecure: true}, testResource)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	// No collector is listening; flushing may fail but must return.
	_ = shutdown(ctx)
}

var testResource = Resource{Service: "pipedata", Version: "v1", Job: "orders"}

func TestResourceAttributes(t *testing.T) {
	res, err := Resource{Service: "pipedata", Version: "v1.2.0", Environment: "prod", Job: "orders"}.build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	attrs := res.Set()
	for key, want := range map[attribute.Key]string{
		"service.name":                "pipedata",
		"service.version":             "v1.2.0",
		"deployment.environment.name": "prod",
		AttrJob:                       "orders",
	} {
		if v, ok := attrs.Value(key); !ok || v.AsString() != want {
			t.Errorf("%s = %q, want %q", key, v.AsString(), want)
		}
	}

	res, err = Resource{Service: "pipedata"}.build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := res.Set().Value(AttrJob); ok {
		t.Error("job attribute set without a job")
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "ParentBased{root:AlwaysOnSampler"},
		{2, "ParentBased{root:AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.5, "ParentBased{root:TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		if got := sampler(tt.rate).Description(); !strings.HasPrefix(got, tt.want) {
			t.Errorf("sampler(%v) = %s, want prefix %s", tt.rate, got, tt.want)
		}
	}
}

func TestNewMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	metrics, err := NewMetrics(meter)
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}

	ctx := context.Background()
	metrics.RecordRunStart(ctx, "job")
	metrics.RecordRun(ctx, "job", "success", 100*time.Millisecond)
	metrics.RecordFiles(ctx, "job", 2)
	metrics.RecordError(ctx, "INVALID_INPUT", "records")
}

// sums collects every int64 sum data point by metric name and step attribute.
func sums(t *testing.T, reader *sdkmetric.ManualReader) map[string]map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			points := make(map[string]int64)
			for _, dp := range sum.DataPoints {
				key := ""
				if v, ok := dp.Attributes.Value(attribute.Key("step")); ok {
					key = v.AsString()
				} else if v, ok := dp.Attributes.Value(attribute.Key("status")); ok {
					key = v.AsString()
				}
				points[key] += dp.Value
			}
			out[m.Name] = points
		}
	}
	return out
}

func TestMetricsRecordReport(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	report := pipeline.Report{
		{Name: "identity", Inputs: 2, Outputs: 2},
		{Name: "zipped", Inputs: 2, Outputs: 6},
		{Name: "csv", Inputs: 6, Outputs: 120},
	}
	metrics.RecordReport(ctx, "daily", report)
	metrics.RecordReport(ctx, "daily", report)

	got := sums(t, reader)
	if got["pipedata.step.inputs"]["csv"] != 12 {
		t.Errorf("csv inputs = %d, want 12", got["pipedata.step.inputs"]["csv"])
	}
	if got["pipedata.step.outputs"]["csv"] != 240 {
		t.Errorf("csv outputs = %d, want 240", got["pipedata.step.outputs"]["csv"])
	}
	if got["pipedata.step.outputs"]["zipped"] != 12 {
		t.Errorf("zipped outputs = %d, want 12", got["pipedata.step.outputs"]["zipped"])
	}
}

func TestRunContext(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	metrics, _ := NewMetrics(mp.Meter("test"))

	rc := NewRunContext("daily", "run-1", metrics)
	ctx, span := rc.StartSpan(context.Background(), SpanRun)
	if RunContextFromContext(ctx) != rc {
		t.Fatal("expected run context in span context")
	}
	rc.End(ctx, span, "failed", fmt.Errorf("boom"))

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != SpanRun {
		t.Fatalf("spans = %v", spans)
	}
	attrs := attribute.NewSet(spans[0].Attributes...)
	if v, _ := attrs.Value(AttrJob); v.AsString() != "daily" {
		t.Errorf("job attribute = %v", v)
	}
	if v, _ := attrs.Value(AttrStatus); v.AsString() != "failed" {
		t.Errorf("status attribute = %v", v)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected recorded error event")
	}
	if spans[0].Status.Code != codes.Error || spans[0].Status.Description != "boom" {
		t.Errorf("span status = %+v", spans[0].Status)
	}

	got := sums(t, reader)
	if got["pipedata.run.total"]["failed"] != 1 {
		t.Errorf("run total = %v", got["pipedata.run.total"])
	}
	if got["pipedata.run.active"][""] != 0 {
		t.Errorf("active runs = %v", got["pipedata.run.active"])
	}
}

func TestRunContextFromContext_NotSet(t *testing.T) {
	if RunContextFromContext(context.Background()) != nil {
		t.Error("expected nil when run context not set")
	}
}

func TestRunContext_NilMetrics(t *testing.T) {
	rc := NewRunContext("daily", "run-1", nil)
	rc.StartTime = time.Now().Add(-50 * time.Millisecond)
	if d := rc.Duration(); d < 45*time.Millisecond {
		t.Errorf("expected duration around 50ms, got %v", d)
	}
	ctx, span := rc.StartSpan(context.Background(), SpanRun)
	rc.End(ctx, span, "success", nil)
}

func TestCheckAndServiceHealth(t *testing.T) {
	ctx := context.Background()
	sh := NewServiceHealth("pipedata", "1.0.0")
	if sh.Status != HealthStatusUp {
		t.Fatalf("expected up, got %s", sh.Status)
	}

	sh.AddComponent(Check(ctx, "storage", func(context.Context) error { return nil }))
	if sh.Status != HealthStatusUp {
		t.Fatalf("expected up, got %s", sh.Status)
	}

	sh.AddComponent(Check(ctx, "redis", func(context.Context) error { return fmt.Errorf("connection refused") }))
	if sh.Status != HealthStatusDown {
		t.Fatalf("expected down, got %s", sh.Status)
	}
	if sh.Components[1].Message != "connection refused" {
		t.Errorf("message = %q", sh.Components[1].Message)
	}

	sh.AddComponent(Health{Name: "telemetry", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDown {
		t.Errorf("expected 'down' not overridden by 'degraded', got %s", sh.Status)
	}
}

func TestSetSpanAttribute(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, span := StartSpan(context.Background(), "test-attrs")
	SetSpanAttribute(ctx, "string-key", "value")
	SetSpanAttribute(ctx, "int-key", 42)
	SetSpanAttribute(ctx, "int64-key", int64(100))
	SetSpanAttribute(ctx, "float-key", 3.14)
	SetSpanAttribute(ctx, "bool-key", true)
	SetSpanAttribute(ctx, "string-slice-key", []string{"a", "b"})
	SetSpanAttribute(ctx, "unsupported-key", struct{}{})
	SetSpanError(ctx, fmt.Errorf("test error"))
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if n := len(spans[0].Attributes); n != 6 {
		t.Errorf("expected 6 attributes, got %d", n)
	}
}

func TestSpanHelpersWithoutSpan(t *testing.T) {
	ctx := context.Background()
	SetSpanAttribute(ctx, "key", "value")
	SetSpanError(ctx, fmt.Errorf("no span error"))
	if SpanFromContext(ctx) == nil {
		t.Fatal("expected non-nil span (noop)")
	}
}

func TestInitTracerSamplingRates(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	for _, rate := range []float64{1.0, 0.0, 0.5} {
		t.Run(fmt.Sprint(rate), func(t *testing.T) {
			tp, err := InitTracer(context.Background(), &TracerConfig{
				Resource:   testResource,
				Endpoint:   "localhost:4318",
				Insecure:   true,
				SampleRate: rate,
			})
			if err != nil {
				t.Fatalf("InitTracer failed: %v", err)
			}
			tp.Shutdown(context.Background()) //nolint:errcheck
		})
	}
}

func TestInitMeter(t *testing.T) {
	prev := otel.GetMeterProvider()
	defer otel.SetMeterProvider(prev)

	mp, err := InitMeter(context.Background(), &MeterConfig{
		Resource: testResource,
		Endpoint: "localhost:4318",
		Insecure: true,
		Interval: time.Second,
	})
	if err != nil {
		t.Fatalf("InitMeter failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = mp.Shutdown(ctx)
}
