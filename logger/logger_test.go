package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// newBuffered returns a JSON logger writing into a buffer.
func newBuffered(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: level, Format: "json"}, "test-svc", &buf)
	return l, &buf
}

// lastEntry decodes the last JSON line written to buf.
func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	l, buf := newBuffered(t, "info")
	l.Info("archive opened", Fields(FieldArchive, "raw/a.zip", FieldRows, 3))

	entry := lastEntry(t, buf)
	if entry["message"] != "archive opened" {
		t.Errorf("unexpected message: %v", entry["message"])
	}
	if entry[FieldArchive] != "raw/a.zip" {
		t.Errorf("expected archive field, got %v", entry[FieldArchive])
	}
	if entry["service"] != "test-svc" {
		t.Errorf("expected service field, got %v", entry["service"])
	}
}

func TestNewWithWriter_LevelFilters(t *testing.T) {
	l, buf := newBuffered(t, "warn")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn to be written, got %q", buf.String())
	}
}

func TestNewInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "invalid-level", Format: "json"}, "test", &buf)
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected fallback to info level, got %q", buf.String())
	}
}

func TestScopedLoggers(t *testing.T) {
	l, buf := newBuffered(t, "info")
	l.WithComponent("files").WithRun("run-1").WithStep("parse").Info("pulled")

	entry := lastEntry(t, buf)
	for key, want := range map[string]string{FieldComponent: "files", FieldRunID: "run-1", FieldStep: "parse"} {
		if entry[key] != want {
			t.Errorf("expected %s=%s, got %v", key, want, entry[key])
		}
	}
}

func TestWithFieldsAndError(t *testing.T) {
	l, buf := newBuffered(t, "info")
	l.WithFields(map[string]interface{}{"key": "value"}).WithError(errors.New("boom")).Error("failed")

	entry := lastEntry(t, buf)
	if entry["key"] != "value" || entry["error"] != "boom" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestWithContext_Span(t *testing.T) {
	l, buf := newBuffered(t, "info")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l.WithContext(ctx).Info("traced")
	entry := lastEntry(t, buf)
	if entry[FieldTraceID] != sc.TraceID().String() {
		t.Errorf("expected trace id, got %v", entry[FieldTraceID])
	}
	if entry[FieldSpanID] != sc.SpanID().String() {
		t.Errorf("expected span id, got %v", entry[FieldSpanID])
	}
}

func TestWithContext_NoSpan(t *testing.T) {
	l := NewDefault("test")
	if got := l.WithContext(context.Background()); got != l {
		t.Error("expected the same logger without an active span")
	}
}

func TestNop(t *testing.T) {
	Nop().Error("discarded")
}

func TestInit(t *testing.T) {
	Init(Config{Level: "info", Format: "json"}, "init-svc")
	gl := GetGlobalLogger()
	if gl == nil || gl.service != "init-svc" {
		t.Fatalf("expected global logger for init-svc, got %+v", gl)
	}
}

func TestGetGlobalLoggerDefault(t *testing.T) {
	globalLogger = nil
	if l := GetGlobalLogger(); l == nil || l.service != "pipedata" {
		t.Fatal("expected default global logger to be created")
	}
}

func TestSetGlobalLogger(t *testing.T) {
	l := NewDefault("custom")
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Error("expected SetGlobalLogger to set the global logger")
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	Init(Config{Level: "debug", Format: "console", NoColor: true}, "test")
	// These should not panic
	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	Error("error msg")
	WithComponent("ingest").Info("component msg")
}

func TestConsoleLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "test-svc", &buf)
	l.Info("hello", Fields(FieldRows, 3))

	out := buf.String()
	if !strings.Contains(out, "[INF]") || !strings.Contains(out, "hello") || !strings.Contains(out, "rows:") {
		t.Errorf("unexpected console output %q", out)
	}
	if strings.Contains(out, "service:") {
		t.Errorf("service field should be hidden in console output, got %q", out)
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json", Output: "stdout"}, false},
		{"valid console", Config{Level: "debug", Format: "console", Output: "stderr"}, false},
		{"invalid level", Config{Level: "bad", Format: "json", Output: "stdout"}, true},
		{"invalid format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"invalid output", Config{Level: "info", Format: "json", Output: "file"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegisterAndGet(t *testing.T) {
	t.Cleanup(Reset)
	l := NewDefault("custom-component")
	Register("my-component", l)

	if got := Get("my-component"); got != l {
		t.Error("expected Get to return the registered logger")
	}
}

func TestGetUnregistered(t *testing.T) {
	if got := Get("unregistered-component"); got == nil {
		t.Fatal("expected non-nil logger for unregistered component")
	}
}

func TestRegisterDefaults(t *testing.T) {
	t.Cleanup(Reset)
	base, buf := newBuffered(t, "info")
	RegisterDefaults(base.WithFields(Fields("version", "v1.2.0")))

	for _, name := range DefaultComponents {
		Get(name).Info("hello")
		entry := lastEntry(t, buf)
		if entry[FieldComponent] != name || entry["version"] != "v1.2.0" {
			t.Errorf("%s: unexpected entry %v", name, entry)
		}
	}
}

func TestRegisterDefaultsNamed(t *testing.T) {
	t.Cleanup(Reset)
	base, buf := newBuffered(t, "info")
	RegisterDefaults(base, ComponentFiles)

	Get(ComponentFiles).Info("registered")
	if entry := lastEntry(t, buf); entry[FieldComponent] != ComponentFiles {
		t.Errorf("unexpected entry %v", entry)
	}
	buf.Reset()
	Get(ComponentRecords).Info("global")
	if buf.Len() != 0 {
		t.Errorf("unregistered component wrote to the registered base: %s", buf.String())
	}
}

func TestReset(t *testing.T) {
	l := NewDefault("x")
	Register(ComponentColumnar, l)
	Reset()
	if Get(ComponentColumnar) == l {
		t.Error("expected Reset to drop registered loggers")
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name string
		kvs  []interface{}
		want map[string]interface{}
	}{
		{"pairs", []interface{}{"a", 1, "b", "x"}, map[string]interface{}{"a": 1, "b": "x"}},
		{"odd trailing key dropped", []interface{}{"a", 1, "b"}, map[string]interface{}{"a": 1}},
		{"non-string key skipped", []interface{}{1, "x", "b", 2}, map[string]interface{}{"b": 2}},
		{"empty", nil, map[string]interface{}{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Fields(tc.kvs...)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Errorf("key %q: got %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestErrorFields(t *testing.T) {
	f := ErrorFields("write", errors.New("disk full"))
	if f[FieldOperation] != "write" || f[FieldError] != "disk full" {
		t.Errorf("unexpected fields: %v", f)
	}
}

func TestDurationFields(t *testing.T) {
	f := DurationFields("run", 1500*time.Millisecond)
	if f[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", f[FieldDuration])
	}
}

func TestMergeWithError(t *testing.T) {
	f := MergeWithError(nil, errors.New("x"))
	if f[FieldError] != "x" {
		t.Errorf("expected error field, got %v", f)
	}
}
