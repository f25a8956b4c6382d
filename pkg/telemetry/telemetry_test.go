package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/openleipzig/openleipzig/pkg/engine"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()

	mfs, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			match := true
			for _, lp := range metric.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
				}
			}
			if match {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"missing service name", func(c *Config) { c.ServiceName = "" }, true},
		{"missing version", func(c *Config) { c.ServiceVersion = "" }, true},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"bad exporter", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "jaeger"
		}, true},
		{"otlp without endpoint", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "otlp"
		}, true},
		{"bad sampling rate", func(c *Config) { c.Tracing.SamplingRate = 2 }, true},
		{"disabled level", func(c *Config) { c.Logging.Level = "disabled" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, LoggingConfig{Level: "debug", Format: "json"})

	logger.NewComponentLogger("resolver").WithBuildID("b-1").WithStage("resolver", "sample").Info("applied")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}

	for key, want := range map[string]string{
		"component": "resolver",
		"build_id":  "b-1",
		"phase":     "resolver",
		"stage":     "sample",
		"message":   "applied",
	} {
		if entry[key] != want {
			t.Errorf("Expected %s=%s, got %v", key, want, entry[key])
		}
	}
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, LoggingConfig{Level: "warn", Format: "json"})

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected info to be filtered, got %q", buf.String())
	}

	logger.Warnf("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("Expected warn line, got %q", buf.String())
	}
}

func TestFromContext_Default(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatal("Expected a logger")
	}
	// Must not panic.
	logger.Info("discarded")
}

func TestMetrics_Disabled(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	m.RecordBuildStarted()
	m.RecordStage("resolver", "sample", "success", time.Millisecond)
	m.RecordBinding("core", "Module")

	if m.Registry() != nil {
		t.Error("Expected no registry for disabled metrics")
	}

	var nilMetrics *Metrics
	nilMetrics.RecordError("internal", "")
}

func TestMetrics_Record(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	m.RecordBuildStarted()
	m.RecordBuildCompleted("success", 10*time.Millisecond)
	m.RecordStage("resolver", "sample", "success", time.Millisecond)
	m.RecordStage("resolver", "sample", "success", time.Millisecond)
	m.RecordBinding("parking", "EventHandler")
	m.RecordLinksAdjusted("car-free", 3)
	m.RecordRoutesDeleted(2)
	m.RecordPolicyViolation("capacity_factors", "error")
	m.RecordError("precondition", "PRECONDITION_FAILED")

	if v := counterValue(t, m, "leipzig_builds_started_total", nil); v != 1 {
		t.Errorf("Expected 1 started build, got %v", v)
	}
	if v := counterValue(t, m, "leipzig_stages_executed_total", map[string]string{"stage": "sample"}); v != 2 {
		t.Errorf("Expected 2 sample stages, got %v", v)
	}
	if v := counterValue(t, m, "leipzig_links_adjusted_total", map[string]string{"area": "car-free"}); v != 3 {
		t.Errorf("Expected 3 adjusted links, got %v", v)
	}
	if v := counterValue(t, m, "leipzig_routes_deleted_total", nil); v != 2 {
		t.Errorf("Expected 2 deleted routes, got %v", v)
	}
	if v := counterValue(t, m, "leipzig_errors_by_class_total", map[string]string{"class": "precondition"}); v != 1 {
		t.Errorf("Expected 1 precondition error, got %v", v)
	}
}

func TestStartStage_RecordsMetrics(t *testing.T) {
	tel, err := NewTelemetry(TestConfig())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	ctx := tel.WithContext(context.Background())

	sc := StartStage(ctx, "preparer", "network-areas")
	sc.End(nil)

	sc = StartStage(ctx, "preparer", "drt-scenario")
	sc.End(engine.NewPreconditionError("empty service area", nil))

	if v := counterValue(t, tel.Metrics, "leipzig_stages_executed_total",
		map[string]string{"stage": "network-areas", "status": "success"}); v != 1 {
		t.Errorf("Expected 1 successful network-areas stage, got %v", v)
	}
	if v := counterValue(t, tel.Metrics, "leipzig_stages_executed_total",
		map[string]string{"stage": "drt-scenario", "status": "failure"}); v != 1 {
		t.Errorf("Expected 1 failed drt-scenario stage, got %v", v)
	}
	if v := counterValue(t, tel.Metrics, "leipzig_errors_by_code_total",
		map[string]string{"code": engine.ErrCodePrecondition}); v != 1 {
		t.Errorf("Expected 1 precondition code, got %v", v)
	}
}

func TestStartStage_WithoutTelemetry(t *testing.T) {
	sc := StartStage(context.Background(), "composer", "core")
	if sc.Span != nil {
		t.Error("Expected no span without telemetry")
	}
	sc.End(nil)
}

func TestTracer_StageSpan(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{Enabled: true, Exporter: "none", SamplingRate: 1.0}, "leipzig", "test", "test")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer tracer.Shutdown(context.Background())

	ctx, span := tracer.StartBuildSpan(context.Background(), "b-1")
	if TraceID(ctx) == "" {
		t.Error("Expected a trace id")
	}

	stageCtx, stage := tracer.StartStageSpan(ctx, "resolver", "sample")
	if TraceID(stageCtx) != TraceID(ctx) {
		t.Error("Expected stage span in the build trace")
	}
	RecordSuccess(stage)
	stage.End()
	span.End()
}

func TestLogger_WithFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, LoggingConfig{Level: "debug", Format: "json"})

	logger.WithFields(map[string]interface{}{"area": "drt", "links": 3}).
		WithError(engine.NewPreconditionError("drt service area is empty", nil)).
		Warnf("Preparing %s failed", "drt-scenario")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "warn" || entry["message"] != "Preparing drt-scenario failed" {
		t.Errorf("Expected formatted warning, got %v", entry)
	}
	if entry["area"] != "drt" || entry["links"] != float64(3) {
		t.Errorf("Expected area and links fields, got %v", entry)
	}
	if !strings.Contains(entry["error"].(string), "drt service area is empty") {
		t.Errorf("Expected error field, got %v", entry["error"])
	}
}

func TestStageContext_Logging(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		level   string
		message string
	}{
		{"success", nil, "debug", "Stage completed in"},
		{"failure", engine.NewUnsupportedModeError("unexpected bike handling mode", nil), "warn", "Stage failed after"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(&buf, LoggingConfig{Level: "debug", Format: "json"})
			ctx := logger.WithContext(context.Background())

			sc := StartStage(ctx, "resolver", "bike-handling")
			sc.End(tt.err)

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Expected one JSON log line, got %q: %v", buf.String(), err)
			}
			if entry["level"] != tt.level {
				t.Errorf("Expected level %s, got %v", tt.level, entry["level"])
			}
			if !strings.HasPrefix(entry["message"].(string), tt.message) {
				t.Errorf("Expected message %q, got %v", tt.message, entry["message"])
			}
			if entry["stage"] != "bike-handling" {
				t.Errorf("Expected stage field, got %v", entry["stage"])
			}
			if tt.err != nil && entry["error"] == nil {
				t.Error("Expected error field on failure")
			}
		})
	}
}

func TestStageContext_UsesContextLogger(t *testing.T) {
	tel, err := NewTelemetry(TestConfig())
	if err != nil {
		t.Fatalf("Failed to create telemetry: %v", err)
	}

	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, LoggingConfig{Level: "debug", Format: "json"}).
		NewComponentLogger("application").
		WithBuildID("b-7")
	ctx := logger.WithContext(tel.WithContext(context.Background()))

	sc := StartStage(ctx, "compose", "drt")
	sc.End(nil)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["build_id"] != "b-7" || entry["component"] != "application" {
		t.Errorf("Expected build and component fields, got %v", entry)
	}
	if entry["stage"] != "drt" {
		t.Errorf("Expected stage field, got %v", entry["stage"])
	}
}

func TestDevelopmentConfig(t *testing.T) {
	cfg := DevelopmentConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected valid config, got: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.EnableCaller {
		t.Errorf("Expected debug logs with caller, got %+v", cfg.Logging)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.Exporter != "stdout" {
		t.Errorf("Expected stdout tracing, got %+v", cfg.Tracing)
	}
}

func TestTelemetry_ShutdownFlushes(t *testing.T) {
	cfg := TestConfig()
	cfg.Tracing = TracingConfig{Enabled: true, Exporter: "none", SamplingRate: 1.0}

	tel, err := NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	_, span := tel.Tracer.StartBuildSpan(context.Background(), "b-1")
	span.End()

	if err := tel.Tracer.ForceFlush(context.Background()); err != nil {
		t.Errorf("Expected flush to succeed, got: %v", err)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected shutdown to succeed, got: %v", err)
	}
}

func TestAddEvent(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer provider.Shutdown(context.Background())

	_, span := provider.Tracer("test").Start(context.Background(), "build")
	AddEvent(span, "bindings.installed", attribute.Int("bindings", 12))
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	events := spans[0].Events
	if len(events) != 1 || events[0].Name != "bindings.installed" {
		t.Fatalf("Expected bindings.installed event, got %v", events)
	}
	if len(events[0].Attributes) != 1 || events[0].Attributes[0].Value.AsInt64() != 12 {
		t.Errorf("Expected bindings=12 attribute, got %v", events[0].Attributes)
	}
}
