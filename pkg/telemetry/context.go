package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/openleipzig/openleipzig/pkg/engine"
)

// Telemetry combines logging, tracing and metrics.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Config  *Config
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Config:  cfg,
	}, nil
}

// WithContext adds the telemetry instance and its logger to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	return t.Logger.WithContext(ctx)
}

// FromTelemetryContext retrieves the telemetry instance from the context.
// If no telemetry is found, it returns nil.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown gracefully shuts down all telemetry components.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	// The metrics server keeps serving until the process exits.
	if err := t.Tracer.ForceFlush(ctx); err != nil {
		return fmt.Errorf("failed to flush spans: %w", err)
	}
	return t.Tracer.Shutdown(ctx)
}

// StartMetricsServer starts the metrics HTTP server if metrics are enabled.
func (t *Telemetry) StartMetricsServer() error {
	return t.Metrics.StartMetricsServer()
}

// StageContext instruments one stage of a build phase.
type StageContext struct {
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger

	phase   string
	stage   string
	timer   *Timer
	metrics *Metrics
}

// StartStage begins an instrumented stage with tracing and timing. Without
// telemetry in the context it only times the stage.
func StartStage(ctx context.Context, phase, stage string) *StageContext {
	sc := &StageContext{
		Ctx:   ctx,
		phase: phase,
		stage: stage,
		timer: NewTimer(),
	}

	tel := FromTelemetryContext(ctx)
	if tel == nil {
		sc.Logger = FromContext(ctx).WithStage(phase, stage)
		return sc
	}

	sc.Ctx, sc.Span = tel.Tracer.StartStageSpan(ctx, phase, stage)
	sc.Logger = FromContext(ctx).WithStage(phase, stage)
	sc.metrics = tel.Metrics

	if spanCtx := sc.Span.SpanContext(); spanCtx.IsValid() {
		sc.Logger = sc.Logger.WithFields(map[string]interface{}{
			"trace_id": spanCtx.TraceID().String(),
			"span_id":  spanCtx.SpanID().String(),
		})
	}

	return sc
}

// End finishes the stage, recording success or failure.
func (sc *StageContext) End(err error) {
	status := "success"
	if err != nil {
		status = "failure"
		var serr *engine.ScenarioError
		if errors.As(err, &serr) {
			sc.metrics.RecordError(string(serr.Class), serr.Code)
		} else {
			sc.metrics.RecordError(string(engine.ErrorClassInternal), "")
		}
	}

	duration := sc.timer.Duration()
	sc.metrics.RecordStage(sc.phase, sc.stage, status, duration)

	if err != nil {
		sc.Logger.WithError(err).Warnf("Stage failed after %s", duration)
	} else {
		sc.Logger.Debugf("Stage completed in %s", duration)
	}

	if sc.Span != nil {
		if err != nil {
			RecordError(sc.Span, err)
			sc.Span.SetAttributes(
				AttrErrorClass.String(string(engine.ClassOf(err))),
				AttrErrorCode.String(engine.CodeOf(err)),
			)
		} else {
			RecordSuccess(sc.Span)
		}
		sc.Span.End()
	}
}

// MetricsFromContext returns the metrics of the telemetry in the context, or nil.
// A nil *Metrics is safe to record on.
func MetricsFromContext(ctx context.Context) *Metrics {
	if tel := FromTelemetryContext(ctx); tel != nil {
		return tel.Metrics
	}
	return nil
}
