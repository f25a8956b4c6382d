package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openleipzig/openleipzig/pkg/compose"
	"github.com/openleipzig/openleipzig/pkg/config"
	"github.com/openleipzig/openleipzig/pkg/engine"
	"github.com/openleipzig/openleipzig/pkg/options"
	"github.com/openleipzig/openleipzig/pkg/policy"
	"github.com/openleipzig/openleipzig/pkg/resolver"
	"github.com/openleipzig/openleipzig/pkg/scenario"
	"github.com/openleipzig/openleipzig/pkg/stores"
	"github.com/openleipzig/openleipzig/pkg/telemetry"
)

// Build status labels.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Input is what a build starts from.
type Input struct {
	// ConfigPath is recorded in the build history.
	ConfigPath string

	// Base is the configuration document the options are resolved against.
	Base *config.Config

	// Options are the raw scenario options.
	Options options.Raw

	// Scenario is prepared in place on success. Nil means an empty scenario.
	Scenario *scenario.Scenario
}

// Result is the outcome of a successful build.
type Result struct {
	BuildID  string
	Options  *options.OptionSet
	Resolved *resolver.ResolvedConfig
	Report   *policy.Report
	Bindings []compose.BindingSpec
	Duration time.Duration
}

// Build resolves, checks, prepares and composes a scenario and installs its
// bindings into the controller. It does not start the controller.
func (a *Application) Build(ctx context.Context, in Input) (*Result, error) {
	buildID := uuid.New().String()
	timer := telemetry.NewTimer()
	logger := a.logger.With().Str("build_id", buildID).Logger()

	var span trace.Span
	if tel := telemetry.FromTelemetryContext(ctx); tel != nil {
		ctx, span = tel.Tracer.StartBuildSpan(ctx, buildID)
		defer span.End()

		buildLogger := tel.Logger.NewComponentLogger("application").WithBuildID(buildID)
		ctx = buildLogger.WithContext(ctx)
		buildLogger.Info("Build started")
	}

	metrics := telemetry.MetricsFromContext(ctx)
	metrics.RecordBuildStarted()

	a.recordStart(ctx, buildID, in)

	result, err := a.build(ctx, buildID, in)

	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	duration := timer.Duration()
	metrics.RecordBuildCompleted(status, duration)

	if span != nil {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.AddEvent(span, "bindings.installed",
				attribute.Int("bindings", len(result.Bindings)),
				attribute.StringSlice("stages", result.Resolved.Applied),
			)
			telemetry.RecordSuccess(span)
		}
	}

	a.recordFinish(ctx, buildID, result, err)

	if err != nil {
		logger.Error().
			Err(err).
			Str("class", string(engine.ClassOf(err))).
			Str("code", engine.CodeOf(err)).
			Dur("duration", duration).
			Msg("Build failed")
		return nil, err
	}

	result.Duration = duration
	logger.Info().
		Int("bindings", len(result.Bindings)).
		Strs("stages", result.Resolved.Applied).
		Dur("duration", duration).
		Msg("Build completed")
	return result, nil
}

// Run builds and then starts the controller.
func (a *Application) Run(ctx context.Context, in Input) (*Result, error) {
	result, err := a.Build(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := a.controller.Run(ctx); err != nil {
		return result, err
	}
	return result, nil
}

func (a *Application) build(ctx context.Context, buildID string, in Input) (*Result, error) {
	if in.Base == nil {
		return nil, engine.NewPreconditionError("base configuration is missing", nil)
	}

	opts, err := options.Parse(in.Options)
	if err != nil {
		return nil, err
	}

	if err := a.schemas.ValidateConfig(ctx, in.Base); err != nil {
		return nil, err
	}

	resolved, err := a.resolver.Apply(ctx, in.Base, opts)
	if err != nil {
		return nil, err
	}

	if err := a.schemas.ValidateConfig(ctx, resolved.Config); err != nil {
		return nil, err
	}

	report, err := a.policies.CheckConfig(ctx, resolved)
	if err != nil {
		return nil, err
	}

	// the prepared copy is committed only after install succeeded
	input := in.Scenario
	if input == nil {
		input = &scenario.Scenario{Network: &scenario.Network{}, Population: &scenario.Population{}}
	}
	prepared, err := a.preparer.PrepareCopy(ctx, input, opts)
	if err != nil {
		return nil, err
	}

	bindings, err := a.composer.Compose(ctx, resolved, opts)
	if err != nil {
		return nil, err
	}

	if err := a.controller.Install(ctx, bindings); err != nil {
		return nil, err
	}

	in.Scenario.Commit(prepared)

	return &Result{
		BuildID:  buildID,
		Options:  opts,
		Resolved: resolved,
		Report:   report,
		Bindings: bindings,
	}, nil
}

func (a *Application) recordStart(ctx context.Context, buildID string, in Input) {
	if a.history == nil {
		return
	}

	raw, err := json.Marshal(in.Options)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to encode build options")
		raw = []byte("{}")
	}

	build := &stores.Build{
		ID:         buildID,
		ConfigPath: in.ConfigPath,
		Options:    string(raw),
		Status:     stores.BuildStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	if err := a.history.CreateBuild(ctx, build); err != nil {
		a.logger.Warn().Err(err).Str("build_id", buildID).Msg("Failed to record build")
	}
}

// recordFinish stores the outcome of a build. History failures are logged
// and never fail the build.
func (a *Application) recordFinish(ctx context.Context, buildID string, result *Result, buildErr error) {
	if a.history == nil {
		return
	}

	if buildErr != nil {
		msg := buildErr.Error()
		if err := a.history.CompleteBuild(ctx, buildID, stores.BuildStatusFailed, &msg); err != nil {
			a.logger.Warn().Err(err).Str("build_id", buildID).Msg("Failed to record build failure")
		}
		return
	}

	if err := a.history.SaveStages(ctx, buildID, result.Resolved.Applied); err != nil {
		a.logger.Warn().Err(err).Str("build_id", buildID).Msg("Failed to record build stages")
	}

	records, err := BindingRecords(buildID, result.Bindings)
	if err != nil {
		a.logger.Warn().Err(err).Str("build_id", buildID).Msg("Failed to encode bindings")
	} else if err := a.history.SaveBindings(ctx, buildID, records); err != nil {
		a.logger.Warn().Err(err).Str("build_id", buildID).Msg("Failed to record bindings")
	}

	if err := a.history.CompleteBuild(ctx, buildID, stores.BuildStatusCompleted, nil); err != nil {
		a.logger.Warn().Err(err).Str("build_id", buildID).Msg("Failed to record build completion")
	}
}

// BindingRecords converts bindings to history records.
func BindingRecords(buildID string, bindings []compose.BindingSpec) ([]stores.BindingRecord, error) {
	records := make([]stores.BindingRecord, 0, len(bindings))
	for i, b := range bindings {
		params := "{}"
		if len(b.Params) > 0 {
			data, err := json.Marshal(b.Params)
			if err != nil {
				return nil, err
			}
			params = string(data)
		}
		records = append(records, stores.BindingRecord{
			BuildID:        buildID,
			Position:       i,
			Group:          b.Group,
			Capability:     string(b.Capability),
			Target:         b.Target,
			Implementation: b.Implementation,
			Params:         params,
		})
	}
	return records, nil
}
