package resolver

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/openleipzig/openleipzig/pkg/config"
	"github.com/openleipzig/openleipzig/pkg/engine"
	"github.com/openleipzig/openleipzig/pkg/options"
	"github.com/openleipzig/openleipzig/pkg/telemetry"
)

// Phase is the telemetry phase name of configuration resolution.
const Phase = "resolver"

// Resolver stage identifiers.
const (
	StageActivityParams          = "activity-params"
	StageControllerDefaults      = "controller-defaults"
	StageSubpopulationStrategies = "subpopulation-strategies"
	StageSample                  = "sample"
	StageBikeHandling            = "bike-handling"
	StageParking                 = "parking"
	StageSimWrapper              = "simwrapper"
	StageDrtConfig               = "drt-config"
)

// StageFunc applies one resolver stage. It receives a private copy of the
// configuration and may mutate it freely.
type StageFunc func(cfg *config.Config, opts *options.OptionSet) error

// ResolvedConfig is the configuration after all option-driven stages.
type ResolvedConfig struct {
	// Config is the resolved document.
	Config *config.Config

	// Applied lists the executed stages in execution order.
	Applied []string
}

// HasApplied reports whether a stage ran during resolution.
func (r *ResolvedConfig) HasApplied(stage string) bool {
	if r == nil {
		return false
	}
	for _, s := range r.Applied {
		if s == stage {
			return true
		}
	}
	return false
}

type stage struct {
	engine.Stage
	apply StageFunc
}

// Resolver turns a base configuration and an OptionSet into a ResolvedConfig.
type Resolver struct {
	logger zerolog.Logger
	stages []stage
	order  []string
}

// New creates a resolver with the built-in stages.
func New(logger zerolog.Logger) (*Resolver, error) {
	r := &Resolver{
		logger: logger.With().Str("component", "resolver").Logger(),
	}

	r.stages = []stage{
		{Stage: engine.Stage{ID: StageActivityParams, Description: "fixed activity scoring params"}, apply: applyActivityParams},
		{Stage: engine.Stage{ID: StageControllerDefaults, Description: "scenario controller defaults"}, apply: applyControllerDefaults},
		{Stage: engine.Stage{ID: StageSubpopulationStrategies, Description: "select and reroute for fixed subpopulations"}, apply: applySubpopulationStrategies},
		{Stage: engine.Stage{ID: StageSample, Description: "sample size suffix and capacity factors"}, apply: applySample},
		{Stage: engine.Stage{ID: StageBikeHandling, DependsOn: []string{StageControllerDefaults}, Description: "bike handling transition"}, apply: applyBikes},
		{Stage: engine.Stage{ID: StageParking, DependsOn: []string{StageActivityParams, StageSubpopulationStrategies}, Description: "parking cost module and strategy rewrite"}, apply: applyParking},
		{Stage: engine.Stage{ID: StageSimWrapper, DependsOn: []string{StageSample}, Description: "dashboard defaults"}, apply: applySimWrapper},
		{Stage: engine.Stage{ID: StageDrtConfig, DependsOn: []string{StageControllerDefaults, StageBikeHandling}, Description: "drt module for the drt area"}, apply: applyDrtConfig},
	}

	order, err := engine.OrderStages(r.Stages())
	if err != nil {
		return nil, err
	}
	r.order = order

	return r, nil
}

// Stages returns the declared stage graph nodes.
func (r *Resolver) Stages() []engine.Stage {
	out := make([]engine.Stage, len(r.stages))
	for i, s := range r.stages {
		out[i] = s.Stage
	}
	return out
}

// Order returns the topological stage order.
func (r *Resolver) Order() []string {
	return append([]string(nil), r.order...)
}

// DOT renders the stage graph in Graphviz format.
func (r *Resolver) DOT() (string, error) {
	builder := engine.NewDAGBuilder()
	if _, err := builder.BuildGraph(r.Stages()); err != nil {
		return "", err
	}
	return builder.ToDOT(Phase), nil
}

// Apply resolves base against opts. base is never modified: every stage
// receives a fresh copy of the previous stage's result.
func (r *Resolver) Apply(ctx context.Context, base *config.Config, opts *options.OptionSet) (*ResolvedConfig, error) {
	if base == nil {
		return nil, engine.NewPreconditionError("base configuration is missing", nil)
	}
	if opts == nil {
		return nil, engine.NewInvalidOptionError("", "option set is missing", nil)
	}

	byID := make(map[string]stage, len(r.stages))
	for _, s := range r.stages {
		byID[s.ID] = s
	}

	current := base
	applied := make([]string, 0, len(r.order))

	for _, id := range r.order {
		s := byID[id]

		sc := telemetry.StartStage(ctx, Phase, id)
		next := current.Clone()
		err := s.apply(next, opts)
		sc.End(err)

		if err != nil {
			r.logger.Error().Err(err).Str("stage", id).Msg("Resolver stage failed")
			return nil, withStage(err, id)
		}

		r.logger.Debug().Str("stage", id).Msg("Resolver stage applied")
		current = next
		applied = append(applied, id)
	}

	r.logger.Info().
		Str("options", opts.String()).
		Int("stages", len(applied)).
		Float64("flow_cap_factor", current.QSim.FlowCapFactor).
		Msg("Configuration resolved")

	return &ResolvedConfig{Config: current, Applied: applied}, nil
}

// withStage tags classified errors with the failing stage.
func withStage(err error, id string) error {
	var serr *engine.ScenarioError
	if errors.As(err, &serr) {
		if serr.Stage == "" {
			serr.Stage = id
		}
		return err
	}
	return engine.NewInternalError("resolver stage failed", err).WithStage(id)
}
