package compose

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/openleipzig/openleipzig/pkg/engine"
	"github.com/openleipzig/openleipzig/pkg/options"
	"github.com/openleipzig/openleipzig/pkg/resolver"
	"github.com/openleipzig/openleipzig/pkg/telemetry"
)

// Phase is the telemetry phase name of binding composition.
const Phase = "compose"

// Binding group identifiers.
const (
	GroupCore    = "core"
	GroupParking = "parking"
	GroupDrt     = "drt"
	GroupBicycle = "bicycle"
)

// PreconditionFunc checks a group's inputs once at least one of its specs
// was selected.
type PreconditionFunc func(resolved *resolver.ResolvedConfig, opts *options.OptionSet) error

type group struct {
	engine.Stage
	precondition PreconditionFunc
	specs        []BindingSpec
}

// Composer derives the ordered binding list of a build.
type Composer struct {
	// mu protects the group registry.
	mu sync.RWMutex

	logger zerolog.Logger
	groups map[string]*group
	stages []engine.Stage
	order  []string
	keys   map[string]bool
}

// NewComposer creates a composer with the built-in binding groups. scoring
// supplies the per-person scoring parameters binding.
func NewComposer(logger zerolog.Logger, scoring ScoringParametersProvider) (*Composer, error) {
	if scoring == nil {
		return nil, engine.NewPreconditionError("scoring parameters provider is missing", nil)
	}

	c := &Composer{
		logger: logger.With().Str("component", "composer").Logger(),
		groups: make(map[string]*group),
		keys:   make(map[string]bool),
	}

	c.addGroup(engine.Stage{ID: GroupCore, Description: "analysis, fares, ride routing and scoring"}, nil)
	c.addGroup(engine.Stage{ID: GroupParking, DependsOn: []string{GroupCore}, Description: "parking aware replanning and costs"}, nil)
	c.addGroup(engine.Stage{ID: GroupDrt, DependsOn: []string{GroupParking}, Description: "dvrp and drt modules"}, checkDrt)
	c.addGroup(engine.Stage{ID: GroupBicycle, DependsOn: []string{GroupDrt}, Description: "bicycle contrib"}, checkBicycle)

	order, err := engine.OrderStages(c.stages)
	if err != nil {
		return nil, err
	}
	c.order = order

	for _, entry := range builtinBindings(scoring) {
		if err := c.Register(entry.group, entry.spec); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Composer) addGroup(stage engine.Stage, precondition PreconditionFunc) {
	c.groups[stage.ID] = &group{Stage: stage, precondition: precondition}
	c.stages = append(c.stages, stage)
}

// Register adds a binding spec to a group. Specs keep their registration
// order within the group.
func (c *Composer) Register(groupID string, spec BindingSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.groups[groupID]
	if !ok {
		return engine.NewInternalError(fmt.Sprintf("unknown binding group: %s", groupID), nil).
			WithCode(engine.ErrCodeMissingModule)
	}
	if !spec.Capability.IsValid() {
		return engine.NewInternalError(fmt.Sprintf("unknown capability: %s", spec.Capability), nil).
			WithCode(engine.ErrCodeValidation)
	}
	if spec.Target == "" {
		return engine.NewInternalError("binding target is required", nil).
			WithCode(engine.ErrCodeValidation)
	}

	spec.Group = groupID
	if c.keys[spec.Key()] {
		return engine.NewInternalError(fmt.Sprintf("binding %s already registered", spec.Key()), nil).
			WithCode(engine.ErrCodeValidation)
	}

	c.keys[spec.Key()] = true
	g.specs = append(g.specs, spec)
	return nil
}

// Groups returns the declared group graph nodes.
func (c *Composer) Groups() []engine.Stage {
	return append([]engine.Stage(nil), c.stages...)
}

// Order returns the group evaluation order.
func (c *Composer) Order() []string {
	return append([]string(nil), c.order...)
}

// Specs returns the registered specs of a group.
func (c *Composer) Specs(groupID string) []BindingSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()

	g, ok := c.groups[groupID]
	if !ok {
		return nil
	}
	return append([]BindingSpec(nil), g.specs...)
}

// DOT renders the group graph in Graphviz format.
func (c *Composer) DOT() (string, error) {
	builder := engine.NewDAGBuilder()
	if _, err := builder.BuildGraph(c.stages); err != nil {
		return "", err
	}
	return builder.ToDOT(Phase), nil
}

// Compose evaluates every registered spec once, in group order, and
// returns the selected bindings with their parameters filled in.
func (c *Composer) Compose(ctx context.Context, resolved *resolver.ResolvedConfig, opts *options.OptionSet) ([]BindingSpec, error) {
	if resolved == nil || resolved.Config == nil {
		return nil, engine.NewPreconditionError("resolved configuration is missing", nil)
	}
	if opts == nil {
		return nil, engine.NewInvalidOptionError("", "option set is missing", nil)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	metrics := telemetry.MetricsFromContext(ctx)
	var bindings []BindingSpec

	for _, id := range c.order {
		g := c.groups[id]

		sc := telemetry.StartStage(ctx, Phase, id)
		selected, err := g.compose(resolved, opts)
		sc.End(err)

		if err != nil {
			c.logger.Error().Err(err).Str("group", id).Msg("Binding group failed")
			return nil, err
		}

		for _, b := range selected {
			metrics.RecordBinding(id, string(b.Capability))
		}

		c.logger.Debug().
			Str("group", id).
			Int("bindings", len(selected)).
			Msg("Binding group composed")

		bindings = append(bindings, selected...)
	}

	c.logger.Info().Int("bindings", len(bindings)).Msg("Bindings composed")
	return bindings, nil
}

func (g *group) compose(resolved *resolver.ResolvedConfig, opts *options.OptionSet) ([]BindingSpec, error) {
	var selected []BindingSpec
	for _, spec := range g.specs {
		if spec.Condition != nil && !spec.Condition(resolved, opts) {
			continue
		}
		if spec.Parameterize != nil {
			spec.Params = spec.Parameterize(resolved, opts)
		} else if spec.Params != nil {
			params := make(map[string]interface{}, len(spec.Params))
			for k, v := range spec.Params {
				params[k] = v
			}
			spec.Params = params
		}
		selected = append(selected, spec)
	}

	if len(selected) > 0 && g.precondition != nil {
		if err := g.precondition(resolved, opts); err != nil {
			return nil, withGroup(err, g.ID)
		}
	}
	return selected, nil
}

func withGroup(err error, id string) error {
	var serr *engine.ScenarioError
	if errors.As(err, &serr) {
		if serr.Stage == "" {
			serr.Stage = id
		}
		return err
	}
	return engine.NewInternalError("binding group failed", err).WithStage(id)
}

// checkDrt requires the network mode mutation to have happened before drt
// setup reads the allowed modes.
func checkDrt(resolved *resolver.ResolvedConfig, _ *options.OptionSet) error {
	if !resolved.HasApplied(resolver.StageBikeHandling) {
		return engine.NewPreconditionError("drt bindings require bike handling to be resolved first", nil).
			WithCode(engine.ErrCodeStageOrder).
			WithDetail("required_stage", resolver.StageBikeHandling)
	}
	if len(resolved.Config.MultiModeDrt.Modes) == 0 {
		return engine.NewPreconditionError("drt module has no modes", nil).
			WithCode(engine.ErrCodeMissingModule)
	}
	return nil
}

func checkBicycle(resolved *resolver.ResolvedConfig, _ *options.OptionSet) error {
	if resolved.Config.Bicycle == nil {
		return engine.NewPreconditionError("bicycle module requires the bicycle config group", nil).
			WithCode(engine.ErrCodeMissingModule)
	}
	return nil
}
