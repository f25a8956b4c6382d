package scenario

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/openleipzig/openleipzig/pkg/engine"
	"github.com/openleipzig/openleipzig/pkg/options"
	"github.com/openleipzig/openleipzig/pkg/resolver"
	"github.com/openleipzig/openleipzig/pkg/telemetry"
)

// Phase is the telemetry phase name of scenario preparation.
const Phase = "scenario"

// Preparation stage identifiers.
const (
	StageNetworkAreas  = "network-areas"
	StageDrtScenario   = "drt-scenario"
	StageCarFreeRoutes = "car-free-routes"
)

// Metric area labels.
const (
	AreaLabelDrt     = "drt"
	AreaLabelCarFree = "car_free"
)

// prepareState is the working copy shared by the stages of one Prepare call.
type prepareState struct {
	scenario    *Scenario
	opts        *options.OptionSet
	metrics     *telemetry.Metrics
	drtArea     *Area
	carFreeArea *Area
}

type prepareStage struct {
	engine.Stage
	enabled func(opts *options.OptionSet) bool
	apply   func(ctx context.Context, st *prepareState) error
}

// Preparer adjusts network and population for the selected policy areas.
type Preparer struct {
	logger zerolog.Logger
	areas  AreaSource
	stages []prepareStage
	order  []string
}

// NewPreparer creates a preparer resolving area selectors through areas.
func NewPreparer(logger zerolog.Logger, areas AreaSource) (*Preparer, error) {
	if areas == nil {
		return nil, engine.NewPreconditionError("area source is missing", nil)
	}

	p := &Preparer{
		logger: logger.With().Str("component", "preparer").Logger(),
		areas:  areas,
	}

	p.stages = []prepareStage{
		{
			Stage: engine.Stage{ID: StageNetworkAreas, Description: "tag drt links and close car-free links"},
			enabled: func(opts *options.OptionSet) bool {
				return opts.HasDrtArea() || opts.HasCarFreeArea()
			},
			apply: p.adjustNetwork,
		},
		{
			Stage:   engine.Stage{ID: StageDrtScenario, DependsOn: []string{StageNetworkAreas}, Description: "drt service area"},
			enabled: (*options.OptionSet).HasDrtArea,
			apply:   prepareDrt,
		},
		{
			Stage:   engine.Stage{ID: StageCarFreeRoutes, DependsOn: []string{StageNetworkAreas, StageDrtScenario}, Description: "drop car and ride routes through the car-free area"},
			enabled: (*options.OptionSet).HasCarFreeArea,
			apply:   deleteCarFreeRoutes,
		},
	}

	order, err := engine.OrderStages(p.Stages())
	if err != nil {
		return nil, err
	}
	p.order = order

	return p, nil
}

// Stages returns the declared stage graph nodes.
func (p *Preparer) Stages() []engine.Stage {
	out := make([]engine.Stage, len(p.stages))
	for i, s := range p.stages {
		out[i] = s.Stage
	}
	return out
}

// Order returns the topological stage order.
func (p *Preparer) Order() []string {
	return append([]string(nil), p.order...)
}

// DOT renders the stage graph in Graphviz format.
func (p *Preparer) DOT() (string, error) {
	builder := engine.NewDAGBuilder()
	if _, err := builder.BuildGraph(p.Stages()); err != nil {
		return "", err
	}
	return builder.ToDOT(Phase), nil
}

// Prepare runs the enabled stages on a copy of the scenario. The copy is
// committed to scn only when every stage succeeded.
func (p *Preparer) Prepare(ctx context.Context, scn *Scenario, opts *options.OptionSet) error {
	prepared, err := p.PrepareCopy(ctx, scn, opts)
	if err != nil {
		return err
	}
	scn.Commit(prepared)
	return nil
}

// PrepareCopy runs the enabled stages on a copy of scn and returns the
// copy. scn itself is never modified.
func (p *Preparer) PrepareCopy(ctx context.Context, scn *Scenario, opts *options.OptionSet) (*Scenario, error) {
	if scn == nil || scn.Network == nil || scn.Population == nil {
		return nil, engine.NewPreconditionError("scenario network and population are required", nil)
	}
	if opts == nil {
		return nil, engine.NewInvalidOptionError("", "option set is missing", nil)
	}

	byID := make(map[string]prepareStage, len(p.stages))
	for _, s := range p.stages {
		byID[s.ID] = s
	}

	st := &prepareState{
		scenario: scn.Clone(),
		opts:     opts,
		metrics:  telemetry.MetricsFromContext(ctx),
	}

	for _, id := range p.order {
		s := byID[id]
		if !s.enabled(opts) {
			p.logger.Debug().Str("stage", id).Msg("Preparation stage skipped")
			continue
		}

		sc := telemetry.StartStage(ctx, Phase, id)
		err := s.apply(sc.Ctx, st)
		sc.End(err)

		if err != nil {
			p.logger.Error().Err(err).Str("stage", id).Msg("Preparation stage failed")
			return nil, withStage(err, id)
		}
		p.logger.Debug().Str("stage", id).Msg("Preparation stage applied")
	}

	return st.scenario, nil
}

func (p *Preparer) adjustNetwork(ctx context.Context, st *prepareState) error {
	areas := st.opts.Areas()
	network := st.scenario.Network

	if st.opts.HasDrtArea() {
		area, err := p.areas.Area(ctx, areas.DrtArea)
		if err != nil {
			return engine.NewInvalidOptionError("drt-area", "drt area cannot be resolved", err)
		}
		st.drtArea = area

		tagged := 0
		for _, l := range network.LinksInside(area) {
			if l.AddMode(ModeDrt) {
				tagged++
			}
		}
		st.metrics.RecordLinksAdjusted(AreaLabelDrt, tagged)
		p.logger.Info().Str("area", areas.DrtArea).Int("links", tagged).Msg("Drt mode added to links")
	}

	if st.opts.HasCarFreeArea() {
		area, err := p.areas.Area(ctx, areas.CarFreeArea)
		if err != nil {
			return engine.NewInvalidOptionError("car-free-area", "car-free area cannot be resolved", err)
		}
		st.carFreeArea = area

		closed := 0
		for _, l := range network.LinksInside(area) {
			if l.RemoveModes(ModeCar, ModeRide) {
				closed++
			}
		}
		st.metrics.RecordLinksAdjusted(AreaLabelCarFree, closed)
		p.logger.Info().Str("area", areas.CarFreeArea).Int("links", closed).Msg("Car and ride removed from links")
	}

	return nil
}

// prepareDrt checks the service area and, when drt feeds pt, marks the
// service area links as intermodal access candidates.
func prepareDrt(_ context.Context, st *prepareState) error {
	var service []*Link
	for _, l := range st.scenario.Network.Links {
		if l.Allows(ModeDrt) {
			service = append(service, l)
		}
	}

	if len(service) == 0 {
		return engine.NewPreconditionError("drt service area contains no links", nil).
			WithDetail("drt_area", st.opts.Areas().DrtArea)
	}

	if st.opts.Intermodality() == options.DrtAsAccessEgressForPt {
		for _, l := range service {
			l.SetAttribute(resolver.DrtStopFilter, resolver.DrtStopFilterValue)
		}
	}
	return nil
}

// deleteCarFreeRoutes drops car and ride routes using a non-pt link inside
// the car-free area. The legs keep their mode and get rerouted by the
// controller.
func deleteCarFreeRoutes(_ context.Context, st *prepareState) error {
	forbidden := make(map[string]bool)
	for _, l := range st.scenario.Network.LinksInside(st.carFreeArea) {
		if !l.Allows(ModePt) {
			forbidden[l.ID] = true
		}
	}

	deleted := 0
	for _, person := range st.scenario.Population.Persons {
		for _, plan := range person.Plans {
			for _, leg := range plan.Legs() {
				if leg.Route == nil || (leg.Mode != ModeCar && leg.Mode != ModeRide) {
					continue
				}
				for _, id := range leg.Route.LinkIDs() {
					if forbidden[id] {
						leg.Route = nil
						deleted++
						break
					}
				}
			}
		}
	}

	st.metrics.RecordRoutesDeleted(deleted)
	return nil
}

func withStage(err error, id string) error {
	var serr *engine.ScenarioError
	if errors.As(err, &serr) {
		if serr.Stage == "" {
			serr.Stage = id
		}
		return err
	}
	return engine.NewInternalError("preparation stage failed", err).WithStage(id)
}
