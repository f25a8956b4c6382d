package compose

import (
	"github.com/openleipzig/openleipzig/pkg/options"
	"github.com/openleipzig/openleipzig/pkg/resolver"
)

// Opaque module and implementation identifiers installed by the composer.
const (
	ModulePtStop2StopAnalysis       = "PtStop2StopAnalysisModule"
	ModuleLeipzigPtFare             = "LeipzigPtFareModule"
	ModulePersonMoneyEventsAnalysis = "PersonMoneyEventsAnalysisModule"
	ModuleDvrp                      = "DvrpModule"
	ModuleMultiModeDrt              = "MultiModeDrtModule"
	ModuleDvrpQSimComponents        = "DvrpQSimComponents"
	ModuleDrtFare                   = "DrtFareModule"
	ModuleDrtAnalysis               = "DrtAnalysisModule"
	ModuleBicycle                   = "BicycleModule"

	TravelTimeNetwork             = "networkTravelTime"
	TravelDisutilityCarFactory    = "carTravelDisutilityFactory"
	ScoringParametersForPerson    = "ScoringParametersForPerson"
	AnalysisMainModeIdentifier    = "AnalysisMainModeIdentifier"
	LeipzigMainModeIdentifier     = "LeipzigMainModeIdentifier"
	ModeChoiceCoverageListener    = "ModeChoiceCoverageControlerListener"
	LeipzigRouterPlanAlgorithm    = "LeipzigRouterPlanAlgorithm"
	LeipzigRoutingStrategy        = "LeipzigRoutingStrategyProvider"
	LeipzigSubtourModeChoice      = "LeipzigSubtourModeChoice"
	PermissibleModesCalculator    = "PermissibleModesCalculator"
	PermissibleModesCalculatorImp = "PermissibleModesCalculatorImpl"
	TimeRestrictedParkingCost     = "TimeRestrictedParkingCostHandler"
	IntermodalAccessEgress        = "RaptorIntermodalAccessEgress"
	DrtIntermodalAccessEgress     = "DrtRaptorIntermodalAccessEgress"
	IntermodalFareCompensator     = "IntermodalTripFareCompensatorsListener"

	rideMode = "ride"
)

type catalogEntry struct {
	group string
	spec  BindingSpec
}

func parkingEnabled(_ *resolver.ResolvedConfig, opts *options.OptionSet) bool {
	return opts.Parking().Enabled
}

// drtConfigured reads the resolved config, not the drt area flag, so drt
// set up directly in the config document is also composed.
func drtConfigured(resolved *resolver.ResolvedConfig, _ *options.OptionSet) bool {
	return resolved.Config.MultiModeDrt != nil
}

func drtFeedsPt(resolved *resolver.ResolvedConfig, opts *options.OptionSet) bool {
	return drtConfigured(resolved, opts) && opts.Intermodality() == options.DrtAsAccessEgressForPt
}

func bicycleContrib(_ *resolver.ResolvedConfig, opts *options.OptionSet) bool {
	return opts.Bike() == options.BikeOnNetworkWithContrib
}

func parkingWindow(_ *resolver.ResolvedConfig, opts *options.OptionSet) map[string]interface{} {
	w := opts.Parking().Window
	return map[string]interface{}{"start": w.Start, "end": w.End}
}

func drtModes(resolved *resolver.ResolvedConfig, _ *options.OptionSet) map[string]interface{} {
	return map[string]interface{}{
		"modes":        resolved.Config.MultiModeDrt.ModeNames(),
		"networkModes": append([]string(nil), resolved.Config.Routing.NetworkModes...),
	}
}

func bicycleMode(resolved *resolver.ResolvedConfig, _ *options.OptionSet) map[string]interface{} {
	mode := resolver.BikeMode
	if resolved.Config.Bicycle != nil && resolved.Config.Bicycle.BicycleMode != "" {
		mode = resolved.Config.Bicycle.BicycleMode
	}
	return map[string]interface{}{"bicycleMode": mode}
}

// builtinBindings lists the scenario bindings in installation order.
func builtinBindings(scoring ScoringParametersProvider) []catalogEntry {
	scoringParams := func(resolved *resolver.ResolvedConfig, _ *options.OptionSet) map[string]interface{} {
		return scoring.Params(resolved)
	}

	return []catalogEntry{
		{GroupCore, BindingSpec{Capability: CapabilityModule, Target: ModulePtStop2StopAnalysis}},
		{GroupCore, BindingSpec{Capability: CapabilityModule, Target: ModuleLeipzigPtFare}},
		{GroupCore, BindingSpec{Capability: CapabilityTravelTime, Target: rideMode, Implementation: TravelTimeNetwork}},
		{GroupCore, BindingSpec{Capability: CapabilityTravelDisutility, Target: rideMode, Implementation: TravelDisutilityCarFactory}},
		{GroupCore, BindingSpec{
			Capability:     CapabilityScoringParams,
			Target:         ScoringParametersForPerson,
			Implementation: scoring.Name(),
			Parameterize:   scoringParams,
		}},
		{GroupCore, BindingSpec{Capability: CapabilityMainModeIdentifier, Target: AnalysisMainModeIdentifier, Implementation: LeipzigMainModeIdentifier}},
		{GroupCore, BindingSpec{Capability: CapabilityControllerListener, Target: ModeChoiceCoverageListener}},

		{GroupParking, BindingSpec{Capability: CapabilityPrepareForSim, Target: LeipzigRouterPlanAlgorithm, Condition: parkingEnabled}},
		{GroupParking, BindingSpec{Capability: CapabilityPlanStrategy, Target: resolver.ReRouteLeipzig, Implementation: LeipzigRoutingStrategy, Condition: parkingEnabled}},
		{GroupParking, BindingSpec{Capability: CapabilityPlanStrategy, Target: resolver.SubtourModeChoiceLeipzig, Implementation: LeipzigSubtourModeChoice, Condition: parkingEnabled}},
		{GroupParking, BindingSpec{Capability: CapabilityOverride, Target: PermissibleModesCalculator, Implementation: PermissibleModesCalculatorImp, Condition: parkingEnabled}},
		{GroupParking, BindingSpec{Capability: CapabilityEventHandler, Target: TimeRestrictedParkingCost, Condition: parkingEnabled, Parameterize: parkingWindow}},
		{GroupParking, BindingSpec{Capability: CapabilityModule, Target: ModulePersonMoneyEventsAnalysis, Condition: parkingEnabled}},

		{GroupDrt, BindingSpec{Capability: CapabilityModule, Target: ModuleDvrp, Condition: drtConfigured}},
		{GroupDrt, BindingSpec{Capability: CapabilityModule, Target: ModuleMultiModeDrt, Condition: drtConfigured, Parameterize: drtModes}},
		{GroupDrt, BindingSpec{Capability: CapabilityModule, Target: ModuleDvrpQSimComponents, Condition: drtConfigured, Parameterize: drtModes}},
		{GroupDrt, BindingSpec{Capability: CapabilityModule, Target: ModuleDrtFare, Condition: drtConfigured}},
		{GroupDrt, BindingSpec{Capability: CapabilityModule, Target: ModuleDrtAnalysis, Condition: drtConfigured}},
		{GroupDrt, BindingSpec{Capability: CapabilityOverride, Target: IntermodalAccessEgress, Implementation: DrtIntermodalAccessEgress, Condition: drtFeedsPt}},
		{GroupDrt, BindingSpec{Capability: CapabilityControllerListener, Target: IntermodalFareCompensator, Condition: drtFeedsPt}},

		{GroupBicycle, BindingSpec{Capability: CapabilityModule, Target: ModuleBicycle, Condition: bicycleContrib, Parameterize: bicycleMode}},
	}
}
