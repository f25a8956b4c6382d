package compose

import (
	"fmt"

	"github.com/openleipzig/openleipzig/pkg/options"
	"github.com/openleipzig/openleipzig/pkg/resolver"
)

// Capability identifies the controller extension point a binding targets.
type Capability string

const (
	// CapabilityTravelTime binds a travel time for a mode.
	CapabilityTravelTime Capability = "TravelTime"

	// CapabilityTravelDisutility binds a travel disutility factory for a mode.
	CapabilityTravelDisutility Capability = "TravelDisutility"

	// CapabilityEventHandler adds an event handler.
	CapabilityEventHandler Capability = "EventHandler"

	// CapabilityControllerListener adds a controller listener.
	CapabilityControllerListener Capability = "ControllerListener"

	// CapabilityPlanStrategy binds a named plan strategy.
	CapabilityPlanStrategy Capability = "PlanStrategy"

	// CapabilityScoringParams binds the per-person scoring parameters.
	CapabilityScoringParams Capability = "ScoringParams"

	// CapabilityMainModeIdentifier binds the analysis main mode identifier.
	CapabilityMainModeIdentifier Capability = "MainModeIdentifier"

	// CapabilityModule installs an opaque module.
	CapabilityModule Capability = "Module"

	// CapabilityPrepareForSim adds a pre-simulation plan algorithm.
	CapabilityPrepareForSim Capability = "PrepareForSim"

	// CapabilityOverride rebinds an interface to another implementation.
	CapabilityOverride Capability = "Override"
)

// Capabilities lists every known capability.
var Capabilities = []Capability{
	CapabilityTravelTime,
	CapabilityTravelDisutility,
	CapabilityEventHandler,
	CapabilityControllerListener,
	CapabilityPlanStrategy,
	CapabilityScoringParams,
	CapabilityMainModeIdentifier,
	CapabilityModule,
	CapabilityPrepareForSim,
	CapabilityOverride,
}

// IsValid reports whether c is a known capability.
func (c Capability) IsValid() bool {
	for _, known := range Capabilities {
		if c == known {
			return true
		}
	}
	return false
}

// Condition decides whether a binding is composed.
type Condition func(resolved *resolver.ResolvedConfig, opts *options.OptionSet) bool

// ParamsFunc derives binding parameters from the build inputs.
type ParamsFunc func(resolved *resolver.ResolvedConfig, opts *options.OptionSet) map[string]interface{}

// BindingSpec describes one behavior module for installation into the
// controller. Specs are computed once per build and never mutated after.
type BindingSpec struct {
	// Capability is the extension point.
	Capability Capability `json:"capability" yaml:"capability"`

	// Target is what gets bound: a mode, strategy name, interface or module.
	Target string `json:"target" yaml:"target"`

	// Implementation is what the target is bound to, if not the target itself.
	Implementation string `json:"implementation,omitempty" yaml:"implementation,omitempty"`

	// Group is the composition group the spec belongs to.
	Group string `json:"group" yaml:"group"`

	// Params are the installation parameters.
	Params map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`

	// Condition gates the spec; nil means always.
	Condition Condition `json:"-" yaml:"-"`

	// Parameterize fills Params at composition time; nil keeps Params.
	Parameterize ParamsFunc `json:"-" yaml:"-"`
}

// Key returns the identity of the binding within a build.
func (b BindingSpec) Key() string {
	return fmt.Sprintf("%s/%s/%s", b.Group, b.Capability, b.Target)
}

// String returns a readable form of the binding.
func (b BindingSpec) String() string {
	if b.Implementation == "" {
		return fmt.Sprintf("%s(%s)", b.Capability, b.Target)
	}
	return fmt.Sprintf("%s(%s -> %s)", b.Capability, b.Target, b.Implementation)
}

// ScoringParametersProvider supplies the per-person scoring parameters
// binding. It is injected into the composer instead of living in a global.
type ScoringParametersProvider interface {
	// Name is the implementation bound to the scoring parameters interface.
	Name() string

	// Params are the provider parameters for a resolved configuration.
	Params(resolved *resolver.ResolvedConfig) map[string]interface{}
}

// IncomeDependentScoring scales the marginal utility of money by income.
type IncomeDependentScoring struct {
	// IncomeAttribute is the person attribute carrying the income.
	IncomeAttribute string
}

// Name implements ScoringParametersProvider.
func (s IncomeDependentScoring) Name() string {
	return "IncomeDependentUtilityOfMoneyPersonScoringParameters"
}

// Params implements ScoringParametersProvider.
func (s IncomeDependentScoring) Params(_ *resolver.ResolvedConfig) map[string]interface{} {
	attr := s.IncomeAttribute
	if attr == "" {
		attr = "income"
	}
	return map[string]interface{}{"incomeAttribute": attr}
}
