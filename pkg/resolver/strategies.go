package resolver

import "github.com/openleipzig/openleipzig/pkg/config"

// Strategy names.
const (
	ChangeExpBeta            = "ChangeExpBeta"
	ReRoute                  = "ReRoute"
	SubtourModeChoice        = "SubtourModeChoice"
	ReRouteLeipzig           = "ReRouteLeipzig"
	SubtourModeChoiceLeipzig = "SubtourModeChoiceLeipzig"
)

// strategyRenames maps a generic strategy to its parking-aware variant.
var strategyRenames = map[string]string{
	ReRoute:           ReRouteLeipzig,
	SubtourModeChoice: SubtourModeChoiceLeipzig,
}

// RewriteStrategies replaces the generic routing and subtour mode choice
// strategies with their parking-aware variants. Weight, subpopulation and
// order are kept; the input slice is not modified.
func RewriteStrategies(settings []config.StrategySetting) []config.StrategySetting {
	if settings == nil {
		return nil
	}

	out := make([]config.StrategySetting, len(settings))
	for i, s := range settings {
		if renamed, ok := strategyRenames[s.StrategyName]; ok {
			s.StrategyName = renamed
		}
		out[i] = s
	}
	return out
}

// FixedSubpopulations are the agent groups that only select and reroute.
var FixedSubpopulations = []string{
	"outside_person",
	"freight",
	"goodsTraffic",
	"commercialPersonTraffic",
	"commercialPersonTraffic_service",
}

func fixedStrategies(subpopulation string) []config.StrategySetting {
	return []config.StrategySetting{
		{StrategyName: ChangeExpBeta, Weight: 0.95, Subpopulation: subpopulation},
		{StrategyName: ReRoute, Weight: 0.05, Subpopulation: subpopulation},
	}
}
