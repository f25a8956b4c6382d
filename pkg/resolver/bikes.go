package resolver

import (
	"fmt"

	"github.com/openleipzig/openleipzig/pkg/config"
	"github.com/openleipzig/openleipzig/pkg/engine"
	"github.com/openleipzig/openleipzig/pkg/options"
)

// BikeMode is the transport mode simulated for bicycles.
const BikeMode = "bike"

// Teleported bike defaults.
const (
	BikeBeelineDistanceFactor = 1.3
	BikeTeleportedModeSpeed   = 3.1388889
)

// bikeTransition mutates a configuration for one bike handling mode.
type bikeTransition func(cfg *config.Config)

// bikeTransitions holds exactly one entry per bike handling mode.
var bikeTransitions = map[options.BikeHandling]bikeTransition{
	options.BikeOnNetworkStandard: bikeOnNetwork,
	options.BikeOnNetworkWithContrib: func(cfg *config.Config) {
		bikeOnNetwork(cfg)
		if cfg.Bicycle == nil {
			cfg.Bicycle = &config.BicycleConfig{}
		}
		cfg.Bicycle.BicycleMode = BikeMode
	},
	options.BikeTeleported: bikeTeleported,
}

// applyBikeHandling runs the transition for mode.
func applyBikeHandling(cfg *config.Config, mode options.BikeHandling) error {
	transition, ok := bikeTransitions[mode]
	if !ok {
		return engine.NewUnsupportedModeError(
			fmt.Sprintf("unexpected bike handling mode %q", mode), nil,
		).WithStage(StageBikeHandling)
	}
	transition(cfg)
	return nil
}

// bikeOnNetwork simulates bikes on the network with overtaking.
func bikeOnNetwork(cfg *config.Config) {
	cfg.QSim.MainModes = addMode(cfg.QSim.MainModes, BikeMode)
	cfg.Routing.NetworkModes = addMode(cfg.Routing.NetworkModes, BikeMode)
	cfg.QSim.LinkDynamics = config.LinkDynamicsPassingQ
}

// bikeTeleported routes bikes by beeline distance.
func bikeTeleported(cfg *config.Config) {
	cfg.Routing.NetworkModes = removeMode(cfg.Routing.NetworkModes, BikeMode)

	if _, ok := cfg.Routing.TeleportedParams(BikeMode); !ok {
		cfg.Routing.TeleportedModeParams = append(cfg.Routing.TeleportedModeParams, config.TeleportedModeParams{
			Mode:                  BikeMode,
			BeelineDistanceFactor: BikeBeelineDistanceFactor,
			TeleportedModeSpeed:   BikeTeleportedModeSpeed,
		})
	}
}

func addMode(modes []string, mode string) []string {
	for _, m := range modes {
		if m == mode {
			return modes
		}
	}
	return append(modes, mode)
}

func removeMode(modes []string, mode string) []string {
	out := make([]string, 0, len(modes))
	for _, m := range modes {
		if m != mode {
			out = append(out, m)
		}
	}
	return out
}
