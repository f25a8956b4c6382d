package resolver

import (
	"github.com/openleipzig/openleipzig/pkg/config"
	"github.com/openleipzig/openleipzig/pkg/options"
)

// Dashboard defaults. Paths are relative to the config file.
const (
	SimWrapperShp       = "../leipzig-utm32n/leipzig-utm32n.shp"
	SimWrapperMapCenter = "12.38,51.34"
	SimWrapperMapZoom   = 10.3
)

// DRT defaults of the Leipzig service area.
const (
	DrtMode              = "drt"
	DrtStopFilter        = "drtStopFilter"
	DrtStopFilterValue   = "station_S/U/RE/RB_drtServiceArea"
	drtStopDuration      = 60
	drtMaxWaitTime       = 1200
	drtMaxTravelAlpha    = 1.5
	drtMaxTravelBeta     = 600
	drtAccessMaxRadius   = 10000
	drtAccessSearch      = 3000
	drtAccessExtension   = 1000
	walkAccessMaxRadius  = 100000
	walkAccessSearch     = 1500
	walkAccessExtension  = 1000
	drtInteractionScored = false
)

func applyActivityParams(cfg *config.Config, _ *options.OptionSet) error {
	injectActivityParams(&cfg.Scoring)
	return nil
}

// applyControllerDefaults sets the checks and routing defaults every run uses.
// Facilities are coordinates only; parking rerouting may change link ids.
func applyControllerDefaults(cfg *config.Config, _ *options.OptionSet) error {
	cfg.VspExperimental.VspDefaultsCheckingLevel = config.CheckingLevelAbort
	cfg.Routing.AccessEgressType = config.AccessEgressModeToLink
	cfg.QSim.UsingTravelTimeCheckInTeleportation = true
	cfg.QSim.UsePersonIDForMissingVehicleID = false
	cfg.Facilities.Source = config.FacilitiesSourceNone
	return nil
}

func applySubpopulationStrategies(cfg *config.Config, _ *options.OptionSet) error {
	for _, subpop := range FixedSubpopulations {
		for _, s := range fixedStrategies(subpop) {
			if !cfg.Replanning.HasStrategy(s.StrategyName, s.Subpopulation) {
				cfg.Replanning.StrategySettings = append(cfg.Replanning.StrategySettings, s)
			}
		}
	}
	return nil
}

func applySample(cfg *config.Config, opts *options.OptionSet) error {
	sample := opts.Sample()
	if !sample.IsSet() {
		return nil
	}

	cfg.Controller.OutputDirectory = sample.AdjustName(cfg.Controller.OutputDirectory)
	cfg.Controller.RunID = sample.AdjustName(cfg.Controller.RunID)
	cfg.Plans.InputFile = sample.AdjustName(cfg.Plans.InputFile)

	cfg.QSim.FlowCapFactor = sample.Fraction()
	cfg.QSim.StorageCapFactor = sample.Fraction()
	return nil
}

func applyBikes(cfg *config.Config, opts *options.OptionSet) error {
	return applyBikeHandling(cfg, opts.Bike())
}

func applyParking(cfg *config.Config, opts *options.OptionSet) error {
	if !opts.Parking().Enabled {
		return nil
	}

	if cfg.ParkingCost == nil {
		cfg.ParkingCost = config.DefaultParkingCostConfig()
	}

	cfg.Scoring.SetActivityParams(config.ActivityParams{
		ActivityType:             ParkingInteraction,
		ScoringThisActivityAtAll: config.Bool(false),
	})

	cfg.Replanning.StrategySettings = RewriteStrategies(cfg.Replanning.StrategySettings)
	return nil
}

func applySimWrapper(cfg *config.Config, opts *options.OptionSet) error {
	if cfg.SimWrapper == nil {
		cfg.SimWrapper = &config.SimWrapperConfig{SampleSize: 1.0}
	}

	cfg.SimWrapper.DefaultParams.Shp = SimWrapperShp
	cfg.SimWrapper.DefaultParams.MapCenter = SimWrapperMapCenter
	cfg.SimWrapper.DefaultParams.MapZoomLevel = SimWrapperMapZoom

	if opts.Sample().IsSet() {
		cfg.SimWrapper.SampleSize = opts.Sample().Fraction()
	}
	return nil
}

// applyDrtConfig registers the drt mode for the selected service area. The
// pt router gets intermodal access and egress when drt feeds pt.
func applyDrtConfig(cfg *config.Config, opts *options.OptionSet) error {
	if !opts.HasDrtArea() {
		return nil
	}

	if cfg.MultiModeDrt == nil {
		cfg.MultiModeDrt = &config.MultiModeDrtConfig{}
	}
	if _, ok := cfg.MultiModeDrt.Mode(DrtMode); !ok {
		cfg.MultiModeDrt.Modes = append(cfg.MultiModeDrt.Modes, config.DrtConfig{
			Mode:                      DrtMode,
			OperationalScheme:         config.OperationalSchemeServiceAreaBased,
			DrtServiceAreaShapeFile:   opts.Areas().DrtArea,
			VehiclesFile:              "leipzig-v" + config.Version + "-drt-vehicles.xml",
			StopDuration:              drtStopDuration,
			MaxWaitTime:               drtMaxWaitTime,
			MaxTravelTimeAlpha:        drtMaxTravelAlpha,
			MaxTravelTimeBeta:         drtMaxTravelBeta,
			UseModeFilteredSubnetwork: true,
		})
	}

	cfg.Scoring.AddActivityParamsIfAbsent(config.ActivityParams{
		ActivityType:             DrtMode + " interaction",
		ScoringThisActivityAtAll: config.Bool(drtInteractionScored),
	})

	if opts.Intermodality() != options.DrtAsAccessEgressForPt {
		return nil
	}

	if cfg.SwissRailRaptor == nil {
		cfg.SwissRailRaptor = &config.SwissRailRaptorConfig{}
	}
	raptor := cfg.SwissRailRaptor
	raptor.UseIntermodalAccessEgress = true

	if _, ok := raptor.AccessEgress("walk"); !ok {
		raptor.IntermodalAccessEgress = append(raptor.IntermodalAccessEgress, config.IntermodalAccessEgressParams{
			Mode:                  "walk",
			MaxRadius:             walkAccessMaxRadius,
			InitialSearchRadius:   walkAccessSearch,
			SearchExtensionRadius: walkAccessExtension,
		})
	}
	if _, ok := raptor.AccessEgress(DrtMode); !ok {
		raptor.IntermodalAccessEgress = append(raptor.IntermodalAccessEgress, config.IntermodalAccessEgressParams{
			Mode:                  DrtMode,
			MaxRadius:             drtAccessMaxRadius,
			InitialSearchRadius:   drtAccessSearch,
			SearchExtensionRadius: drtAccessExtension,
			StopFilterAttribute:   DrtStopFilter,
			StopFilterValue:       DrtStopFilterValue,
		})
	}
	return nil
}
