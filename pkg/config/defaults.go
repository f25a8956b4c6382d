package config

// Version is the scenario input version.
const Version = "1.3"

// CoordinateSystem is the projected CRS of all scenario inputs.
const CoordinateSystem = "EPSG:25832"

// Default returns the baseline Leipzig configuration document. It mirrors the
// shipped 25pct input config and is the base used when no document is given.
func Default() *Config {
	return &Config{
		Global: GlobalConfig{
			CoordinateSystem: CoordinateSystem,
			RandomSeed:       4711,
		},
		Controller: ControllerConfig{
			OutputDirectory: "output/output-leipzig-25pct",
			RunID:           "leipzig-25pct",
			LastIteration:   500,
			OverwriteFiles:  "deleteDirectoryIfExists",
		},
		Network: NetworkConfig{
			InputFile: "leipzig-v" + Version + "-network-with-pt.xml.gz",
		},
		Plans: PlansConfig{
			InputFile: "leipzig-v" + Version + ".1-25pct.plans-initial.xml.gz",
		},
		Facilities: FacilitiesConfig{
			Source: FacilitiesSourceFromFile,
		},
		QSim: QSimConfig{
			FlowCapFactor:    0.25,
			StorageCapFactor: 0.25,
			MainModes:        []string{"car", "freight", "truck"},
			LinkDynamics:     LinkDynamicsFIFO,

			UsePersonIDForMissingVehicleID: true,
		},
		Routing: RoutingConfig{
			NetworkModes: []string{"car", "ride", "freight", "truck", "bike"},
			TeleportedModeParams: []TeleportedModeParams{
				{Mode: "walk", BeelineDistanceFactor: 1.3, TeleportedModeSpeed: 1.0555556},
			},
			AccessEgressType: AccessEgressNone,
		},
		Scoring: ScoringConfig{
			ActivityParams: []ActivityParams{
				{ActivityType: "car interaction", ScoringThisActivityAtAll: Bool(false)},
				{ActivityType: "ride interaction", ScoringThisActivityAtAll: Bool(false)},
				{ActivityType: "pt interaction", ScoringThisActivityAtAll: Bool(false)},
			},
		},
		Replanning: ReplanningConfig{
			FractionOfIterationsToDisableInnovation: 0.9,
			StrategySettings: []StrategySetting{
				{StrategyName: "ChangeExpBeta", Weight: 0.85, Subpopulation: "person"},
				{StrategyName: "ReRoute", Weight: 0.10, Subpopulation: "person"},
				{StrategyName: "SubtourModeChoice", Weight: 0.05, Subpopulation: "person"},
			},
		},
		VspExperimental: VspExperimentalConfig{
			VspDefaultsCheckingLevel: CheckingLevelWarn,
		},
		SwissRailRaptor: &SwissRailRaptorConfig{},
	}
}
