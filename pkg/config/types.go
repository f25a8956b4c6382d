package config

// Link dynamics supported by the queue simulation.
const (
	LinkDynamicsFIFO     = "FIFO"
	LinkDynamicsPassingQ = "PassingQ"
	LinkDynamicsSeepageQ = "SeepageQ"
)

// Access/egress routing types.
const (
	AccessEgressNone                 = "none"
	AccessEgressModeToLink           = "accessEgressModeToLink"
	AccessEgressWalkConstantTimeLink = "walkConstantTimeToLink"
)

// Facilities sources.
const (
	FacilitiesSourceNone     = "none"
	FacilitiesSourceFromFile = "fromFile"
)

// VSP defaults checking levels.
const (
	CheckingLevelIgnore = "ignore"
	CheckingLevelInfo   = "info"
	CheckingLevelWarn   = "warn"
	CheckingLevelAbort  = "abort"
)

// Config is the declarative simulation configuration document.
// Optional modules are pointers; a nil module is absent from the document.
type Config struct {
	// Global holds scenario-wide settings.
	Global GlobalConfig `json:"global" yaml:"global"`

	// Controller configures output and iterations.
	Controller ControllerConfig `json:"controller" yaml:"controller"`

	// Network references the network input.
	Network NetworkConfig `json:"network" yaml:"network"`

	// Plans references the population input.
	Plans PlansConfig `json:"plans" yaml:"plans"`

	// Facilities configures where activity facilities come from.
	Facilities FacilitiesConfig `json:"facilities" yaml:"facilities"`

	// QSim configures the mobility simulation.
	QSim QSimConfig `json:"qsim" yaml:"qsim"`

	// Routing configures network and teleported modes.
	Routing RoutingConfig `json:"routing" yaml:"routing"`

	// Scoring holds activity scoring parameters.
	Scoring ScoringConfig `json:"scoring" yaml:"scoring"`

	// Replanning holds the replanning strategies.
	Replanning ReplanningConfig `json:"replanning" yaml:"replanning"`

	// VspExperimental configures consistency checking.
	VspExperimental VspExperimentalConfig `json:"vspExperimental" yaml:"vspExperimental"`

	// Bicycle is present when the bicycle module is active.
	Bicycle *BicycleConfig `json:"bicycle,omitempty" yaml:"bicycle,omitempty"`

	// ParkingCost is present when the parking cost module is active.
	ParkingCost *ParkingCostConfig `json:"parkingCost,omitempty" yaml:"parkingCost,omitempty"`

	// MultiModeDrt is present when DRT is configured.
	MultiModeDrt *MultiModeDrtConfig `json:"multiModeDrt,omitempty" yaml:"multiModeDrt,omitempty"`

	// SwissRailRaptor configures the pt router.
	SwissRailRaptor *SwissRailRaptorConfig `json:"swissRailRaptor,omitempty" yaml:"swissRailRaptor,omitempty"`

	// SimWrapper configures the dashboards.
	SimWrapper *SimWrapperConfig `json:"simwrapper,omitempty" yaml:"simwrapper,omitempty"`
}

// GlobalConfig holds scenario-wide settings.
type GlobalConfig struct {
	CoordinateSystem string `json:"coordinateSystem,omitempty" yaml:"coordinateSystem,omitempty"`
	RandomSeed       int64  `json:"randomSeed,omitempty" yaml:"randomSeed,omitempty"`
}

// ControllerConfig configures output and iterations.
type ControllerConfig struct {
	OutputDirectory string `json:"outputDirectory" yaml:"outputDirectory"`
	RunID           string `json:"runId" yaml:"runId"`
	LastIteration   int    `json:"lastIteration" yaml:"lastIteration"`
	OverwriteFiles  string `json:"overwriteFiles,omitempty" yaml:"overwriteFiles,omitempty"`
}

// NetworkConfig references the network input.
type NetworkConfig struct {
	InputFile string `json:"inputNetworkFile,omitempty" yaml:"inputNetworkFile,omitempty"`
}

// PlansConfig references the population input.
type PlansConfig struct {
	InputFile string `json:"inputPlansFile" yaml:"inputPlansFile"`
}

// FacilitiesConfig configures where activity facilities come from.
type FacilitiesConfig struct {
	Source string `json:"facilitiesSource,omitempty" yaml:"facilitiesSource,omitempty"`
}

// QSimConfig configures the mobility simulation.
type QSimConfig struct {
	FlowCapFactor                       float64  `json:"flowCapacityFactor" yaml:"flowCapacityFactor"`
	StorageCapFactor                    float64  `json:"storageCapacityFactor" yaml:"storageCapacityFactor"`
	MainModes                           []string `json:"mainMode,omitempty" yaml:"mainMode,omitempty"`
	LinkDynamics                        string   `json:"linkDynamics,omitempty" yaml:"linkDynamics,omitempty"`
	UsingTravelTimeCheckInTeleportation bool     `json:"usingTravelTimeCheckInTeleportation" yaml:"usingTravelTimeCheckInTeleportation"`
	UsePersonIDForMissingVehicleID      bool     `json:"usePersonIdForMissingVehicleId" yaml:"usePersonIdForMissingVehicleId"`
}

// HasMainMode reports whether the mode is simulated on the network.
func (q *QSimConfig) HasMainMode(mode string) bool {
	return containsString(q.MainModes, mode)
}

// RoutingConfig configures network and teleported modes.
type RoutingConfig struct {
	NetworkModes         []string               `json:"networkModes,omitempty" yaml:"networkModes,omitempty"`
	TeleportedModeParams []TeleportedModeParams `json:"teleportedModeParameters,omitempty" yaml:"teleportedModeParameters,omitempty"`
	AccessEgressType     string                 `json:"accessEgressType,omitempty" yaml:"accessEgressType,omitempty"`
}

// HasNetworkMode reports whether the mode is routed on the network.
func (r *RoutingConfig) HasNetworkMode(mode string) bool {
	return containsString(r.NetworkModes, mode)
}

// TeleportedParams returns the teleported mode parameters for a mode.
func (r *RoutingConfig) TeleportedParams(mode string) (TeleportedModeParams, bool) {
	for _, p := range r.TeleportedModeParams {
		if p.Mode == mode {
			return p, true
		}
	}
	return TeleportedModeParams{}, false
}

// TeleportedModeParams configures a teleported mode.
type TeleportedModeParams struct {
	Mode                  string  `json:"mode" yaml:"mode"`
	BeelineDistanceFactor float64 `json:"beelineDistanceFactor,omitempty" yaml:"beelineDistanceFactor,omitempty"`
	TeleportedModeSpeed   float64 `json:"teleportedModeSpeed,omitempty" yaml:"teleportedModeSpeed,omitempty"`
}

// ScoringConfig holds activity scoring parameters.
type ScoringConfig struct {
	ActivityParams []ActivityParams `json:"activityParams,omitempty" yaml:"activityParams,omitempty"`
}

// Activity returns the parameters registered for an activity type.
func (s *ScoringConfig) Activity(activityType string) (ActivityParams, bool) {
	for _, p := range s.ActivityParams {
		if p.ActivityType == activityType {
			return p, true
		}
	}
	return ActivityParams{}, false
}

// AddActivityParamsIfAbsent registers params unless the activity type already exists.
// It returns true when the params were added.
func (s *ScoringConfig) AddActivityParamsIfAbsent(p ActivityParams) bool {
	if _, ok := s.Activity(p.ActivityType); ok {
		return false
	}
	s.ActivityParams = append(s.ActivityParams, p)
	return true
}

// SetActivityParams registers params, replacing an existing entry of the same type.
func (s *ScoringConfig) SetActivityParams(p ActivityParams) {
	for i := range s.ActivityParams {
		if s.ActivityParams[i].ActivityType == p.ActivityType {
			s.ActivityParams[i] = p
			return
		}
	}
	s.ActivityParams = append(s.ActivityParams, p)
}

// ActivityParams are the scoring parameters of one activity type.
// Times are in seconds.
type ActivityParams struct {
	ActivityType    string   `json:"activityType" yaml:"activityType"`
	TypicalDuration float64  `json:"typicalDuration,omitempty" yaml:"typicalDuration,omitempty"`
	OpeningTime     *float64 `json:"openingTime,omitempty" yaml:"openingTime,omitempty"`
	ClosingTime     *float64 `json:"closingTime,omitempty" yaml:"closingTime,omitempty"`
	LatestStartTime *float64 `json:"latestStartTime,omitempty" yaml:"latestStartTime,omitempty"`

	// ScoringThisActivityAtAll defaults to true when nil.
	ScoringThisActivityAtAll *bool `json:"scoringThisActivityAtAll,omitempty" yaml:"scoringThisActivityAtAll,omitempty"`
}

// Scored reports whether the activity contributes to the plan score.
func (p ActivityParams) Scored() bool {
	return p.ScoringThisActivityAtAll == nil || *p.ScoringThisActivityAtAll
}

// ReplanningConfig holds the replanning strategies.
type ReplanningConfig struct {
	FractionOfIterationsToDisableInnovation float64           `json:"fractionOfIterationsToDisableInnovation,omitempty" yaml:"fractionOfIterationsToDisableInnovation,omitempty"`
	StrategySettings                        []StrategySetting `json:"strategySettings,omitempty" yaml:"strategySettings,omitempty"`
}

// HasStrategy reports whether a strategy with the name exists for the subpopulation.
func (r *ReplanningConfig) HasStrategy(name, subpopulation string) bool {
	for _, s := range r.StrategySettings {
		if s.StrategyName == name && s.Subpopulation == subpopulation {
			return true
		}
	}
	return false
}

// WeightBySubpopulation sums strategy weights per subpopulation.
func (r *ReplanningConfig) WeightBySubpopulation() map[string]float64 {
	weights := make(map[string]float64)
	for _, s := range r.StrategySettings {
		weights[s.Subpopulation] += s.Weight
	}
	return weights
}

// StrategySetting configures one replanning strategy.
type StrategySetting struct {
	StrategyName  string  `json:"strategyName" yaml:"strategyName"`
	Weight        float64 `json:"weight" yaml:"weight"`
	Subpopulation string  `json:"subpopulation,omitempty" yaml:"subpopulation,omitempty"`
}

// VspExperimentalConfig configures consistency checking.
type VspExperimentalConfig struct {
	VspDefaultsCheckingLevel string `json:"vspDefaultsCheckingLevel,omitempty" yaml:"vspDefaultsCheckingLevel,omitempty"`
}

// BicycleConfig configures the bicycle module.
type BicycleConfig struct {
	BicycleMode string `json:"bicycleMode" yaml:"bicycleMode"`
}

// ParkingCostConfig configures the parking cost module. Attribute names
// refer to link attributes carrying the cost values.
type ParkingCostConfig struct {
	Mode                                  string `json:"mode" yaml:"mode"`
	DailyParkingCostLinkAttributeName     string `json:"dailyParkingCostLinkAttributeName" yaml:"dailyParkingCostLinkAttributeName"`
	FirstHourParkingCostLinkAttributeName string `json:"firstHourParkingCostLinkAttributeName" yaml:"firstHourParkingCostLinkAttributeName"`
	ExtraHourParkingCostLinkAttributeName string `json:"extraHourParkingCostLinkAttributeName" yaml:"extraHourParkingCostLinkAttributeName"`
	MaxDailyParkingCostLinkAttributeName  string `json:"maxDailyParkingCostLinkAttributeName" yaml:"maxDailyParkingCostLinkAttributeName"`
	MaxParkingDurationAttributeName       string `json:"maxParkingDurationAttributeName" yaml:"maxParkingDurationAttributeName"`
	ParkingPenaltyAttributeName           string `json:"parkingPenaltyAttributeName" yaml:"parkingPenaltyAttributeName"`
	ResidentialParkingFeeAttributeName    string `json:"residentialParkingFeeAttributeName" yaml:"residentialParkingFeeAttributeName"`
	ActivityPrefixForDailyParkingCosts    string `json:"activityPrefixForDailyParkingCosts" yaml:"activityPrefixForDailyParkingCosts"`
}

// DefaultParkingCostConfig returns the parking cost module defaults.
func DefaultParkingCostConfig() *ParkingCostConfig {
	return &ParkingCostConfig{
		Mode:                                  "car",
		DailyParkingCostLinkAttributeName:     "dailyPCost",
		FirstHourParkingCostLinkAttributeName: "oneHourPCost",
		ExtraHourParkingCostLinkAttributeName: "extraHourPCost",
		MaxDailyParkingCostLinkAttributeName:  "maxDailyPCost",
		MaxParkingDurationAttributeName:       "maxPDuration",
		ParkingPenaltyAttributeName:           "penalty",
		ResidentialParkingFeeAttributeName:    "residentialPFee",
		ActivityPrefixForDailyParkingCosts:    "home",
	}
}

// MultiModeDrtConfig holds one entry per DRT mode.
type MultiModeDrtConfig struct {
	Modes []DrtConfig `json:"drt,omitempty" yaml:"drt,omitempty"`
}

// Mode returns the DRT configuration for a mode.
func (m *MultiModeDrtConfig) Mode(mode string) (DrtConfig, bool) {
	for _, d := range m.Modes {
		if d.Mode == mode {
			return d, true
		}
	}
	return DrtConfig{}, false
}

// ModeNames returns the configured DRT mode names.
func (m *MultiModeDrtConfig) ModeNames() []string {
	names := make([]string, 0, len(m.Modes))
	for _, d := range m.Modes {
		names = append(names, d.Mode)
	}
	return names
}

// DRT operational schemes.
const (
	OperationalSchemeServiceAreaBased = "serviceAreaBased"
	OperationalSchemeDoor2Door        = "door2door"
	OperationalSchemeStopBased        = "stopbased"
)

// DrtConfig configures one DRT mode.
type DrtConfig struct {
	Mode                      string  `json:"mode" yaml:"mode"`
	OperationalScheme         string  `json:"operationalScheme" yaml:"operationalScheme"`
	DrtServiceAreaShapeFile   string  `json:"drtServiceAreaShapeFile,omitempty" yaml:"drtServiceAreaShapeFile,omitempty"`
	VehiclesFile              string  `json:"vehiclesFile,omitempty" yaml:"vehiclesFile,omitempty"`
	StopDuration              float64 `json:"stopDuration,omitempty" yaml:"stopDuration,omitempty"`
	MaxWaitTime               float64 `json:"maxWaitTime,omitempty" yaml:"maxWaitTime,omitempty"`
	MaxTravelTimeAlpha        float64 `json:"maxTravelTimeAlpha,omitempty" yaml:"maxTravelTimeAlpha,omitempty"`
	MaxTravelTimeBeta         float64 `json:"maxTravelTimeBeta,omitempty" yaml:"maxTravelTimeBeta,omitempty"`
	UseModeFilteredSubnetwork bool    `json:"useModeFilteredSubnetwork,omitempty" yaml:"useModeFilteredSubnetwork,omitempty"`
}

// SwissRailRaptorConfig configures the pt router.
type SwissRailRaptorConfig struct {
	UseIntermodalAccessEgress bool                           `json:"useIntermodalAccessEgress" yaml:"useIntermodalAccessEgress"`
	IntermodalAccessEgress    []IntermodalAccessEgressParams `json:"intermodalAccessEgress,omitempty" yaml:"intermodalAccessEgress,omitempty"`
}

// AccessEgress returns the intermodal parameters for a mode.
func (s *SwissRailRaptorConfig) AccessEgress(mode string) (IntermodalAccessEgressParams, bool) {
	for _, p := range s.IntermodalAccessEgress {
		if p.Mode == mode {
			return p, true
		}
	}
	return IntermodalAccessEgressParams{}, false
}

// IntermodalAccessEgressParams configures one access/egress mode to pt.
type IntermodalAccessEgressParams struct {
	Mode                  string  `json:"mode" yaml:"mode"`
	MaxRadius             float64 `json:"maxRadius" yaml:"maxRadius"`
	InitialSearchRadius   float64 `json:"initialSearchRadius" yaml:"initialSearchRadius"`
	SearchExtensionRadius float64 `json:"searchExtensionRadius" yaml:"searchExtensionRadius"`
	StopFilterAttribute   string  `json:"stopFilterAttribute,omitempty" yaml:"stopFilterAttribute,omitempty"`
	StopFilterValue       string  `json:"stopFilterValue,omitempty" yaml:"stopFilterValue,omitempty"`
}

// SimWrapperConfig configures the dashboards.
type SimWrapperConfig struct {
	SampleSize    float64                `json:"sampleSize" yaml:"sampleSize"`
	DefaultParams SimWrapperDefaultParams `json:"defaultParams" yaml:"defaultParams"`
}

// SimWrapperDefaultParams are the dashboard defaults.
type SimWrapperDefaultParams struct {
	Shp          string  `json:"shp,omitempty" yaml:"shp,omitempty"`
	MapCenter    string  `json:"mapCenter,omitempty" yaml:"mapCenter,omitempty"`
	MapZoomLevel float64 `json:"mapZoomLevel,omitempty" yaml:"mapZoomLevel,omitempty"`
}

func containsString(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
