package options

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// BikeHandling defines how bicycles are simulated.
type BikeHandling string

const (
	// BikeOnNetworkStandard routes and simulates bikes on the network.
	BikeOnNetworkStandard BikeHandling = "onNetworkWithStandardMatsim"

	// BikeOnNetworkWithContrib simulates bikes on the network with the bicycle module.
	BikeOnNetworkWithContrib BikeHandling = "onNetworkWithBicycleContrib"

	// BikeTeleported teleports bikes with beeline distance and fixed speed.
	BikeTeleported BikeHandling = "bikeTeleportedStandardMatsim"
)

// BikeHandlingModes lists every supported bike handling mode.
var BikeHandlingModes = []BikeHandling{BikeOnNetworkStandard, BikeOnNetworkWithContrib, BikeTeleported}

// IsValid reports whether the mode is a known variant.
func (b BikeHandling) IsValid() bool {
	for _, m := range BikeHandlingModes {
		if b == m {
			return true
		}
	}
	return false
}

// DrtIntermodality defines whether drt is used as access and egress mode for pt.
type DrtIntermodality string

const (
	// DrtSeparateFromPt keeps drt and pt as independent main modes.
	DrtSeparateFromPt DrtIntermodality = "drtAndPtSeparateFromEachOther"

	// DrtAsAccessEgressForPt allows drt legs as access and egress to pt.
	DrtAsAccessEgressForPt DrtIntermodality = "drtAsAccessEgressForPt"
)

// IsValid reports whether the intermodality is a known variant.
func (d DrtIntermodality) IsValid() bool {
	return d == DrtSeparateFromPt || d == DrtAsAccessEgressForPt
}

// DefaultSampleSizes are the sample sizes in percent the scenario is published with.
var DefaultSampleSizes = []int{1, 10, 25}

var pctToken = regexp.MustCompile(`[0-9]+(\.[0-9]+)?pct`)

// knownExtensions are kept at the end of a name when the sample suffix is added.
var knownExtensions = []string{".xml.gz", ".csv.gz", ".xml", ".csv", ".pb", ".gz", ".yaml", ".yml", ".json"}

// SampleOptions holds the selected sample size in percent.
type SampleOptions struct {
	size int
	set  bool
}

// NewSample returns sample options for the given size in percent. Zero
// means unset; an explicit 100 is a set sample with fraction 1.
func NewSample(size int) SampleOptions {
	return SampleOptions{size: size, set: size > 0}
}

// IsSet reports whether a sample size was selected.
func (s SampleOptions) IsSet() bool {
	return s.set
}

// Size returns the sample size in percent.
func (s SampleOptions) Size() int {
	if !s.set {
		return 100
	}
	return s.size
}

// Fraction returns the sample size as a fraction in (0,1].
func (s SampleOptions) Fraction() float64 {
	if !s.set {
		return 1.0
	}
	return float64(s.size) / 100.0
}

// Suffix returns the name suffix for the sample, e.g. "-10pct".
func (s SampleOptions) Suffix() string {
	return fmt.Sprintf("-%dpct", s.Size())
}

// AdjustName rewrites a run id or path to carry the sample suffix.
// An existing "<n>pct" token is replaced, the last one in the name wins, so
// applying the adjustment twice yields the same name. Otherwise the suffix is
// inserted before a known file extension of the last path element, or
// appended to it. A trailing slash is kept.
func (s SampleOptions) AdjustName(name string) string {
	if !s.set || name == "" {
		return name
	}

	trimmed := strings.TrimRight(name, "/")
	if trimmed == "" {
		return name
	}
	trailing := name[len(trimmed):]
	token := fmt.Sprintf("%dpct", s.size)

	if locs := pctToken.FindAllStringIndex(trimmed, -1); len(locs) > 0 {
		loc := locs[len(locs)-1]
		return trimmed[:loc[0]] + token + trimmed[loc[1]:] + trailing
	}

	dir, base := path.Split(trimmed)
	for _, ext := range knownExtensions {
		if strings.HasSuffix(base, ext) && len(base) > len(ext) {
			return dir + strings.TrimSuffix(base, ext) + s.Suffix() + ext + trailing
		}
	}

	return dir + base + s.Suffix() + trailing
}

// TimeWindow is a time-of-day interval in hours.
type TimeWindow struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Seconds returns the window bounds in seconds of the day.
func (w TimeWindow) Seconds() (float64, float64) {
	return w.Start * 3600, w.End * 3600
}

// ParkingOptions controls the parking logic.
type ParkingOptions struct {
	Enabled bool       `json:"enabled" yaml:"enabled"`
	Window  TimeWindow `json:"window" yaml:"window"`
}

// AreaSelectors references the policy areas (shape files) of the scenario.
type AreaSelectors struct {
	DrtArea     string `json:"drt_area,omitempty" yaml:"drt_area,omitempty"`
	CarFreeArea string `json:"car_free_area,omitempty" yaml:"car_free_area,omitempty"`
}

// OptionSet is the validated, typed set of scenario options.
// It is immutable once returned from Parse.
type OptionSet struct {
	sample        SampleOptions
	bike          BikeHandling
	parking       ParkingOptions
	intermodality DrtIntermodality
	areas         AreaSelectors
}

// Sample returns the sample options.
func (o *OptionSet) Sample() SampleOptions { return o.sample }

// Bike returns the bike handling mode.
func (o *OptionSet) Bike() BikeHandling { return o.bike }

// Parking returns the parking options.
func (o *OptionSet) Parking() ParkingOptions { return o.parking }

// Intermodality returns the drt intermodality mode.
func (o *OptionSet) Intermodality() DrtIntermodality { return o.intermodality }

// Areas returns the area selectors.
func (o *OptionSet) Areas() AreaSelectors { return o.areas }

// HasDrtArea reports whether a DRT service area was selected.
func (o *OptionSet) HasDrtArea() bool { return o.areas.DrtArea != "" }

// HasCarFreeArea reports whether a car-free area was selected.
func (o *OptionSet) HasCarFreeArea() bool { return o.areas.CarFreeArea != "" }

// String summarizes the options for logging.
func (o *OptionSet) String() string {
	return fmt.Sprintf("sample=%d%% bikes=%s parking=%t window=[%g,%g] intermodality=%s drtArea=%q carFreeArea=%q",
		o.sample.Size(), o.bike, o.parking.Enabled, o.parking.Window.Start, o.parking.Window.End,
		o.intermodality, o.areas.DrtArea, o.areas.CarFreeArea)
}
