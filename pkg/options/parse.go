package options

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/openleipzig/openleipzig/pkg/engine"
)

// Raw holds the unparsed option values as they come from the command line
// or an options file.
type Raw struct {
	// SampleSize is the sample size in percent; 0 means unset (100%). Any
	// other value must be one of the allowed sizes.
	SampleSize int `json:"sample_size" yaml:"sample_size" flag:"sample-size" validate:"gte=0,lte=100"`

	// AllowedSampleSizes overrides DefaultSampleSizes when non-empty.
	AllowedSampleSizes []int `json:"allowed_sample_sizes,omitempty" yaml:"allowed_sample_sizes,omitempty" flag:"allowed-sample-sizes" validate:"omitempty,dive,gt=0,lte=100"`

	// Bikes is the bike handling mode name.
	Bikes string `json:"bikes" yaml:"bikes" flag:"bikes"`

	// Parking enables the parking logic.
	Parking bool `json:"parking" yaml:"parking" flag:"parking"`

	// ParkingCostTimePeriodStart is the hour of day parking cost starts being charged.
	ParkingCostTimePeriodStart float64 `json:"parking_cost_time_period_start" yaml:"parking_cost_time_period_start" flag:"parking-cost-time-period-start"`

	// ParkingCostTimePeriodEnd is the hour of day parking cost stops being charged.
	ParkingCostTimePeriodEnd float64 `json:"parking_cost_time_period_end" yaml:"parking_cost_time_period_end" flag:"parking-cost-time-period-end"`

	// Intermodality is the drt intermodality mode name.
	Intermodality string `json:"intermodality" yaml:"intermodality" flag:"intermodality"`

	// DrtArea is the path of the DRT service area shape.
	DrtArea string `json:"drt_area,omitempty" yaml:"drt_area,omitempty" flag:"drt-area" validate:"omitempty,min=1"`

	// CarFreeArea is the path of the car-free area shape.
	CarFreeArea string `json:"car_free_area,omitempty" yaml:"car_free_area,omitempty" flag:"car-free-area" validate:"omitempty,min=1"`
}

// Defaults returns the raw option defaults.
func Defaults() Raw {
	return Raw{
		Bikes:         string(BikeOnNetworkStandard),
		Parking:       true,
		Intermodality: string(DrtSeparateFromPt),
	}
}

// Parser validates raw option values and builds OptionSets.
type Parser struct {
	validator *validator.Validate
}

// NewParser creates a new option parser.
func NewParser() *Parser {
	v := validator.New()

	// Report flag names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("flag"), ",", 2)[0]
		if name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterStructValidation(validateRaw, Raw{})

	return &Parser{validator: v}
}

// Parse parses raw values into an OptionSet using a fresh parser.
func Parse(raw Raw) (*OptionSet, error) {
	return NewParser().Parse(raw)
}

// Parse parses raw values into a typed OptionSet.
// It has no side effects.
func (p *Parser) Parse(raw Raw) (*OptionSet, error) {
	if raw.Intermodality == "" {
		raw.Intermodality = string(DrtSeparateFromPt)
	}

	if err := p.validator.Struct(raw); err != nil {
		return nil, toOptionError(err)
	}

	bike := BikeHandling(raw.Bikes)
	if raw.Bikes == "" {
		bike = BikeOnNetworkStandard
	}
	if !bike.IsValid() {
		return nil, engine.NewUnsupportedModeError(
			fmt.Sprintf("unexpected bike handling mode %q", raw.Bikes), nil,
		).WithDetail("option", "bikes")
	}

	intermodality := DrtIntermodality(raw.Intermodality)

	return &OptionSet{
		sample:        NewSample(raw.SampleSize),
		bike:          bike,
		intermodality: intermodality,
		parking: ParkingOptions{
			Enabled: raw.Parking,
			Window: TimeWindow{
				Start: raw.ParkingCostTimePeriodStart,
				End:   raw.ParkingCostTimePeriodEnd,
			},
		},
		areas: AreaSelectors{
			DrtArea:     raw.DrtArea,
			CarFreeArea: raw.CarFreeArea,
		},
	}, nil
}

// validateRaw holds the cross-field rules that struct tags cannot express.
func validateRaw(sl validator.StructLevel) {
	raw := sl.Current().Interface().(Raw)

	if raw.SampleSize > 0 {
		allowed := raw.AllowedSampleSizes
		if len(allowed) == 0 {
			allowed = DefaultSampleSizes
		}
		if !containsInt(allowed, raw.SampleSize) {
			sl.ReportError(raw.SampleSize, "sample-size", "SampleSize", "allowedsample", joinInts(allowed))
		}
	}

	if !DrtIntermodality(raw.Intermodality).IsValid() {
		if raw.DrtArea != "" || raw.CarFreeArea != "" {
			sl.ReportError(raw.Intermodality, "intermodality", "Intermodality", "required_with_area", "")
		} else {
			sl.ReportError(raw.Intermodality, "intermodality", "Intermodality", "oneof",
				fmt.Sprintf("%s %s", DrtSeparateFromPt, DrtAsAccessEgressForPt))
		}
	}

	if raw.Parking {
		if !isHourOfDay(raw.ParkingCostTimePeriodStart) {
			sl.ReportError(raw.ParkingCostTimePeriodStart, "parking-cost-time-period-start",
				"ParkingCostTimePeriodStart", "hourofday", "")
		}
		if !isHourOfDay(raw.ParkingCostTimePeriodEnd) {
			sl.ReportError(raw.ParkingCostTimePeriodEnd, "parking-cost-time-period-end",
				"ParkingCostTimePeriodEnd", "hourofday", "")
		}
	}
}

func isHourOfDay(h float64) bool {
	return h >= 0 && h < 24
}

// toOptionError converts validator errors into an InvalidOptionError for the first failing field.
func toOptionError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return engine.NewInvalidOptionError("", "invalid options", err)
	}

	fe := verrs[0]
	oerr := engine.NewInvalidOptionError(fe.Field(), describe(fe), err)
	if len(verrs) > 1 {
		fields := make([]string, 0, len(verrs))
		for _, e := range verrs {
			fields = append(fields, e.Field())
		}
		oerr.WithDetail("fields", fields)
	}
	return oerr
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "allowedsample":
		return fmt.Sprintf("sample size %v%% is not one of the allowed sizes [%s]", fe.Value(), fe.Param())
	case "hourofday":
		return fmt.Sprintf("parking window bound %v must be within [0, 24) hours", fe.Value())
	case "required_with_area":
		return fmt.Sprintf("area selector given without a resolvable intermodality mode (got %q)", fe.Value())
	case "oneof":
		return fmt.Sprintf("value %v must be one of [%s]", fe.Value(), fe.Param())
	case "gte", "gt", "lte":
		return fmt.Sprintf("value %v violates %s=%s", fe.Value(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("value %v failed %s validation", fe.Value(), fe.Tag())
	}
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}
