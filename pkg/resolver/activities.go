package resolver

import (
	"fmt"

	"github.com/openleipzig/openleipzig/pkg/config"
)

// Typical durations of the duration-split activity types, in seconds.
const (
	durationStep = 600
	durationMax  = 24 * 3600
)

// CommercialTypicalDuration is the typical duration of commercial activities.
const CommercialTypicalDuration = 3600

// ParkingInteraction is the stage activity inserted by the parking router.
const ParkingInteraction = "parking interaction"

// activityCategory is a survey activity family. Plans carry one type per
// family and typical duration, e.g. "work_28800". Hours < 0 mean unbounded.
type activityCategory struct {
	name    string
	opening float64
	closing float64
}

var activityCategories = []activityCategory{
	{name: "home", opening: -1, closing: -1},
	{name: "work", opening: 6, closing: 20},
	{name: "work_business", opening: 6, closing: 20},
	{name: "leisure", opening: 9, closing: 27},
	{name: "educ_kiga", opening: 7, closing: 17},
	{name: "educ_primary", opening: 7, closing: 16},
	{name: "educ_secondary", opening: 7, closing: 17},
	{name: "educ_tertiary", opening: 7, closing: 22},
	{name: "educ_higher", opening: 7, closing: 19},
	{name: "educ_other", opening: 7, closing: 22},
	{name: "shop_daily", opening: 8, closing: 20},
	{name: "shop_other", opening: 8, closing: 20},
	{name: "personal_business", opening: 8, closing: 20},
	{name: "errands", opening: 8, closing: 21},
	{name: "visit", opening: 9, closing: 22},
	{name: "transport", opening: -1, closing: -1},
	{name: "other", opening: -1, closing: -1},
}

// commercialActivities have no duration split.
var commercialActivities = []string{"service", "commercial_start", "commercial_end"}

// FixedActivityParams returns the scoring parameters of every built-in
// activity type, keyed uniquely by activity type.
func FixedActivityParams() []config.ActivityParams {
	params := make([]config.ActivityParams, 0, len(activityCategories)*(durationMax/durationStep)+len(commercialActivities))

	for _, cat := range activityCategories {
		for d := durationStep; d <= durationMax; d += durationStep {
			p := config.ActivityParams{
				ActivityType:    fmt.Sprintf("%s_%d", cat.name, d),
				TypicalDuration: float64(d),
			}
			if cat.opening >= 0 {
				p.OpeningTime = config.Float(cat.opening * 3600)
				p.ClosingTime = config.Float(cat.closing * 3600)
			}
			params = append(params, p)
		}
	}

	for _, act := range commercialActivities {
		params = append(params, config.ActivityParams{
			ActivityType:    act,
			TypicalDuration: CommercialTypicalDuration,
		})
	}

	return params
}

// injectActivityParams adds the fixed params that are not yet registered.
// Existing entries win, so applying it twice is a no-op.
func injectActivityParams(s *config.ScoringConfig) int {
	added := 0
	for _, p := range FixedActivityParams() {
		if s.AddActivityParamsIfAbsent(p) {
			added++
		}
	}
	return added
}
