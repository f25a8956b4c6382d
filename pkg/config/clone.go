package config

// Clone returns a deep copy of the configuration. Resolver stages work on
// clones so the input of every stage stays untouched.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	out := *c
	out.QSim.MainModes = cloneStrings(c.QSim.MainModes)
	out.Routing.NetworkModes = cloneStrings(c.Routing.NetworkModes)
	out.Routing.TeleportedModeParams = cloneSlice(c.Routing.TeleportedModeParams)
	out.Replanning.StrategySettings = cloneSlice(c.Replanning.StrategySettings)

	if c.Scoring.ActivityParams != nil {
		out.Scoring.ActivityParams = make([]ActivityParams, len(c.Scoring.ActivityParams))
		for i, p := range c.Scoring.ActivityParams {
			out.Scoring.ActivityParams[i] = p.clone()
		}
	}

	if c.Bicycle != nil {
		b := *c.Bicycle
		out.Bicycle = &b
	}
	if c.ParkingCost != nil {
		p := *c.ParkingCost
		out.ParkingCost = &p
	}
	if c.MultiModeDrt != nil {
		out.MultiModeDrt = &MultiModeDrtConfig{Modes: cloneSlice(c.MultiModeDrt.Modes)}
	}
	if c.SwissRailRaptor != nil {
		out.SwissRailRaptor = &SwissRailRaptorConfig{
			UseIntermodalAccessEgress: c.SwissRailRaptor.UseIntermodalAccessEgress,
			IntermodalAccessEgress:    cloneSlice(c.SwissRailRaptor.IntermodalAccessEgress),
		}
	}
	if c.SimWrapper != nil {
		s := *c.SimWrapper
		out.SimWrapper = &s
	}

	return &out
}

func (p ActivityParams) clone() ActivityParams {
	out := p
	out.OpeningTime = cloneFloatPtr(p.OpeningTime)
	out.ClosingTime = cloneFloatPtr(p.ClosingTime)
	out.LatestStartTime = cloneFloatPtr(p.LatestStartTime)
	if p.ScoringThisActivityAtAll != nil {
		v := *p.ScoringThisActivityAtAll
		out.ScoringThisActivityAtAll = &v
	}
	return out
}

func cloneStrings(in []string) []string {
	return cloneSlice(in)
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneFloatPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}
