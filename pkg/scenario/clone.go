package scenario

// Clone returns a deep copy of the scenario.
func (s *Scenario) Clone() *Scenario {
	if s == nil {
		return nil
	}
	return &Scenario{
		Network:    s.Network.Clone(),
		Population: s.Population.Clone(),
	}
}

// Clone returns a deep copy of the network.
func (n *Network) Clone() *Network {
	if n == nil {
		return nil
	}
	out := &Network{
		Nodes: make([]*Node, len(n.Nodes)),
		Links: make([]*Link, len(n.Links)),
	}
	for i, node := range n.Nodes {
		c := *node
		out.Nodes[i] = &c
	}
	for i, link := range n.Links {
		c := *link
		c.AllowedModes = append([]string(nil), link.AllowedModes...)
		c.Attributes = cloneAttributes(link.Attributes)
		out.Links[i] = &c
	}
	return out
}

// Clone returns a deep copy of the population.
func (p *Population) Clone() *Population {
	if p == nil {
		return nil
	}
	out := &Population{Persons: make([]*Person, len(p.Persons))}
	for i, person := range p.Persons {
		out.Persons[i] = person.clone()
	}
	return out
}

func (p *Person) clone() *Person {
	out := &Person{
		ID:         p.ID,
		Attributes: cloneAttributes(p.Attributes),
		Plans:      make([]*Plan, len(p.Plans)),
	}
	for i, plan := range p.Plans {
		out.Plans[i] = plan.clone()
	}
	return out
}

func (p *Plan) clone() *Plan {
	out := &Plan{
		Selected: p.Selected,
		Score:    cloneFloat(p.Score),
		Elements: make([]*PlanElement, len(p.Elements)),
	}
	for i, e := range p.Elements {
		c := &PlanElement{}
		if e.Activity != nil {
			a := *e.Activity
			a.EndTime = cloneFloat(e.Activity.EndTime)
			c.Activity = &a
		}
		if e.Leg != nil {
			l := *e.Leg
			if e.Leg.Route != nil {
				r := *e.Leg.Route
				r.Links = append([]string(nil), e.Leg.Route.Links...)
				l.Route = &r
			}
			c.Leg = &l
		}
		out.Elements[i] = c
	}
	return out
}

func cloneAttributes(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Commit replaces the network and population of s with those of prepared.
func (s *Scenario) Commit(prepared *Scenario) {
	if s == nil || prepared == nil {
		return
	}
	s.Network = prepared.Network
	s.Population = prepared.Population
}
