package scenario

import (
	"github.com/paulmach/orb"
)

// Transport modes the preparer touches.
const (
	ModeCar  = "car"
	ModeRide = "ride"
	ModePt   = "pt"
	ModeDrt  = "drt"
)

// Scenario holds the mutable entities handed to the controller.
type Scenario struct {
	Network    *Network    `json:"network" yaml:"network"`
	Population *Population `json:"population" yaml:"population"`
}

// Network is a directed graph of nodes and links.
type Network struct {
	Nodes []*Node `json:"nodes" yaml:"nodes"`
	Links []*Link `json:"links" yaml:"links"`
}

// Node is a network node with projected coordinates.
type Node struct {
	ID    string    `json:"id" yaml:"id"`
	Coord orb.Point `json:"coord" yaml:"coord"`
}

// Link connects two nodes.
type Link struct {
	ID           string            `json:"id" yaml:"id"`
	From         string            `json:"from" yaml:"from"`
	To           string            `json:"to" yaml:"to"`
	Length       float64           `json:"length,omitempty" yaml:"length,omitempty"`
	FreeSpeed    float64           `json:"freespeed,omitempty" yaml:"freespeed,omitempty"`
	Capacity     float64           `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	AllowedModes []string          `json:"modes" yaml:"modes"`
	Attributes   map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Allows reports whether mode may use the link.
func (l *Link) Allows(mode string) bool {
	for _, m := range l.AllowedModes {
		if m == mode {
			return true
		}
	}
	return false
}

// AddMode allows mode on the link. It reports whether the mode was added.
func (l *Link) AddMode(mode string) bool {
	if l.Allows(mode) {
		return false
	}
	l.AllowedModes = append(l.AllowedModes, mode)
	return true
}

// RemoveModes disallows modes on the link. It reports whether any mode was
// removed.
func (l *Link) RemoveModes(modes ...string) bool {
	kept := make([]string, 0, len(l.AllowedModes))
	for _, m := range l.AllowedModes {
		if !containsString(modes, m) {
			kept = append(kept, m)
		}
	}
	removed := len(kept) != len(l.AllowedModes)
	l.AllowedModes = kept
	return removed
}

// SetAttribute sets a link attribute.
func (l *Link) SetAttribute(key, value string) {
	if l.Attributes == nil {
		l.Attributes = make(map[string]string)
	}
	l.Attributes[key] = value
}

// Population is the set of simulated agents.
type Population struct {
	Persons []*Person `json:"persons" yaml:"persons"`
}

// Person is one agent with its plans.
type Person struct {
	ID         string            `json:"id" yaml:"id"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Plans      []*Plan           `json:"plans" yaml:"plans"`
}

// Plan is a sequence of activities and legs.
type Plan struct {
	Selected bool           `json:"selected,omitempty" yaml:"selected,omitempty"`
	Score    *float64       `json:"score,omitempty" yaml:"score,omitempty"`
	Elements []*PlanElement `json:"elements" yaml:"elements"`
}

// Legs returns the legs of the plan in order.
func (p *Plan) Legs() []*Leg {
	var legs []*Leg
	for _, e := range p.Elements {
		if e.Leg != nil {
			legs = append(legs, e.Leg)
		}
	}
	return legs
}

// PlanElement is either an activity or a leg.
type PlanElement struct {
	Activity *Activity `json:"activity,omitempty" yaml:"activity,omitempty"`
	Leg      *Leg      `json:"leg,omitempty" yaml:"leg,omitempty"`
}

// Activity is a stay at a location.
type Activity struct {
	Type    string    `json:"type" yaml:"type"`
	Link    string    `json:"link,omitempty" yaml:"link,omitempty"`
	Coord   orb.Point `json:"coord" yaml:"coord"`
	EndTime *float64  `json:"end_time,omitempty" yaml:"end_time,omitempty"`
}

// Leg is a trip segment with one mode.
type Leg struct {
	Mode  string `json:"mode" yaml:"mode"`
	Route *Route `json:"route,omitempty" yaml:"route,omitempty"`
}

// Route is the network path of a leg.
type Route struct {
	StartLink string   `json:"start_link" yaml:"start_link"`
	EndLink   string   `json:"end_link" yaml:"end_link"`
	Links     []string `json:"links,omitempty" yaml:"links,omitempty"`
}

// LinkIDs returns every link the route touches, start and end included.
func (r *Route) LinkIDs() []string {
	ids := make([]string, 0, len(r.Links)+2)
	ids = append(ids, r.StartLink)
	ids = append(ids, r.Links...)
	return append(ids, r.EndLink)
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
