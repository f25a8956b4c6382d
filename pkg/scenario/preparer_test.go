package scenario

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/openleipzig/openleipzig/pkg/engine"
	"github.com/openleipzig/openleipzig/pkg/options"
	"github.com/openleipzig/openleipzig/pkg/resolver"
)

const (
	drtSelector     = "drt-area.geojson"
	carFreeSelector = "car-free-area.geojson"
	emptySelector   = "nowhere.geojson"
)

func square(t *testing.T, name string, x0, y0, x1, y1 float64) *Area {
	t.Helper()
	area, err := NewArea(name, orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}})
	if err != nil {
		t.Fatalf("failed to create area: %v", err)
	}
	return area
}

func testAreas(t *testing.T) StaticSource {
	return StaticSource{
		drtSelector:     square(t, drtSelector, 0, -100, 220, 100),
		carFreeSelector: square(t, carFreeSelector, 120, -50, 180, 50),
		emptySelector:   square(t, emptySelector, 5000, 5000, 6000, 6000),
	}
}

// testScenario is a row of nodes 0..3 along the x axis, 100 apart, with links
// l1 (0-1), l2 (1-2), l3 (2-3) and a pt link p2 parallel to l2.
func testScenario() *Scenario {
	network := &Network{
		Nodes: []*Node{
			{ID: "0", Coord: orb.Point{0, 0}},
			{ID: "1", Coord: orb.Point{100, 0}},
			{ID: "2", Coord: orb.Point{200, 0}},
			{ID: "3", Coord: orb.Point{300, 0}},
		},
		Links: []*Link{
			{ID: "l1", From: "0", To: "1", AllowedModes: []string{"car", "ride", "bike"}},
			{ID: "l2", From: "1", To: "2", AllowedModes: []string{"car", "ride", "bike"}},
			{ID: "l3", From: "2", To: "3", AllowedModes: []string{"car", "ride", "bike"}},
			{ID: "p2", From: "1", To: "2", AllowedModes: []string{"pt"}},
		},
	}

	leg := func(mode string, links ...string) *PlanElement {
		route := &Route{StartLink: links[0], EndLink: links[len(links)-1]}
		if len(links) > 2 {
			route.Links = links[1 : len(links)-1]
		}
		return &PlanElement{Leg: &Leg{Mode: mode, Route: route}}
	}
	act := func(typ, link string) *PlanElement {
		return &PlanElement{Activity: &Activity{Type: typ, Link: link}}
	}

	population := &Population{Persons: []*Person{
		{ID: "through", Plans: []*Plan{{Selected: true, Elements: []*PlanElement{
			act("home_3600", "l1"), leg("car", "l1", "l2", "l3"), act("work_28800", "l3"),
		}}}},
		{ID: "outside", Plans: []*Plan{{Selected: true, Elements: []*PlanElement{
			act("home_3600", "l1"), leg("ride", "l1", "l1"), act("shop_daily_1800", "l1"),
		}}}},
		{ID: "transit", Plans: []*Plan{{Selected: true, Elements: []*PlanElement{
			act("home_3600", "l1"), leg("pt", "l1", "p2", "l3"), act("work_28800", "l3"),
		}}}},
		{ID: "cyclist", Plans: []*Plan{{Selected: true, Elements: []*PlanElement{
			act("home_3600", "l1"), leg("bike", "l1", "l2", "l3"), act("work_28800", "l3"),
		}}}},
	}}

	return &Scenario{Network: network, Population: population}
}

func newTestPreparer(t *testing.T) *Preparer {
	t.Helper()
	p, err := NewPreparer(zerolog.Nop(), testAreas(t))
	if err != nil {
		t.Fatalf("failed to create preparer: %v", err)
	}
	return p
}

func mustParse(t *testing.T, mutate func(*options.Raw)) *options.OptionSet {
	t.Helper()
	raw := options.Defaults()
	if mutate != nil {
		mutate(&raw)
	}
	opts, err := options.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse options: %v", err)
	}
	return opts
}

func modesOf(t *testing.T, scn *Scenario, id string) []string {
	t.Helper()
	l, ok := scn.Network.Link(id)
	if !ok {
		t.Fatalf("link %s not found", id)
	}
	return l.AllowedModes
}

func routeOf(scn *Scenario, person string) *Route {
	for _, p := range scn.Population.Persons {
		if p.ID == person {
			return p.Plans[0].Legs()[0].Route
		}
	}
	return nil
}

func TestPreparer_Order(t *testing.T) {
	p := newTestPreparer(t)

	want := []string{StageNetworkAreas, StageDrtScenario, StageCarFreeRoutes}
	if got := p.Order(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected order %v, got %v", want, got)
	}

	dot, err := p.DOT()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !strings.Contains(dot, `"drt-scenario" -> "car-free-routes"`) {
		t.Errorf("Expected drt-scenario edge in DOT output:\n%s", dot)
	}
}

func TestPreparer_NoSelectors(t *testing.T) {
	scn := testScenario()
	want := testScenario()

	if err := newTestPreparer(t).Prepare(context.Background(), scn, mustParse(t, nil)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !reflect.DeepEqual(scn, want) {
		t.Error("Expected scenario unchanged without area selectors")
	}
}

func TestPreparer_DrtArea(t *testing.T) {
	scn := testScenario()
	opts := mustParse(t, func(raw *options.Raw) { raw.DrtArea = drtSelector })

	if err := newTestPreparer(t).Prepare(context.Background(), scn, opts); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for _, id := range []string{"l1", "l2", "p2"} {
		if l, _ := scn.Network.Link(id); !l.Allows(ModeDrt) {
			t.Errorf("Expected drt on link %s, got %v", id, l.AllowedModes)
		}
	}
	if l, _ := scn.Network.Link("l3"); l.Allows(ModeDrt) {
		t.Errorf("Expected no drt on link l3 outside the area, got %v", l.AllowedModes)
	}
	if l, _ := scn.Network.Link("l1"); l.Attributes[resolver.DrtStopFilter] != "" {
		t.Error("Expected no access marking for separate drt")
	}
}

func TestPreparer_DrtAccessEgress(t *testing.T) {
	scn := testScenario()
	opts := mustParse(t, func(raw *options.Raw) {
		raw.DrtArea = drtSelector
		raw.Intermodality = string(options.DrtAsAccessEgressForPt)
	})

	if err := newTestPreparer(t).Prepare(context.Background(), scn, opts); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	l, _ := scn.Network.Link("l2")
	if l.Attributes[resolver.DrtStopFilter] != resolver.DrtStopFilterValue {
		t.Errorf("Expected access marking on l2, got %v", l.Attributes)
	}
	l, _ = scn.Network.Link("l3")
	if _, ok := l.Attributes[resolver.DrtStopFilter]; ok {
		t.Error("Expected no access marking outside the service area")
	}
}

func TestPreparer_CarFreeArea(t *testing.T) {
	scn := testScenario()
	opts := mustParse(t, func(raw *options.Raw) { raw.CarFreeArea = carFreeSelector })

	if err := newTestPreparer(t).Prepare(context.Background(), scn, opts); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if got := modesOf(t, scn, "l2"); !reflect.DeepEqual(got, []string{"bike"}) {
		t.Errorf("Expected only bike on l2, got %v", got)
	}
	if got := modesOf(t, scn, "l1"); !reflect.DeepEqual(got, []string{"car", "ride", "bike"}) {
		t.Errorf("Expected l1 unchanged, got %v", got)
	}

	tests := []struct {
		person  string
		deleted bool
	}{
		{"through", true},
		{"outside", false},
		{"transit", false},
		{"cyclist", false},
	}
	for _, tt := range tests {
		t.Run(tt.person, func(t *testing.T) {
			if deleted := routeOf(scn, tt.person) == nil; deleted != tt.deleted {
				t.Errorf("Expected route deleted=%v, got %v", tt.deleted, deleted)
			}
		})
	}

	if legs := scn.Population.Persons[0].Plans[0].Legs(); legs[0].Mode != ModeCar {
		t.Errorf("Expected leg mode kept, got %s", legs[0].Mode)
	}
}

func TestPreparer_EmptyDrtAreaCommitsNothing(t *testing.T) {
	scn := testScenario()
	want := testScenario()
	opts := mustParse(t, func(raw *options.Raw) {
		raw.DrtArea = emptySelector
		raw.CarFreeArea = carFreeSelector
	})

	err := newTestPreparer(t).Prepare(context.Background(), scn, opts)
	if !engine.IsPrecondition(err) {
		t.Fatalf("Expected precondition error, got: %v", err)
	}
	if serr := err.(*engine.ScenarioError); serr.Stage != StageDrtScenario {
		t.Errorf("Expected stage %s, got %s", StageDrtScenario, serr.Stage)
	}
	if !reflect.DeepEqual(scn, want) {
		t.Error("Expected scenario unchanged after failure")
	}
}

func TestPreparer_PrepareCopy(t *testing.T) {
	scn := testScenario()
	want := testScenario()
	opts := mustParse(t, func(raw *options.Raw) { raw.DrtArea = drtSelector })

	prepared, err := newTestPreparer(t).PrepareCopy(context.Background(), scn, opts)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !reflect.DeepEqual(scn, want) {
		t.Error("Expected input scenario unchanged before commit")
	}
	if l, _ := prepared.Network.Link("l1"); !l.Allows(ModeDrt) {
		t.Errorf("Expected drt on prepared link l1, got %v", l.AllowedModes)
	}

	scn.Commit(prepared)
	if l, _ := scn.Network.Link("l1"); !l.Allows(ModeDrt) {
		t.Errorf("Expected drt on l1 after commit, got %v", l.AllowedModes)
	}
}

func TestPreparer_UnknownArea(t *testing.T) {
	scn := testScenario()
	opts := mustParse(t, func(raw *options.Raw) { raw.CarFreeArea = "missing.geojson" })

	err := newTestPreparer(t).Prepare(context.Background(), scn, opts)
	if !engine.IsInvalidOption(err) {
		t.Fatalf("Expected invalid option error, got: %v", err)
	}
}

func TestPreparer_MissingInputs(t *testing.T) {
	p := newTestPreparer(t)

	if err := p.Prepare(context.Background(), &Scenario{}, mustParse(t, nil)); !engine.IsPrecondition(err) {
		t.Errorf("Expected precondition error, got: %v", err)
	}
	if err := p.Prepare(context.Background(), testScenario(), nil); !engine.IsInvalidOption(err) {
		t.Errorf("Expected invalid option error, got: %v", err)
	}
	if _, err := NewPreparer(zerolog.Nop(), nil); err == nil {
		t.Error("Expected error for missing area source")
	}
}

func TestScenario_Clone(t *testing.T) {
	scn := testScenario()
	c := scn.Clone()

	c.Network.Links[0].AllowedModes[0] = "tram"
	c.Network.Links[0].SetAttribute("k", "v")
	c.Population.Persons[0].Plans[0].Legs()[0].Route.Links[0] = "x"

	if scn.Network.Links[0].AllowedModes[0] != "car" {
		t.Error("Expected original link modes unchanged")
	}
	if scn.Network.Links[0].Attributes != nil {
		t.Error("Expected original link attributes unchanged")
	}
	if scn.Population.Persons[0].Plans[0].Legs()[0].Route.Links[0] != "l2" {
		t.Error("Expected original route unchanged")
	}
}
