package application

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/openleipzig/openleipzig/pkg/compose"
	"github.com/openleipzig/openleipzig/pkg/config"
	"github.com/openleipzig/openleipzig/pkg/controller"
	"github.com/openleipzig/openleipzig/pkg/engine"
	"github.com/openleipzig/openleipzig/pkg/options"
	"github.com/openleipzig/openleipzig/pkg/resolver"
	"github.com/openleipzig/openleipzig/pkg/scenario"
	"github.com/openleipzig/openleipzig/pkg/stores"
	"github.com/openleipzig/openleipzig/pkg/telemetry"
)

const (
	drtArea   = "drt-area.geojson"
	emptyArea = "nowhere.geojson"
)

func testAreas(t *testing.T) scenario.StaticSource {
	t.Helper()
	square := func(name string, x0, y0, x1, y1 float64) *scenario.Area {
		area, err := scenario.NewArea(name, orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}})
		if err != nil {
			t.Fatalf("failed to create area: %v", err)
		}
		return area
	}
	return scenario.StaticSource{
		drtArea:   square(drtArea, 0, -100, 120, 100),
		emptyArea: square(emptyArea, 5000, 5000, 6000, 6000),
	}
}

func testScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Network: &scenario.Network{
			Nodes: []*scenario.Node{
				{ID: "0", Coord: orb.Point{0, 0}},
				{ID: "1", Coord: orb.Point{100, 0}},
				{ID: "2", Coord: orb.Point{200, 0}},
			},
			Links: []*scenario.Link{
				{ID: "l1", From: "0", To: "1", AllowedModes: []string{"car", "ride"}},
				{ID: "l2", From: "1", To: "2", AllowedModes: []string{"car", "ride"}},
			},
		},
		Population: &scenario.Population{Persons: []*scenario.Person{
			{ID: "p1", Plans: []*scenario.Plan{{Selected: true, Elements: []*scenario.PlanElement{
				{Activity: &scenario.Activity{Type: "home_3600", Link: "l1"}},
				{Leg: &scenario.Leg{Mode: "car", Route: &scenario.Route{StartLink: "l1", EndLink: "l2"}}},
				{Activity: &scenario.Activity{Type: "work_28800", Link: "l2"}},
			}}}},
		}},
	}
}

type fixture struct {
	app        *Application
	controller *controller.Recorder
	history    *stores.SQLiteStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	history, err := stores.NewSQLiteStore(stores.Config{Path: stores.MemoryPath})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()
	if err := history.Init(ctx); err != nil {
		t.Fatalf("Failed to init store: %v", err)
	}
	if err := history.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate store: %v", err)
	}
	t.Cleanup(func() { _ = history.Close() })

	rec := controller.NewRecorder(zerolog.Nop(), nil)
	app, err := New(ctx, zerolog.Nop(), Config{
		Areas:      testAreas(t),
		Controller: rec,
		History:    history,
	})
	if err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}

	return &fixture{app: app, controller: rec, history: history}
}

func raw(mutate func(r *options.Raw)) options.Raw {
	r := options.Defaults()
	if mutate != nil {
		mutate(&r)
	}
	return r
}

func find(bindings []compose.BindingSpec, target string) (compose.BindingSpec, bool) {
	for _, b := range bindings {
		if b.Target == target {
			return b, true
		}
	}
	return compose.BindingSpec{}, false
}

func TestBuild_TeleportedSampleScenario(t *testing.T) {
	f := newFixture(t)

	result, err := f.app.Build(context.Background(), Input{
		Base: config.Default(),
		Options: raw(func(r *options.Raw) {
			r.SampleSize = 10
			r.Bikes = string(options.BikeTeleported)
			r.Parking = true
			r.ParkingCostTimePeriodStart = 7
			r.ParkingCostTimePeriodEnd = 19
		}),
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	cfg := result.Resolved.Config
	for name, value := range map[string]string{
		"output directory": cfg.Controller.OutputDirectory,
		"run id":           cfg.Controller.RunID,
		"plans file":       cfg.Plans.InputFile,
	} {
		if !strings.Contains(value, "-10pct") {
			t.Errorf("Expected %s to carry -10pct, got %s", name, value)
		}
	}
	if cfg.QSim.FlowCapFactor != 0.10 || cfg.QSim.StorageCapFactor != 0.10 {
		t.Errorf("Expected capacity factors 0.10, got %v/%v", cfg.QSim.FlowCapFactor, cfg.QSim.StorageCapFactor)
	}
	if cfg.Routing.HasNetworkMode(resolver.BikeMode) {
		t.Error("Expected bike to be removed from network modes")
	}
	bike, ok := cfg.Routing.TeleportedParams(resolver.BikeMode)
	if !ok || bike.BeelineDistanceFactor != 1.3 || bike.TeleportedModeSpeed != 3.1388889 {
		t.Errorf("Expected teleported bike params 1.3/3.1388889, got %+v", bike)
	}
	for _, s := range cfg.Replanning.StrategySettings {
		if s.StrategyName == "ReRoute" || s.StrategyName == "SubtourModeChoice" {
			t.Errorf("Expected %s to be renamed", s.StrategyName)
		}
	}

	installed := f.controller.Bindings()
	if len(installed) != len(result.Bindings) {
		t.Fatalf("Expected %d installed bindings, got %d", len(result.Bindings), len(installed))
	}
	for i, b := range installed {
		if b.Key() != result.Bindings[i].Key() {
			t.Errorf("Expected binding %d to be %s, got %s", i, result.Bindings[i].Key(), b.Key())
		}
	}
	handler, ok := find(installed, compose.TimeRestrictedParkingCost)
	if !ok {
		t.Fatal("Expected parking cost handler to be installed")
	}
	if handler.Params["start"] != 7.0 || handler.Params["end"] != 19.0 {
		t.Errorf("Expected window (7,19), got %v", handler.Params)
	}

	if result.BuildID == "" || result.Report == nil {
		t.Errorf("Expected build id and policy report, got %q %v", result.BuildID, result.Report)
	}
}

func TestBuild_BicycleContrib(t *testing.T) {
	f := newFixture(t)

	result, err := f.app.Build(context.Background(), Input{
		Base:    config.Default(),
		Options: raw(func(r *options.Raw) { r.Bikes = string(options.BikeOnNetworkWithContrib) }),
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	cfg := result.Resolved.Config
	if !cfg.QSim.HasMainMode(resolver.BikeMode) {
		t.Error("Expected bike in qsim main modes")
	}
	if cfg.QSim.LinkDynamics != config.LinkDynamicsPassingQ {
		t.Errorf("Expected link dynamics %s, got %s", config.LinkDynamicsPassingQ, cfg.QSim.LinkDynamics)
	}
	if _, ok := find(f.controller.Bindings(), compose.ModuleBicycle); !ok {
		t.Error("Expected bicycle module to be installed")
	}
}

func TestBuild_DrtFromConfigDocument(t *testing.T) {
	f := newFixture(t)

	base := config.Default()
	base.MultiModeDrt = &config.MultiModeDrtConfig{
		Modes: []config.DrtConfig{{Mode: "drt", OperationalScheme: config.OperationalSchemeDoor2Door}},
	}

	if _, err := f.app.Build(context.Background(), Input{Base: base, Options: raw(nil)}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for _, target := range []string{compose.ModuleDvrp, compose.ModuleMultiModeDrt} {
		if _, ok := find(f.controller.Bindings(), target); !ok {
			t.Errorf("Expected %s to be installed", target)
		}
	}
}

func TestBuild_UnsupportedBikeMode(t *testing.T) {
	f := newFixture(t)
	scn := testScenario()
	before := scn.Clone()

	_, err := f.app.Build(context.Background(), Input{
		Base:     config.Default(),
		Options:  raw(func(r *options.Raw) { r.Bikes = "unicycle"; r.DrtArea = drtArea }),
		Scenario: scn,
	})
	if !engine.IsUnsupportedMode(err) {
		t.Fatalf("Expected UnsupportedModeError, got: %v", err)
	}
	if n := len(f.controller.Bindings()); n != 0 {
		t.Errorf("Expected no bindings, got %d", n)
	}
	if !reflect.DeepEqual(scn, before) {
		t.Error("Expected scenario to be untouched")
	}
}

func TestBuild_DrtAreaPreparesScenario(t *testing.T) {
	f := newFixture(t)
	scn := testScenario()

	_, err := f.app.Build(context.Background(), Input{
		Base:     config.Default(),
		Options:  raw(func(r *options.Raw) { r.DrtArea = drtArea }),
		Scenario: scn,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	l1, _ := scn.Network.Link("l1")
	l2, _ := scn.Network.Link("l2")
	if !l1.Allows(scenario.ModeDrt) {
		t.Error("Expected l1 inside the drt area to allow drt")
	}
	if l2.Allows(scenario.ModeDrt) {
		t.Error("Expected l2 outside the drt area not to allow drt")
	}
	if _, ok := find(f.controller.Bindings(), compose.ModuleMultiModeDrt); !ok {
		t.Error("Expected drt modules to be installed")
	}
}

func TestBuild_FailureLeavesNothingBehind(t *testing.T) {
	tests := []struct {
		name  string
		base  func() *config.Config
		raw   options.Raw
		check func(error) bool
		code  string
	}{
		{
			name:  "empty drt service area",
			base:  config.Default,
			raw:   raw(func(r *options.Raw) { r.DrtArea = emptyArea }),
			check: engine.IsPrecondition,
		},
		{
			name:  "unknown area",
			base:  config.Default,
			raw:   raw(func(r *options.Raw) { r.CarFreeArea = "missing.geojson" }),
			check: engine.IsInvalidOption,
		},
		{
			name:  "sample size not allowed",
			base:  config.Default,
			raw:   raw(func(r *options.Raw) { r.SampleSize = 5 }),
			check: engine.IsInvalidOption,
		},
		{
			name: "capacity factors differ",
			base: func() *config.Config {
				cfg := config.Default()
				cfg.QSim.StorageCapFactor = 0.5
				return cfg
			},
			raw:   raw(nil),
			check: engine.IsPrecondition,
			code:  engine.ErrCodePolicy,
		},
		{
			name: "schema violation",
			base: func() *config.Config {
				cfg := config.Default()
				cfg.Controller.LastIteration = -1
				return cfg
			},
			raw:   raw(nil),
			check: engine.IsPrecondition,
			code:  engine.ErrCodeSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			scn := testScenario()
			before := scn.Clone()

			_, err := f.app.Build(context.Background(), Input{Base: tt.base(), Options: tt.raw, Scenario: scn})
			if !tt.check(err) {
				t.Fatalf("Expected classified error, got: %v", err)
			}
			if tt.code != "" && engine.CodeOf(err) != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, engine.CodeOf(err))
			}
			if n := len(f.controller.Bindings()); n != 0 {
				t.Errorf("Expected no bindings, got %d", n)
			}
			if !reflect.DeepEqual(scn, before) {
				t.Error("Expected scenario to be untouched")
			}
		})
	}
}

func TestBuild_MissingBase(t *testing.T) {
	f := newFixture(t)
	if _, err := f.app.Build(context.Background(), Input{Options: raw(nil)}); !engine.IsPrecondition(err) {
		t.Errorf("Expected precondition error, got: %v", err)
	}
}

func TestRun_InstallAfterStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.app.Run(ctx, Input{Base: config.Default(), Options: raw(nil)}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if f.controller.State() != controller.StateDone {
		t.Errorf("Expected controller done, got %s", f.controller.State())
	}

	scn := testScenario()
	before := scn.Clone()

	_, err := f.app.Build(ctx, Input{
		Base:     config.Default(),
		Options:  raw(func(r *options.Raw) { r.DrtArea = drtArea }),
		Scenario: scn,
	})
	if engine.CodeOf(err) != engine.ErrCodeAlreadyRunning {
		t.Errorf("Expected code %s, got: %v", engine.ErrCodeAlreadyRunning, err)
	}
	if !reflect.DeepEqual(scn, before) {
		t.Error("Expected scenario untouched after a failed install")
	}
}

func TestBuild_History(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.app.Build(ctx, Input{ConfigPath: "leipzig.yaml", Base: config.Default(), Options: raw(nil)})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	build, err := f.history.GetBuild(ctx, result.BuildID)
	if err != nil {
		t.Fatalf("Expected recorded build, got: %v", err)
	}
	if build.Status != stores.BuildStatusCompleted || build.ConfigPath != "leipzig.yaml" {
		t.Errorf("Expected completed build of leipzig.yaml, got %+v", build)
	}
	if !strings.Contains(build.Options, `"bikes"`) {
		t.Errorf("Expected options blob, got %s", build.Options)
	}

	stages, err := f.history.ListStages(ctx, result.BuildID)
	if err != nil {
		t.Fatalf("Failed to list stages: %v", err)
	}
	if !reflect.DeepEqual(stages, result.Resolved.Applied) {
		t.Errorf("Expected stages %v, got %v", result.Resolved.Applied, stages)
	}

	records, err := f.history.ListBindings(ctx, result.BuildID)
	if err != nil {
		t.Fatalf("Failed to list bindings: %v", err)
	}
	if len(records) != len(result.Bindings) {
		t.Fatalf("Expected %d binding records, got %d", len(result.Bindings), len(records))
	}
	for i, r := range records {
		if r.Target != result.Bindings[i].Target {
			t.Errorf("Expected record %d to be %s, got %s", i, result.Bindings[i].Target, r.Target)
		}
	}

	if _, err := f.app.Build(ctx, Input{Base: config.Default(), Options: raw(func(r *options.Raw) { r.SampleSize = 5 })}); err == nil {
		t.Fatal("Expected build to fail")
	}
	status := stores.BuildStatusFailed
	failed, err := f.history.ListBuilds(ctx, &status, 10, 0)
	if err != nil {
		t.Fatalf("Failed to list builds: %v", err)
	}
	if len(failed) != 1 || failed[0].Error == nil {
		t.Errorf("Expected one failed build with error, got %+v", failed)
	}
}

func TestBuild_Metrics(t *testing.T) {
	tel, err := telemetry.NewTelemetry(telemetry.TestConfig())
	if err != nil {
		t.Fatalf("Failed to create telemetry: %v", err)
	}
	ctx := tel.WithContext(context.Background())

	f := newFixture(t)
	if _, err := f.app.Build(ctx, Input{Base: config.Default(), Options: raw(nil)}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	families, err := tel.Metrics.Registry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	counts := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				counts[mf.GetName()] += c.GetValue()
			}
		}
	}

	if counts["leipzig_builds_started_total"] != 1 {
		t.Errorf("Expected 1 started build, got %v", counts["leipzig_builds_started_total"])
	}
	if counts["leipzig_builds_completed_total"] != 1 {
		t.Errorf("Expected 1 completed build, got %v", counts["leipzig_builds_completed_total"])
	}
	if counts["leipzig_bindings_composed_total"] != float64(len(f.controller.Bindings())) {
		t.Errorf("Expected one binding count per installed binding, got %v", counts["leipzig_bindings_composed_total"])
	}
}

func TestBindingRecords(t *testing.T) {
	records, err := BindingRecords("b1", []compose.BindingSpec{
		{Capability: compose.CapabilityModule, Target: "A", Group: "core"},
		{Capability: compose.CapabilityEventHandler, Target: "B", Group: "parking", Params: map[string]interface{}{"start": 7.0}},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if records[0].Params != "{}" || records[1].Params != `{"start":7}` || records[1].Position != 1 {
		t.Errorf("Unexpected records %+v", records)
	}
}
