package engine

import (
	"strings"
	"testing"
)

func TestDAGBuilder_BuildGraph_EmptyStages(t *testing.T) {
	builder := NewDAGBuilder()
	graph, err := builder.BuildGraph([]Stage{})

	if err != nil {
		t.Fatalf("Expected no error for empty stages, got: %v", err)
	}

	if len(graph.Nodes) != 0 {
		t.Errorf("Expected 0 nodes, got %d", len(graph.Nodes))
	}

	if graph.Depth != 0 {
		t.Errorf("Expected depth 0, got %d", graph.Depth)
	}
}

func TestDAGBuilder_BuildGraph_LinearDependencies(t *testing.T) {
	stages := []Stage{
		{ID: "car-free-routes", DependsOn: []string{"network-areas", "drt-scenario"}},
		{ID: "drt-scenario", DependsOn: []string{"network-areas"}},
		{ID: "network-areas"},
	}

	builder := NewDAGBuilder()
	graph, err := builder.BuildGraph(stages)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := []string{"network-areas", "drt-scenario", "car-free-routes"}
	if strings.Join(graph.Order, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected order %v, got %v", expected, graph.Order)
	}

	if graph.Depth != 3 {
		t.Errorf("Expected depth 3, got %d", graph.Depth)
	}

	if len(graph.Roots) != 1 || graph.Roots[0] != "network-areas" {
		t.Errorf("Expected single root network-areas, got %v", graph.Roots)
	}

	if err := builder.ValidateGraph(graph); err != nil {
		t.Errorf("Expected valid graph, got: %v", err)
	}
}

func TestDAGBuilder_BuildGraph_StableWithinLevel(t *testing.T) {
	stages := []Stage{
		{ID: "c"},
		{ID: "a"},
		{ID: "b"},
		{ID: "d", DependsOn: []string{"b", "a"}},
	}

	order, err := OrderStages(stages)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := "c,a,b,d"
	if strings.Join(order, ",") != expected {
		t.Errorf("Expected order %s, got %v", expected, order)
	}
}

func TestDAGBuilder_BuildGraph_Cycle(t *testing.T) {
	stages := []Stage{
		{ID: "a", DependsOn: []string{"c"}},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"b"}},
	}

	_, err := NewDAGBuilder().BuildGraph(stages)
	if err == nil {
		t.Fatal("Expected error for circular dependency")
	}

	if !IsInternal(err) {
		t.Errorf("Expected internal error, got: %v", err)
	}

	if CodeOf(err) != ErrCodeCycle {
		t.Errorf("Expected code %s, got %s", ErrCodeCycle, CodeOf(err))
	}

	if !strings.Contains(err.Error(), "circular dependency") {
		t.Errorf("Expected circular dependency message, got: %v", err)
	}
}

func TestDAGBuilder_BuildGraph_MissingDependency(t *testing.T) {
	stages := []Stage{
		{ID: "drt", DependsOn: []string{"bike-handling"}},
	}

	_, err := NewDAGBuilder().BuildGraph(stages)
	if err == nil {
		t.Fatal("Expected error for missing dependency")
	}

	if !strings.Contains(err.Error(), "non-existent stage bike-handling") {
		t.Errorf("Expected missing dependency message, got: %v", err)
	}
}

func TestDAGBuilder_BuildGraph_DuplicateID(t *testing.T) {
	stages := []Stage{
		{ID: "core"},
		{ID: "core"},
	}

	_, err := NewDAGBuilder().BuildGraph(stages)
	if err == nil {
		t.Fatal("Expected error for duplicate stage ID")
	}
}

func TestDAGBuilder_ToDOT(t *testing.T) {
	builder := NewDAGBuilder()
	_, err := builder.BuildGraph([]Stage{
		{ID: "core", Description: "always installed"},
		{ID: "parking", DependsOn: []string{"core"}},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	dot := builder.ToDOT("composer")

	if !strings.Contains(dot, `digraph "composer"`) {
		t.Errorf("Expected digraph header, got:\n%s", dot)
	}

	if !strings.Contains(dot, `"core" -> "parking"`) {
		t.Errorf("Expected edge core -> parking, got:\n%s", dot)
	}

	if !strings.Contains(dot, "always installed") {
		t.Errorf("Expected description in label, got:\n%s", dot)
	}
}
