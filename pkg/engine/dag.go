package engine

import (
	"fmt"
	"sort"
	"strings"
)

// DAGBuilder builds a directed acyclic graph (DAG) from declared stages.
// It performs topological sorting and assigns levels so that every stage is
// ordered after the stages it depends on.
type DAGBuilder struct {
	// stages maps stage IDs to their declarations
	stages map[string]*Stage

	// declared keeps the declaration index of each stage for stable ordering
	declared map[string]int

	// adjacencyList maps stage IDs to their dependents
	adjacencyList map[string][]string

	// reverseAdjacencyList maps stage IDs to their dependencies
	reverseAdjacencyList map[string][]string

	// inDegree tracks the number of incoming edges for each node
	inDegree map[string]int

	// levels maps level to stage IDs at that level
	levels [][]string
}

// NewDAGBuilder creates a new DAG builder.
func NewDAGBuilder() *DAGBuilder {
	return &DAGBuilder{
		stages:               make(map[string]*Stage),
		declared:             make(map[string]int),
		adjacencyList:        make(map[string][]string),
		reverseAdjacencyList: make(map[string][]string),
		inDegree:             make(map[string]int),
		levels:               make([][]string, 0),
	}
}

// BuildGraph constructs a stage graph from declared stages.
// It validates dependencies, detects cycles, and computes levels.
func (b *DAGBuilder) BuildGraph(stages []Stage) (*StageGraph, error) {
	if len(stages) == 0 {
		return &StageGraph{
			Nodes: make(map[string]*GraphNode),
			Edges: make([]GraphEdge, 0),
			Roots: make([]string, 0),
			Order: make([]string, 0),
			Depth: 0,
		}, nil
	}

	if err := b.initialize(stages); err != nil {
		return nil, err
	}

	if err := b.detectCycles(); err != nil {
		return nil, err
	}

	if err := b.computeLevels(); err != nil {
		return nil, err
	}

	return b.buildStageGraph(), nil
}

// initialize sets up the internal data structures from stages.
func (b *DAGBuilder) initialize(stages []Stage) error {
	// First pass: index all stages
	for i := range stages {
		stage := &stages[i]
		if stage.ID == "" {
			return NewInternalError("stage has empty ID", nil).
				WithCode(ErrCodeValidation)
		}

		if _, exists := b.stages[stage.ID]; exists {
			return NewInternalError(fmt.Sprintf("duplicate stage ID: %s", stage.ID), nil).
				WithCode(ErrCodeValidation)
		}

		b.stages[stage.ID] = stage
		b.declared[stage.ID] = i
		b.adjacencyList[stage.ID] = make([]string, 0)
		b.reverseAdjacencyList[stage.ID] = make([]string, 0)
		b.inDegree[stage.ID] = 0
	}

	// Second pass: build adjacency lists in declaration order
	for i := range stages {
		stage := &stages[i]
		for _, dep := range stage.DependsOn {
			if _, exists := b.stages[dep]; !exists {
				return NewInternalError(
					fmt.Sprintf("stage %s depends on non-existent stage %s", stage.ID, dep),
					nil,
				).WithCode(ErrCodeValidation).WithStage(stage.ID)
			}

			// Dependency must run before the stage
			b.adjacencyList[dep] = append(b.adjacencyList[dep], stage.ID)
			b.reverseAdjacencyList[stage.ID] = append(b.reverseAdjacencyList[stage.ID], dep)
			b.inDegree[stage.ID]++
		}
	}

	return nil
}

// detectCycles uses depth-first search to detect circular dependencies.
func (b *DAGBuilder) detectCycles() error {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	for _, id := range b.sortedIDs() {
		if !visited[id] {
			if cycle := b.detectCyclesUtil(id, visited, recStack, nil); cycle != nil {
				return NewInternalError(
					fmt.Sprintf("circular dependency detected: %s", formatCycle(cycle)),
					nil,
				).WithCode(ErrCodeCycle)
			}
		}
	}

	return nil
}

// detectCyclesUtil performs DFS and returns the cycle path if one is found.
func (b *DAGBuilder) detectCyclesUtil(
	nodeID string,
	visited map[string]bool,
	recStack map[string]bool,
	path []string,
) []string {
	visited[nodeID] = true
	recStack[nodeID] = true
	path = append(path, nodeID)

	for _, dependent := range b.adjacencyList[nodeID] {
		if !visited[dependent] {
			if cycle := b.detectCyclesUtil(dependent, visited, recStack, path); cycle != nil {
				return cycle
			}
		} else if recStack[dependent] {
			for i, id := range path {
				if id == dependent {
					cycle := append([]string{}, path[i:]...)
					return append(cycle, dependent)
				}
			}
		}
	}

	recStack[nodeID] = false
	return nil
}

// computeLevels assigns a level to each stage using Kahn's algorithm.
// Stages within one level keep their declaration order.
func (b *DAGBuilder) computeLevels() error {
	inDegreeCopy := make(map[string]int, len(b.inDegree))
	for id, degree := range b.inDegree {
		inDegreeCopy[id] = degree
	}

	currentLevel := make([]string, 0)
	for _, id := range b.sortedIDs() {
		if inDegreeCopy[id] == 0 {
			currentLevel = append(currentLevel, id)
		}
	}

	if len(currentLevel) == 0 {
		return NewInternalError("no root stages found - all stages have dependencies", nil).
			WithCode(ErrCodeCycle)
	}

	processedCount := 0
	for len(currentLevel) > 0 {
		b.levels = append(b.levels, currentLevel)
		processedCount += len(currentLevel)

		nextLevel := make([]string, 0)
		for _, nodeID := range currentLevel {
			for _, dependent := range b.adjacencyList[nodeID] {
				inDegreeCopy[dependent]--
				if inDegreeCopy[dependent] == 0 {
					nextLevel = append(nextLevel, dependent)
				}
			}
		}
		b.sortByDeclaration(nextLevel)

		currentLevel = nextLevel
	}

	if processedCount != len(b.stages) {
		return NewInternalError("failed to process all stages - possible cycle", nil).
			WithCode(ErrCodeInternal)
	}

	return nil
}

// buildStageGraph creates the final StageGraph structure.
func (b *DAGBuilder) buildStageGraph() *StageGraph {
	graph := &StageGraph{
		Nodes: make(map[string]*GraphNode),
		Edges: make([]GraphEdge, 0),
		Roots: make([]string, 0),
		Order: make([]string, 0, len(b.stages)),
		Depth: len(b.levels),
	}

	for level, stageIDs := range b.levels {
		for _, stageID := range stageIDs {
			graph.Nodes[stageID] = &GraphNode{
				ID:           stageID,
				Level:        level,
				Dependencies: b.reverseAdjacencyList[stageID],
				Dependents:   b.adjacencyList[stageID],
			}
			graph.Order = append(graph.Order, stageID)

			if level == 0 {
				graph.Roots = append(graph.Roots, stageID)
			}
		}
	}

	for _, id := range b.sortedIDs() {
		for _, dep := range b.stages[id].DependsOn {
			graph.Edges = append(graph.Edges, GraphEdge{From: dep, To: id})
		}
	}

	return graph
}

// GetLevels returns the computed levels.
func (b *DAGBuilder) GetLevels() [][]string {
	return b.levels
}

// ToDOT generates a DOT format representation of the DAG for visualization.
// The output can be rendered with Graphviz tools.
func (b *DAGBuilder) ToDOT(name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("digraph %q {\n", name))
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	for level, stageIDs := range b.levels {
		sb.WriteString(fmt.Sprintf("  subgraph cluster_level_%d {\n", level))
		sb.WriteString(fmt.Sprintf("    label=\"Level %d\";\n", level))
		sb.WriteString("    style=dashed;\n")

		for _, stageID := range stageIDs {
			label := stageID
			if desc := b.stages[stageID].Description; desc != "" {
				label = fmt.Sprintf("%s\\n%s", stageID, desc)
			}
			sb.WriteString(fmt.Sprintf("    \"%s\" [label=\"%s\"];\n", stageID, label))
		}

		sb.WriteString("  }\n\n")
	}

	for _, id := range b.sortedIDs() {
		for _, dep := range b.stages[id].DependsOn {
			sb.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\";\n", dep, id))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// sortedIDs returns all stage IDs in declaration order.
func (b *DAGBuilder) sortedIDs() []string {
	ids := make([]string, 0, len(b.stages))
	for id := range b.stages {
		ids = append(ids, id)
	}
	b.sortByDeclaration(ids)
	return ids
}

func (b *DAGBuilder) sortByDeclaration(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return b.declared[ids[i]] < b.declared[ids[j]]
	})
}

// formatCycle formats a cycle path for error messages.
func formatCycle(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	return strings.Join(cycle, " -> ")
}

// ValidateGraph performs additional validation on the built graph.
func (b *DAGBuilder) ValidateGraph(graph *StageGraph) error {
	if len(graph.Nodes) != len(b.stages) {
		return NewInternalError("graph node count mismatch", nil)
	}

	for _, edge := range graph.Edges {
		if _, exists := graph.Nodes[edge.From]; !exists {
			return NewInternalError(fmt.Sprintf("edge references non-existent node: %s", edge.From), nil)
		}
		if _, exists := graph.Nodes[edge.To]; !exists {
			return NewInternalError(fmt.Sprintf("edge references non-existent node: %s", edge.To), nil)
		}
		if graph.Nodes[edge.From].Level >= graph.Nodes[edge.To].Level {
			return NewInternalError(fmt.Sprintf("edge %s -> %s does not increase level", edge.From, edge.To), nil).
				WithCode(ErrCodeStageOrder)
		}
	}

	for _, rootID := range graph.Roots {
		if len(graph.Nodes[rootID].Dependencies) > 0 {
			return NewInternalError(fmt.Sprintf("root node %s has dependencies", rootID), nil)
		}
	}

	return nil
}

// OrderStages is a convenience wrapper that builds and validates a graph and
// returns the stage IDs in execution order.
func OrderStages(stages []Stage) ([]string, error) {
	builder := NewDAGBuilder()
	graph, err := builder.BuildGraph(stages)
	if err != nil {
		return nil, err
	}
	if err := builder.ValidateGraph(graph); err != nil {
		return nil, err
	}
	return graph.Order, nil
}
