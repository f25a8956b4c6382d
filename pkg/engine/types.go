package engine

// Stage is one node of a build-time stage-dependency list.
// Resolver transformations, scenario preparation steps and binding groups are
// all declared as stages so their relative order is explicit.
type Stage struct {
	// ID is the unique stage identifier (e.g. "bike-handling").
	ID string `json:"id" yaml:"id"`

	// DependsOn lists stage IDs that must run before this stage.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`

	// Description is a short human-readable summary used in graph output.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// StageGraph is the evaluated form of a stage list.
type StageGraph struct {
	// Nodes maps stage IDs to graph nodes.
	Nodes map[string]*GraphNode `json:"nodes"`

	// Edges lists all dependency edges.
	Edges []GraphEdge `json:"edges"`

	// Roots are the stages without dependencies.
	Roots []string `json:"roots"`

	// Order is the topological execution order.
	Order []string `json:"order"`

	// Depth is the number of levels in the graph.
	Depth int `json:"depth"`
}

// GraphNode is a stage in the evaluated graph.
type GraphNode struct {
	ID           string   `json:"id"`
	Level        int      `json:"level"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
}

// GraphEdge is a dependency edge; From runs before To.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}
