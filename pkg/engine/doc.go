// Package engine provides the shared building blocks of the Leipzig scenario
// composition engine.
//
// # Overview
//
// Building a runnable scenario happens in four build-time phases that all run
// synchronously before the simulation starts:
//
//  1. Options - Parse and validate typed scenario options (options.Parse)
//  2. Resolve - Transform the base configuration into a resolved one (resolver.Resolver)
//  3. Prepare - Mutate network and population entities (scenario.Preparer)
//  4. Compose - Derive ordered behavior bindings for the controller (compose.Composer)
//
// # Stage Graphs
//
// Every phase that consists of order-sensitive steps declares those steps as
// a list of Stage values. DAGBuilder evaluates the list with Kahn's algorithm:
//
//	order, err := engine.OrderStages([]engine.Stage{
//	    {ID: "network-areas"},
//	    {ID: "drt-scenario", DependsOn: []string{"network-areas"}},
//	    {ID: "car-free-routes", DependsOn: []string{"network-areas", "drt-scenario"}},
//	})
//
// Stages in the same level keep their declaration order, so the result is
// deterministic. Cycles and unknown dependencies are reported as internal errors.
//
// # Error Classification
//
// Errors are classified, never retried:
//
//   - InvalidOption: bad or missing option values, raised before any mutation
//   - UnsupportedMode: an enum variant without a transition table entry
//   - Precondition: a collaborator state the step relies on is missing
//   - Internal: a broken engine invariant (e.g. a stage cycle)
//
// Use the helpers to inspect errors:
//
//	if engine.IsUnsupportedMode(err) {
//	    // programming error, abort
//	}
package engine
