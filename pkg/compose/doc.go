// Package compose derives the ordered list of behavior bindings that is
// installed into the simulation controller before it runs.
//
// Bindings are BindingSpec values registered in groups. Groups form a stage
// graph evaluated in topological order:
//
//	core -> parking -> drt -> bicycle
//
// Every spec carries its own Condition, evaluated exactly once per Compose
// call. A group may declare a precondition that is checked when at least one
// of its specs was selected; the drt group requires the bike-handling
// resolver stage to have run, since drt setup reads the mutated network
// modes.
//
// The per-person scoring parameters are bound to an injected
// ScoringParametersProvider.
package compose
