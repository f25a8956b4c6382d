// Package resolver turns a base simulation configuration and an OptionSet
// into a resolved configuration.
//
// Resolution is a fixed stage graph evaluated in topological order. Each
// stage works on a clone of the previous result, so the base document is
// never modified and every stage can be tested on its own:
//
//	Level 0: activity-params, controller-defaults, subpopulation-strategies, sample
//	Level 1: bike-handling, parking, simwrapper
//	Level 2: drt-config
//
// Bike handling is an exhaustive transition table keyed by
// options.BikeHandling. A mode without an entry fails with an
// unsupported-mode error.
//
// RewriteStrategies substitutes the parking-aware routing and subtour mode
// choice strategies and leaves weight and subpopulation untouched.
package resolver
