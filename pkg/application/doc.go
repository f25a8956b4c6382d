// Package application wires the build pipeline of a Leipzig scenario:
//
//	options -> resolve -> schema -> policy -> prepare -> compose -> install
//
// A build is fail-fast. When any step fails no binding is installed and the
// scenario is left untouched. Builds are traced under one build span, counted
// in metrics and, when a history store is configured, recorded there.
package application
