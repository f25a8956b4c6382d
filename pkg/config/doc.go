// Package config provides the simulation configuration document of the
// Leipzig scenario.
//
// # Overview
//
// The document is owned by the external simulation engine. This package only
// models the config groups the scenario touches: controller, qsim, routing,
// scoring, replanning and the optional modules (bicycle, parking cost,
// multi-mode DRT, SwissRailRaptor, SimWrapper). Optional modules are pointers;
// a nil module is absent from the document.
//
// # Components
//
// Config: The typed document. Clone returns a deep copy so resolver stages can
// apply functional updates without touching their input.
//
// Load, Parse, Marshal, Save: YAML encoding of the document. Unknown keys are
// rejected on decode.
//
// SchemaRegistry: CUE schemas for validation. The built-in "config" schema
// checks the #Config definition against the encoded document.
//
// # Usage Example
//
//	cfg, err := config.Load("input/v1.3/leipzig-v1.3-config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry := config.NewSchemaRegistry()
//	if err := registry.ValidateConfig(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// # Field Names
//
// JSON and YAML tags use the engine's camelCase parameter names so that the
// CUE schema, the rego policies and the YAML document agree on one spelling.
package config
