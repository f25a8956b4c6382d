// Package policy checks resolved configurations against VSP defaults
// written as Open Policy Agent (Rego) policies.
//
// Every policy module defines a deny set in its package. A deny entry is a
// string or an object with message, path and optional severity:
//
//	package leipzig.vsp.capacity
//
//	import rego.v1
//
//	deny contains violation if {
//		input.config.qsim.flowCapacityFactor != input.config.qsim.storageCapacityFactor
//		violation := {"message": "capacity factors differ", "path": "qsim"}
//	}
//
// The input document is {"config": <resolved config>, "applied": [<resolver
// stages>]} with the config field names of the YAML document.
//
// CheckConfig honours vspExperimental.vspDefaultsCheckingLevel:
//
//	abort   error violations fail the build with a precondition error
//	warn    violations are logged
//	info    violations are logged at info level
//	ignore  policies are not evaluated
//
// Additional policies are loaded from .rego files or JSON/YAML definitions
// with Engine.LoadPolicies. Watcher reports file changes for the CLI's
// watch mode.
package policy
