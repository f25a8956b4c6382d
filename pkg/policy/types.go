package policy

import (
	"time"

	"github.com/openleipzig/openleipzig/pkg/config"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for settings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for settings that abort the build under the abort
	// checking level.
	SeverityError Severity = "error"
)

// Policy is a rego policy over the resolved configuration. Its module
// defines a deny set in its package.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name" yaml:"name"`

	// Description provides a human-readable description.
	Description string `json:"description" yaml:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego" yaml:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity" yaml:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Violation is a single deny result.
type Violation struct {
	// Policy is the name of the violated policy.
	Policy string `json:"policy"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`

	// Path points at the offending setting, if known.
	Path string `json:"path,omitempty"`
}

// Input is the document policies are evaluated against.
type Input struct {
	// Config is the resolved configuration.
	Config *config.Config `json:"config"`

	// Applied lists the resolver stages that ran.
	Applied []string `json:"applied"`
}

// Report is the result of a policy check.
type Report struct {
	// CheckingLevel is the level the check ran with.
	CheckingLevel string `json:"checking_level"`

	// Violations lists error severity violations.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists violations below error severity.
	Warnings []Violation `json:"warnings,omitempty"`

	// Evaluated lists the names of the evaluated policies.
	Evaluated []string `json:"evaluated"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Passed reports whether the check found no error violations.
func (r *Report) Passed() bool {
	return len(r.Violations) == 0
}

// Bundle is a named collection of policies.
type Bundle struct {
	Name        string   `json:"name" yaml:"name"`
	Version     string   `json:"version" yaml:"version"`
	Description string   `json:"description" yaml:"description"`
	Policies    []Policy `json:"policies" yaml:"policies"`
}
