package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/rs/zerolog"

	"github.com/openleipzig/openleipzig/pkg/config"
	"github.com/openleipzig/openleipzig/pkg/engine"
	"github.com/openleipzig/openleipzig/pkg/resolver"
	"github.com/openleipzig/openleipzig/pkg/telemetry"
)

// Phase and stage names of the policy check in telemetry.
const (
	Phase      = "policy"
	StageCheck = "vsp-defaults"
)

// Engine evaluates rego policies against resolved configurations.
type Engine struct {
	mu       sync.RWMutex
	policies map[string]*compiledPolicy
	logger   zerolog.Logger
}

// compiledPolicy is a policy with its prepared deny query.
type compiledPolicy struct {
	policy *Policy
	query  rego.PreparedEvalQuery
}

// NewEngine creates a policy engine with the built-in policies.
func NewEngine(logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		policies: make(map[string]*compiledPolicy),
		logger:   logger.With().Str("component", "policy-engine").Logger(),
	}

	builtin := GetBuiltinPolicies()
	for i := range builtin {
		if err := e.AddPolicy(context.Background(), builtin[i]); err != nil {
			return nil, fmt.Errorf("failed to compile built-in policy %s: %w", builtin[i].Name, err)
		}
	}

	e.logger.Debug().Int("count", len(builtin)).Msg("Built-in policies loaded")
	return e, nil
}

// AddPolicy compiles a policy and adds or replaces it by name.
func (e *Engine) AddPolicy(ctx context.Context, policy Policy) error {
	module, err := ast.ParseModule(policy.Name, policy.Rego)
	if err != nil {
		return fmt.Errorf("failed to parse policy: %w", err)
	}

	query, err := rego.New(
		rego.ParsedModule(module),
		rego.Query(fmt.Sprintf("%s.deny", module.Package.Path)),
	).PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare query: %w", err)
	}

	if policy.Severity == "" {
		policy.Severity = SeverityWarning
	}

	e.mu.Lock()
	e.policies[policy.Name] = &compiledPolicy{policy: &policy, query: query}
	e.mu.Unlock()

	e.logger.Debug().Str("policy", policy.Name).Msg("Policy compiled successfully")
	return nil
}

// LoadPolicies loads and compiles policy files.
func (e *Engine) LoadPolicies(ctx context.Context, paths []string) error {
	policies, err := NewLoader(e.logger).LoadFromPaths(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	for i := range policies {
		if err := e.AddPolicy(ctx, policies[i]); err != nil {
			return fmt.Errorf("failed to compile policy %s: %w", policies[i].Name, err)
		}
	}

	e.logger.Info().Int("count", len(policies)).Msg("Policies loaded successfully")
	return nil
}

// Evaluate runs every enabled policy against input and sorts the results
// by severity.
func (e *Engine) Evaluate(ctx context.Context, input *Input) (*Report, error) {
	start := time.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	report := &Report{}
	for _, name := range e.sortedNames() {
		cp := e.policies[name]
		if !cp.policy.Enabled {
			continue
		}

		violations, err := e.evaluatePolicy(ctx, cp, input)
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", name, err)
		}
		report.Evaluated = append(report.Evaluated, name)

		for _, v := range violations {
			if v.Severity == SeverityError {
				report.Violations = append(report.Violations, v)
			} else {
				report.Warnings = append(report.Warnings, v)
			}
		}
	}

	report.Duration = time.Since(start)
	return report, nil
}

// CheckConfig evaluates the resolved configuration under its VSP defaults
// checking level. With abort, error violations fail with a precondition
// error; with warn and info they are logged; ignore skips the check.
func (e *Engine) CheckConfig(ctx context.Context, resolved *resolver.ResolvedConfig) (*Report, error) {
	if resolved == nil || resolved.Config == nil {
		return nil, engine.NewPreconditionError("resolved configuration is missing", nil)
	}

	level := resolved.Config.VspExperimental.VspDefaultsCheckingLevel
	if level == "" {
		level = config.CheckingLevelWarn
	}
	if level == config.CheckingLevelIgnore {
		e.logger.Debug().Msg("VSP defaults check ignored")
		return &Report{CheckingLevel: level}, nil
	}

	sc := telemetry.StartStage(ctx, Phase, StageCheck)
	report, err := e.Evaluate(sc.Ctx, &Input{Config: resolved.Config, Applied: resolved.Applied})
	if err != nil {
		err = engine.NewInternalError("policy evaluation failed", err).
			WithStage(StageCheck).
			WithCode(engine.ErrCodePolicy)
		sc.End(err)
		return nil, err
	}
	report.CheckingLevel = level

	metrics := telemetry.MetricsFromContext(ctx)
	for _, v := range append(append([]Violation(nil), report.Violations...), report.Warnings...) {
		metrics.RecordPolicyViolation(v.Policy, string(v.Severity))
		e.logEvent(level, v).
			Str("policy", v.Policy).
			Str("path", v.Path).
			Msg(v.Message)
	}

	if level == config.CheckingLevelAbort && !report.Passed() {
		err = engine.NewPreconditionError(
			fmt.Sprintf("%d VSP defaults violations: %s", len(report.Violations), summarize(report.Violations)), nil).
			WithStage(StageCheck).
			WithCode(engine.ErrCodePolicy).
			WithDetail("violations", report.Violations)
	}
	sc.End(err)

	if err != nil {
		return report, err
	}

	e.logger.Debug().
		Str("level", level).
		Int("warnings", len(report.Warnings)).
		Dur("duration", report.Duration).
		Msg("VSP defaults check completed")
	return report, nil
}

func (e *Engine) logEvent(level string, v Violation) *zerolog.Event {
	switch {
	case level == config.CheckingLevelInfo:
		return e.logger.Info()
	case v.Severity == SeverityError:
		return e.logger.Error()
	default:
		return e.logger.Warn()
	}
}

func summarize(violations []Violation) string {
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		parts = append(parts, v.Policy)
	}
	return strings.Join(parts, ", ")
}

// evaluatePolicy evaluates a single compiled policy.
func (e *Engine) evaluatePolicy(ctx context.Context, cp *compiledPolicy, input *Input) ([]Violation, error) {
	results, err := cp.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("policy evaluation error: %w", err)
	}

	var violations []Violation
	for _, result := range results {
		if len(result.Expressions) == 0 {
			continue
		}
		denySet, ok := result.Expressions[0].Value.([]interface{})
		if !ok {
			continue
		}
		for _, d := range denySet {
			violations = append(violations, createViolation(cp.policy, d))
		}
	}

	sort.Slice(violations, func(i, j int) bool {
		return violations[i].Message < violations[j].Message
	})
	return violations, nil
}

// createViolation creates a Violation from a deny result.
func createViolation(policy *Policy, result interface{}) Violation {
	violation := Violation{
		Policy:   policy.Name,
		Severity: policy.Severity,
	}

	switch v := result.(type) {
	case string:
		violation.Message = v
	case map[string]interface{}:
		if msg, ok := v["message"].(string); ok {
			violation.Message = msg
		}
		if sev, ok := v["severity"].(string); ok {
			violation.Severity = Severity(sev)
		}
		if path, ok := v["path"].(string); ok {
			violation.Path = path
		}
	default:
		violation.Message = fmt.Sprintf("%v", result)
	}

	return violation
}

func (e *Engine) sortedNames() []string {
	names := make([]string, 0, len(e.policies))
	for name := range e.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPolicy returns a policy by name.
func (e *Engine) GetPolicy(name string) (*Policy, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cp, exists := e.policies[name]
	if !exists {
		return nil, fmt.Errorf("policy not found: %s", name)
	}
	return cp.policy, nil
}

// ListPolicies returns all loaded policies sorted by name.
func (e *Engine) ListPolicies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	policies := make([]Policy, 0, len(e.policies))
	for _, name := range e.sortedNames() {
		policies = append(policies, *e.policies[name].policy)
	}
	return policies
}

// EnablePolicy enables a policy by name.
func (e *Engine) EnablePolicy(name string) error {
	return e.setEnabled(name, true)
}

// DisablePolicy disables a policy by name.
func (e *Engine) DisablePolicy(name string) error {
	return e.setEnabled(name, false)
}

func (e *Engine) setEnabled(name string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp, exists := e.policies[name]
	if !exists {
		return fmt.Errorf("policy not found: %s", name)
	}

	cp.policy.Enabled = enabled
	e.logger.Info().Str("policy", name).Bool("enabled", enabled).Msg("Policy toggled")
	return nil
}
