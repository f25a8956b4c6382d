package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openleipzig/openleipzig/pkg/application"
	"github.com/openleipzig/openleipzig/pkg/config"
	"github.com/openleipzig/openleipzig/pkg/engine"
	"github.com/openleipzig/openleipzig/pkg/options"
	"github.com/openleipzig/openleipzig/pkg/policy"
	"github.com/openleipzig/openleipzig/pkg/scenario"
)

var errValidationFailed = errors.New("validation failed")

func newValidateCommand(version string) *cobra.Command {
	var (
		watch bool
		of    *optionFlags
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration against schemas and policies",
		Long: `Validate a configuration against schemas and policies.

This command checks:
  - Schema conformance of the configuration document (CUE)
  - The scenario options
  - Schema conformance of the resolved configuration
  - Policy compliance (OPA/rego) of the resolved configuration

With --watch the configuration and policy files are watched and the
validation runs again after every change.`,
		Example: `  # Validate a configuration with default options
  leipzig validate -c leipzig-v1.3-config.yaml

  # Validate with custom policies and re-validate on change
  leipzig validate -c leipzig-v1.3-config.yaml --policy ./policies --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}

			ctx, tel, err := setupTelemetry(cmd.Context(), version)
			if err != nil {
				return err
			}
			defer shutdownTelemetry(tel)
			logger := tel.Logger.Zerolog()

			raw, err := of.resolve(cmd.Flags())
			if err != nil {
				return err
			}

			passed := validateOnce(ctx, logger, raw)
			if !watch {
				if !passed {
					return errValidationFailed
				}
				return nil
			}

			paths := append([]string{configPath}, policyPaths...)
			watcher := policy.NewWatcher(logger, nil)
			return watcher.Watch(ctx, paths, func(path string) {
				log.Info().Str("file", path).Msg("Change detected, validating again")
				validateOnce(ctx, logger, raw)
			})
		},
	}

	of = addOptionFlags(cmd)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "validate again when files change")

	return cmd
}

// validateOnce runs a full validation and prints its outcome.
func validateOnce(ctx context.Context, logger zerolog.Logger, raw options.Raw) bool {
	report, err := validate(ctx, logger, raw)

	if jsonOutput {
		out := map[string]interface{}{"valid": err == nil && report.Passed()}
		if err != nil {
			out["error"] = err.Error()
			out["code"] = engine.CodeOf(err)
		}
		if report != nil {
			out["report"] = report
		}
		if perr := printJSON(out); perr != nil {
			log.Error().Err(perr).Msg("Failed to print report")
		}
		return err == nil && report.Passed()
	}

	if err != nil {
		fmt.Printf("✗ %s is invalid: %v\n", configPath, err)
		return false
	}

	for _, v := range report.Violations {
		fmt.Printf("  error:   [%s] %s\n", v.Policy, v.Message)
	}
	for _, w := range report.Warnings {
		fmt.Printf("  warning: [%s] %s\n", w.Policy, w.Message)
	}
	if !report.Passed() {
		fmt.Printf("✗ %s violates %d policies\n", configPath, len(report.Violations))
		return false
	}
	fmt.Printf("✓ %s is valid (%d policies evaluated)\n", configPath, len(report.Evaluated))
	return true
}

func validate(ctx context.Context, logger zerolog.Logger, raw options.Raw) (*policy.Report, error) {
	base, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	app, err := newApplication(ctx, logger, application.Config{Areas: scenario.NewGeoJSONSource("")})
	if err != nil {
		return nil, err
	}

	if err := app.Schemas().ValidateConfig(ctx, base); err != nil {
		return nil, err
	}

	opts, err := options.Parse(raw)
	if err != nil {
		return nil, err
	}

	resolved, err := app.Resolver().Apply(ctx, base, opts)
	if err != nil {
		return nil, err
	}

	if err := app.Schemas().ValidateConfig(ctx, resolved.Config); err != nil {
		return nil, err
	}

	return app.Policies().Evaluate(ctx, &policy.Input{Config: resolved.Config, Applied: resolved.Applied})
}
