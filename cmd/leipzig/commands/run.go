package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openleipzig/openleipzig/pkg/application"
	"github.com/openleipzig/openleipzig/pkg/compose"
	"github.com/openleipzig/openleipzig/pkg/config"
	"github.com/openleipzig/openleipzig/pkg/scenario"
)

type runSummary struct {
	BuildID  string   `json:"build_id"`
	RunID    string   `json:"run_id"`
	Options  string   `json:"options"`
	Stages   []string `json:"stages"`
	Bindings int      `json:"bindings"`
	Warnings []string `json:"warnings,omitempty"`
	Files    []string `json:"files"`
	Duration string   `json:"duration"`
}

func newRunCommand(version string) *cobra.Command {
	var (
		networkPath    string
		populationPath string
		outputDir      string
		of             *optionFlags
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build a runnable Leipzig scenario",
		Long: `Build a runnable Leipzig scenario from a configuration and options.

This command:
  - Resolves the configuration against the scenario options
  - Checks the resolved configuration against schemas and policies
  - Prepares the network and population (car-free and DRT areas)
  - Composes the simulation bindings and hands them to the controller

The resolved configuration and the binding manifest are written to the
output directory, along with the prepared network and plans if given.`,
		Example: `  # 10pct sample with defaults
  leipzig run --sample-size 10

  # Teleported bikes without parking
  leipzig run -c leipzig-v1.3-config.yaml --bikes bikeTeleportedStandardMatsim --parking=false

  # DRT in a service area, with the prepared scenario written out
  leipzig run --drt-area areas/drt.geojson --network network.yaml --population plans.yaml -o out`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, tel, err := setupTelemetry(cmd.Context(), version)
			if err != nil {
				return err
			}
			defer shutdownTelemetry(tel)

			raw, err := of.resolve(cmd.Flags())
			if err != nil {
				return err
			}

			base, err := loadBase()
			if err != nil {
				return err
			}

			scn, err := scenario.Load(networkPath, populationPath)
			if err != nil {
				return err
			}

			history, err := openHistory(ctx)
			if err != nil {
				return err
			}
			cfg := application.Config{Areas: scenario.NewGeoJSONSource("")}
			if history != nil {
				defer history.Close()
				cfg.History = history
			}

			app, err := newApplication(ctx, tel.Logger.Zerolog(), cfg)
			if err != nil {
				return err
			}

			log.Info().
				Str("config", configPath).
				Int("sample_size", raw.SampleSize).
				Str("bikes", raw.Bikes).
				Msg("Building scenario")

			result, err := app.Run(ctx, application.Input{
				ConfigPath: configPath,
				Base:       base,
				Options:    raw,
				Scenario:   scn,
			})
			if err != nil {
				return err
			}

			files, err := writeOutputs(outputDir, result, scn, networkPath != "", populationPath != "")
			if err != nil {
				return err
			}

			summary := runSummary{
				BuildID:  result.BuildID,
				RunID:    result.Resolved.Config.Controller.RunID,
				Options:  result.Options.String(),
				Stages:   result.Resolved.Applied,
				Bindings: len(result.Bindings),
				Files:    files,
				Duration: result.Duration.String(),
			}
			if result.Report != nil {
				for _, w := range result.Report.Warnings {
					summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: %s", w.Policy, w.Message))
				}
			}

			if jsonOutput {
				return printJSON(summary)
			}

			fmt.Printf("Build %s completed in %s\n", summary.BuildID, summary.Duration)
			fmt.Printf("  run id:   %s\n", summary.RunID)
			fmt.Printf("  options:  %s\n", summary.Options)
			fmt.Printf("  stages:   %d\n", len(summary.Stages))
			fmt.Printf("  bindings: %d\n", summary.Bindings)
			for _, w := range summary.Warnings {
				fmt.Printf("  warning:  %s\n", w)
			}
			for _, f := range summary.Files {
				fmt.Printf("  wrote:    %s\n", f)
			}
			return nil
		},
	}

	of = addOptionFlags(cmd)
	cmd.Flags().StringVar(&networkPath, "network", "", "network file to prepare (YAML)")
	cmd.Flags().StringVar(&populationPath, "population", "", "population file to prepare (YAML)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "directory for the build outputs")

	return cmd
}

func writeOutputs(dir string, result *application.Result, scn *scenario.Scenario, network, population bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	prefix := result.Resolved.Config.Controller.RunID
	if prefix == "" {
		prefix = result.BuildID
	}
	path := func(suffix string) string { return filepath.Join(dir, prefix+suffix) }

	var files []string

	cfgPath := path(".config.yaml")
	if err := config.Save(cfgPath, result.Resolved.Config); err != nil {
		return nil, err
	}
	files = append(files, cfgPath)

	manifest, err := compose.MarshalManifest(result.BuildID, result.Bindings)
	if err != nil {
		return nil, err
	}
	manifestPath := path(".bindings.yaml")
	if err := os.WriteFile(manifestPath, manifest, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write binding manifest: %w", err)
	}
	files = append(files, manifestPath)

	if network {
		p := path(".network.yaml")
		if err := scenario.Save(p, scn.Network); err != nil {
			return nil, err
		}
		files = append(files, p)
	}
	if population {
		p := path(".plans.yaml")
		if err := scenario.Save(p, scn.Population); err != nil {
			return nil, err
		}
		files = append(files, p)
	}

	return files, nil
}
