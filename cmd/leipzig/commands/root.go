package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath    string
	telemetryPath string
	historyPath   string
	policyPaths   []string
	jsonOutput    bool
	devMode       bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "leipzig",
		Short: "Leipzig scenario composition engine",
		Long: `leipzig resolves the Leipzig MATSim scenario configuration for a set of
scenario options and composes the behavior modules installed into the
simulation controller.

Features:
  - Sample size, bike handling, parking and DRT options
  - CUE schema validation of the configuration document
  - VSP defaults checks written as OPA/rego policies
  - DRT and car-free area preparation from GeoJSON shapes
  - Build history in SQLite`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "scenario configuration document (YAML)")
	rootCmd.PersistentFlags().StringVar(&telemetryPath, "telemetry", "", "telemetry configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history", "", "build history database path")
	rootCmd.PersistentFlags().StringSliceVar(&policyPaths, "policy", nil, "additional policy files or directories")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "use the development telemetry preset (debug logs, stdout traces)")

	rootCmd.AddCommand(newRunCommand(version))
	rootCmd.AddCommand(newValidateCommand(version))
	rootCmd.AddCommand(newGraphCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
