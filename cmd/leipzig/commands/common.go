package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/openleipzig/openleipzig/pkg/application"
	"github.com/openleipzig/openleipzig/pkg/config"
	"github.com/openleipzig/openleipzig/pkg/options"
	"github.com/openleipzig/openleipzig/pkg/stores"
	"github.com/openleipzig/openleipzig/pkg/telemetry"
)

// optionFlags binds the scenario options to command flags. An options
// file is read first; flags given on the command line win.
type optionFlags struct {
	file string
	raw  options.Raw
}

func addOptionFlags(cmd *cobra.Command) *optionFlags {
	of := &optionFlags{raw: options.Defaults()}
	f := cmd.Flags()

	f.StringVar(&of.file, "options", "", "scenario options file (YAML)")
	f.IntVar(&of.raw.SampleSize, "sample-size", of.raw.SampleSize, "sample size in percent (unset means 100)")
	f.IntSliceVar(&of.raw.AllowedSampleSizes, "allowed-sample-sizes", nil, "override the allowed sample sizes")
	f.StringVar(&of.raw.Bikes, "bikes", of.raw.Bikes, fmt.Sprintf("bike handling %v", options.BikeHandlingModes))
	f.BoolVar(&of.raw.Parking, "parking", of.raw.Parking, "enable the parking logic")
	f.Float64Var(&of.raw.ParkingCostTimePeriodStart, "parking-cost-time-period-start", 0, "hour of day parking cost starts")
	f.Float64Var(&of.raw.ParkingCostTimePeriodEnd, "parking-cost-time-period-end", 0, "hour of day parking cost ends")
	f.StringVar(&of.raw.Intermodality, "intermodality", of.raw.Intermodality,
		fmt.Sprintf("drt intermodality [%s %s]", options.DrtSeparateFromPt, options.DrtAsAccessEgressForPt))
	f.StringVar(&of.raw.DrtArea, "drt-area", "", "DRT service area (GeoJSON)")
	f.StringVar(&of.raw.CarFreeArea, "car-free-area", "", "car-free area (GeoJSON)")

	return of
}

// resolve merges the options file with the flags that were set.
func (of *optionFlags) resolve(flags *pflag.FlagSet) (options.Raw, error) {
	if of.file == "" {
		return of.raw, nil
	}

	data, err := os.ReadFile(of.file)
	if err != nil {
		return options.Raw{}, fmt.Errorf("failed to read options file: %w", err)
	}

	merged := options.Defaults()
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return options.Raw{}, fmt.Errorf("failed to parse options file: %w", err)
	}

	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("sample-size", func() { merged.SampleSize = of.raw.SampleSize })
	set("allowed-sample-sizes", func() { merged.AllowedSampleSizes = of.raw.AllowedSampleSizes })
	set("bikes", func() { merged.Bikes = of.raw.Bikes })
	set("parking", func() { merged.Parking = of.raw.Parking })
	set("parking-cost-time-period-start", func() { merged.ParkingCostTimePeriodStart = of.raw.ParkingCostTimePeriodStart })
	set("parking-cost-time-period-end", func() { merged.ParkingCostTimePeriodEnd = of.raw.ParkingCostTimePeriodEnd })
	set("intermodality", func() { merged.Intermodality = of.raw.Intermodality })
	set("drt-area", func() { merged.DrtArea = of.raw.DrtArea })
	set("car-free-area", func() { merged.CarFreeArea = of.raw.CarFreeArea })

	return merged, nil
}

// telemetryConfig returns the preset selected by --dev.
func telemetryConfig(version string) *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	if devMode {
		cfg = telemetry.DevelopmentConfig()
	}
	cfg.ServiceVersion = version
	return cfg
}

// setupTelemetry creates the telemetry of a command and adds it to ctx.
func setupTelemetry(ctx context.Context, version string) (context.Context, *telemetry.Telemetry, error) {
	cfg := telemetryConfig(version)
	cfg.Metrics.ListenAddress = ""
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if telemetryPath != "" {
		data, err := os.ReadFile(telemetryPath)
		if err != nil {
			return ctx, nil, fmt.Errorf("failed to read telemetry config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return ctx, nil, fmt.Errorf("failed to parse telemetry config: %w", err)
		}
	}

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		return ctx, nil, fmt.Errorf("failed to create telemetry: %w", err)
	}
	if err := tel.StartMetricsServer(); err != nil {
		return ctx, nil, fmt.Errorf("failed to start metrics server: %w", err)
	}

	return tel.WithContext(ctx), tel, nil
}

func shutdownTelemetry(tel *telemetry.Telemetry) {
	if tel == nil {
		return
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down telemetry")
	}
}

// openHistory opens the build history when --history is set.
func openHistory(ctx context.Context) (*stores.SQLiteStore, error) {
	if historyPath == "" {
		return nil, nil
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: historyPath})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// loadBase reads --config or falls back to the built-in document.
func loadBase() (*config.Config, error) {
	if configPath == "" {
		log.Info().Str("version", config.Version).Msg("No configuration given, using built-in defaults")
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func newApplication(ctx context.Context, logger zerolog.Logger, cfg application.Config) (*application.Application, error) {
	cfg.PolicyPaths = append(cfg.PolicyPaths, policyPaths...)
	return application.New(ctx, logger, cfg)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
