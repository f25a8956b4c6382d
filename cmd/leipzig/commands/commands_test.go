package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/openleipzig/openleipzig/pkg/options"
)

func TestOptionFlags_Resolve(t *testing.T) {
	file := filepath.Join(t.TempDir(), "options.yaml")
	content := `sample_size: 25
bikes: bikeTeleportedStandardMatsim
parking: false
drt_area: areas/drt.geojson
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write options file: %v", err)
	}

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, raw options.Raw)
	}{
		{
			name: "flags only",
			args: []string{"--sample-size", "10", "--parking=false"},
			check: func(t *testing.T, raw options.Raw) {
				if raw.SampleSize != 10 || raw.Parking {
					t.Errorf("Expected sample 10 without parking, got %+v", raw)
				}
				if raw.Bikes != string(options.BikeOnNetworkStandard) {
					t.Errorf("Expected default bikes, got %s", raw.Bikes)
				}
			},
		},
		{
			name: "file only",
			args: []string{"--options", file},
			check: func(t *testing.T, raw options.Raw) {
				if raw.SampleSize != 25 || raw.Bikes != string(options.BikeTeleported) || raw.Parking {
					t.Errorf("Expected file values, got %+v", raw)
				}
				if raw.Intermodality != string(options.DrtSeparateFromPt) {
					t.Errorf("Expected default intermodality, got %s", raw.Intermodality)
				}
			},
		},
		{
			name: "flags override file",
			args: []string{"--options", file, "--sample-size", "1", "--drt-area", "other.geojson"},
			check: func(t *testing.T, raw options.Raw) {
				if raw.SampleSize != 1 || raw.DrtArea != "other.geojson" {
					t.Errorf("Expected flag values to win, got %+v", raw)
				}
				if raw.Bikes != string(options.BikeTeleported) {
					t.Errorf("Expected bikes from file, got %s", raw.Bikes)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			of := addOptionFlags(cmd)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("Failed to parse flags: %v", err)
			}

			raw, err := of.resolve(cmd.Flags())
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			tt.check(t, raw)
		})
	}
}

func TestOptionFlags_MissingFile(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	of := addOptionFlags(cmd)
	if err := cmd.ParseFlags([]string{"--options", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	if _, err := of.resolve(cmd.Flags()); err == nil {
		t.Fatal("Expected error for missing options file")
	}
}

func TestGraphCommand_UnknownPhase(t *testing.T) {
	root := newRootCommand("test", "none", "now")
	root.SetArgs([]string{"graph", "--phase", "replanning"})

	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatal("Expected error for unknown phase")
	}
}

func TestHistoryCommand_RequiresDatabase(t *testing.T) {
	historyPath = ""
	root := newRootCommand("test", "none", "now")
	root.SetArgs([]string{"history", "list"})

	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatal("Expected error without --history")
	}
}
