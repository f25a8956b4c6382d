package commands

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openleipzig/openleipzig/pkg/application"
	"github.com/openleipzig/openleipzig/pkg/compose"
	"github.com/openleipzig/openleipzig/pkg/resolver"
	"github.com/openleipzig/openleipzig/pkg/scenario"
)

func newGraphCommand() *cobra.Command {
	var phase string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the build stage graphs in DOT format",
		Long: `Print the stage graphs of the build phases in Graphviz DOT format.

Phases:
  - resolver: configuration resolution stages
  - scenario: network and population preparation stages
  - compose:  binding composition groups`,
		Example: `  # Render every phase
  leipzig graph | dot -Tsvg > stages.svg

  # Only the composition groups
  leipzig graph --phase compose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := application.New(cmd.Context(), zerolog.Nop(), application.Config{
				Areas: scenario.NewGeoJSONSource(""),
			})
			if err != nil {
				return err
			}

			graphs := []struct {
				phase string
				dot   func() (string, error)
			}{
				{resolver.Phase, app.Resolver().DOT},
				{scenario.Phase, app.Preparer().DOT},
				{compose.Phase, app.Composer().DOT},
			}

			var printed int
			for _, g := range graphs {
				if phase != "" && phase != g.phase {
					continue
				}
				dot, err := g.dot()
				if err != nil {
					return fmt.Errorf("%s graph: %w", g.phase, err)
				}
				fmt.Print(dot)
				printed++
			}

			if printed == 0 {
				names := make([]string, len(graphs))
				for i, g := range graphs {
					names[i] = g.phase
				}
				return fmt.Errorf("unknown phase %q (expected one of %s)", phase, strings.Join(names, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&phase, "phase", "", "only print this phase")

	return cmd
}
