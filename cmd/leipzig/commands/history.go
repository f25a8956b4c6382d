package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openleipzig/openleipzig/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the build history",
		Long: `Inspect recorded scenario builds.

Builds are recorded when run is given a --history database. Every record
keeps the options, the applied resolver stages and the installed bindings.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if historyPath == "" {
				return fmt.Errorf("--history is required")
			}
			return nil
		},
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryDeleteCommand())

	return cmd
}

func newHistoryListCommand() *cobra.Command {
	var (
		status string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded builds, newest first",
		Example: `  leipzig history list --history builds.db
  leipzig history list --history builds.db --status failed --limit 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			var filter *stores.BuildStatus
			if status != "" {
				s := stores.BuildStatus(status)
				filter = &s
			}

			builds, err := store.ListBuilds(cmd.Context(), filter, limit, offset)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(builds)
			}

			if len(builds) == 0 {
				fmt.Println("No builds recorded")
				return nil
			}
			fmt.Printf("%-36s  %-9s  %-20s  %s\n", "ID", "STATUS", "STARTED", "CONFIG")
			for _, b := range builds {
				fmt.Printf("%-36s  %-9s  %-20s  %s\n", b.ID, b.Status, b.StartedAt.Format(time.DateTime), b.ConfigPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only list builds with this status (running, completed, failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of builds")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of builds to skip")

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "show <build-id>",
		Short:   "Show a recorded build with its stages and bindings",
		Example: `  leipzig history show --history builds.db 0b5c7a52-8a1e-4d7e-9a55-0f6d1c1f3e21`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			build, err := store.GetBuild(ctx, args[0])
			if err != nil {
				return err
			}
			stages, err := store.ListStages(ctx, build.ID)
			if err != nil {
				return err
			}
			bindings, err := store.ListBindings(ctx, build.ID)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"build":    build,
					"stages":   stages,
					"bindings": bindings,
				})
			}

			fmt.Printf("Build:    %s\n", build.ID)
			fmt.Printf("Status:   %s\n", build.Status)
			fmt.Printf("Config:   %s\n", build.ConfigPath)
			fmt.Printf("Options:  %s\n", build.Options)
			fmt.Printf("Started:  %s\n", build.StartedAt.Format(time.RFC3339))
			if build.CompletedAt != nil {
				fmt.Printf("Finished: %s (%s)\n", build.CompletedAt.Format(time.RFC3339), build.CompletedAt.Sub(build.StartedAt))
			}
			if build.Error != nil {
				fmt.Printf("Error:    %s\n", *build.Error)
			}

			fmt.Printf("\nStages (%d):\n", len(stages))
			for i, s := range stages {
				fmt.Printf("  %2d. %s\n", i+1, s)
			}

			fmt.Printf("\nBindings (%d):\n", len(bindings))
			for _, b := range bindings {
				target := b.Target
				if b.Implementation != "" {
					target = fmt.Sprintf("%s -> %s", b.Target, b.Implementation)
				}
				params := ""
				if b.Params != "{}" {
					params = " " + b.Params
				}
				fmt.Printf("  [%s] %s %s%s\n", b.Group, b.Capability, target, params)
			}
			return nil
		},
	}
}

func newHistoryDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <build-id>",
		Short: "Delete a recorded build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteBuild(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted build %s\n", args[0])
			return nil
		},
	}
}
