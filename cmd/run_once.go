package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mozilla-it/bitbar-devicepool/internal/dispatch"
)

var runOnceProject string

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Submit one test run for a project, then exit",
	Long: `run-once converges the farm on the declared configuration and submits a
single test run for --project, mirroring the original's "run-test"
subcommand (original_source main.py run_test).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runOnceProject == "" {
			fatalf("run-once: --project is required")
		}
		ctx := cmd.Context()

		env, err := bootstrapEnvironment(ctx, update)
		if err != nil {
			fatalf("run-once: %v", err)
		}

		spec, ok := env.Config.Projects[runOnceProject]
		if !ok {
			fatalf("run-once: no such project %q", runOnceProject)
		}

		run, err := dispatch.SubmitRun(ctx, env.Farm, env.Cache, spec)
		if err != nil {
			return fmt.Errorf("run-once: submit: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "submitted run %d for project %q\n", run.ID, runOnceProject)
		return nil
	},
}

func init() {
	runOnceCmd.Flags().StringVar(&runOnceProject, "project", "", "project name to submit a run for (required)")
	runOnceCmd.Flags().BoolVar(&update, "update", false,
		"allow the configuration reconciler to mutate farm state (read-only otherwise)")
	rootCmd.AddCommand(runOnceCmd)
}
