package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mozilla-it/bitbar-devicepool/internal/dispatch"
	"github.com/mozilla-it/bitbar-devicepool/internal/metrics"
)

var (
	waitSeconds int
	update      bool
	metricsAddr string
)

var startDispatcherCmd = &cobra.Command{
	Use:   "start-dispatcher",
	Short: "Run the steady-state dispatch control loop",
	Long: `start-dispatcher converges the farm on the declared configuration and then
runs the dispatch core forever: one queue-handler goroutine per
Taskcluster-backed project, an active-runs reconciler, and a supervisor
that refreshes device-level stats (spec.md §4.6).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := bootstrapEnvironment(ctx, update)
		if err != nil {
			fatalf("start-dispatcher: %v", err)
		}

		if metricsAddr != "" {
			srv := metrics.NewServer(metricsAddr)
			go func() {
				if err := srv.ListenAndServe(); err != nil {
					env.Log.WithError(err).Error("metrics: server stopped")
				}
			}()
		}

		return dispatch.Run(ctx, dispatch.Options{
			Config: env.Config,
			Farm:   env.Farm,
			Queue:  env.Queue,
			Cache:  env.Cache,
			Log:    env.Log,
			Wait:   time.Duration(waitSeconds) * time.Second,
		})
	},
}

func init() {
	startDispatcherCmd.Flags().IntVar(&waitSeconds, "wait", 60,
		"seconds to wait between queue-handler ticks (spec.md §4.6 default 60)")
	startDispatcherCmd.Flags().BoolVar(&update, "update", false,
		"allow the configuration reconciler to mutate farm state (read-only otherwise)")
	startDispatcherCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"address to serve Prometheus metrics on, e.g. :9090 (disabled when empty)")
	rootCmd.AddCommand(startDispatcherCmd)
}
