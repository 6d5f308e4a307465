package dispatch

import (
	"context"
	"time"

	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/mozilla-it/bitbar-devicepool/internal/cache"
	"github.com/mozilla-it/bitbar-devicepool/internal/config"
	"github.com/mozilla-it/bitbar-devicepool/internal/farm"
	"github.com/mozilla-it/bitbar-devicepool/internal/queue"
)

// Options configures one dispatcher run.
type Options struct {
	Config *config.Config
	Farm   *farm.Client
	Queue  *queue.Client
	Cache  *cache.Cache
	Log    logrus.FieldLogger
	// Wait overrides the queue-handler tick interval (spec.md §4.6
	// default 60s) when non-zero.
	Wait time.Duration
}

// Run builds the lifecycle, active-runs reconciler, supervisor, and one
// queue-handler per Taskcluster-backed project, then runs them all
// under a single oklog/run.Group actor set (spec.md §4.6 "Threads";
// grounded in the retrieved prometheus-engine config-reloader's use of
// oklog/run to coordinate a watcher, a signal handler, and an HTTP
// server under one shared cancellation). It blocks until every actor
// has exited, which happens once the lifecycle reaches Stopped.
func Run(ctx context.Context, opts Options) error {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	lifecycle := NewLifecycle(log)
	stopWatching := lifecycle.WatchSignals()
	defer stopWatching()

	var g run.Group

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	projects := make(map[string]config.ProjectSpec)
	for name, spec := range opts.Config.Projects {
		if name == "defaults" {
			continue
		}
		projects[name] = spec
	}

	activeRuns := &ActiveRunsReconciler{
		Farm:      opts.Farm,
		Cache:     opts.Cache,
		Lifecycle: lifecycle,
		Log:       log,
	}
	g.Add(func() error {
		return activeRuns.Run(runCtx)
	}, func(error) {
		lifecycle.Stop("actor group shutdown")
		cancel()
	})

	supervisor := &Supervisor{
		Farm:         opts.Farm,
		Cache:        opts.Cache,
		Lifecycle:    lifecycle,
		Projects:     projects,
		DeviceGroups: opts.Config.DeviceGroups,
		Log:          log,
	}
	g.Add(func() error {
		return supervisor.Run(runCtx)
	}, func(error) {
		lifecycle.Stop("actor group shutdown")
		cancel()
	})

	for name, spec := range projects {
		if spec.WorkerType() == "" {
			// Projects without a worker type are not Taskcluster-driven
			// and deliberately get no queue-handler (spec.md §4.6).
			log.WithField("project", name).Debug("dispatch: no worker type declared, skipping queue-handler")
			continue
		}
		handler := &QueueHandler{
			Project:   spec,
			Farm:      opts.Farm,
			Queue:     opts.Queue,
			Cache:     opts.Cache,
			Lifecycle: lifecycle,
			Log:       log,
			Wait:      opts.Wait,
		}
		g.Add(func() error {
			return handler.Run(runCtx)
		}, func(error) {
			lifecycle.Stop("actor group shutdown")
			cancel()
		})
	}

	// Once any actor's Run loop exits — which happens as soon as it
	// observes lifecycle.Stop() at its own poll point — oklog/run calls
	// every other actor's interrupt function, cancelling runCtx and
	// waking the rest out of their sleeps. No separate shutdown actor
	// is needed.
	return g.Run()
}
