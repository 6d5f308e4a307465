package dispatch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mozilla-it/bitbar-devicepool/internal/cache"
	"github.com/mozilla-it/bitbar-devicepool/internal/farm"
)

// activeRunsInterval is the active-runs reconciler's tick cadence
// (spec.md §4.6: "every ~10 seconds").
const activeRunsInterval = 10 * time.Second

// ActiveRunsReconciler periodically fetches the farm's global list of
// active (no end time) test runs and redistributes them per project,
// replacing each project's cached run list and re-tallying RUNNING and
// WAITING from tallied truth. This is also what bounds the queue
// handler's speculative WAITING increment to at most one tick's
// over-count (spec.md §4.5/§5 ordering guarantee (ii)).
type ActiveRunsReconciler struct {
	Farm      *farm.Client
	Cache     *cache.Cache
	Lifecycle *Lifecycle
	Log       logrus.FieldLogger
	Interval  time.Duration
}

func (a *ActiveRunsReconciler) logger() logrus.FieldLogger {
	if a.Log == nil {
		return logrus.StandardLogger()
	}
	return a.Log
}

func (a *ActiveRunsReconciler) interval() time.Duration {
	if a.Interval > 0 {
		return a.Interval
	}
	return activeRunsInterval
}

// Run loops the reconciliation tick until the lifecycle stops.
func (a *ActiveRunsReconciler) Run(ctx context.Context) error {
	for a.Lifecycle.Running() {
		a.tick(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(a.interval()):
		}
	}
	return nil
}

func (a *ActiveRunsReconciler) tick(ctx context.Context) {
	runs, err := a.Farm.ListActiveTestRuns(ctx)
	if err != nil {
		// Transport failure: sleep and retry next tick, never mutate the
		// cache with partial data (spec.md §4.6).
		a.logger().WithError(err).Warn("dispatch: active-runs fetch failed, retrying next tick")
		return
	}

	known := make(map[string]struct{})
	for _, name := range a.Cache.ProjectNames() {
		known[name] = struct{}{}
	}

	byProject := make(map[string][]farm.TestRun)
	for _, run := range runs {
		if _, ok := known[run.ProjectName]; !ok {
			continue
		}
		byProject[run.ProjectName] = append(byProject[run.ProjectName], run)
	}

	for project := range known {
		a.Cache.ReconcileActiveRuns(project, byProject[project])
	}
}
