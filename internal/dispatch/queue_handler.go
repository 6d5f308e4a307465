package dispatch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mozilla-it/bitbar-devicepool/internal/cache"
	"github.com/mozilla-it/bitbar-devicepool/internal/config"
	"github.com/mozilla-it/bitbar-devicepool/internal/farm"
	"github.com/mozilla-it/bitbar-devicepool/internal/metrics"
	"github.com/mozilla-it/bitbar-devicepool/internal/queue"
)

// defaultWait is the queue-handler's tick interval when QueueHandler.Wait
// is not set (spec.md §4.6: "sleep wait seconds, default 60").
const defaultWait = 60 * time.Second

// QueueHandler drives dispatch decisions for one Taskcluster-backed
// project: every tick it asks the upstream queue how much work is
// pending, computes jobs_to_start, and submits that many runs.
type QueueHandler struct {
	Project   config.ProjectSpec
	Farm      *farm.Client
	Queue     *queue.Client
	Cache     *cache.Cache
	Lifecycle *Lifecycle
	Log       logrus.FieldLogger
	Wait      time.Duration
}

func (h *QueueHandler) logger() logrus.FieldLogger {
	if h.Log == nil {
		return logrus.StandardLogger()
	}
	return h.Log.WithField("project", h.Project.Name)
}

func (h *QueueHandler) wait() time.Duration {
	if h.Wait > 0 {
		return h.Wait
	}
	return defaultWait
}

// Run loops the queue-handler tick until the lifecycle transitions to
// Stopped. It is designed to be registered as one oklog/run.Group actor.
func (h *QueueHandler) Run(ctx context.Context) error {
	log := h.logger()
	for h.Lifecycle.Running() {
		jobs, pending, stats := h.plan(ctx)
		log.WithFields(logrus.Fields{
			"pending": pending,
			"idle":    stats.Idle,
			"waiting": stats.Waiting,
			"jobs":    jobs,
		}).Debug("dispatch: queue-handler tick")

		h.dispatch(ctx, jobs, stats.Count)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(h.wait()):
		}
	}
	return nil
}

// plan computes this tick's jobs_to_start under the project lock, per
// spec.md §4.6 step 1-3: the offline/disabled warning, the upstream
// queue lookup, and the jobs_to_start computation all happen inside one
// critical section (test_run_manager.py's `with lock:` block) so that an
// active-runs reconciliation can't interleave a stats update between the
// snapshot this tick reads and the decision it makes from it.
func (h *QueueHandler) plan(ctx context.Context) (jobs, pending int, stats cache.ProjectStats) {
	h.Cache.WithProject(h.Project.Name, func(s *cache.ProjectStats) {
		if s.Offline > 0 || s.Disabled > 0 {
			h.logger().WithFields(logrus.Fields{
				"offline":  s.Offline,
				"disabled": s.Disabled,
			}).Warn("dispatch: project has offline or disabled devices")
		}

		pending = h.Queue.PendingOrZero(ctx, h.Project.TaskclusterProvisionerID, h.Project.WorkerType())
		jobs = jobsToStart(pending, s.Idle, s.Waiting)
		stats = *s
	})
	return jobs, pending, stats
}

// dispatch submits up to n runs, releasing the project lock for the
// duration of each submission (spec.md §4.6: "releasing the lock, loop
// jobs_to_start times"). A submission success pre-increments WAITING;
// the archived-files condition on failure stops the dispatcher.
func (h *QueueHandler) dispatch(ctx context.Context, n, count int) {
	log := h.logger()
	for i := 0; i < n; i++ {
		if !h.Lifecycle.Running() {
			return
		}
		if count == 0 {
			log.Warn("dispatch: refusing to submit to an empty device group")
			return
		}

		_, err := submitRun(ctx, h.Farm, h.Cache, h.Project)
		if err != nil {
			log.WithError(err).Error("dispatch: run submission failed")
			metrics.RunsFailedTotal.WithLabelValues(h.Project.Name).Inc()
			if farm.IsFileEntityMissing(err) {
				metrics.ArchivedFilesStopsTotal.WithLabelValues(h.Project.Name).Inc()
				h.Lifecycle.Stop("archived files for project " + h.Project.Name)
				return
			}
			continue
		}
		metrics.RunsSubmittedTotal.WithLabelValues(h.Project.Name).Inc()
		h.Cache.IncrementWaiting(h.Project.Name)
	}
}
