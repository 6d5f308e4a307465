// Package metrics implements the dispatcher's Prometheus metrics:
// per-project gauges mirroring the State Cache's ProjectStats, plus
// counters for run-submission outcomes (SPEC_FULL.md §2
// "added" ambient metrics package, adapted from the teacher's
// internal/metrics package of promauto-registered Prometheus
// collectors).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProjectIdle mirrors cache.ProjectStats.Idle per project.
	ProjectIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "devicepool_project_idle_devices",
			Help: "Idle device count for a project (COUNT - DISABLED - OFFLINE - RUNNING).",
		},
		[]string{"project"},
	)

	// ProjectOffline mirrors cache.ProjectStats.Offline per project.
	ProjectOffline = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "devicepool_project_offline_devices",
			Help: "Offline device count for a project.",
		},
		[]string{"project"},
	)

	// ProjectDisabled mirrors cache.ProjectStats.Disabled per project.
	ProjectDisabled = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "devicepool_project_disabled_devices",
			Help: "Disabled device count for a project.",
		},
		[]string{"project"},
	)

	// ProjectRunning mirrors cache.ProjectStats.Running per project.
	ProjectRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "devicepool_project_running_runs",
			Help: "Currently running test-run count for a project.",
		},
		[]string{"project"},
	)

	// ProjectWaiting mirrors cache.ProjectStats.Waiting per project.
	ProjectWaiting = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "devicepool_project_waiting_runs",
			Help: "Currently waiting test-run count for a project.",
		},
		[]string{"project"},
	)

	// RunsSubmittedTotal counts successful submit_run calls per project.
	RunsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devicepool_runs_submitted_total",
			Help: "Total number of test runs successfully submitted.",
		},
		[]string{"project"},
	)

	// RunsFailedTotal counts failed submit_run calls per project.
	RunsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devicepool_runs_failed_total",
			Help: "Total number of test-run submission failures.",
		},
		[]string{"project"},
	)

	// ArchivedFilesStopsTotal counts how many times a project's archived
	// files forced the dispatcher to stop (spec.md §4.6, §7).
	ArchivedFilesStopsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devicepool_archived_file_stops_total",
			Help: "Total number of dispatcher stops triggered by the archived-files condition.",
		},
		[]string{"project"},
	)
)

// ObserveStats publishes one project's current gauges. Called by the
// supervisor after each tick.
func ObserveStats(project string, idle, offline, disabled, running, waiting int) {
	ProjectIdle.WithLabelValues(project).Set(float64(idle))
	ProjectOffline.WithLabelValues(project).Set(float64(offline))
	ProjectDisabled.WithLabelValues(project).Set(float64(disabled))
	ProjectRunning.WithLabelValues(project).Set(float64(running))
	ProjectWaiting.WithLabelValues(project).Set(float64(waiting))
}
