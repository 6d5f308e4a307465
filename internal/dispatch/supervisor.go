package dispatch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mozilla-it/bitbar-devicepool/internal/cache"
	"github.com/mozilla-it/bitbar-devicepool/internal/config"
	"github.com/mozilla-it/bitbar-devicepool/internal/farm"
	"github.com/mozilla-it/bitbar-devicepool/internal/metrics"
)

// supervisorInterval is the supervisor's tick cadence (spec.md §4.6:
// "every ~60 seconds").
const supervisorInterval = 60 * time.Second

// Supervisor refreshes device-level stats (OFFLINE, OFFLINE_DEVICES,
// DISABLED) for every managed project and logs an aggregate summary. Run
// registers it as one actor of its run.Group, alongside the active-runs
// reconciler and the queue-handlers; signal wiring lives in
// Lifecycle.WatchSignals, not here.
type Supervisor struct {
	Farm         *farm.Client
	Cache        *cache.Cache
	Lifecycle    *Lifecycle
	Projects     map[string]config.ProjectSpec     // by project name, excludes "defaults"
	DeviceGroups map[string]config.DeviceGroupSpec // by group name, the declared membership
	Log          logrus.FieldLogger
	Interval     time.Duration
}

func (s *Supervisor) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

func (s *Supervisor) interval() time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}
	return supervisorInterval
}

// Run loops the supervisor tick until the lifecycle stops.
func (s *Supervisor) Run(ctx context.Context) error {
	for s.Lifecycle.Running() {
		s.tick(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.interval()):
		}
	}
	return nil
}

func (s *Supervisor) tick(ctx context.Context) {
	var waitingTotal, runningTotal int

	for name, spec := range s.Projects {
		if err := s.refreshProject(ctx, spec); err != nil {
			s.logger().WithError(err).WithField("project", name).Warn("dispatch: supervisor refresh failed")
			continue
		}
		stats := s.Cache.Stats(name)
		waitingTotal += stats.Waiting
		runningTotal += stats.Running
		metrics.ObserveStats(name, stats.Idle, stats.Offline, stats.Disabled, stats.Running, stats.Waiting)
	}

	s.logger().WithFields(logrus.Fields{
		"waiting_total": waitingTotal,
		"running_total": runningTotal,
	}).Info("dispatch: supervisor tick")
}

// refreshProject recomputes OFFLINE/OFFLINE_DEVICES and DISABLED for one
// project (spec.md §4.6): offline devices of the project's declared
// model, intersected with the configuration's declared device-group
// membership; and DISABLED = COUNT - enabled_count over the group's
// current farm membership.
//
// "Offline devices of the project's declared model" is resolved the way
// review_mozilla_bitbar_devicepool/devices.py's get_offline_devices does
// it: the admin device-problems board, matched by device-name *prefix*
// against spec.DeviceModel (spec.md §3 calls device_model "a string
// prefix") and an OFFLINE problem entry — not the devices endpoint's
// exact-match `model`/`online` fields, which is a different source and a
// different device could be online=true yet still carry an open OFFLINE
// problem.
func (s *Supervisor) refreshProject(ctx context.Context, spec config.ProjectSpec) error {
	group, ok := s.Cache.DeviceGroup(spec.DeviceGroupName)
	if !ok {
		return nil
	}

	members, err := s.Farm.ListDeviceGroupDevices(ctx, group.ID)
	if err != nil {
		return err
	}
	enabledCount := 0
	for _, d := range members {
		if d.Enabled {
			enabledCount++
		}
	}
	disabled := len(members) - enabledCount

	offlineOfModel, err := s.Farm.OfflineDeviceNames(ctx, spec.DeviceModel)
	if err != nil {
		return err
	}
	declared := s.DeviceGroups[spec.DeviceGroupName].Names()

	offline := make(map[string]struct{})
	for _, name := range offlineOfModel {
		if _, ok := declared[name]; ok {
			offline[name] = struct{}{}
		}
	}

	s.Cache.SetDeviceTally(spec.Name, group.DeviceCount, disabled, offline)
	return nil
}
