// Package cache holds the dispatcher's in-memory view of the device
// farm and the active-run bookkeeping used to compute dispatch
// decisions. Every mutable piece of per-project state lives behind its
// own lock; there is deliberately no global mutex (spec.md §3, §4.5).
package cache

import (
	"sync"

	"github.com/mozilla-it/bitbar-devicepool/internal/farm"
)

// ProjectStats is the reconciled device/run tally for one project's
// device group, recomputed each supervisor tick.
//
// Invariants (spec.md §3):
//
//	IDLE = max(0, COUNT - DISABLED - OFFLINE - RUNNING)
//	RUNNING + WAITING == len(active runs for this project)
//	OFFLINE == len(OfflineDevices)
type ProjectStats struct {
	Count    int
	Idle     int
	Offline  int
	Disabled int
	Running  int
	Waiting  int

	// OfflineDevices holds the display names of this project's device
	// group members currently reported offline by the farm.
	OfflineDevices map[string]struct{}
}

func newProjectStats() ProjectStats {
	return ProjectStats{OfflineDevices: make(map[string]struct{})}
}

// recomputeIdle enforces the IDLE invariant; call after any field that
// feeds it changes.
func (s *ProjectStats) recomputeIdle() {
	idle := s.Count - s.Disabled - s.Offline - s.Running
	if idle < 0 {
		idle = 0
	}
	s.Idle = idle
}

// projectEntry bundles one project's lock, stats, and active-run list.
// Every access to Stats or Runs must hold Lock.
type projectEntry struct {
	Lock  sync.Mutex
	Stats ProjectStats
	Runs  []farm.TestRun
}

// Cache is the dispatcher's shared state. All exported accessors are
// safe for concurrent use; callers needing multiple consecutive reads
// or a read-modify-write on one project's stats should use WithProject
// to hold that project's lock for the whole sequence.
type Cache struct {
	mu sync.RWMutex // guards the maps themselves, not their values

	devices      map[string]farm.Device      // by DisplayName
	deviceGroups map[string]farm.DeviceGroup // by DisplayName
	frameworks   map[string]farm.Framework   // by Name
	files        map[string]farm.File        // by Name
	projects     map[string]farm.Project     // by Name

	projectState map[string]*projectEntry // by project (config) name
}

// New builds an empty Cache.
func New() *Cache {
	return &Cache{
		devices:      make(map[string]farm.Device),
		deviceGroups: make(map[string]farm.DeviceGroup),
		frameworks:   make(map[string]farm.Framework),
		files:        make(map[string]farm.File),
		projects:     make(map[string]farm.Project),
		projectState: make(map[string]*projectEntry),
	}
}

// entry returns the projectEntry for name, creating it if absent.
func (c *Cache) entry(name string) *projectEntry {
	c.mu.RLock()
	e, ok := c.projectState[name]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.projectState[name]; ok {
		return e
	}
	e = &projectEntry{Stats: newProjectStats()}
	c.projectState[name] = e
	return e
}

// ReplaceDevices swaps in a freshly fetched device list, keyed by
// display name.
func (c *Cache) ReplaceDevices(devices []farm.Device) {
	m := make(map[string]farm.Device, len(devices))
	for _, d := range devices {
		m[d.DisplayName] = d
	}
	c.mu.Lock()
	c.devices = m
	c.mu.Unlock()
}

// ReplaceDeviceGroups swaps in a freshly fetched device-group list.
func (c *Cache) ReplaceDeviceGroups(groups []farm.DeviceGroup) {
	m := make(map[string]farm.DeviceGroup, len(groups))
	for _, g := range groups {
		m[g.DisplayName] = g
	}
	c.mu.Lock()
	c.deviceGroups = m
	c.mu.Unlock()
}

// ReplaceFrameworks swaps in a freshly fetched framework list.
func (c *Cache) ReplaceFrameworks(frameworks []farm.Framework) {
	m := make(map[string]farm.Framework, len(frameworks))
	for _, f := range frameworks {
		m[f.Name] = f
	}
	c.mu.Lock()
	c.frameworks = m
	c.mu.Unlock()
}

// ReplaceFiles swaps in a freshly fetched file list.
func (c *Cache) ReplaceFiles(files []farm.File) {
	m := make(map[string]farm.File, len(files))
	for _, f := range files {
		m[f.Name] = f
	}
	c.mu.Lock()
	c.files = m
	c.mu.Unlock()
}

// ReplaceProjects swaps in a freshly fetched (non-archived) project
// list, keyed by name.
func (c *Cache) ReplaceProjects(projects []farm.Project) {
	m := make(map[string]farm.Project, len(projects))
	for _, p := range projects {
		m[p.Name] = p
	}
	c.mu.Lock()
	c.projects = m
	c.mu.Unlock()
}

// Device looks up a device by display name.
func (c *Cache) Device(displayName string) (farm.Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.devices[displayName]
	return d, ok
}

// DeviceGroup looks up a device group by display name.
func (c *Cache) DeviceGroup(displayName string) (farm.DeviceGroup, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.deviceGroups[displayName]
	return g, ok
}

// Framework looks up a framework by name.
func (c *Cache) Framework(name string) (farm.Framework, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.frameworks[name]
	return f, ok
}

// File looks up a file by name.
func (c *Cache) File(name string) (farm.File, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.files[name]
	return f, ok
}

// Project looks up a farm project record by name.
func (c *Cache) Project(name string) (farm.Project, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.projects[name]
	return p, ok
}

// Devices returns a snapshot of all known devices.
func (c *Cache) Devices() []farm.Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]farm.Device, 0, len(c.devices))
	for _, d := range c.devices {
		out = append(out, d)
	}
	return out
}

// ProjectNames returns the names of every project with tracked state.
func (c *Cache) ProjectNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.projectState))
	for name := range c.projectState {
		out = append(out, name)
	}
	return out
}

// Stats returns a copy of project's current stats.
func (c *Cache) Stats(project string) ProjectStats {
	e := c.entry(project)
	e.Lock.Lock()
	defer e.Lock.Unlock()
	return copyStats(e.Stats)
}

// SetDeviceTally overwrites COUNT/OFFLINE/DISABLED from a fresh farm
// read and recomputes IDLE. RUNNING and WAITING are left untouched —
// those are owned by reconciliation against active test runs.
func (c *Cache) SetDeviceTally(project string, count, disabled int, offlineDevices map[string]struct{}) {
	e := c.entry(project)
	e.Lock.Lock()
	defer e.Lock.Unlock()
	e.Stats.Count = count
	e.Stats.Disabled = disabled
	e.Stats.Offline = len(offlineDevices)
	e.Stats.OfflineDevices = offlineDevices
	e.Stats.recomputeIdle()
}

// ReconcileActiveRuns replaces project's active-run list with runs (the
// authoritative result of a farm query) and re-tallies RUNNING/WAITING
// from it, per the WAITING+RUNNING == len(active_runs) invariant. This
// is also where a prior speculative WAITING increment
// (IncrementWaiting) gets overwritten with tallied truth, bounding
// over-dispatch to at most one dispatch tick's worth (spec.md §4.5).
func (c *Cache) ReconcileActiveRuns(project string, runs []farm.TestRun) {
	e := c.entry(project)
	e.Lock.Lock()
	defer e.Lock.Unlock()
	e.Runs = runs

	running, waiting := 0, 0
	for _, r := range runs {
		switch r.State {
		case farm.TestRunRunning:
			running++
		case farm.TestRunWaiting:
			waiting++
		}
	}
	e.Stats.Running = running
	e.Stats.Waiting = waiting
	e.Stats.recomputeIdle()
}

// IncrementWaiting bumps project's WAITING counter by one immediately
// after a successful run submission, ahead of the next reconciliation
// pass, so that the next queue-handler tick, if it runs before the
// active-runs reconciler resyncs, counts the new run as WAITING rather
// than dispatching again against stale stats (spec.md §4.5).
func (c *Cache) IncrementWaiting(project string) {
	e := c.entry(project)
	e.Lock.Lock()
	defer e.Lock.Unlock()
	e.Stats.Waiting++
	e.Stats.recomputeIdle()
}

// ActiveRuns returns a snapshot of project's currently known active
// runs.
func (c *Cache) ActiveRuns(project string) []farm.TestRun {
	e := c.entry(project)
	e.Lock.Lock()
	defer e.Lock.Unlock()
	out := make([]farm.TestRun, len(e.Runs))
	copy(out, e.Runs)
	return out
}

// WithProject holds project's lock for the duration of fn, passing a
// pointer to its live stats so fn may read and mutate it atomically.
// fn must not call back into Cache for the same project.
func (c *Cache) WithProject(project string, fn func(*ProjectStats)) {
	e := c.entry(project)
	e.Lock.Lock()
	defer e.Lock.Unlock()
	fn(&e.Stats)
	e.Stats.recomputeIdle()
}

func copyStats(s ProjectStats) ProjectStats {
	cp := s
	cp.OfflineDevices = make(map[string]struct{}, len(s.OfflineDevices))
	for k := range s.OfflineDevices {
		cp.OfflineDevices[k] = struct{}{}
	}
	return cp
}
