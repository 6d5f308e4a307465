package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mozilla-it/bitbar-devicepool/internal/farm"
)

func TestSetDeviceTally_RecomputesIdle(t *testing.T) {
	c := New()
	c.SetDeviceTally("proj", 10, 2, map[string]struct{}{"d1": {}})
	stats := c.Stats("proj")
	assert.Equal(t, 10, stats.Count)
	assert.Equal(t, 2, stats.Disabled)
	assert.Equal(t, 1, stats.Offline)
	// idle = 10 - 2 - 1 - 0(running) = 7
	assert.Equal(t, 7, stats.Idle)
}

func TestSetDeviceTally_IdleNeverNegative(t *testing.T) {
	c := New()
	c.SetDeviceTally("proj", 2, 5, nil)
	assert.Equal(t, 0, c.Stats("proj").Idle)
}

func TestReconcileActiveRuns_TalliesRunningAndWaiting(t *testing.T) {
	c := New()
	c.SetDeviceTally("proj", 10, 0, nil)
	c.ReconcileActiveRuns("proj", []farm.TestRun{
		{ID: 1, State: farm.TestRunRunning},
		{ID: 2, State: farm.TestRunRunning},
		{ID: 3, State: farm.TestRunWaiting},
	})
	stats := c.Stats("proj")
	assert.Equal(t, 2, stats.Running)
	assert.Equal(t, 1, stats.Waiting)
	assert.Equal(t, stats.Running+stats.Waiting, len(c.ActiveRuns("proj")))
	// idle = 10 - 0 - 0 - 2(running) = 8
	assert.Equal(t, 8, stats.Idle)
}

func TestIncrementWaiting_IsOverwrittenByNextReconcile(t *testing.T) {
	c := New()
	c.SetDeviceTally("proj", 10, 0, nil)
	c.IncrementWaiting("proj")
	assert.Equal(t, 1, c.Stats("proj").Waiting)

	// A subsequent reconcile against tallied truth should win, not add on
	// top of the speculative increment.
	c.ReconcileActiveRuns("proj", []farm.TestRun{
		{ID: 1, State: farm.TestRunWaiting},
	})
	assert.Equal(t, 1, c.Stats("proj").Waiting)
}

func TestStats_IsAnIndependentCopy(t *testing.T) {
	c := New()
	c.SetDeviceTally("proj", 10, 0, map[string]struct{}{"d1": {}})
	s := c.Stats("proj")
	s.OfflineDevices["d2"] = struct{}{}
	assert.Len(t, c.Stats("proj").OfflineDevices, 1)
}

func TestWithProject_IsConcurrencySafeAcrossProjects(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.WithProject("a", func(s *ProjectStats) { s.Count++ })
		}()
		go func() {
			defer wg.Done()
			c.WithProject("b", func(s *ProjectStats) { s.Count++ })
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Stats("a").Count)
	assert.Equal(t, 50, c.Stats("b").Count)
}

func TestReplaceDevices_LooksUpByDisplayName(t *testing.T) {
	c := New()
	c.ReplaceDevices([]farm.Device{{ID: 1, DisplayName: "pixel2-001"}})
	d, ok := c.Device("pixel2-001")
	assert.True(t, ok)
	assert.Equal(t, 1, d.ID)
	_, ok = c.Device("missing")
	assert.False(t, ok)
}
