package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/mozilla-it/bitbar-devicepool/internal/cache"
	"github.com/mozilla-it/bitbar-devicepool/internal/farm"
)

func TestActiveRunsReconciler_Tick_TalliesOnlyKnownProjects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := json.Marshal(map[string]interface{}{
			"data": []farm.TestRun{
				{ID: 1, ProjectName: "perf", State: farm.TestRunRunning},
				{ID: 2, ProjectName: "perf", State: farm.TestRunWaiting},
				{ID: 3, ProjectName: "unmanaged", State: farm.TestRunRunning},
			},
		})
		w.Write(data)
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	c := cache.New()
	c.SetDeviceTally("perf", 10, 0, nil) // registers "perf" as a known project

	a := &ActiveRunsReconciler{
		Farm:      farmClient(srv.URL),
		Cache:     c,
		Lifecycle: NewLifecycle(logger),
		Log:       logger,
	}
	a.tick(context.Background())

	stats := c.Stats("perf")
	assert.Equal(t, 1, stats.Running)
	assert.Equal(t, 1, stats.Waiting)
}

func TestActiveRunsReconciler_Tick_TransportFailureLeavesCacheUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	c := cache.New()
	c.SetDeviceTally("perf", 10, 0, nil)
	c.ReconcileActiveRuns("perf", []farm.TestRun{{ID: 1, State: farm.TestRunRunning}})

	a := &ActiveRunsReconciler{
		Farm:      farmClient(srv.URL),
		Cache:     c,
		Lifecycle: NewLifecycle(logger),
		Log:       logger,
	}
	a.tick(context.Background())

	assert.Equal(t, 1, c.Stats("perf").Running)
}

func farmClient(url string) *farm.Client {
	return farm.NewClient(url, "key")
}
