package dispatch

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-it/bitbar-devicepool/internal/cache"
	"github.com/mozilla-it/bitbar-devicepool/internal/config"
	"github.com/mozilla-it/bitbar-devicepool/internal/farm"
	"github.com/mozilla-it/bitbar-devicepool/internal/queue"
)

// TestRun_ExitsWhenContextCancelled verifies the actor group as a whole
// terminates once its context is cancelled externally, without any
// project declaring a worker type (so no queue-handler actor runs).
func TestRun_ExitsWhenContextCancelled(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv := httptest.NewServer(nil)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())

	opts := Options{
		Config: &config.Config{
			Projects: map[string]config.ProjectSpec{
				"defaults": {},
			},
		},
		Farm:  farm.NewClient(srv.URL, "key"),
		Queue: queue.NewClient(srv.URL, logger),
		Cache: cache.New(),
		Log:   logger,
	}

	done := make(chan error, 1)
	go func() { done <- Run(ctx, opts) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit after context cancellation")
	}
}
