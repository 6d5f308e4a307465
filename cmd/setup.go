package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/mozilla-it/bitbar-devicepool/internal/cache"
	"github.com/mozilla-it/bitbar-devicepool/internal/config"
	"github.com/mozilla-it/bitbar-devicepool/internal/farm"
	"github.com/mozilla-it/bitbar-devicepool/internal/queue"
	"github.com/mozilla-it/bitbar-devicepool/internal/reconcile"
)

// environment holds everything a dispatcher invocation needs once the
// configuration has loaded and the reconciler has converged the farm
// (spec.md §6 "FARM_URL and FARM_APIKEY both required").
type environment struct {
	Log    *logrus.Logger
	Config *config.Config
	Farm   *farm.Client
	Queue  *queue.Client
	Cache  *cache.Cache
}

// bootstrapEnvironment loads configuration, reads the required farm
// credentials from the environment, and runs the Configuration
// Reconciler (update or read-only, per update). It is shared by
// start-dispatcher and run-once, which differ only in what they do with
// the converged cache afterward.
func bootstrapEnvironment(ctx context.Context, update bool) (*environment, error) {
	log, err := newLogger()
	if err != nil {
		return nil, err
	}

	farmURL := os.Getenv("FARM_URL")
	farmAPIKey := os.Getenv("FARM_APIKEY")
	if farmURL == "" || farmAPIKey == "" {
		return nil, fmt.Errorf("FARM_URL and FARM_APIKEY must both be set")
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if update {
		if err := cfg.Preflight(filesDir); err != nil {
			return nil, fmt.Errorf("preflight: %w", err)
		}
	}

	farmClient := farm.NewClient(farmURL, farmAPIKey)
	queueClient := queue.NewClient(queue.DefaultBaseURL, log)
	stateCache := cache.New()

	mode := reconcile.ReadOnly
	if update {
		mode = reconcile.Update
	}
	reconciler := &reconcile.Reconciler{
		Farm:     farmClient,
		Cache:    stateCache,
		Mode:     mode,
		Log:      log,
		FilesDir: filesDir,
	}
	if err := reconciler.Run(ctx, cfg); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	return &environment{
		Log:    log,
		Config: cfg,
		Farm:   farmClient,
		Queue:  queueClient,
		Cache:  stateCache,
	}, nil
}
