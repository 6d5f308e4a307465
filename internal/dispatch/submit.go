package dispatch

import (
	"context"
	"fmt"
	"sort"

	"github.com/mozilla-it/bitbar-devicepool/internal/cache"
	"github.com/mozilla-it/bitbar-devicepool/internal/config"
	"github.com/mozilla-it/bitbar-devicepool/internal/farm"
)

// buildSubmission assembles a RunSubmission from the cached farm records
// for one project, per spec.md §4.5: frameworkId, osType, projectId,
// scheduler, timeout, deviceGroupId, a files list (RUN_TEST for the test
// file, INSTALL for the application file, each only if declared), and
// testRunParameters from additional_parameters.
func buildSubmission(c *cache.Cache, spec config.ProjectSpec) (farm.RunSubmission, error) {
	project, ok := c.Project(spec.Name)
	if !ok {
		return farm.RunSubmission{}, fmt.Errorf("dispatch: project %q not cached", spec.Name)
	}
	group, ok := c.DeviceGroup(spec.DeviceGroupName)
	if !ok {
		return farm.RunSubmission{}, fmt.Errorf("dispatch: device group %q not cached", spec.DeviceGroupName)
	}
	framework, ok := c.Framework(spec.FrameworkName)
	if !ok {
		return farm.RunSubmission{}, fmt.Errorf("dispatch: framework %q not cached", spec.FrameworkName)
	}

	var files []farm.RunFileRef
	if spec.HasTestFile() {
		f, ok := c.File(spec.TestFile)
		if !ok {
			return farm.RunSubmission{}, fmt.Errorf("dispatch: test file %q not cached", spec.TestFile)
		}
		files = append(files, farm.RunFileRef{ID: f.ID, Action: farm.ActionRunTest})
	}
	if spec.HasApplicationFile() {
		f, ok := c.File(spec.ApplicationFile)
		if !ok {
			return farm.RunSubmission{}, fmt.Errorf("dispatch: application file %q not cached", spec.ApplicationFile)
		}
		files = append(files, farm.RunFileRef{ID: f.ID, Action: farm.ActionInstall})
	}

	keys := make([]string, 0, len(spec.AdditionalParameters))
	for k := range spec.AdditionalParameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	params := make([]farm.RunParameter, 0, len(keys))
	for _, k := range keys {
		params = append(params, farm.RunParameter{Key: k, Value: spec.AdditionalParameters[k]})
	}

	return farm.RunSubmission{
		FrameworkID:       framework.ID,
		OSType:            spec.OSType,
		ProjectID:         project.ID,
		Scheduler:         spec.Scheduler,
		Timeout:           spec.Timeout,
		DeviceGroupID:     group.ID,
		Files:             files,
		TestRunParameters: params,
	}, nil
}

// submitRun builds and submits one run for project, returning the
// created TestRun.
func submitRun(ctx context.Context, client *farm.Client, c *cache.Cache, spec config.ProjectSpec) (farm.TestRun, error) {
	submission, err := buildSubmission(c, spec)
	if err != nil {
		return farm.TestRun{}, err
	}
	return client.SubmitRun(ctx, submission)
}

// SubmitRun is the exported form of submitRun, used by the `run-once`
// CLI subcommand to submit a single run outside the steady-state
// queue-handler loop.
func SubmitRun(ctx context.Context, client *farm.Client, c *cache.Cache, spec config.ProjectSpec) (farm.TestRun, error) {
	return submitRun(ctx, client, c, spec)
}
