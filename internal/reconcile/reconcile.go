// Package reconcile drives the farm's live state toward a declared
// configuration: device group membership first, then per-project farm
// records, files, and run parameters (spec.md §4.4).
package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mozilla-it/bitbar-devicepool/internal/cache"
	"github.com/mozilla-it/bitbar-devicepool/internal/config"
	"github.com/mozilla-it/bitbar-devicepool/internal/farm"
)

// Mode selects whether the reconciler is permitted to mutate the farm.
type Mode int

const (
	// ReadOnly fails fast on any drift between configuration and farm state.
	ReadOnly Mode = iota
	// Update applies the changes needed to converge the farm on the
	// declared configuration.
	Update
)

// Reconciler converges one farm account on a config.Config.
type Reconciler struct {
	Farm  *farm.Client
	Cache *cache.Cache
	Mode  Mode
	Log   logrus.FieldLogger
	// FilesDir is where declared test_file/application_file names are
	// read from disk when they need uploading in Update mode.
	FilesDir string

	frameworks map[string]farm.Framework
	files      map[string]farm.File
	projects   map[string]farm.Project
}

func (r *Reconciler) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

// Run performs both reconciliation passes in order: device groups, then
// projects. Project resolution depends on the device-group pass having
// already populated cache.devices and each group's cached device count.
func (r *Reconciler) Run(ctx context.Context, cfg *config.Config) error {
	r.frameworks = make(map[string]farm.Framework)
	r.files = make(map[string]farm.File)
	r.projects = make(map[string]farm.Project)

	if err := r.reconcileDeviceGroups(ctx, cfg); err != nil {
		return fmt.Errorf("reconcile device groups: %w", err)
	}
	if err := r.reconcileProjects(ctx, cfg); err != nil {
		return fmt.Errorf("reconcile projects: %w", err)
	}

	r.flushCaches()
	return nil
}

func (r *Reconciler) flushCaches() {
	frameworks := make([]farm.Framework, 0, len(r.frameworks))
	for _, f := range r.frameworks {
		frameworks = append(frameworks, f)
	}
	r.Cache.ReplaceFrameworks(frameworks)

	files := make([]farm.File, 0, len(r.files))
	for _, f := range r.files {
		files = append(files, f)
	}
	r.Cache.ReplaceFiles(files)

	projects := make([]farm.Project, 0, len(r.projects))
	for _, p := range r.projects {
		projects = append(projects, p)
	}
	r.Cache.ReplaceProjects(projects)
}

// reconcileDeviceGroups implements spec.md §4.4's DeviceGroup pass.
func (r *Reconciler) reconcileDeviceGroups(ctx context.Context, cfg *config.Config) error {
	devices, err := r.Farm.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	r.Cache.ReplaceDevices(devices)

	groups := make([]farm.DeviceGroup, 0, len(cfg.DeviceGroups))
	for name, declared := range cfg.DeviceGroups {
		group, err := r.reconcileOneDeviceGroup(ctx, name, declared, osTypeForGroup(cfg, name))
		if err != nil {
			return fmt.Errorf("device group %q: %w", name, err)
		}
		groups = append(groups, group)
	}
	r.Cache.ReplaceDeviceGroups(groups)
	return nil
}

// osTypeForGroup finds the os_type of any project declared against
// device group name; device groups carry no os_type of their own in the
// configuration file, so a newly created group borrows it from the
// first project that references it.
func osTypeForGroup(cfg *config.Config, name string) string {
	for _, spec := range cfg.Projects {
		if spec.DeviceGroupName == name {
			return spec.OSType
		}
	}
	return ""
}

func (r *Reconciler) reconcileOneDeviceGroup(ctx context.Context, name string, declared config.DeviceGroupSpec, osType string) (farm.DeviceGroup, error) {
	groups, err := r.Farm.ListDeviceGroups(ctx, farm.Filter{Field: "displayname", Value: name})
	if err != nil {
		return farm.DeviceGroup{}, fmt.Errorf("list device groups: %w", err)
	}

	var group farm.DeviceGroup
	switch len(groups) {
	case 0:
		if r.Mode != Update {
			return farm.DeviceGroup{}, fmt.Errorf("%w: no device group found in read-only mode", ErrDrift)
		}
		group, err = r.Farm.CreateDeviceGroup(ctx, name, osType)
		if err != nil {
			return farm.DeviceGroup{}, fmt.Errorf("create device group: %w", err)
		}
	case 1:
		group = groups[0]
	default:
		return farm.DeviceGroup{}, fmt.Errorf("%w: %d device groups named %q", ErrAmbiguous, len(groups), name)
	}

	members, err := r.Farm.ListDeviceGroupDevices(ctx, group.ID)
	if err != nil {
		return farm.DeviceGroup{}, fmt.Errorf("list device group devices: %w", err)
	}

	farmMembers := make(map[string]farm.Device, len(members))
	for _, d := range members {
		farmMembers[d.DisplayName] = d
	}

	declaredNames := declared.Names()

	var toRemove []farm.Device
	for displayName, d := range farmMembers {
		if _, ok := declaredNames[displayName]; !ok {
			toRemove = append(toRemove, d)
		}
	}

	var toAdd []int
	for displayName := range declaredNames {
		if _, ok := farmMembers[displayName]; ok {
			continue
		}
		d, ok := r.Cache.Device(displayName)
		if !ok {
			r.logger().WithField("device", displayName).Debug("reconcile: declared device not yet known to farm, skipping add")
			continue
		}
		toAdd = append(toAdd, d.ID)
	}

	if r.Mode != Update {
		if len(toRemove) > 0 || len(toAdd) > 0 {
			return farm.DeviceGroup{}, fmt.Errorf("%w: %d to remove, %d to add", ErrDrift, len(toRemove), len(toAdd))
		}
		return group, nil
	}

	count := group.DeviceCount
	for _, d := range toRemove {
		if err := r.Farm.RemoveDeviceFromGroup(ctx, group.ID, d.ID); err != nil {
			return farm.DeviceGroup{}, fmt.Errorf("remove device %d: %w", d.ID, err)
		}
		count--
		if count < 0 {
			return farm.DeviceGroup{}, fmt.Errorf("%w: device_count went negative removing from %q", ErrInvariant, name)
		}
	}
	if len(toAdd) > 0 {
		if err := r.Farm.AddDevicesToGroup(ctx, group.ID, toAdd); err != nil {
			return farm.DeviceGroup{}, fmt.Errorf("add devices: %w", err)
		}
		count += len(toAdd)
	}
	group.DeviceCount = count
	return group, nil
}

// reconcileProjects implements spec.md §4.4's Project pass.
func (r *Reconciler) reconcileProjects(ctx context.Context, cfg *config.Config) error {
	for name, spec := range cfg.Projects {
		if name == "defaults" {
			continue
		}
		if err := r.reconcileOneProject(ctx, spec); err != nil {
			return fmt.Errorf("project %q: %w", name, err)
		}
	}
	return nil
}

func (r *Reconciler) reconcileOneProject(ctx context.Context, spec config.ProjectSpec) error {
	projects, err := r.Farm.ListProjects(ctx, farm.Filter{Field: "name", Value: spec.Name})
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	var project farm.Project
	switch len(projects) {
	case 0:
		if r.Mode != Update {
			return fmt.Errorf("%w: no farm project found in read-only mode", ErrDrift)
		}
		project, err = r.Farm.CreateProject(ctx, spec.Name, spec.ProjectType)
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}
	case 1:
		project = projects[0]
	default:
		return fmt.Errorf("%w: %d projects named %q", ErrAmbiguous, len(projects), spec.Name)
	}

	frameworks, err := r.Farm.ListFrameworks(ctx, farm.Filter{Field: "name", Value: spec.FrameworkName})
	if err != nil {
		return fmt.Errorf("list frameworks: %w", err)
	}
	if len(frameworks) != 1 {
		return fmt.Errorf("%w: framework %q must resolve to exactly one match, found %d", ErrAmbiguous, spec.FrameworkName, len(frameworks))
	}
	r.frameworks[spec.FrameworkName] = frameworks[0]

	if spec.HasTestFile() {
		if err := r.reconcileFile(ctx, project.ID, spec.TestFile, farm.FileInputTest); err != nil {
			return fmt.Errorf("test file: %w", err)
		}
	}
	if spec.HasApplicationFile() {
		if err := r.reconcileFile(ctx, project.ID, spec.ApplicationFile, farm.FileInputApplication); err != nil {
			return fmt.Errorf("application file: %w", err)
		}
	}

	if diffProjectFields(project, spec) {
		if r.Mode != Update {
			return fmt.Errorf("%w: project %q fields differ from farm", ErrDrift, spec.Name)
		}
		project, err = r.Farm.UpdateProject(ctx, project.ID, spec.Name, string(spec.ArchivingStrategy), spec.ArchivingItemCount, spec.Description)
		if err != nil {
			return fmt.Errorf("update project: %w", err)
		}
	}
	r.projects[spec.Name] = project

	// additional_parameters is a reference type: mutating it here is
	// visible through every other copy of this ProjectSpec, including
	// the one held by the Dispatch Core that builds run submissions.
	if workerType := spec.WorkerType(); workerType != "" {
		envName := strings.ReplaceAll(workerType, "-", "_")
		token, ok := os.LookupEnv(envName)
		if !ok {
			return fmt.Errorf("%w: environment variable %q for worker type %q is not set", ErrMissingEnv, envName, workerType)
		}
		spec.AdditionalParameters["TASKCLUSTER_ACCESS_TOKEN"] = token
	}

	group, ok := r.Cache.DeviceGroup(spec.DeviceGroupName)
	if !ok {
		return fmt.Errorf("%w: device group %q for project %q not found in cache", ErrDrift, spec.DeviceGroupName, spec.Name)
	}
	r.Cache.SetDeviceTally(spec.Name, group.DeviceCount, 0, nil)
	return nil
}

func diffProjectFields(p farm.Project, spec config.ProjectSpec) bool {
	return p.ArchivingStrategy != string(spec.ArchivingStrategy) ||
		p.ArchivingItemCount != spec.ArchivingItemCount ||
		p.Description != spec.Description
}

// reconcileFile implements spec.md §4.4 step 3: list files of the
// declared input type; if none, upload in update mode (from FilesDir)
// or fail in read-only mode; record the last (most recent) match.
func (r *Reconciler) reconcileFile(ctx context.Context, projectID int, name string, inputType farm.FileInputType) error {
	matching, err := r.listMatchingFiles(ctx, name, inputType)
	if err != nil {
		return err
	}

	if len(matching) == 0 {
		if r.Mode != Update {
			return fmt.Errorf("%w: file %q not present on farm", ErrMissingFile, name)
		}
		if err := r.uploadFile(ctx, projectID, name, inputType); err != nil {
			return fmt.Errorf("upload %q: %w", name, err)
		}
		matching, err = r.listMatchingFiles(ctx, name, inputType)
		if err != nil {
			return err
		}
		if len(matching) == 0 {
			return fmt.Errorf("%w: file %q still absent after upload", ErrMissingFile, name)
		}
	}

	// ListFiles sorts ascending by create time; the last entry is the
	// most recently uploaded match.
	latest := matching[len(matching)-1]
	r.files[latest.Name] = latest
	return nil
}

func (r *Reconciler) listMatchingFiles(ctx context.Context, name string, inputType farm.FileInputType) ([]farm.File, error) {
	all, err := r.Farm.ListFiles(ctx, farm.Filter{Field: "name", Value: name})
	if err != nil {
		return nil, err
	}
	// inputType isn't a filterable field on the listing endpoint; narrow
	// client-side to the matching direction (test vs. application).
	var matching []farm.File
	for _, f := range all {
		if f.InputType == inputType {
			matching = append(matching, f)
		}
	}
	return matching, nil
}

func (r *Reconciler) uploadFile(ctx context.Context, projectID int, name string, inputType farm.FileInputType) error {
	localPath := filepath.Join(r.FilesDir, name)
	switch inputType {
	case farm.FileInputTest:
		return r.Farm.UploadTestFile(ctx, projectID, localPath)
	case farm.FileInputApplication:
		return r.Farm.UploadApplicationFile(ctx, projectID, localPath)
	default:
		return fmt.Errorf("reconcile: unknown file input type %q", inputType)
	}
}
