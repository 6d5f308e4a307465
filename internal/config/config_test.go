package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
device_groups:
  pixel-group:
    pixel2-01: ~
    pixel2-02: ~

projects:
  defaults:
    framework_name: appium
    os_type: ANDROID
    scheduler: SINGLE
    timeout: 900
    project_type: ANDROID
    device_model: pixel2
    archivingStrategy: DAYS
    archivingItemCount: 30
    description: shared defaults
    additional_parameters:
      TC_WORKER_TYPE: gecko-t-bitbar-gw-perf-p2
  gecko-t-bitbar-gw-perf-p2:
    device_group_name: pixel-group
    test_file: perf-test.zip
  gecko-t-bitbar-bb-builder:
    device_group_name: pixel-group
    application_file: builder.apk
    additional_parameters: {}
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_AppliesDefaultsAndOverrides(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	p := cfg.Projects["gecko-t-bitbar-gw-perf-p2"]
	assert.Equal(t, "appium", p.FrameworkName)
	assert.Equal(t, "pixel-group", p.DeviceGroupName)
	assert.Equal(t, "perf-test.zip", p.TestFile)
	assert.Equal(t, 900, p.Timeout)
	assert.Equal(t, "gecko-t-bitbar-gw-perf-p2", p.WorkerType())

	// A project that declares additional_parameters as an empty map still
	// inherits TC_WORKER_TYPE from defaults: both sides are mappings, so
	// the merge recurses and keys missing from the child are kept.
	builder := cfg.Projects["gecko-t-bitbar-bb-builder"]
	assert.Equal(t, "gecko-t-bitbar-gw-perf-p2", builder.WorkerType())
	assert.Equal(t, "builder.apk", builder.ApplicationFile)
}

func TestLoad_MissingDefaultsIsFatal(t *testing.T) {
	path := writeTempConfig(t, `
device_groups: {}
projects:
  foo:
    device_group_name: x
`)
	_, err := Load(path)
	require.ErrorIs(t, err, ErrNoDefaults)
}

func TestLoad_DuplicateFileNameAcrossProjectsFails(t *testing.T) {
	path := writeTempConfig(t, `
device_groups: {}
projects:
  defaults:
    framework_name: appium
  a:
    test_file: shared.zip
  b:
    test_file: shared.zip
`)
	_, err := Load(path)
	require.ErrorIs(t, err, ErrDuplicateFileName)
}

func TestApplyDefaults_IsIdempotent(t *testing.T) {
	defaults := map[string]interface{}{
		"framework_name": "appium",
		"additional_parameters": map[string]interface{}{
			"TC_WORKER_TYPE": "gw-perf",
		},
	}
	child := map[string]interface{}{
		"device_group_name": "g1",
	}

	once := applyDefaults(child, defaults)
	twice := applyDefaults(once, defaults)

	assert.Equal(t, once, twice)
}

func TestPreflight_MissingFileFails(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Projects: map[string]ProjectSpec{
			"a": {TestFile: "missing.zip"},
		},
	}
	err := cfg.Preflight(dir)
	require.ErrorIs(t, err, ErrFileMissing)
}

func TestPreflight_ExistingFilePasses(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "present.zip"), []byte("x"), 0o644))

	cfg := &Config{
		Projects: map[string]ProjectSpec{
			"a": {TestFile: "present.zip"},
		},
	}
	assert.NoError(t, cfg.Preflight(dir))
}
