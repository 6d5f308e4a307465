// Package config parses and validates the declarative device-pool
// configuration: device groups and project specs, merged against a
// shared "defaults" project.
package config

// ArchivingStrategy controls when the farm archives a project's runs.
type ArchivingStrategy string

const (
	ArchivingNever ArchivingStrategy = "NEVER"
	ArchivingDays  ArchivingStrategy = "DAYS"
	ArchivingRuns  ArchivingStrategy = "RUNS"
)

// Config is the parsed top-level document.
type Config struct {
	DeviceGroups map[string]DeviceGroupSpec `yaml:"device_groups"`
	Projects     map[string]ProjectSpec     `yaml:"projects"`
}

// DeviceGroupSpec is a declared device group: a set of device display
// names. The YAML value per device name is ignored (maps to nil/~).
type DeviceGroupSpec map[string]interface{}

// Names returns the declared device display names as a set.
func (d DeviceGroupSpec) Names() map[string]struct{} {
	out := make(map[string]struct{}, len(d))
	for name := range d {
		out[name] = struct{}{}
	}
	return out
}

// ProjectSpec is the declarative, already-defaults-merged configuration
// for one project. Field names track spec.md §2 / §6 exactly.
type ProjectSpec struct {
	Name                     string            `yaml:"-"`
	DeviceGroupName          string            `yaml:"device_group_name"`
	DeviceModel              string            `yaml:"device_model"`
	FrameworkName            string            `yaml:"framework_name"`
	OSType                   string            `yaml:"os_type"`
	Scheduler                string            `yaml:"scheduler"`
	Timeout                  int               `yaml:"timeout"`
	ProjectType              string            `yaml:"project_type"`
	TestFile                 string            `yaml:"test_file"`
	ApplicationFile          string            `yaml:"application_file"`
	AdditionalParameters     map[string]string `yaml:"additional_parameters"`
	ArchivingStrategy        ArchivingStrategy `yaml:"archivingStrategy"`
	ArchivingItemCount       int               `yaml:"archivingItemCount"`
	Description              string            `yaml:"description"`
	TaskclusterProvisionerID string            `yaml:"taskcluster_provisioner_id"`
}

// WorkerType returns the configured TC_WORKER_TYPE, or "" if this project
// is not Taskcluster-driven. Per spec.md §4.6, projects without a worker
// type are never assigned a queue-handler goroutine.
func (p ProjectSpec) WorkerType() string {
	return p.AdditionalParameters["TC_WORKER_TYPE"]
}

// HasTestFile reports whether a test file was declared.
func (p ProjectSpec) HasTestFile() bool { return p.TestFile != "" }

// HasApplicationFile reports whether an application file was declared.
func (p ProjectSpec) HasApplicationFile() bool { return p.ApplicationFile != "" }
