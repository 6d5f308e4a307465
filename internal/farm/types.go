// Package farm wraps the device-farm's authenticated REST surface with
// typed operations: no caching (beyond the current user's id), no
// retries, request/response only. The
// State Cache (internal/cache) and Dispatch Core are the callers that
// give these responses meaning.
package farm

// Device is a single physical device known to the farm.
type Device struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
	Model       string `json:"model"`
	Online      bool   `json:"online"`
	Enabled     bool   `json:"enabled"`
}

// DeviceGroup is a named set of devices.
type DeviceGroup struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
	DeviceCount int    `json:"deviceCount"`
	OSType      string `json:"osType"`
}

// DeviceProblemType classifies one reported device problem.
type DeviceProblemType string

// ProblemOffline is the problem type meaning a device is unreachable
// (original_source review_mozilla_bitbar_devicepool/devices.py:
// get_offline_devices filters device-problems for problem['type'] ==
// 'OFFLINE').
const ProblemOffline DeviceProblemType = "OFFLINE"

// DeviceProblem is one problem in a DeviceProblemReport: only its
// classification. The device it was raised against is recorded on the
// enclosing report.
type DeviceProblem struct {
	Type string `json:"type"`
}

// DeviceProblemReport is one device's current problem list, as returned
// by the farm's admin/device-problems endpoint. DeviceName is the
// device's full display name, used for the device_model prefix match;
// DeviceModelName is the name recorded against OFFLINE devices.
type DeviceProblemReport struct {
	DeviceName      string          `json:"deviceName"`
	DeviceModelName string          `json:"deviceModelName"`
	Problems        []DeviceProblem `json:"problems"`
}

// Framework identifies an execution environment on the farm.
type Framework struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	OSType string `json:"osType"`
}

// FileInputType distinguishes uploaded test scripts from application
// binaries.
type FileInputType string

const (
	FileInputTest        FileInputType = "test"
	FileInputApplication FileInputType = "application"
)

// File is an uploaded artifact referenced by run submissions.
type File struct {
	ID        int           `json:"id"`
	Name      string        `json:"name"`
	InputType FileInputType `json:"inputType"`
	CreateTime int64        `json:"createTime"`
}

// Project is a farm-side container for test runs.
type Project struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	ArchivingStrategy  string `json:"archivingStrategy"`
	ArchivingItemCount int    `json:"archivingItemCount"`
	Description        string `json:"description"`
	ArchiveTime        *int64 `json:"archiveTime"`
	FrameworkID        int    `json:"frameworkId"`
}

// TestRunState is the lifecycle state of a TestRun.
type TestRunState string

const (
	TestRunWaiting  TestRunState = "WAITING"
	TestRunRunning  TestRunState = "RUNNING"
	TestRunFinished TestRunState = "FINISHED"
)

// TestRun is one submitted execution on the farm.
type TestRun struct {
	ID          int          `json:"id"`
	ProjectName string       `json:"projectName"`
	State       TestRunState `json:"state"`
	EndTime     *int64       `json:"endTime"`
}

// FileAction is the role a file plays in a run submission.
type FileAction string

const (
	ActionRunTest FileAction = "RUN_TEST"
	ActionInstall FileAction = "INSTALL"
)

// RunFileRef references an uploaded file within a run submission.
type RunFileRef struct {
	ID     int        `json:"id"`
	Action FileAction `json:"action"`
}

// RunParameter is a single key/value pair passed to a run.
type RunParameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RunSubmission is the payload POSTed to create a TestRun (spec.md §4.5).
type RunSubmission struct {
	FrameworkID       int            `json:"frameworkId"`
	OSType            string         `json:"osType"`
	ProjectID         int            `json:"projectId"`
	Scheduler         string         `json:"scheduler"`
	Timeout           int            `json:"timeout"`
	DeviceGroupID     int            `json:"deviceGroupId"`
	Files             []RunFileRef   `json:"files"`
	TestRunParameters []RunParameter `json:"testRunParameters"`
}
