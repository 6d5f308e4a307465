// Package report produces an offline summary of a configuration file's
// declared device groups: which Taskcluster role each group plays, and
// a tally of device models across all groups (spec.md §4.6 final
// bullet; categorisation rule ported from
// original_source/mozilla_bitbar_devicepool/device_group_report.py).
package report

import (
	"sort"
	"strings"

	"github.com/mozilla-it/bitbar-devicepool/internal/config"
)

// Category is the Taskcluster role a device group plays, per the
// original's categorisation rule.
type Category string

const (
	CategoryGatewayWorker     Category = "gateway worker"
	CategoryTestQueue         Category = "test queue"
	CategoryTaskclusterWorker Category = "Taskcluster worker"
)

// GroupCount is one category's member tally.
type GroupCount struct {
	Name  string
	Count int
}

// DeviceSummary tallies device-name substrings across every declared
// device group, "-builder" groups included: s7, pixel2, motog5, plus the
// grand total.
type DeviceSummary struct {
	S7     int
	Pixel2 int
	MotoG5 int
	Total  int
}

// Report is the fully categorised result of scanning a configuration's
// device groups.
type Report struct {
	GatewayWorkers     []GroupCount
	TestQueues         []GroupCount
	TaskclusterWorkers []GroupCount
	Devices            DeviceSummary
}

// Build categorises every declared device group in cfg, skipping any
// whose name contains "-builder" entirely (original's rule). The rest
// are classified in order:
//   - name contains "test"              -> test queue
//   - name ends in "2" or starts "s7"   -> gateway worker
//   - otherwise                         -> Taskcluster worker
//
// The device-name tally into DeviceSummary is a second, independent pass
// over every declared group with no "-builder" filter applied —
// device_group_report.py's get_report_dict tallies device names across
// all groups regardless of which groups were excluded from the category
// tables above, so a builder group's devices still count toward the
// summary even though the group itself never appears in a table.
func Build(cfg *config.Config) Report {
	var rpt Report

	names := make([]string, 0, len(cfg.DeviceGroups))
	for name := range cfg.DeviceGroups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if strings.Contains(name, "-builder") {
			continue
		}
		group := cfg.DeviceGroups[name]
		count := GroupCount{Name: name, Count: len(group)}

		switch {
		case strings.Contains(name, "test"):
			rpt.TestQueues = append(rpt.TestQueues, count)
		case strings.HasSuffix(name, "2") || strings.HasPrefix(name, "s7"):
			rpt.GatewayWorkers = append(rpt.GatewayWorkers, count)
		default:
			rpt.TaskclusterWorkers = append(rpt.TaskclusterWorkers, count)
		}
	}

	for _, name := range names {
		for deviceName := range cfg.DeviceGroups[name] {
			rpt.Devices.Total++
			lower := strings.ToLower(deviceName)
			if strings.Contains(lower, "s7") {
				rpt.Devices.S7++
			}
			if strings.Contains(lower, "pixel2") {
				rpt.Devices.Pixel2++
			}
			if strings.Contains(lower, "motog5") {
				rpt.Devices.MotoG5++
			}
		}
	}

	return rpt
}
