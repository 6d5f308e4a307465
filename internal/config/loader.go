package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// rawDocument mirrors Config but keeps every project (including
// "defaults") as a loosely-typed map, which is what the recursive merge
// and the uniqueness validator both need to operate on.
type rawDocument struct {
	DeviceGroups map[string]DeviceGroupSpec        `yaml:"device_groups"`
	Projects     map[string]map[string]interface{} `yaml:"projects"`
}

// Load reads and parses the YAML configuration at path, applies the
// defaults merge (spec.md §4.3) to every project, and validates file-name
// uniqueness. It does not touch disk beyond reading path itself; callers
// run Preflight separately when in update mode.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var doc rawDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := validateFileNameUniqueness(doc.Projects); err != nil {
		return nil, err
	}

	defaults, ok := doc.Projects["defaults"]
	if !ok {
		return nil, ErrNoDefaults
	}

	cfg := &Config{
		DeviceGroups: doc.DeviceGroups,
		Projects:     make(map[string]ProjectSpec, len(doc.Projects)),
	}
	for name, raw := range doc.Projects {
		if name == "defaults" {
			continue
		}
		merged := applyDefaults(raw, defaults)
		spec, err := decodeProjectSpec(merged)
		if err != nil {
			return nil, fmt.Errorf("config: project %q: %w", name, err)
		}
		spec.Name = name
		cfg.Projects[name] = spec
	}
	return cfg, nil
}

// decodeProjectSpec re-marshals a merged map[string]interface{} to YAML
// and unmarshals it into the typed ProjectSpec, reusing the same decoder
// that parsed the document rather than hand-rolling a reflection walk.
func decodeProjectSpec(merged map[string]interface{}) (ProjectSpec, error) {
	var spec ProjectSpec
	data, err := yaml.Marshal(merged)
	if err != nil {
		return spec, fmt.Errorf("marshal merged spec: %w", err)
	}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return spec, fmt.Errorf("unmarshal merged spec: %w", err)
	}
	return spec, nil
}

// validateFileNameUniqueness implements the spec.md §4.3 uniqueness
// validator: every explicitly declared test_file/application_file name —
// across every project entry, including "defaults" itself — must name
// at most one distinct project path.
func validateFileNameUniqueness(projects map[string]map[string]interface{}) error {
	owners := make(map[string]string) // file name -> first owning project path

	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic error messages

	for _, projectName := range names {
		raw := projects[projectName]
		for _, key := range []string{"test_file", "application_file"} {
			v, ok := raw[key]
			if !ok {
				continue
			}
			fileName, ok := v.(string)
			if !ok || fileName == "" {
				continue
			}
			if owner, exists := owners[fileName]; exists && owner != projectName {
				return fmt.Errorf("%w: %q declared by both %q and %q",
					ErrDuplicateFileName, fileName, owner, projectName)
			}
			owners[fileName] = projectName
		}
	}
	return nil
}

// Preflight verifies that every declared file exists under filesDir. It
// is run only in update mode (spec.md §4.3's "file-existence preflight").
func (c *Config) Preflight(filesDir string) error {
	for name, spec := range c.Projects {
		for _, fileName := range []string{spec.TestFile, spec.ApplicationFile} {
			if fileName == "" {
				continue
			}
			full := filepath.Join(filesDir, fileName)
			if _, err := os.Stat(full); err != nil {
				return fmt.Errorf("%w: project %q: %s", ErrFileMissing, name, full)
			}
		}
	}
	return nil
}
