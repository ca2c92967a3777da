package wheel

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Preferences is the optional operator override file for artifact
// resolution. Absent file means stock behavior; a present file may reorder
// platform-tag priority and prepend extra scan directories.
type Preferences struct {
	// Tags replaces the platform-tag priority order when non-empty.
	Tags []string `yaml:"tags"`

	// ExtraDirs are scanned before the built-in directory list.
	ExtraDirs []string `yaml:"extra_dirs"`
}

// LoadPreferences reads and validates a preferences YAML file.
// A missing file is not an error; it returns nil preferences.
func LoadPreferences(path string) (*Preferences, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences file: %w", err)
	}

	var prefs Preferences
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("failed to parse preferences YAML: %w", err)
	}

	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	return &prefs, nil
}

// Validate rejects entries that would make resolution ambiguous or unsafe.
func (p *Preferences) Validate() error {
	seen := make(map[string]bool)
	for _, tag := range p.Tags {
		if tag == "" {
			return fmt.Errorf("preferences contain an empty tag")
		}
		if seen[tag] {
			return fmt.Errorf("duplicate tag in preferences: %s", tag)
		}
		seen[tag] = true
	}

	for _, dir := range p.ExtraDirs {
		if dir == "" {
			return fmt.Errorf("preferences contain an empty scan directory")
		}
	}
	return nil
}

// Apply merges the preferences into a LocateOptions value, leaving fields
// the file does not set at their defaults.
func (p *Preferences) Apply(opts *LocateOptions) {
	if p == nil {
		return
	}
	if len(p.Tags) > 0 {
		opts.Tags = p.Tags
	}
	if len(p.ExtraDirs) > 0 {
		dirs := opts.Dirs
		if dirs == nil {
			if root, cwd, err := defaultRoots(); err == nil {
				dirs = ScanDirs(root, cwd)
			}
		}
		merged := make([]string, 0, len(p.ExtraDirs)+len(dirs))
		for _, d := range p.ExtraDirs {
			merged = append(merged, filepath.Clean(d))
		}
		merged = append(merged, dirs...)
		opts.Dirs = merged
	}
}
