// Package profile implements the cost-profile system: descriptor parsing,
// a compile-time registry of cost functions and response-shaping
// interpretation routines, and static-weight precomputation. Grounded on
// the original's unweaver/profile.py descriptor shape and
// unweaver/default_profile_functions.py's built-in routines; the file-path
// based dynamic-loading mechanism those routines are normally wired through
// is an explicitly out-of-scope external collaborator (spec.md 4.10), so
// `cost_function`/`shortest_path`/`shortest_path_tree`/`reachable_tree`
// name entries in Registry instead of files on disk.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ArgSpec declares one typed request argument a profile's cost function
// accepts, per spec.md 6 (`args: [{name, type}, ...]`).
type ArgSpec struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Descriptor is a profile-*.json (or profile-*.yaml) file, parsed exactly
// per spec.md 6.
type Descriptor struct {
	ID               string         `json:"id" yaml:"id"`
	Name             string         `json:"name" yaml:"name"`
	Args             []ArgSpec      `json:"args,omitempty" yaml:"args,omitempty"`
	Static           map[string]any `json:"static,omitempty" yaml:"static,omitempty"`
	Precalculate     bool           `json:"precalculate,omitempty" yaml:"precalculate,omitempty"`
	CostFunction     string         `json:"cost_function,omitempty" yaml:"cost_function,omitempty"`
	ShortestPath     string         `json:"shortest_path,omitempty" yaml:"shortest_path,omitempty"`
	ShortestPathTree string         `json:"shortest_path_tree,omitempty" yaml:"shortest_path_tree,omitempty"`
	ReachableTree    string         `json:"reachable_tree,omitempty" yaml:"reachable_tree,omitempty"`
}

// Load parses a profile descriptor file, dispatching on extension: ".yaml"
// or ".yml" decode via yaml.v3, anything else (".json" by convention) via
// encoding/json.
func Load(path string) (*Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}

	var d Descriptor
	if isYAML(path) {
		if err := yaml.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("profile: parse %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("profile: parse %s: %w", path, err)
		}
	}

	if d.ID == "" {
		return nil, fmt.Errorf("profile: %s: missing required \"id\"", path)
	}
	return &d, nil
}

func isYAML(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}
