// Package build discovers a project's GeoJSON input layers and turns them
// into a store.Store-backed directed graph. Grounded on the original's
// unweaver/build.py (get_layers_paths, build_graph) for the overall shape,
// and on the teacher's pkg/osm tag-driven edge generation /
// pkg/graph.Build batching pattern for how edges get produced and written.
package build

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/azybler/unweaver/pkg/errs"
)

// Layers lists the GeoJSON input files under <dir>/layers, sorted for a
// deterministic build order. Returns errs.ErrMissingLayers if the layers
// directory doesn't exist or contains no ".geojson" files.
func Layers(dir string) ([]string, error) {
	layersDir := filepath.Join(dir, "layers")

	entries, err := os.ReadDir(layersDir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("build: %s: %w", layersDir, errs.ErrMissingLayers)
	}
	if err != nil {
		return nil, fmt.Errorf("build: read %s: %w", layersDir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".geojson" {
			continue
		}
		paths = append(paths, filepath.Join(layersDir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("build: %s: %w", layersDir, errs.ErrMissingLayers)
	}

	sort.Strings(paths)
	return paths, nil
}
