package build

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/azybler/unweaver/pkg/errs"
	"github.com/azybler/unweaver/pkg/geom"
	"github.com/azybler/unweaver/pkg/graphview"
	"github.com/azybler/unweaver/pkg/store"
)

// reservedProperties are GeoJSON properties that never become dynamic edge
// columns: they're either consumed by the builder or structural.
var reservedProperties = map[string]bool{
	"_u": true, "_v": true, "_id": true,
}

// CreateNodeID derives a node's canonical key by rounding (lon, lat) to
// precision decimals and formatting "<lon>, <lat>" (spec.md 6).
func CreateNodeID(lon, lat float64, precision int) string {
	return fmt.Sprintf("%.*f, %.*f", precision, lon, precision, lat)
}

// Graph parses every GeoJSON layer in layerPaths and writes a forward and
// reverse edge for each LineString feature into s, batched 1000 at a time.
// Attribute keys named in changesSign are negated on the reverse edge
// (spec.md 3, 8 scenario 4). Returns the total number of directed edges
// written (two per input feature).
func Graph(s *store.Store, layerPaths []string, precision int, changesSign []string) (int, error) {
	negate := make(map[string]bool, len(changesSign))
	for _, k := range changesSign {
		negate[k] = true
	}

	var batch []store.EdgeTuple
	var total int

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.AddEdges(batch, 1000); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, path := range layerPaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return total, fmt.Errorf("build: read %s: %w", path, err)
		}

		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return total, fmt.Errorf("build: %s: %w", path, errs.ErrUnrecognizedFileFormat)
		}

		for _, f := range fc.Features {
			ls, ok := f.Geometry.(orb.LineString)
			if !ok || len(ls) < 2 {
				continue
			}

			u := CreateNodeID(ls[0][0], ls[0][1], precision)
			v := CreateNodeID(ls[len(ls)-1][0], ls[len(ls)-1][1], precision)

			fwd := attrsFromProperties(f.Properties)
			fwd[graphview.GeomKey] = ls
			if _, ok := fwd[graphview.LengthKey]; !ok {
				fwd[graphview.LengthKey] = geom.Haversine(ls)
			}

			rev := fwd.Clone()
			rev[graphview.GeomKey] = geom.Reverse(ls)
			for k := range negate {
				if val, ok := rev[k]; ok {
					if f, ok := asFloat(val); ok {
						rev[k] = -f
					}
				}
			}

			batch = append(batch, store.EdgeTuple{U: u, V: v, Data: fwd})
			batch = append(batch, store.EdgeTuple{U: v, V: u, Data: rev})

			if len(batch) >= 1000 {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}

	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

func attrsFromProperties(props geojson.Properties) graphview.Attrs {
	out := make(graphview.Attrs, len(props))
	for k, v := range props {
		if reservedProperties[k] {
			continue
		}
		out[k] = v
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
