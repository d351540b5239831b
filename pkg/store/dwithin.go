package store

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/azybler/unweaver/pkg/geom"
	"github.com/azybler/unweaver/pkg/graphview"
)

// defaultDWithinRadius is the candidate search radius used when a caller
// doesn't specify one (spec.md 4.4: 30m). A single search is made at the
// given radius; it is not widened when nothing is found.
const defaultDWithinRadius = 30.0

// candidate is a bounding-box hit from the in-memory index, refined (when
// sort is requested) by exact point-to-segment distance.
type candidate struct {
	edge graphview.Edge
	dist float64
}

// EdgesDWithin returns edges whose bounding box intersects the square of
// radius r meters centered on (lon, lat). The in-memory rtree mirror
// answers the box query; when sort is true, each hit's LineString is
// refined against the query point via geom.PointToSegment and results are
// returned nearest first.
func (s *Store) EdgesDWithin(lon, lat, r float64, byDistance bool) ([]graphview.Edge, error) {
	if r <= 0 {
		r = defaultDWithinRadius
	}

	// A meter offset in degrees, via the same equirectangular approximation
	// used for point-to-segment distance: 1 degree latitude is ~111_320m,
	// and a degree of longitude shrinks by cos(latitude).
	const metersPerDegreeLat = 111_320.0
	dLat := r / metersPerDegreeLat
	cosLat := math.Cos(lat * math.Pi / 180.0)
	dLon := r / (metersPerDegreeLat * cosLat)

	minX, minY := lon-dLon, lat-dLat
	maxX, maxY := lon+dLon, lat+dLat

	s.mu.RLock()
	var keys []edgeKey
	s.index.Search([2]float64{minX, minY}, [2]float64{maxX, maxY}, func(_, _ [2]float64, k edgeKey) bool {
		keys = append(keys, k)
		return true
	})
	s.mu.RUnlock()

	if len(keys) == 0 {
		return nil, nil
	}

	candidates := make([]candidate, 0, len(keys))
	for _, k := range keys {
		attrs, err := s.GetEdge(k.U, k.V)
		if err != nil {
			continue
		}
		c := candidate{edge: graphview.Edge{U: k.U, V: k.V, Data: attrs}}
		if byDistance {
			ls, ok := attrs.LineString()
			if !ok {
				continue
			}
			c.dist = nearestSegmentDistance(ls, orb.Point{lon, lat})
		}
		candidates = append(candidates, c)
	}

	if byDistance {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	}

	out := make([]graphview.Edge, len(candidates))
	for i, c := range candidates {
		out[i] = c.edge
	}
	return out, nil
}

// nearestSegmentDistance is the minimum point-to-segment distance from p to
// any segment of ls.
func nearestSegmentDistance(ls orb.LineString, p orb.Point) float64 {
	best := -1.0
	for i := 0; i+1 < len(ls); i++ {
		d, _ := geom.PointToSegment(p, ls[i], ls[i+1])
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}
