// Package geom provides the small set of planar/great-circle geometry
// primitives that the store, projection, and routing packages build on:
// cutting a polyline at an arc-length, haversine length, polyline reversal,
// and point-to-segment projection.
package geom

import (
	"math"

	"github.com/paulmach/orb"
)

const earthRadiusMeters = 6_371_000.0

// epsilon is the floating-point slack treated as "equal" throughout this
// package, per the tie-break rule in spec.md 4.1.
const epsilon = 1e-12

// Haversine returns the great-circle length of a LineString in meters,
// summing the haversine distance of each consecutive coordinate pair.
func Haversine(ls orb.LineString) float64 {
	var total float64
	for i := 1; i < len(ls); i++ {
		total += HaversineDist(ls[i-1], ls[i])
	}
	return total
}

// HaversineDist returns the great-circle distance in meters between two
// lon/lat points.
func HaversineDist(a, b orb.Point) float64 {
	lat1 := a[1] * math.Pi / 180
	lat2 := b[1] * math.Pi / 180
	dLat := (b[1] - a[1]) * math.Pi / 180
	dLon := (b[0] - a[0]) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// Reverse returns a new LineString with coordinate order reversed.
func Reverse(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[len(ls)-1-i] = p
	}
	return out
}

// Cut splits a polyline at arc-length distance d, measured with Haversine
// segment lengths. If d <= 0 or d >= length(line), the line is returned
// unchanged as head with a nil tail, per spec.md 4.1.
func Cut(line orb.LineString, d float64) (head, tail orb.LineString) {
	total := Haversine(line)
	if d <= 0 || d >= total {
		return line, nil
	}

	var traveled float64
	for i := 1; i < len(line); i++ {
		segLen := HaversineDist(line[i-1], line[i])
		next := traveled + segLen

		if math.Abs(next-d) < epsilon {
			// Falls (within slack) exactly on vertex i: split at the vertex.
			head = append(append(orb.LineString{}, line[:i+1]...))
			tail = append(append(orb.LineString{}, line[i:]...))
			return head, tail
		}

		if next > d {
			remaining := d - traveled
			cp := interpolate(line[i-1], line[i], remaining, segLen)
			head = append(append(orb.LineString{}, line[:i]...), cp)
			tail = append(orb.LineString{cp}, line[i:]...)
			return head, tail
		}

		traveled = next
	}

	// Floating-point slack exhausted all segments without reaching d exactly;
	// treat the final vertex as the split point.
	n := len(line)
	head = append(orb.LineString{}, line...)
	tail = orb.LineString{line[n-1]}
	return head, tail
}

// interpolate returns the point along segment a->b at arc-length dist from
// a, where segLen is the precomputed haversine length of a->b.
func interpolate(a, b orb.Point, dist, segLen float64) orb.Point {
	if segLen <= 0 {
		return a
	}
	t := dist / segLen
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return orb.Point{
		a[0] + t*(b[0]-a[0]),
		a[1] + t*(b[1]-a[1]),
	}
}

// PointToSegment computes the perpendicular distance in meters from point p
// to segment a-b, and the projection ratio along a-b clamped to [0,1]. Work
// happens in an equirectangular projection local to the segment's midpoint
// latitude — adequate at pedestrian scale and avoids hardcoding a single
// projected CRS for a dataset that may span the globe (see DESIGN.md, CRS
// open question).
func PointToSegment(p, a, b orb.Point) (dist, ratio float64) {
	if a == b {
		return HaversineDist(p, a), 0
	}

	cosLat := math.Cos((a[1] + b[1]) / 2 * math.Pi / 180)

	ax, ay := a[0]*cosLat, a[1]
	bx, by := b[0]*cosLat, b[1]
	px, py := p[0]*cosLat, p[1]

	dx := bx - ax
	dy := by - ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return HaversineDist(p, a), 0
	}

	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	closest := orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
	return HaversineDist(p, closest), t
}

// ProjectOnLine returns the arc-length distance along ls of the closest
// point to p, using the same segment-by-segment scan as Cut so that the
// resulting distance is compatible with it.
func ProjectOnLine(ls orb.LineString, p orb.Point) float64 {
	if len(ls) == 0 {
		return 0
	}

	bestDist := math.Inf(1)
	var bestArc float64
	var traveled float64

	for i := 1; i < len(ls); i++ {
		a, b := ls[i-1], ls[i]
		segLen := HaversineDist(a, b)
		d, ratio := PointToSegment(p, a, b)
		if d < bestDist {
			bestDist = d
			bestArc = traveled + ratio*segLen
		}
		traveled += segLen
	}

	return bestArc
}

// BoundingBox returns the (minX, minY, maxX, maxY) envelope of a LineString.
func BoundingBox(ls orb.LineString) (minX, minY, maxX, maxY float64) {
	b := ls.Bound()
	return b.Min[0], b.Min[1], b.Max[0], b.Max[1]
}
