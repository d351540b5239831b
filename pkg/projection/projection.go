// Package projection turns a raw (lon, lat) query point into a location on
// the graph: either an existing node, or a temporary node splitting the
// nearest edge in two. Grounded on the original's unweaver/candidates.py
// (waypoint_candidates, create_temporary_node, choose_candidate).
package projection

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/azybler/unweaver/pkg/errs"
	"github.com/azybler/unweaver/pkg/geom"
	"github.com/azybler/unweaver/pkg/graphview"
)

// DefaultSearchRadius is the dwithin search radius in meters, used when a
// caller doesn't specify one.
const DefaultSearchRadius = 30.0

// epsilon below this distance from an endpoint, a projection snaps to that
// endpoint instead of splitting the edge.
const epsilon = 1e-9

// HalfEdge is one of the temporary edges created by splitting a parent edge
// at a projected point.
type HalfEdge struct {
	U, V string
	Data graphview.Attrs
}

// Node is a location on (or temporarily spliced into) the graph: either an
// existing node (EdgesIn/EdgesOut both nil) or a pseudo-node along a split
// edge, with the temporary half-edges needed to route through it in either
// direction.
type Node struct {
	ID       string
	Point    orb.Point
	EdgesIn  []HalfEdge // edges ending at ID
	EdgesOut []HalfEdge // edges starting at ID
}

// OnGraph reports whether this candidate is an existing node rather than a
// pseudo-node along a split edge.
func (n Node) OnGraph() bool {
	return len(n.EdgesIn) == 0 && len(n.EdgesOut) == 0
}

// Candidates returns up to n candidate locations nearest (lon, lat), sorted
// nearest first, each either an on-graph node or a temporary split-edge
// node. invert and flip name edge attributes that must be negated, resp.
// toggled, on the reversed half of a split edge (e.g. an incline value or a
// one-way flag) — see geom reversal note in HalfEdge construction below.
func Candidates(view graphview.View, lon, lat float64, n int, radius float64, invert, flip []string, nodeID string) ([]Node, error) {
	if radius <= 0 {
		radius = DefaultSearchRadius
	}

	edges, err := view.EdgesDWithin(lon, lat, radius, true)
	if err != nil {
		return nil, fmt.Errorf("projection: candidates: %w", err)
	}

	point := orb.Point{lon, lat}
	var out []Node
	for i, e := range edges {
		if i >= n {
			break
		}
		node, err := createTemporaryNode(e, point, invert, flip, nodeID)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

func createTemporaryNode(edge graphview.Edge, point orb.Point, invert, flip []string, nodeID string) (Node, error) {
	ls, ok := edge.Data.LineString()
	if !ok || len(ls) < 2 {
		return Node{}, fmt.Errorf("projection: edge (%s,%s) has no usable geometry", edge.U, edge.V)
	}

	total := geom.Haversine(ls)
	distance := geom.ProjectOnLine(ls, point)

	if distance < epsilon {
		return Node{ID: edge.U, Point: point}, nil
	}
	if total-distance < epsilon {
		return Node{ID: edge.V, Point: point}, nil
	}

	head, tail := geom.Cut(ls, distance)
	if tail == nil {
		// Cut degenerated to the whole line (shouldn't happen given the
		// bounds check above, but avoid a zero-length half-edge).
		return Node{ID: edge.V, Point: point}, nil
	}

	d1 := withGeometry(edge.Data, head) // edge.U -> nodeID
	d2 := withGeometry(edge.Data, tail) // nodeID -> edge.V
	d1Rev := reverseEdgeData(d1, invert, flip)
	d2Rev := reverseEdgeData(d2, invert, flip)

	return Node{
		ID:    nodeID,
		Point: point,
		EdgesIn: []HalfEdge{
			{U: edge.U, V: nodeID, Data: d1},
			{U: edge.V, V: nodeID, Data: d2Rev},
		},
		EdgesOut: []HalfEdge{
			{U: nodeID, V: edge.V, Data: d2},
			{U: nodeID, V: edge.U, Data: d1Rev},
		},
	}, nil
}

// withGeometry copies d with its geometry replaced by ls, scaling a
// "length" attribute proportionally if present.
func withGeometry(d graphview.Attrs, ls orb.LineString) graphview.Attrs {
	out := d.Clone()
	if origLen, ok := d.Length(); ok {
		newLen := geom.Haversine(ls)
		if orig, hasOrig := d.LineString(); hasOrig {
			origGeomLen := geom.Haversine(orig)
			if origGeomLen > 0 {
				out[graphview.LengthKey] = origLen * (newLen / origGeomLen)
			}
		}
	}
	out[graphview.GeomKey] = ls
	return out
}

// reverseEdgeData returns a copy of d with its geometry reversed and the
// named invert/flip attributes transformed for the opposite direction of
// travel.
func reverseEdgeData(d graphview.Attrs, invert, flip []string) graphview.Attrs {
	out := d.Clone()
	if ls, ok := d.LineString(); ok {
		out[graphview.GeomKey] = geom.Reverse(ls)
	}
	for _, key := range invert {
		if v, ok := out[key]; ok {
			if f, ok := asFloat(v); ok {
				out[key] = -f
			}
		}
	}
	for _, key := range flip {
		if v, ok := out[key]; ok {
			out[key] = !asBool(v)
		}
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

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case float64:
		return b != 0
	default:
		return false
	}
}

// CostFilter reports whether an edge is traversable (non-infinite cost)
// under a given profile, and is used by ChooseCandidate to skip candidates
// that have no usable direction of travel.
type CostFilter func(u, v string, d graphview.Attrs) bool

// Context selects which direction(s) of a candidate ChooseCandidate must
// validate.
type Context int

const (
	// Origin requires the candidate to have at least one traversable
	// outgoing edge.
	Origin Context = iota
	// Destination requires at least one traversable incoming edge.
	Destination
	// Both requires both.
	Both
)

// ChooseCandidate returns the first candidate (candidates is assumed
// sorted nearest-first) that is actually usable in context: an on-graph
// node with a traversable neighbor, or a split-edge node with a
// traversable temporary half-edge. Returns errs.ErrInvalidWaypoint if none
// qualify.
func ChooseCandidate(view graphview.View, candidates []Node, ctx Context, filter CostFilter) (*Node, error) {
	for i := range candidates {
		c := candidates[i]
		ok, err := candidateUsable(view, c, ctx, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			return &c, nil
		}
	}
	return nil, errs.ErrInvalidWaypoint
}

func candidateUsable(view graphview.View, c Node, ctx Context, filter CostFilter) (bool, error) {
	if c.OnGraph() {
		if ctx == Origin || ctx == Both {
			succ, err := view.Successors(c.ID)
			if err != nil {
				return false, err
			}
			if !anyTraversable(c.ID, succ, filter, false) {
				return false, nil
			}
		}
		if ctx == Destination || ctx == Both {
			pred, err := view.Predecessors(c.ID)
			if err != nil {
				return false, err
			}
			if !anyTraversable(c.ID, pred, filter, true) {
				return false, nil
			}
		}
		return true, nil
	}

	if ctx == Origin || ctx == Both {
		if len(c.EdgesOut) == 0 || !anyHalfEdgeTraversable(c.EdgesOut, filter) {
			return false, nil
		}
	}
	if ctx == Destination || ctx == Both {
		if len(c.EdgesIn) == 0 || !anyHalfEdgeTraversable(c.EdgesIn, filter) {
			return false, nil
		}
	}
	return true, nil
}

func anyTraversable(center string, neighbors map[string]graphview.Attrs, filter CostFilter, incoming bool) bool {
	for other, d := range neighbors {
		u, v := center, other
		if incoming {
			u, v = other, center
		}
		if filter == nil || filter(u, v, d) {
			return true
		}
	}
	return false
}

func anyHalfEdgeTraversable(edges []HalfEdge, filter CostFilter) bool {
	for _, e := range edges {
		if filter == nil || filter(e.U, e.V, e.Data) {
			return true
		}
	}
	return false
}
