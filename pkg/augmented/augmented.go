// Package augmented overlays a small set of temporary nodes/edges on top of
// a read-only graphview.View, without mutating the underlying graph.
// Grounded on the original's unweaver/graphs/augmented.py
// (AugmentedDiGraphDBView, prepare_augmented): routing algorithms there
// walk a NetworkX view that transparently merges a base graph with an
// in-memory overlay graph; here the overlay is realized as another
// graphview.View implementation instead of a NetworkX subclass.
package augmented

import (
	"github.com/azybler/unweaver/pkg/graphview"
	"github.com/azybler/unweaver/pkg/projection"
)

// View merges a base graphview.View with a small overlay of temporary
// nodes/edges created by projection.Candidates. Overlay entries take
// precedence over (but never replace) base entries: a node or edge present
// in both is only possible for the pseudo-node id itself, which the base
// graph never has.
type View struct {
	base graphview.View

	nodes map[string]graphview.Attrs
	succ  map[string]map[string]graphview.Attrs
	pred  map[string]map[string]graphview.Attrs
}

var _ graphview.View = (*View)(nil)

// Prepare builds an augmented view around candidate: if candidate is an
// on-graph node, base is returned unchanged (no overlay needed). Otherwise
// the temporary half-edges recorded on candidate become a small overlay
// graph threaded into base's adjacency.
func Prepare(base graphview.View, candidate projection.Node) graphview.View {
	if candidate.OnGraph() {
		return base
	}

	v := &View{
		base:  base,
		nodes: map[string]graphview.Attrs{},
		succ:  map[string]map[string]graphview.Attrs{},
		pred:  map[string]map[string]graphview.Attrs{},
	}

	v.nodes[candidate.ID] = graphview.Attrs{graphview.GeomKey: candidate.Point}

	for _, e := range candidate.EdgesOut {
		v.addOverlayEdge(e.U, e.V, e.Data)
	}
	for _, e := range candidate.EdgesIn {
		v.addOverlayEdge(e.U, e.V, e.Data)
	}

	return v
}

func (v *View) addOverlayEdge(u, vv string, d graphview.Attrs) {
	if v.succ[u] == nil {
		v.succ[u] = map[string]graphview.Attrs{}
	}
	v.succ[u][vv] = d
	if v.pred[vv] == nil {
		v.pred[vv] = map[string]graphview.Attrs{}
	}
	v.pred[vv][u] = d
}

// Node returns the overlay node's attributes if present, otherwise falls
// through to base.
func (v *View) Node(key string) (graphview.Attrs, error) {
	if a, ok := v.nodes[key]; ok {
		return a, nil
	}
	return v.base.Node(key)
}

// Successors merges base and overlay successors of u. An overlay entry for
// a given target never collides with a base entry because pseudo-node ids
// don't exist in the base graph.
func (v *View) Successors(u string) (map[string]graphview.Attrs, error) {
	base, err := v.base.Successors(u)
	if err != nil {
		return nil, err
	}
	overlay := v.succ[u]
	if len(overlay) == 0 {
		return base, nil
	}
	out := make(map[string]graphview.Attrs, len(base)+len(overlay))
	for k, d := range base {
		out[k] = d
	}
	for k, d := range overlay {
		out[k] = d
	}
	return out, nil
}

// Predecessors merges base and overlay predecessors of u.
func (v *View) Predecessors(u string) (map[string]graphview.Attrs, error) {
	base, err := v.base.Predecessors(u)
	if err != nil {
		return nil, err
	}
	overlay := v.pred[u]
	if len(overlay) == 0 {
		return base, nil
	}
	out := make(map[string]graphview.Attrs, len(base)+len(overlay))
	for k, d := range base {
		out[k] = d
	}
	for k, d := range overlay {
		out[k] = d
	}
	return out, nil
}

// Edge returns a single edge's attributes, checking the overlay first.
func (v *View) Edge(u, vv string) (graphview.Attrs, error) {
	if succ, ok := v.succ[u]; ok {
		if d, ok := succ[vv]; ok {
			return d, nil
		}
	}
	d, err := v.base.Edge(u, vv)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// EdgesDWithin delegates to the base view: the overlay exists only to route
// through a single already-chosen waypoint, not to be discovered by a
// further nearest-edge search.
func (v *View) EdgesDWithin(lon, lat, r float64, sort bool) ([]graphview.Edge, error) {
	return v.base.EdgesDWithin(lon, lat, r, sort)
}
