package profile

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/azybler/unweaver/pkg/graphview"
	"github.com/azybler/unweaver/pkg/projection"
	"github.com/azybler/unweaver/pkg/routing"
)

// directionsResponse shapes a shortest_path query's response envelope,
// grounded on default_profile_functions.py's directions().
func directionsResponse(view graphview.View, status string, origin, destination projection.Node, path []string, cost float64, edges []graphview.Edge) (map[string]any, error) {
	return map[string]any{
		"status":      status,
		"origin":      waypointFeature(origin),
		"destination": waypointFeature(destination),
		"total_cost":  cost,
		"edges":       edgeFeatureCollection(edges),
	}, nil
}

// shortestPathsResponse shapes a shortest_path_tree query's response
// envelope, grounded on default_profile_functions.py's shortest_paths().
func shortestPathsResponse(view graphview.View, status string, origin projection.Node, tree *routing.Tree) (map[string]any, error) {
	paths := make([][]string, 0, len(tree.Paths))
	for _, p := range tree.Paths {
		paths = append(paths, p)
	}

	return map[string]any{
		"status":     status,
		"origin":     waypointFeature(origin),
		"paths":      paths,
		"edges":      edgeFeatureCollection(tree.Edges),
		"node_costs": nodeCostFeatureCollection(view, tree.Cost, nil),
	}, nil
}

// reachableResponse shapes a reachable_tree query's response envelope,
// grounded on default_profile_functions.py's reachable(): deduplicates an
// edge and its reverse, keeping whichever is seen first.
func reachableResponse(view graphview.View, status string, origin projection.Node, result *routing.ReachableResult) (map[string]any, error) {
	unique := make([]graphview.Edge, 0, len(result.Edges))
	seen := map[[2]string]bool{}
	for _, e := range result.Edges {
		id := [2]string{e.U, e.V}
		rev := [2]string{e.V, e.U}
		if seen[id] || seen[rev] {
			continue
		}
		unique = append(unique, e)
		seen[id] = true
	}

	return map[string]any{
		"status":     status,
		"origin":     waypointFeature(origin),
		"edges":      edgeFeatureCollection(unique),
		"node_costs": nodeCostFeatureCollection(view, result.Cost, result.FringePoint),
	}, nil
}

// waypointFeature builds the GeoJSON Feature used for a query's origin/
// destination fields.
func waypointFeature(n projection.Node) *geojson.Feature {
	f := geojson.NewFeature(n.Point)
	f.Properties["id"] = n.ID
	return f
}

// edgeFeatureCollection builds a FeatureCollection from edges, popping each
// edge's geometry out of its attribute map into the Feature's geometry
// field (matching the original's `edge.pop(geom_column)` pattern).
func edgeFeatureCollection(edges []graphview.Edge) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, e := range edges {
		geometry, _ := e.Data.Geometry()
		f := geojson.NewFeature(geometry)
		for k, v := range e.Data {
			if k == graphview.GeomKey {
				continue
			}
			f.Properties[k] = v
		}
		f.Properties["_u"] = e.U
		f.Properties["_v"] = e.V
		fc.Append(f)
	}
	return fc
}

// nodeCostFeatureCollection builds the node_costs FeatureCollection: one
// Feature per reached node, geometry from view.Node (falling back to
// fringePoints for synthesized fringe-extension nodes that aren't stored
// graph nodes), properties carrying its cost.
func nodeCostFeatureCollection(view graphview.View, costs map[string]float64, fringePoints map[string]orb.Point) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for id, cost := range costs {
		point, ok := fringePoints[id]
		if !ok {
			attrs, err := view.Node(id)
			if err != nil {
				continue
			}
			point, ok = attrs.Point()
			if !ok {
				continue
			}
		}
		f := geojson.NewFeature(point)
		f.Properties["id"] = id
		f.Properties["cost"] = cost
		fc.Append(f)
	}
	return fc
}
