package routing

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/azybler/unweaver/pkg/geom"
	"github.com/azybler/unweaver/pkg/graphview"
)

// ReachableResult is the extended reachable subgraph: every full edge on
// the shortest-path tree or otherwise fully affordable, plus partial
// "fringe" edges that extend part of the way down an edge the budget
// couldn't fully cover, each ending at a synthesized point. Grounded on the
// original's unweaver/algorithms/reachable.py.
type ReachableResult struct {
	Cost        map[string]float64
	Edges       []graphview.Edge
	FringePoint map[string]orb.Point
}

type fringeCandidate struct {
	edge       graphview.Edge
	cost       float64
	proportion float64
}

// Reachable computes the full set of places reachable from source within
// maxCost: the shortest-path tree plus partial extensions onto edges whose
// far endpoint falls outside the budget (fringe edges), and edges that are
// fully affordable but weren't needed by any single shortest path
// ("internal" edges).
func Reachable(view graphview.View, source string, cost CostFunc, maxCost float64) (*ReachableResult, error) {
	tree, err := TreeSearch(view, source, cost, maxCost)
	if err != nil {
		return nil, err
	}

	traveledEdges := map[[2]string]bool{}
	for _, e := range tree.Edges {
		traveledEdges[[2]string{e.U, e.V}] = true
	}

	traveledNodes := map[string]bool{}
	for _, path := range tree.Paths {
		for _, n := range path {
			traveledNodes[n] = true
		}
	}

	candidates := map[[2]string]fringeCandidate{}
	for u := range traveledNodes {
		succ, err := view.Successors(u)
		if err != nil {
			return nil, fmt.Errorf("routing: reachable successors of %s: %w", u, err)
		}
		for v, d := range succ {
			id := [2]string{u, v}
			if traveledEdges[id] {
				continue
			}
			traveledEdges[id] = true

			c, ok := cost(u, v, d)
			if !ok {
				continue
			}

			var proportion float64
			if nodeCost, ok := tree.Cost[v]; ok && nodeCost+c < maxCost {
				proportion = 1
			} else {
				uCost, ok := tree.Cost[u]
				if !ok {
					continue
				}
				remaining := maxCost - uCost
				if c <= 0 {
					proportion = 1
				} else {
					proportion = remaining / c
				}
			}

			candidates[id] = fringeCandidate{
				edge:       graphview.Edge{U: u, V: v, Data: d},
				cost:       c,
				proportion: proportion,
			}
		}
	}

	var fringeEdges []graphview.Edge
	fringePoints := map[string]orb.Point{}
	fringeCost := map[string]float64{}
	seen := map[[2]string]bool{}

	for id, c := range candidates {
		if seen[id] {
			continue
		}

		if c.proportion >= 1 {
			fringeEdges = append(fringeEdges, c.edge)
			continue
		}

		revID := [2]string{id[1], id[0]}
		if rev, hasRev := candidates[revID]; hasRev {
			if c.proportion+rev.proportion > 1 {
				fringeEdges = append(fringeEdges, c.edge)
				continue
			}
		}

		partial, fringeID, fringePoint, err := makePartialEdge(c)
		if err != nil {
			return nil, err
		}
		fringeEdges = append(fringeEdges, partial)
		fringePoints[fringeID] = fringePoint
		fringeCost[fringeID] = maxCost
		seen[id] = true
	}

	cost2 := make(map[string]float64, len(tree.Cost)+len(fringeCost))
	for k, v := range tree.Cost {
		cost2[k] = v
	}
	for k, v := range fringeCost {
		cost2[k] = v
	}

	return &ReachableResult{
		Cost:        cost2,
		Edges:       append(tree.Edges, fringeEdges...),
		FringePoint: fringePoints,
	}, nil
}

// makePartialEdge truncates c's edge geometry to the proportion of its
// length that fits within budget, and synthesizes a node id for the cut
// point from its coordinates (unrounded, matching the original's fringe
// node ids — these are distinct from pkg/build's rounded on-graph ids).
func makePartialEdge(c fringeCandidate) (graphview.Edge, string, orb.Point, error) {
	ls, ok := c.edge.Data.LineString()
	if !ok || len(ls) < 2 {
		return graphview.Edge{}, "", orb.Point{}, fmt.Errorf("routing: fringe edge (%s,%s) has no usable geometry", c.edge.U, c.edge.V)
	}

	total := geom.Haversine(ls)
	cutDistance := c.proportion * total
	head, _ := geom.Cut(ls, cutDistance)

	fringePoint := head[len(head)-1]
	fringeID := fmt.Sprintf("%v, %v", fringePoint[0], fringePoint[1])

	data := c.edge.Data.Clone()
	if origLen, ok := c.edge.Data.Length(); ok && total > 0 {
		data[graphview.LengthKey] = origLen * (cutDistance / total)
	}
	data[graphview.GeomKey] = head

	return graphview.Edge{U: c.edge.U, V: fringeID, Data: data}, fringeID, fringePoint, nil
}
