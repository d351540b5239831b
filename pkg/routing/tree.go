package routing

import (
	"fmt"

	"github.com/azybler/unweaver/pkg/graphview"
)

// Tree is the result of TreeSearch: every node reached within budget, its
// cost and path from the source, and the unique edges that make up those
// paths. Grounded on the original's shortest_paths() return value (nodes,
// paths, edges).
type Tree struct {
	Cost  map[string]float64
	Paths map[string][]string
	Edges []graphview.Edge
}

// TreeSearch computes the shortest-path tree rooted at source, covering
// every node reachable within maxCost.
func TreeSearch(view graphview.View, source string, cost CostFunc, maxCost float64) (*Tree, error) {
	dist, prev, err := dijkstra(view, source, cost, maxCost, "")
	if err != nil {
		return nil, err
	}

	paths := make(map[string][]string, len(dist))
	edgeIDs := map[[2]string]bool{}
	for node := range dist {
		path := reconstructPath(prev, source, node)
		if path == nil {
			continue
		}
		paths[node] = path
		for i := 0; i+1 < len(path); i++ {
			edgeIDs[[2]string{path[i], path[i+1]}] = true
		}
	}

	edges := make([]graphview.Edge, 0, len(edgeIDs))
	for id := range edgeIDs {
		d, err := view.Edge(id[0], id[1])
		if err != nil {
			return nil, fmt.Errorf("routing: tree edge (%s,%s): %w", id[0], id[1], err)
		}
		edges = append(edges, graphview.Edge{U: id[0], V: id[1], Data: d})
	}

	return &Tree{Cost: dist, Paths: paths, Edges: edges}, nil
}
