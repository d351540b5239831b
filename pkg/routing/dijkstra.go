// Package routing implements the search algorithms that walk a
// graphview.View: single-source Dijkstra with a cutoff, shortest path
// between two waypoints, a shortest-path tree under a budget, and a
// "reachable" subgraph that extends partway down fringe edges. Grounded on
// the original's unweaver/algorithms/shortest_paths.py and
// unweaver/algorithms/reachable.py, generalized from a NetworkX weight
// callback to the CostFunc type below.
package routing

import (
	"fmt"
	"math"
	"sync"

	"github.com/azybler/unweaver/pkg/errs"
	"github.com/azybler/unweaver/pkg/graphview"
)

// CostFunc computes the traversal cost of edge (u, v, d). A false second
// return means the edge is untraversable (infinite cost) under the active
// profile, matching the original's "cost function returns None" contract.
type CostFunc func(u, v string, d graphview.Attrs) (cost float64, ok bool)

// state is the per-query working set for Dijkstra: distance/predecessor
// maps plus the priority queue. Reused across queries via statePool,
// mirroring the teacher's sync.Pool-based QueryState reuse
// (pkg/routing/engine.go's qsPool) generalized from a fixed-size array
// indexed by uint32 node id to maps indexed by string node id.
type state struct {
	dist map[string]float64
	prev map[string]string
	seen map[string]bool
	pq   minHeap
}

func newState() *state {
	return &state{
		dist: map[string]float64{},
		prev: map[string]string{},
		seen: map[string]bool{},
	}
}

func (s *state) reset() {
	for k := range s.dist {
		delete(s.dist, k)
	}
	for k := range s.prev {
		delete(s.prev, k)
	}
	for k := range s.seen {
		delete(s.seen, k)
	}
	s.pq.items = s.pq.items[:0]
}

var statePool = sync.Pool{New: func() any { return newState() }}

// dijkstra runs single-source Dijkstra from source, expanding only edges
// whose cumulative cost stays at or under cutoff. If target is non-empty,
// the search stops as soon as target is popped off the frontier (it is
// then guaranteed optimal; everything else in dist/prev is a byproduct,
// not necessarily complete). Returns the distance and predecessor maps.
func dijkstra(view graphview.View, source string, cost CostFunc, cutoff float64, target string) (map[string]float64, map[string]string, error) {
	s := statePool.Get().(*state)
	defer func() {
		s.reset()
		statePool.Put(s)
	}()

	s.dist[source] = 0
	s.pq.Push(source, 0)

	for s.pq.Len() > 0 {
		item := s.pq.Pop()
		if s.seen[item.node] {
			continue
		}
		s.seen[item.node] = true

		if target != "" && item.node == target {
			break
		}

		succ, err := view.Successors(item.node)
		if err != nil {
			return nil, nil, fmt.Errorf("routing: successors of %s: %w", item.node, err)
		}

		for v, d := range succ {
			if s.seen[v] {
				continue
			}
			c, ok := cost(item.node, v, d)
			if !ok {
				continue
			}
			if c < 0 {
				return nil, nil, fmt.Errorf("routing: negative edge cost (%s,%s) = %v", item.node, v, c)
			}

			nd := item.dist + c
			if nd > cutoff {
				continue
			}
			if existing, known := s.dist[v]; known && existing <= nd {
				continue
			}
			s.dist[v] = nd
			s.prev[v] = item.node
			s.pq.Push(v, nd)
		}
	}

	dist := make(map[string]float64, len(s.dist))
	prev := make(map[string]string, len(s.prev))
	for k, v := range s.dist {
		dist[k] = v
	}
	for k, v := range s.prev {
		prev[k] = v
	}
	return dist, prev, nil
}

// reconstructPath walks prev from target back to source and returns the
// path in source->target order.
func reconstructPath(prev map[string]string, source, target string) []string {
	if target == source {
		return []string{source}
	}
	var rev []string
	node := target
	for {
		rev = append(rev, node)
		if node == source {
			break
		}
		parent, ok := prev[node]
		if !ok {
			return nil
		}
		node = parent
	}
	path := make([]string, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}

// ShortestPath returns the least-cost path from source to target and its
// total cost, or errs.ErrNoPath if target is unreachable.
func ShortestPath(view graphview.View, source, target string, cost CostFunc) ([]string, float64, error) {
	dist, prev, err := dijkstra(view, source, cost, math.Inf(1), target)
	if err != nil {
		return nil, 0, err
	}
	d, ok := dist[target]
	if !ok {
		return nil, 0, errs.ErrNoPath
	}
	path := reconstructPath(prev, source, target)
	if path == nil {
		return nil, 0, errs.ErrNoPath
	}
	return path, d, nil
}
