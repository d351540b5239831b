package routing

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/azybler/unweaver/pkg/errs"
	"github.com/azybler/unweaver/pkg/graphview"
)

// fakeView is a minimal in-memory graphview.View, mirroring the one in
// pkg/augmented/augmented_test.go.
type fakeView struct {
	nodes map[string]graphview.Attrs
	succ  map[string]map[string]graphview.Attrs
	pred  map[string]map[string]graphview.Attrs
}

func (v *fakeView) Node(key string) (graphview.Attrs, error) {
	a, ok := v.nodes[key]
	if !ok {
		return nil, errs.ErrNodeNotFound
	}
	return a, nil
}

func (v *fakeView) Successors(u string) (map[string]graphview.Attrs, error) {
	return v.succ[u], nil
}

func (v *fakeView) Predecessors(u string) (map[string]graphview.Attrs, error) {
	return v.pred[u], nil
}

func (v *fakeView) Edge(u, vv string) (graphview.Attrs, error) {
	if s, ok := v.succ[u]; ok {
		if d, ok := s[vv]; ok {
			return d, nil
		}
	}
	return nil, errs.ErrEdgeNotFound
}

func (v *fakeView) EdgesDWithin(lon, lat, r float64, sort bool) ([]graphview.Edge, error) {
	return nil, nil
}

func addEdge(v *fakeView, u, vv string, length float64) {
	ls := orb.LineString{{0, 0}, {0, 0}}
	d := graphview.Attrs{graphview.LengthKey: length, graphview.GeomKey: ls}
	if v.succ[u] == nil {
		v.succ[u] = map[string]graphview.Attrs{}
	}
	v.succ[u][vv] = d
	if v.pred[vv] == nil {
		v.pred[vv] = map[string]graphview.Attrs{}
	}
	v.pred[vv][u] = d
}

// weightedGraph builds:
//
//	A --100--> B --200--> C
//	|                     ^
//	+---------500---------+
func weightedGraph() *fakeView {
	v := &fakeView{
		nodes: map[string]graphview.Attrs{
			"A": {graphview.GeomKey: orb.Point{0, 0}},
			"B": {graphview.GeomKey: orb.Point{0, 1}},
			"C": {graphview.GeomKey: orb.Point{0, 2}},
		},
		succ: map[string]map[string]graphview.Attrs{},
		pred: map[string]map[string]graphview.Attrs{},
	}
	addEdge(v, "A", "B", 100)
	addEdge(v, "B", "C", 200)
	addEdge(v, "A", "C", 500)
	return v
}

func lengthCost(u, v string, d graphview.Attrs) (float64, bool) {
	l, ok := d.Length()
	return l, ok
}

func TestShortestPathPrefersLowerCost(t *testing.T) {
	g := weightedGraph()
	path, cost, err := ShortestPath(g, "A", "C", lengthCost)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if cost != 300 {
		t.Errorf("cost = %v, want 300", cost)
	}
	want := []string{"A", "B", "C"}
	if len(path) != len(want) {
		t.Fatalf("path = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Errorf("path[%d] = %s, want %s", i, path[i], want[i])
		}
	}
}

func TestShortestPathNoPath(t *testing.T) {
	g := weightedGraph()
	g.nodes["D"] = graphview.Attrs{graphview.GeomKey: orb.Point{1, 1}}
	_, _, err := ShortestPath(g, "A", "D", lengthCost)
	if err != errs.ErrNoPath {
		t.Errorf("err = %v, want errs.ErrNoPath", err)
	}
}

func TestShortestPathUntraversableEdgeIsSkipped(t *testing.T) {
	g := weightedGraph()
	blockAB := func(u, v string, d graphview.Attrs) (float64, bool) {
		if u == "A" && v == "B" {
			return 0, false
		}
		return lengthCost(u, v, d)
	}
	path, cost, err := ShortestPath(g, "A", "C", blockAB)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if cost != 500 {
		t.Errorf("cost = %v, want 500 (direct A->C)", cost)
	}
	if len(path) != 2 || path[0] != "A" || path[1] != "C" {
		t.Errorf("path = %v, want [A C]", path)
	}
}

func TestTreeSearchRespectsCutoff(t *testing.T) {
	g := weightedGraph()
	tree, err := TreeSearch(g, "A", lengthCost, 150)
	if err != nil {
		t.Fatalf("TreeSearch: %v", err)
	}
	if _, ok := tree.Cost["B"]; !ok {
		t.Errorf("expected B reachable within 150")
	}
	if _, ok := tree.Cost["C"]; ok {
		t.Errorf("C should be outside the 150 cutoff, got cost %v", tree.Cost["C"])
	}
}

func TestReachableProducesFringeEdge(t *testing.T) {
	g := weightedGraph()
	// Budget covers all of A->B (100) plus exactly half of B->C (200).
	result, err := Reachable(g, "A", lengthCost, 200)
	if err != nil {
		t.Fatalf("Reachable: %v", err)
	}

	var sawFringe bool
	for id := range result.FringePoint {
		sawFringe = true
		if _, ok := result.Cost[id]; !ok {
			t.Errorf("fringe node %s missing from Cost map", id)
		}
	}
	if !sawFringe {
		t.Errorf("expected at least one fringe edge, got none: %+v", result.Edges)
	}
}

func TestReachableFullyAffordableHasNoFringe(t *testing.T) {
	g := weightedGraph()
	result, err := Reachable(g, "A", lengthCost, 1000)
	if err != nil {
		t.Fatalf("Reachable: %v", err)
	}
	if len(result.FringePoint) != 0 {
		t.Errorf("expected no fringe points when budget covers the whole graph, got %v", result.FringePoint)
	}
}

func TestMinHeapOrdersByDistance(t *testing.T) {
	var h minHeap
	h.Push("x", 30)
	h.Push("y", 10)
	h.Push("z", 20)

	item := h.Pop()
	if item.node != "y" || item.dist != 10 {
		t.Errorf("Pop = %+v, want {y 10}", item)
	}
	item = h.Pop()
	if item.node != "z" || item.dist != 20 {
		t.Errorf("Pop = %+v, want {z 20}", item)
	}
	item = h.Pop()
	if item.node != "x" || item.dist != 30 {
		t.Errorf("Pop = %+v, want {x 30}", item)
	}
	if h.Len() != 0 {
		t.Errorf("Len = %d, want 0", h.Len())
	}
}
