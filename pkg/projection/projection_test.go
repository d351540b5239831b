package projection

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/azybler/unweaver/pkg/graphview"
)

// fakeView is a minimal in-memory graphview.View for exercising
// projection.Candidates/ChooseCandidate without a store.Store.
type fakeView struct {
	nodes map[string]graphview.Attrs
	edges []graphview.Edge
}

func (v *fakeView) Node(key string) (graphview.Attrs, error) { return v.nodes[key], nil }

func (v *fakeView) Successors(u string) (map[string]graphview.Attrs, error) {
	out := map[string]graphview.Attrs{}
	for _, e := range v.edges {
		if e.U == u {
			out[e.V] = e.Data
		}
	}
	return out, nil
}

func (v *fakeView) Predecessors(u string) (map[string]graphview.Attrs, error) {
	out := map[string]graphview.Attrs{}
	for _, e := range v.edges {
		if e.V == u {
			out[e.U] = e.Data
		}
	}
	return out, nil
}

func (v *fakeView) Edge(u, vv string) (graphview.Attrs, error) {
	for _, e := range v.edges {
		if e.U == u && e.V == vv {
			return e.Data, nil
		}
	}
	return nil, nil
}

func (v *fakeView) EdgesDWithin(lon, lat, r float64, sort bool) ([]graphview.Edge, error) {
	return v.edges, nil
}

func oneEdgeView(a, b orb.Point) *fakeView {
	return &fakeView{
		edges: []graphview.Edge{
			{U: "A", V: "B", Data: graphview.Attrs{
				graphview.GeomKey:   orb.LineString{a, b},
				graphview.LengthKey: 1000.0,
			}},
		},
	}
}

func TestCandidatesMidpointSplitsEdge(t *testing.T) {
	a := orb.Point{0, 0}
	b := orb.Point{0, 0.01}
	view := oneEdgeView(a, b)

	mid := orb.Point{0, 0.005}
	candidates, err := Candidates(view, mid[0], mid[1], 1, 0, nil, nil, "-1")
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	c := candidates[0]
	if c.OnGraph() {
		t.Fatalf("candidate at midpoint should split the edge, got an on-graph node")
	}
	if len(c.EdgesIn) != 2 || len(c.EdgesOut) != 2 {
		t.Errorf("EdgesIn/EdgesOut = %d/%d, want 2/2", len(c.EdgesIn), len(c.EdgesOut))
	}
}

func TestCandidatesSnapsToStartNode(t *testing.T) {
	a := orb.Point{1, 1}
	b := orb.Point{1, 1.01}
	view := oneEdgeView(a, b)

	candidates, err := Candidates(view, a[0], a[1], 1, 0, nil, nil, "-1")
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(candidates) != 1 || !candidates[0].OnGraph() || candidates[0].ID != "A" {
		t.Fatalf("candidate at edge start = %+v, want on-graph node A", candidates[0])
	}
}

func TestCandidatesSnapsToEndNode(t *testing.T) {
	a := orb.Point{2, 2}
	b := orb.Point{2, 2.01}
	view := oneEdgeView(a, b)

	candidates, err := Candidates(view, b[0], b[1], 1, 0, nil, nil, "-1")
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(candidates) != 1 || !candidates[0].OnGraph() || candidates[0].ID != "B" {
		t.Fatalf("candidate at edge end = %+v, want on-graph node B", candidates[0])
	}
}

func TestChooseCandidateSkipsUntraversable(t *testing.T) {
	a := orb.Point{3, 3}
	b := orb.Point{3, 3.01}
	view := oneEdgeView(a, b)

	mid := orb.Point{3, 3.005}
	candidates, err := Candidates(view, mid[0], mid[1], 1, 0, nil, nil, "-1")
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}

	alwaysInfinite := func(u, v string, d graphview.Attrs) bool { return false }
	if _, err := ChooseCandidate(view, candidates, Origin, alwaysInfinite); err == nil {
		t.Fatal("ChooseCandidate with an all-infinite filter: want error, got nil")
	}

	alwaysFinite := func(u, v string, d graphview.Attrs) bool { return true }
	got, err := ChooseCandidate(view, candidates, Origin, alwaysFinite)
	if err != nil {
		t.Fatalf("ChooseCandidate: %v", err)
	}
	if got == nil {
		t.Fatal("ChooseCandidate returned nil candidate")
	}
}

func TestReverseEdgeDataInvertsAndFlips(t *testing.T) {
	d := graphview.Attrs{
		graphview.GeomKey: orb.LineString{{0, 0}, {0, 1}},
		"incline":         0.05,
		"one_way":         true,
	}
	rev := reverseEdgeData(d, []string{"incline"}, []string{"one_way"})
	if rev["incline"] != -0.05 {
		t.Errorf("incline = %v, want -0.05", rev["incline"])
	}
	if rev["one_way"] != false {
		t.Errorf("one_way = %v, want false", rev["one_way"])
	}
	ls, _ := rev.LineString()
	if ls[0] != (orb.Point{0, 1}) {
		t.Errorf("reversed geometry start = %v, want {0,1}", ls[0])
	}
}
