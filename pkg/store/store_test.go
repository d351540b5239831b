package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/azybler/unweaver/pkg/errs"
	"github.com/azybler/unweaver/pkg/graphview"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.gpkg")
	s, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func straightEdge(a, b orb.Point, length float64, extra graphview.Attrs) EdgeTuple {
	data := graphview.Attrs{
		graphview.GeomKey:   orb.LineString{a, b},
		graphview.LengthKey: length,
	}
	for k, v := range extra {
		data[k] = v
	}
	return EdgeTuple{U: nodeID(a), V: nodeID(b), Data: data}
}

// nodeID mirrors the "lon, lat" node-id format spec.md defines for
// pkg/build (CreateNodeID), without importing that package here: pkg/build
// imports pkg/store, so the reverse import would cycle.
func nodeID(p orb.Point) string {
	return fmt.Sprintf("%.6f, %.6f", p[0], p[1])
}

func TestAddEdgesRoundTrip(t *testing.T) {
	s := newTestStore(t)

	a := orb.Point{103.8198, 1.3521}
	b := orb.Point{103.8298, 1.3621}

	e := straightEdge(a, b, 1500, graphview.Attrs{"highway": "footway"})
	if err := s.AddEdges([]EdgeTuple{e}, 0); err != nil {
		t.Fatalf("AddEdges: %v", err)
	}

	got, err := s.GetEdge(e.U, e.V)
	if err != nil {
		t.Fatalf("GetEdge: %v", err)
	}
	length, ok := got.Length()
	if !ok || length != 1500 {
		t.Errorf("length = %v, %v, want 1500, true", length, ok)
	}
	if got["highway"] != "footway" {
		t.Errorf("highway = %v, want footway", got["highway"])
	}
	ls, ok := got.LineString()
	if !ok || len(ls) != 2 {
		t.Fatalf("LineString round trip: %v, %v", ls, ok)
	}
}

func TestGetEdgeNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetEdge("1.000000, 1.000000", "2.000000, 2.000000"); err != errs.ErrEdgeNotFound {
		t.Errorf("err = %v, want ErrEdgeNotFound", err)
	}
}

func TestSuccessorsAndPredecessors(t *testing.T) {
	s := newTestStore(t)

	a := orb.Point{0, 0}
	b := orb.Point{0, 0.001}
	c := orb.Point{0, 0.002}

	edges := []EdgeTuple{
		straightEdge(a, b, 100, nil),
		straightEdge(b, c, 100, nil),
	}
	if err := s.AddEdges(edges, 0); err != nil {
		t.Fatalf("AddEdges: %v", err)
	}

	succ, err := s.Successors(edges[0].U)
	if err != nil {
		t.Fatalf("Successors: %v", err)
	}
	if _, ok := succ[edges[0].V]; !ok {
		t.Errorf("Successors(%s) missing %s", edges[0].U, edges[0].V)
	}

	pred, err := s.Predecessors(edges[1].V)
	if err != nil {
		t.Fatalf("Predecessors: %v", err)
	}
	if _, ok := pred[edges[1].U]; !ok {
		t.Errorf("Predecessors(%s) missing %s", edges[1].V, edges[1].U)
	}
}

func TestAddEdgesDynamicColumn(t *testing.T) {
	s := newTestStore(t)

	a, b := orb.Point{1, 1}, orb.Point{1, 1.001}
	e1 := straightEdge(a, b, 50, graphview.Attrs{"surface": "paved"})
	if err := s.AddEdges([]EdgeTuple{e1}, 0); err != nil {
		t.Fatalf("AddEdges: %v", err)
	}
	if ct, ok := s.columns["surface"]; !ok || ct != colText {
		t.Errorf("surface column type = %v, %v, want colText, true", ct, ok)
	}

	c, d := orb.Point{2, 2}, orb.Point{2, 2.001}
	e2 := straightEdge(c, d, 75, graphview.Attrs{"incline": 0.05})
	if err := s.AddEdges([]EdgeTuple{e2}, 0); err != nil {
		t.Fatalf("AddEdges (new column): %v", err)
	}
	if ct, ok := s.columns["incline"]; !ok || ct != colReal {
		t.Errorf("incline column type = %v, %v, want colReal, true", ct, ok)
	}

	got, err := s.GetEdge(e1.U, e1.V)
	if err != nil {
		t.Fatalf("GetEdge after schema growth: %v", err)
	}
	if got["surface"] != "paved" {
		t.Errorf("surface = %v, want paved", got["surface"])
	}
	if _, present := got["incline"]; present && got["incline"] != nil {
		t.Errorf("incline on e1 = %v, want nil/absent", got["incline"])
	}
}

func TestUpdateEdgesWeightColumn(t *testing.T) {
	s := newTestStore(t)

	a, b := orb.Point{5, 5}, orb.Point{5, 5.001}
	e := straightEdge(a, b, 200, nil)
	if err := s.AddEdges([]EdgeTuple{e}, 0); err != nil {
		t.Fatalf("AddEdges: %v", err)
	}

	col := graphview.WeightColumn("default")
	if err := s.UpdateEdges([]EdgeTuple{{U: e.U, V: e.V, Data: graphview.Attrs{col: 200.0}}}, 0); err != nil {
		t.Fatalf("UpdateEdges: %v", err)
	}

	got, err := s.GetEdge(e.U, e.V)
	if err != nil {
		t.Fatalf("GetEdge: %v", err)
	}
	cost, present, null := got.Weight("default")
	if !present || null || cost != 200 {
		t.Errorf("Weight = %v, %v, %v, want 200, true, false", cost, present, null)
	}
}

func TestEdgesDWithinFindsNearbyEdge(t *testing.T) {
	s := newTestStore(t)

	a := orb.Point{103.8198, 1.3521}
	b := orb.Point{103.8208, 1.3521}
	e := straightEdge(a, b, 1000, nil)
	if err := s.AddEdges([]EdgeTuple{e}, 0); err != nil {
		t.Fatalf("AddEdges: %v", err)
	}

	// A point a few meters off the midpoint of the edge.
	midLon := (a[0] + b[0]) / 2
	hits, err := s.EdgesDWithin(midLon, 1.3522, 50, true)
	if err != nil {
		t.Fatalf("EdgesDWithin: %v", err)
	}
	if len(hits) == 0 {
		t.Fatalf("EdgesDWithin found no edges near the query point")
	}
	if hits[0].U != e.U || hits[0].V != e.V {
		t.Errorf("nearest edge = (%s,%s), want (%s,%s)", hits[0].U, hits[0].V, e.U, e.V)
	}
}

func TestOpenRejectsMissingPath(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.gpkg")); err == nil {
		t.Fatal("Open of a missing path: want error, got nil")
	}
}

func TestReopenPreservesSchemaAndIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.gpkg")
	s, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	a, b := orb.Point{10, 10}, orb.Point{10, 10.001}
	e := straightEdge(a, b, 111, graphview.Attrs{"surface": "gravel"})
	if err := s.AddEdges([]EdgeTuple{e}, 0); err != nil {
		t.Fatalf("AddEdges: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetEdge(e.U, e.V)
	if err != nil {
		t.Fatalf("GetEdge after reopen: %v", err)
	}
	if got["surface"] != "gravel" {
		t.Errorf("surface after reopen = %v, want gravel", got["surface"])
	}

	hits, err := reopened.EdgesDWithin(10.0005, 10.0005, 200, false)
	if err != nil {
		t.Fatalf("EdgesDWithin after reopen: %v", err)
	}
	if len(hits) == 0 {
		t.Errorf("EdgesDWithin after reopen found no edges, want the seeded edge")
	}
}

func TestCopyToNewFile(t *testing.T) {
	s := newTestStore(t)
	a, b := orb.Point{20, 20}, orb.Point{20, 20.001}
	if err := s.AddEdges([]EdgeTuple{straightEdge(a, b, 42, nil)}, 0); err != nil {
		t.Fatalf("AddEdges: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "copy.gpkg")
	if err := s.Copy(dst); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	copied, err := Open(dst)
	if err != nil {
		t.Fatalf("Open copy: %v", err)
	}
	defer copied.Close()

	n, err := copied.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if n != 1 {
		t.Errorf("copy Size = %d, want 1", n)
	}
}
