package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/azybler/unweaver/pkg/build"
	"github.com/azybler/unweaver/pkg/profile"
	"github.com/azybler/unweaver/pkg/store"
)

// newTestHandlers builds a two-edge straight-line graph (origin -> mid ->
// destination) and wires it to the built-in "default" profile, mirroring
// the teacher's pkg/api/handlers_test.go mock-dependency setup but against a
// real store, since Handlers is written directly against *store.Store
// rather than an interface.
func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	dir := t.TempDir()
	layersDir := filepath.Join(dir, "layers")
	if err := os.MkdirAll(layersDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	geojson := `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "properties": {}, "geometry": {"type": "LineString", "coordinates": [[103.80, 1.30], [103.80, 1.31]]}},
			{"type": "Feature", "properties": {}, "geometry": {"type": "LineString", "coordinates": [[103.80, 1.31], [103.80, 1.32]]}}
		]
	}`
	if err := os.WriteFile(filepath.Join(layersDir, "sidewalks.geojson"), []byte(geojson), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := store.Create(filepath.Join(dir, "graph.gpkg"))
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := build.Graph(s, []string{filepath.Join(layersDir, "sidewalks.geojson")}, 7, nil); err != nil {
		t.Fatalf("build.Graph: %v", err)
	}

	descriptors := map[string]*profile.Descriptor{
		"default": {ID: "default", Name: "Default", CostFunction: "default"},
	}
	return NewHandlers(s, descriptors, profile.NewRegistry())
}

func TestHandleShortestPathEndToEnd(t *testing.T) {
	h := newTestHandlers(t)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /shortest_path/{id}", h.HandleShortestPath)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := fmt.Sprintf("%s/shortest_path/default.json?lon1=103.80&lat1=1.30&lon2=103.80&lat2=1.32", srv.URL)
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "Ok" {
		t.Fatalf("status = %v, want Ok: %+v", body["status"], body)
	}
	if _, ok := body["total_cost"].(float64); !ok {
		t.Errorf("total_cost missing or not numeric: %+v", body)
	}
}

func TestHandleShortestPathUnknownProfile(t *testing.T) {
	h := newTestHandlers(t)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /shortest_path/{id}", h.HandleShortestPath)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := fmt.Sprintf("%s/shortest_path/nonexistent.json?lon1=103.80&lat1=1.30&lon2=103.80&lat2=1.32", srv.URL)
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHandleHealth(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestHandleStats(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest("GET", "/stats", nil)
	w := httptest.NewRecorder()
	h.HandleStats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.NumNodes != 3 {
		t.Errorf("NumNodes = %d, want 3", resp.NumNodes)
	}
	if resp.NumEdges != 4 {
		t.Errorf("NumEdges = %d, want 4 (2 features, forward + reverse)", resp.NumEdges)
	}
}

func TestJSONPathParamStripsSuffix(t *testing.T) {
	req := httptest.NewRequest("GET", "/shortest_path/default.json", nil)
	req.SetPathValue("id", "default.json")
	id, ok := jsonPathParam(req, "id")
	if !ok || id != "default" {
		t.Errorf("jsonPathParam = (%q, %v), want (default, true)", id, ok)
	}
}

func TestJSONPathParamRejectsMissingSuffix(t *testing.T) {
	req := httptest.NewRequest("GET", "/shortest_path/default", nil)
	req.SetPathValue("id", "default")
	if _, ok := jsonPathParam(req, "id"); ok {
		t.Errorf("expected jsonPathParam to reject a path value without .json")
	}
}
