package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/azybler/unweaver/pkg/augmented"
	"github.com/azybler/unweaver/pkg/errs"
	"github.com/azybler/unweaver/pkg/graphview"
	"github.com/azybler/unweaver/pkg/profile"
	"github.com/azybler/unweaver/pkg/projection"
	"github.com/azybler/unweaver/pkg/routing"
	"github.com/azybler/unweaver/pkg/store"
)

// defaultCandidateCount is the number of nearest candidates considered by
// waypoint projection before choose_candidate picks the first usable one,
// grounded on the original's server/views/shortest_paths.py call site
// (`waypoint_candidates(g.G, lon, lat, 4, ...)`).
const defaultCandidateCount = 4

// invertKeys is the set of edge attributes negated on a query-time
// temporary half-edge's reverse direction. The only attribute the spec
// names as sign-changing is "incline" (spec.md 8 scenario 4), so it is
// also the only query-time invert key; see DESIGN.md for the build/serve
// changes-sign symmetry this assumes.
var invertKeys = []string{"incline"}

// Handlers holds the HTTP handlers and their dependencies: the backing
// store, the set of loaded profile descriptors keyed by id, and the
// compile-time cost-function/response registry.
type Handlers struct {
	store       *store.Store
	view        graphview.View
	descriptors map[string]*profile.Descriptor
	registry    profile.Registry
	radius      float64
}

// NewHandlers creates handlers serving queries against s under the given
// loaded profile descriptors.
func NewHandlers(s *store.Store, descriptors map[string]*profile.Descriptor, registry profile.Registry) *Handlers {
	return &Handlers{
		store:       s,
		view:        store.NewView(s),
		descriptors: descriptors,
		registry:    registry,
		radius:      projection.DefaultSearchRadius,
	}
}

// resolved bundles a profile's descriptor, its registry Definition, and the
// request-scoped cost function built from query args and static defaults.
type resolved struct {
	desc *profile.Descriptor
	def  profile.Definition
	cost routing.CostFunc
}

func (h *Handlers) resolve(profileID string, query map[string][]string) (*resolved, error) {
	desc, ok := h.descriptors[profileID]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", profileID)
	}
	def, ok := h.registry.Lookup(desc.CostFunction)
	if !ok {
		return nil, fmt.Errorf("profile %q: unregistered cost_function %q", profileID, desc.CostFunction)
	}

	raw := make(map[string]string, len(query))
	for k, v := range query {
		if len(v) > 0 {
			raw[k] = v[0]
		}
	}
	args, err := profile.ParseArgs(def.ArgSpecs, raw)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]any, len(desc.Static)+len(args))
	for k, v := range desc.Static {
		merged[k] = v
	}
	for k, v := range args {
		merged[k] = v
	}

	var cost routing.CostFunc
	if desc.Precalculate {
		cost = profile.CompileWeightColumn(profileID)
	} else {
		cost = def.CostFunc(merged)
	}

	return &resolved{desc: desc, def: def, cost: cost}, nil
}

// HandleShortestPath serves GET /shortest_path/<id>.json.
func (h *Handlers) HandleShortestPath(w http.ResponseWriter, r *http.Request) {
	profileID, ok := jsonPathParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_profile", "id")
		return
	}

	q := r.URL.Query()
	lon1, err1 := floatParam(q, "lon1")
	lat1, err2 := floatParam(q, "lat1")
	lon2, err3 := floatParam(q, "lon2")
	lat2, err4 := floatParam(q, "lat2")
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "lon1,lat1,lon2,lat2")
		return
	}

	res, err := h.resolve(profileID, q)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_profile", "id")
		return
	}

	origin, err := h.projectWaypoint(lon1, lat1, projection.Origin, res.cost)
	if err != nil {
		writeJSON(w, map[string]any{"status": errs.Status(err)})
		return
	}
	destination, err := h.projectWaypoint(lon2, lat2, projection.Destination, res.cost)
	if err != nil {
		writeJSON(w, map[string]any{"status": errs.Status(err)})
		return
	}

	view := augmented.Prepare(h.view, *origin)
	view = augmented.Prepare(view, *destination)

	path, totalCost, err := routing.ShortestPath(view, origin.ID, destination.ID, res.cost)
	if err != nil {
		writeJSON(w, map[string]any{"status": errs.Status(err)})
		return
	}

	edges := make([]graphview.Edge, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		d, err := view.Edge(path[i], path[i+1])
		if err != nil {
			writeJSON(w, map[string]any{"status": errs.Status(err)})
			return
		}
		edges = append(edges, graphview.Edge{U: path[i], V: path[i+1], Data: d})
	}

	body, err := res.def.ShortestPath(view, "Ok", *origin, *destination, path, totalCost, edges)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, body)
}

// HandleShortestPathTree serves GET /shortest_path_tree/<id>.json.
func (h *Handlers) HandleShortestPathTree(w http.ResponseWriter, r *http.Request) {
	h.handleBudgetQuery(w, r, func(view graphview.View, origin projection.Node, cost routing.CostFunc, maxCost float64, def profile.Definition) (map[string]any, error) {
		tree, err := routing.TreeSearch(view, origin.ID, cost, maxCost)
		if err != nil {
			return map[string]any{"status": errs.Status(err)}, nil
		}
		return def.ShortestPathTree(view, "Ok", origin, tree)
	})
}

// HandleReachableTree serves GET /reachable_tree/<id>.json.
func (h *Handlers) HandleReachableTree(w http.ResponseWriter, r *http.Request) {
	h.handleBudgetQuery(w, r, func(view graphview.View, origin projection.Node, cost routing.CostFunc, maxCost float64, def profile.Definition) (map[string]any, error) {
		result, err := routing.Reachable(view, origin.ID, cost, maxCost)
		if err != nil {
			return map[string]any{"status": errs.Status(err)}, nil
		}
		return def.ReachableTree(view, "Ok", origin, result)
	})
}

func (h *Handlers) handleBudgetQuery(w http.ResponseWriter, r *http.Request, run func(graphview.View, projection.Node, routing.CostFunc, float64, profile.Definition) (map[string]any, error)) {
	profileID, ok := jsonPathParam(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_profile", "id")
		return
	}

	q := r.URL.Query()
	lon, err1 := floatParam(q, "lon")
	lat, err2 := floatParam(q, "lat")
	maxCost, err3 := floatParam(q, "max_cost")
	if err1 != nil || err2 != nil || err3 != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "lon,lat,max_cost")
		return
	}

	res, err := h.resolve(profileID, q)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_profile", "id")
		return
	}

	origin, err := h.projectWaypoint(lon, lat, projection.Origin, res.cost)
	if err != nil {
		writeJSON(w, map[string]any{"status": errs.Status(err)})
		return
	}

	view := augmented.Prepare(h.view, *origin)

	body, err := run(view, *origin, res.cost, maxCost, res.def)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, body)
}

// projectWaypoint runs projection.Candidates + ChooseCandidate for a single
// query point, grounded on the original's waypoint_candidates/
// choose_candidate call sequence in server/views/shortest_paths.py.
func (h *Handlers) projectWaypoint(lon, lat float64, ctx projection.Context, cost routing.CostFunc) (*projection.Node, error) {
	// Origin and destination get distinct pseudo-node ids, so that their
	// overlays don't collide when stacked by HandleShortestPath.
	nodeID := "-1"
	if ctx == projection.Destination {
		nodeID = "-2"
	}
	candidates, err := projection.Candidates(h.view, lon, lat, defaultCandidateCount, h.radius, invertKeys, nil, nodeID)
	if err != nil {
		return nil, err
	}
	filter := func(u, v string, d graphview.Attrs) bool {
		_, ok := cost(u, v, d)
		return ok
	}
	return projection.ChooseCandidate(h.view, candidates, ctx, filter)
}

// HandleHealth serves GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}

// HandleStats serves GET /stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	numNodes, err := h.store.NodeCount()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	numEdges, err := h.store.Size()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, StatsResponse{NumNodes: numNodes, NumEdges: numEdges})
}

func jsonPathParam(r *http.Request, name string) (string, bool) {
	v := r.PathValue(name)
	if !strings.HasSuffix(v, ".json") {
		return "", false
	}
	return strings.TrimSuffix(v, ".json"), true
}

func floatParam(q map[string][]string, name string) (float64, error) {
	v, ok := q[name]
	if !ok || len(v) == 0 {
		return 0, fmt.Errorf("missing %s", name)
	}
	return strconv.ParseFloat(v[0], 64)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}
