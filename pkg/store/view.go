package store

import "github.com/azybler/unweaver/pkg/graphview"

// View wraps a Store behind the read-only graphview.View interface, for
// callers (query serving, routing) that should only ever see Store's read
// path. *Store already implements every View method; View exists so a
// query-serving goroutine can hold a value whose static type has no write
// methods at all, rather than relying on interface-narrowing discipline.
type View struct {
	store *Store
}

// NewView returns a read-only view over store.
func NewView(store *Store) *View {
	return &View{store: store}
}

var _ graphview.View = (*View)(nil)

func (v *View) Node(key string) (graphview.Attrs, error) { return v.store.Node(key) }

func (v *View) Successors(u string) (map[string]graphview.Attrs, error) {
	return v.store.Successors(u)
}

func (v *View) Predecessors(u string) (map[string]graphview.Attrs, error) {
	return v.store.Predecessors(u)
}

func (v *View) Edge(u, vv string) (graphview.Attrs, error) { return v.store.Edge(u, vv) }

func (v *View) EdgesDWithin(lon, lat, r float64, sort bool) ([]graphview.Edge, error) {
	return v.store.EdgesDWithin(lon, lat, r, sort)
}
