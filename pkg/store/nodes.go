package store

import (
	"database/sql"

	"github.com/paulmach/orb"

	"github.com/azybler/unweaver/pkg/errs"
	"github.com/azybler/unweaver/pkg/graphview"
)

// Node returns a node's attributes: its Point geometry under
// graphview.GeomKey, plus "lon"/"lat" for callers that want the raw
// coordinates without a type assertion.
func (s *Store) Node(key string) (graphview.Attrs, error) {
	var lon, lat float64
	err := s.db.QueryRow(`SELECT lon, lat FROM nodes WHERE id = ?`, key).Scan(&lon, &lat)
	if err == sql.ErrNoRows {
		return nil, errs.ErrNodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return graphview.Attrs{
		graphview.GeomKey: orb.Point{lon, lat},
		"lon":             lon,
		"lat":             lat,
	}, nil
}

// Edge returns a single edge's attributes, satisfying graphview.View.
func (s *Store) Edge(u, v string) (graphview.Attrs, error) {
	return s.GetEdge(u, v)
}

// HasNode reports whether a node id exists.
func (s *Store) HasNode(key string) (bool, error) {
	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM nodes WHERE id = ? LIMIT 1`, key).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
