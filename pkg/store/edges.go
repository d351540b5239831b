package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/azybler/unweaver/pkg/errs"
	"github.com/azybler/unweaver/pkg/graphview"
)

// EdgeTuple is a directed (u, v, attrs) edge as produced by a graph builder
// or profile precomputation.
type EdgeTuple struct {
	U, V string
	Data graphview.Attrs
}

// AddEdges idempotently upserts edges keyed by (u, v), extending the edge
// schema with columns for any new attribute keys seen in Data (spec.md
// 4.2). It also upserts the two endpoint nodes. batch rows are committed
// together; on failure mid-batch the transaction is rolled back.
func (s *Store) AddEdges(edges []EdgeTuple, batch int) error {
	if batch <= 0 {
		batch = 1000
	}

	for start := 0; start < len(edges); start += batch {
		end := min(start+batch, len(edges))
		if err := s.addEdgeBatch(edges[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) addEdgeBatch(batch []EdgeTuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureColumns(batch); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin batch: %w", err)
	}
	defer tx.Rollback()

	nodeStmt, err := tx.Prepare(`INSERT INTO nodes (id, lon, lat) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET lon = excluded.lon, lat = excluded.lat`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()

	for _, e := range batch {
		ls, ok := e.Data.LineString()
		if !ok || len(ls) == 0 {
			return fmt.Errorf("store: edge (%s,%s) missing LineString geometry", e.U, e.V)
		}

		if err := s.upsertNode(nodeStmt, e.U, ls[0]); err != nil {
			return err
		}
		if err := s.upsertNode(nodeStmt, e.V, ls[len(ls)-1]); err != nil {
			return err
		}

		if err := s.upsertEdge(tx, e); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit batch: %w", err)
	}

	for _, e := range batch {
		ls, _ := e.Data.LineString()
		minX, minY, maxX, maxY := geomLineString{ls}.bound()
		s.index.Insert([2]float64{minX, minY}, [2]float64{maxX, maxY}, edgeKey{e.U, e.V})
		if s.hasRTree {
			if err := s.upsertRTreeRow(e.U, e.V, minX, minY, maxX, maxY); err != nil {
				return err
			}
		}
	}

	return nil
}

// upsertRTreeRow writes the edges_rtree sidecar row for (u, v), replacing
// any placeholder row the absent insert trigger would otherwise have left
// behind (see installRTreeTriggers).
func (s *Store) upsertRTreeRow(u, v string, minX, minY, maxX, maxY float64) error {
	var rowid int64
	if err := s.db.QueryRow(`SELECT rowid FROM edges WHERE u = ? AND v = ?`, u, v).Scan(&rowid); err != nil {
		return fmt.Errorf("store: rtree rowid lookup (%s,%s): %w", u, v, err)
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO edges_rtree (id, minX, maxX, minY, maxY) VALUES (?, ?, ?, ?, ?)`,
		rowid, minX, maxX, minY, maxY,
	)
	return err
}

func (s *Store) upsertNode(stmt *sql.Stmt, id string, p orb.Point) error {
	_, err := stmt.Exec(id, p[0], p[1])
	return err
}

func (s *Store) upsertEdge(tx *sql.Tx, e EdgeTuple) error {
	cols := []string{"u", "v", "geom"}
	geom, _ := e.Data.Geometry()
	blob, err := encodeGeometry(geom)
	if err != nil {
		return err
	}
	vals := []any{e.U, e.V, blob}

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k == graphview.GeomKey {
			continue
		}
		keys = append(keys, k)
	}

	for _, k := range keys {
		cols = append(cols, k)
		vals = append(vals, e.Data[k])
	}

	placeholders := strings.Repeat("?,", len(cols))
	placeholders = placeholders[:len(placeholders)-1]

	updateSet := make([]string, 0, len(cols)-2)
	for _, c := range cols[2:] {
		updateSet = append(updateSet, fmt.Sprintf("%s = excluded.%s", quoteIdent(c), quoteIdent(c)))
	}
	updateClause := "geom = excluded.geom"
	if len(updateSet) > 0 {
		updateClause += ", " + strings.Join(updateSet, ", ")
	}

	quotedCols := make([]string, len(cols))
	for i, c := range cols {
		quotedCols[i] = quoteIdent(c)
	}

	q := fmt.Sprintf(
		`INSERT INTO edges (%s) VALUES (%s) ON CONFLICT(u, v) DO UPDATE SET %s`,
		strings.Join(quotedCols, ", "), placeholders, updateClause,
	)
	_, err = tx.Exec(q, vals...)
	return err
}

// ensureColumns ALTERs the edges table to add any attribute keys seen for
// the first time in this batch, inferring INTEGER/REAL/TEXT affinity from
// the first observed value, a nil first value giving REAL (spec.md 9). Once
// inferred, a column's type never changes even if later observations are nil.
func (s *Store) ensureColumns(batch []EdgeTuple) error {
	for _, e := range batch {
		for k, v := range e.Data {
			if k == graphview.GeomKey || reservedEdgeColumns[k] {
				continue
			}
			if _, known := s.columns[k]; known {
				continue
			}
			ct := inferColType(v)
			if _, err := s.db.Exec(fmt.Sprintf(`ALTER TABLE edges ADD COLUMN %s %s`, quoteIdent(k), ct.sqlType())); err != nil {
				return fmt.Errorf("store: add column %s: %w", k, err)
			}
			s.columns[k] = ct
		}
	}
	return nil
}

func inferColType(v any) colType {
	switch v.(type) {
	case int, int32, int64:
		return colInteger
	case string:
		return colText
	case nil:
		// No type information available yet; default to REAL per the
		// documented GeoPackage workaround this store follows (a
		// precomputed weight's first value may be null = infinite cost).
		return colReal
	default:
		return colReal
	}
}

// GetEdge returns a single edge's attributes.
func (s *Store) GetEdge(u, v string) (graphview.Attrs, error) {
	cols, err := s.selectCols()
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRow(fmt.Sprintf(`SELECT %s FROM edges WHERE u = ? AND v = ?`, cols), u, v)
	attrs, _, _, err := scanEdgeRow(row, s.columnNames())
	if err == sql.ErrNoRows {
		return nil, errs.ErrEdgeNotFound
	}
	return attrs, err
}

// Successors returns v -> attrs for all outgoing edges of u.
func (s *Store) Successors(u string) (map[string]graphview.Attrs, error) {
	return s.adjacency(`u = ?`, u)
}

// Predecessors returns u -> attrs for all incoming edges of v.
func (s *Store) Predecessors(v string) (map[string]graphview.Attrs, error) {
	return s.adjacencyBy(`v = ?`, v, true)
}

func (s *Store) adjacency(where string, arg string) (map[string]graphview.Attrs, error) {
	return s.adjacencyBy(where, arg, false)
}

// adjacencyBy runs the adjacency scan. byU selects predecessors (keyed by
// the *other* endpoint, u) rather than successors (keyed by v).
func (s *Store) adjacencyBy(where, arg string, byU bool) (map[string]graphview.Attrs, error) {
	cols, err := s.selectCols()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(fmt.Sprintf(`SELECT %s FROM edges WHERE %s`, cols, where), arg)
	if err != nil {
		return nil, fmt.Errorf("store: adjacency scan: %w", err)
	}
	defer rows.Close()

	out := map[string]graphview.Attrs{}
	names := s.columnNames()
	for rows.Next() {
		attrs, eu, ev, err := scanEdgeRow(rows, names)
		if err != nil {
			return nil, err
		}
		if byU {
			out[eu] = attrs
		} else {
			out[ev] = attrs
		}
	}
	return out, rows.Err()
}

// SuccessorNodes returns only the node ids of u's successors (fast path,
// avoids materializing attributes).
func (s *Store) SuccessorNodes(u string) ([]string, error) {
	return s.adjacencyNodes(`u = ?`, u, "v")
}

// PredecessorNodes returns only the node ids of v's predecessors.
func (s *Store) PredecessorNodes(v string) ([]string, error) {
	return s.adjacencyNodes(`v = ?`, v, "u")
}

func (s *Store) adjacencyNodes(where, arg, col string) ([]string, error) {
	rows, err := s.db.Query(fmt.Sprintf(`SELECT %s FROM edges WHERE %s`, col, where), arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// UniqueSuccessors returns the deduplicated set of u's successor node ids.
func (s *Store) UniqueSuccessors(u string) ([]string, error) {
	return dedup(s.adjacencyNodes(`u = ?`, u, "v"))
}

// UniquePredecessors returns the deduplicated set of v's predecessor node
// ids.
func (s *Store) UniquePredecessors(v string) ([]string, error) {
	return dedup(s.adjacencyNodes(`v = ?`, v, "u"))
}

func dedup(ids []string, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// Edges streams every (u, v, attrs) row, invoking fn for each. Iteration
// stops early if fn returns false or an error.
func (s *Store) Edges(fn func(u, v string, d graphview.Attrs) (bool, error)) error {
	cols, err := s.selectCols()
	if err != nil {
		return err
	}
	rows, err := s.db.Query(fmt.Sprintf(`SELECT %s FROM edges`, cols))
	if err != nil {
		return fmt.Errorf("store: edges scan: %w", err)
	}
	defer rows.Close()

	names := s.columnNames()
	for rows.Next() {
		attrs, u, v, err := scanEdgeRow(rows, names)
		if err != nil {
			return err
		}
		cont, err := fn(u, v, attrs)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return rows.Err()
}

// forEachEdgeRow is the minimal geometry-only scan used to (re)build the
// spatial index without materializing full attribute maps.
func (s *Store) forEachEdgeRow(fn func(u, v string, ls geomLineString) error) error {
	rows, err := s.db.Query(`SELECT u, v, geom FROM edges`)
	if err != nil {
		return fmt.Errorf("store: geometry scan: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u, v string
		var blob []byte
		if err := rows.Scan(&u, &v, &blob); err != nil {
			return err
		}
		ls, err := decodeLineString(blob)
		if err != nil {
			return err
		}
		if err := fn(u, v, geomLineString{ls}); err != nil {
			return err
		}
	}
	return rows.Err()
}

// UpdateEdges performs a batched partial update: unspecified columns are
// untouched, and specified columns with a nil value overwrite to NULL.
func (s *Store) UpdateEdges(edges []EdgeTuple, batch int) error {
	if batch <= 0 {
		batch = 1000
	}
	for start := 0; start < len(edges); start += batch {
		end := min(start+batch, len(edges))
		if err := s.updateEdgeBatch(edges[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) updateEdgeBatch(batch []EdgeTuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureColumns(batch); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range batch {
		if len(e.Data) == 0 {
			continue
		}
		sets := make([]string, 0, len(e.Data))
		vals := make([]any, 0, len(e.Data)+2)
		for k, v := range e.Data {
			sets = append(sets, fmt.Sprintf("%s = ?", quoteIdent(k)))
			vals = append(vals, v)
		}
		vals = append(vals, e.U, e.V)
		q := fmt.Sprintf(`UPDATE edges SET %s WHERE u = ? AND v = ?`, strings.Join(sets, ", "))
		if _, err := tx.Exec(q, vals...); err != nil {
			return fmt.Errorf("store: update edge (%s,%s): %w", e.U, e.V, err)
		}
	}

	return tx.Commit()
}

func (s *Store) selectCols() (string, error) {
	names := s.columnNames()
	quoted := make([]string, 0, len(names)+3)
	quoted = append(quoted, "u", "v", "geom")
	for _, n := range names {
		quoted = append(quoted, quoteIdent(n))
	}
	return strings.Join(quoted, ", "), nil
}

func (s *Store) columnNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.columns))
	for n := range s.columns {
		names = append(names, n)
	}
	return names
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEdgeRow scans a row produced by "SELECT u, v, geom, <dynamic...> FROM
// edges" into an attribute map.
func scanEdgeRow(row rowScanner, dynamicCols []string) (graphview.Attrs, string, string, error) {
	vals := make([]any, 3+len(dynamicCols))
	ptrs := make([]any, len(vals))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := row.Scan(ptrs...); err != nil {
		return nil, "", "", err
	}

	u, _ := vals[0].(string)
	v, _ := vals[1].(string)

	attrs := graphview.Attrs{}
	if blob, ok := vals[2].([]byte); ok {
		ls, err := decodeLineString(blob)
		if err != nil {
			return nil, "", "", err
		}
		if ls != nil {
			attrs[graphview.GeomKey] = ls
		}
	}

	for i, col := range dynamicCols {
		attrs[col] = normalizeSQLValue(vals[3+i])
	}

	return attrs, u, v, nil
}

func normalizeSQLValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
