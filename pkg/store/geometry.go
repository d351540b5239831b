package store

import (
	"encoding/binary"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// Geometry blobs are a short header (spec.md 6): magic "GP", a version
// byte, an empty-flag byte, and a little-endian int32 SRID, followed by
// well-known-binary.
const (
	geomMagic   = "GP"
	geomVersion = byte(1)
	defaultSRID = int32(4326)
)

// geomLineString wraps a decoded edge geometry; bound computes its envelope
// for spatial-index insertion.
type geomLineString struct {
	ls orb.LineString
}

func (g geomLineString) bound() (minX, minY, maxX, maxY float64) {
	b := g.ls.Bound()
	return b.Min[0], b.Min[1], b.Max[0], b.Max[1]
}

// encodeGeometry serializes a geometry to the header+WKB blob format.
func encodeGeometry(g orb.Geometry) ([]byte, error) {
	header := make([]byte, 0, 8)
	header = append(header, geomMagic...)
	header = append(header, geomVersion)

	empty := byte(0)
	if g == nil {
		empty = 1
	}
	header = append(header, empty)

	sridBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(sridBytes, uint32(defaultSRID))
	header = append(header, sridBytes...)

	if g == nil {
		return header, nil
	}

	body, err := wkb.Marshal(g, binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("store: encode geometry: %w", err)
	}
	return append(header, body...), nil
}

// decodeGeometry parses a header+WKB blob back into an orb.Geometry. Returns
// nil, nil for the empty-flagged case.
func decodeGeometry(blob []byte) (orb.Geometry, error) {
	if len(blob) < 8 {
		return nil, fmt.Errorf("store: geometry blob too short (%d bytes)", len(blob))
	}
	if string(blob[:2]) != geomMagic {
		return nil, fmt.Errorf("store: bad geometry magic %q", blob[:2])
	}
	empty := blob[3]
	if empty != 0 {
		return nil, nil
	}

	geom, err := wkb.Unmarshal(blob[8:])
	if err != nil {
		return nil, fmt.Errorf("store: decode geometry: %w", err)
	}
	return geom, nil
}

func decodeLineString(blob []byte) (orb.LineString, error) {
	g, err := decodeGeometry(blob)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, nil
	}
	ls, ok := g.(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("store: expected LineString geometry, got %T", g)
	}
	return ls, nil
}

func decodePoint(blob []byte) (orb.Point, error) {
	g, err := decodeGeometry(blob)
	if err != nil {
		return orb.Point{}, err
	}
	p, ok := g.(orb.Point)
	if !ok {
		return orb.Point{}, fmt.Errorf("store: expected Point geometry, got %T", g)
	}
	return p, nil
}
