// Package errs collects the sentinel error kinds shared across the store,
// routing, and query-surface layers (spec.md 7).
package errs

import "errors"

// Build-time errors: abort the operation they occur in.
var (
	// ErrMissingLayers is returned when a build directory has no GeoJSON
	// input files.
	ErrMissingLayers = errors.New("no GeoJSON layers found")

	// ErrUnrecognizedFileFormat is returned when an input file can't be
	// parsed as GeoJSON.
	ErrUnrecognizedFileFormat = errors.New("unrecognized file format")

	// ErrUnderspecifiedGraph is returned when a store is opened without a
	// valid path or backing connection.
	ErrUnderspecifiedGraph = errors.New("underspecified graph: no path or store given")

	// ErrImmutableGraph is returned when a write is attempted against a
	// read-only view.
	ErrImmutableGraph = errors.New("graph view is immutable")
)

// Lookup-miss errors: surfaced to callers as "no candidate" at the
// projection layer, or reported in a query response.
var (
	ErrNodeNotFound = errors.New("node not found")
	ErrEdgeNotFound = errors.New("edge not found")
)

// Query-time errors: reported in the response envelope's status field, not
// fatal to the serving process.
var (
	ErrInvalidWaypoint = errors.New("no admissible projection for waypoint")
	ErrNoPath          = errors.New("no path found")
	ErrNoGraph         = errors.New("backing store unavailable")
)

// Status maps a query-time error to the response envelope's status string
// (spec.md 6). Unrecognized errors map to "" so callers can fall back to a
// generic 500.
func Status(err error) string {
	switch {
	case err == nil:
		return "Ok"
	case errors.Is(err, ErrInvalidWaypoint):
		return "InvalidWaypoint"
	case errors.Is(err, ErrNoPath):
		return "NoPath"
	case errors.Is(err, ErrNoGraph):
		return "NoGraph"
	default:
		return ""
	}
}
