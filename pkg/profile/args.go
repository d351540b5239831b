package profile

import (
	"fmt"
	"strconv"
)

// ParseArgs type-converts a query string's raw values according to specs,
// producing the map a Registry cost-function builder expects. Unknown spec
// types are rejected; a name absent from raw is simply omitted (builders
// supply their own defaults).
func ParseArgs(specs []ArgSpec, raw map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(specs))
	for _, spec := range specs {
		v, ok := raw[spec.Name]
		if !ok {
			continue
		}
		parsed, err := parseTyped(spec.Type, v)
		if err != nil {
			return nil, fmt.Errorf("profile: arg %q: %w", spec.Name, err)
		}
		out[spec.Name] = parsed
	}
	return out, nil
}

func parseTyped(typ, raw string) (any, error) {
	switch typ {
	case "float":
		return strconv.ParseFloat(raw, 64)
	case "int":
		n, err := strconv.ParseInt(raw, 10, 64)
		return n, err
	case "bool":
		return strconv.ParseBool(raw)
	case "str", "":
		return raw, nil
	default:
		return nil, fmt.Errorf("unrecognized arg type %q", typ)
	}
}

// floatArg reads a float64 argument out of a parsed args map, falling back
// to def if absent or of the wrong type.
func floatArg(args map[string]any, name string, def float64) float64 {
	v, ok := args[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return def
}

// boolArg reads a bool argument out of a parsed args map, falling back to
// def if absent or of the wrong type.
func boolArg(args map[string]any, name string, def bool) bool {
	v, ok := args[name]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}
