package profile

import (
	"fmt"

	"github.com/azybler/unweaver/pkg/graphview"
	"github.com/azybler/unweaver/pkg/routing"
	"github.com/azybler/unweaver/pkg/store"
)

// defaultBatchSize is the precompute write-back batch size (spec.md 4.10).
const defaultBatchSize = 1000

// Precompute iterates every edge in s, evaluates cost under def's cost
// function with def's static defaults, and writes the result to the
// reserved _weight_<profileID> column in batches of defaultBatchSize. A
// cost function that returns !ok stores a null weight ("infinite cost"),
// matching spec.md 4.10's "store under reserved column... or null". Returns
// the number of edges written. Grounded on the original's
// unweaver/weight.py (precalculate_weight/precalculate_weights).
func Precompute(s *store.Store, profileID string, def Definition, staticArgs map[string]any) (int, error) {
	cost := def.CostFunc(staticArgs)
	col := graphview.WeightColumn(profileID)

	var batch []store.EdgeTuple
	var total int

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.UpdateEdges(batch, defaultBatchSize); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	err := s.Edges(func(u, v string, d graphview.Attrs) (bool, error) {
		w, ok := cost(u, v, d)
		data := graphview.Attrs{}
		if ok {
			data[col] = w
		} else {
			data[col] = nil
		}
		// The store has a single connection, held by this scan until it
		// ends, so the (still batched) writes happen after it.
		batch = append(batch, store.EdgeTuple{U: u, V: v, Data: data})
		return true, nil
	})
	if err != nil {
		return total, fmt.Errorf("profile: precompute %s: %w", profileID, err)
	}
	if err := flush(); err != nil {
		return total, fmt.Errorf("profile: precompute %s: %w", profileID, err)
	}
	return total, nil
}

// CompileWeightColumn returns a routing.CostFunc that reads a precomputed
// static weight column instead of re-running a profile's dynamic cost
// function, per spec.md 4.6 ("the weight function is either (a) the
// dynamically computed per-profile cost or (b) a precomputed-column
// lookup"). Used by the query surface for profiles marked "precalculate".
func CompileWeightColumn(profileID string) routing.CostFunc {
	return func(u, v string, d graphview.Attrs) (float64, bool) {
		cost, present, null := d.Weight(profileID)
		if !present || null {
			return 0, false
		}
		return cost, true
	}
}
