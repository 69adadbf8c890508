package solver

import (
	"math"
	"sort"

	"github.com/kilianp07/districtopt/core/program"
)

// pivotTol is the magnitude below which an eliminated coefficient vanishes.
const pivotTol = 1e-9

type sparseRow struct {
	coefs map[int]float64
	rhs   float64
	pivot int
}

// independentRows drops equality rows that are linear combinations of
// earlier ones. It reports false when a dependent row contradicts them.
// Elimination keeps the basis in echelon order: a basis row never contains
// the pivot of an earlier one.
func independentRows(rows []program.Row) ([]program.Row, bool) {
	var basis []*sparseRow
	kept := make([]program.Row, 0, len(rows))
	for _, r := range rows {
		cur := &sparseRow{coefs: make(map[int]float64, len(r.Cols)), rhs: r.RHS}
		scale := 0.0
		for i, c := range r.Cols {
			cur.coefs[c] += r.Coefs[i]
			scale = math.Max(scale, math.Abs(r.Coefs[i]))
		}
		for _, b := range basis {
			v, ok := cur.coefs[b.pivot]
			if !ok {
				continue
			}
			f := v / b.coefs[b.pivot]
			for c, bv := range b.coefs {
				nv := cur.coefs[c] - f*bv
				if math.Abs(nv) <= pivotTol*math.Max(scale, 1) {
					delete(cur.coefs, c)
				} else {
					cur.coefs[c] = nv
				}
			}
			delete(cur.coefs, b.pivot)
			cur.rhs -= f * b.rhs
		}
		if len(cur.coefs) == 0 {
			if math.Abs(cur.rhs) > program.Eps*math.Max(math.Abs(r.RHS), 1)*1e3 {
				return nil, false
			}
			continue
		}
		cur.pivot = largest(cur.coefs)
		basis = append(basis, cur)
		kept = append(kept, r)
	}
	return kept, true
}

// largest returns the column with the largest magnitude, lowest index first
// on ties so that elimination is deterministic.
func largest(coefs map[int]float64) int {
	cols := make([]int, 0, len(coefs))
	for c := range coefs {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	best, bestV := cols[0], 0.0
	for _, c := range cols {
		if v := math.Abs(coefs[c]); v > bestV {
			best, bestV = c, v
		}
	}
	return best
}
