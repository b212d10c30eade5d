package metrics

import (
	"math"

	"github.com/rawblock/ra-engine/internal/ra"
)

// Divergence metrics between two fitted distributions over the same
// variable list. Used by the crosscheck runner to quantify BP-vs-IPF
// disagreement and exposed for general model comparison.

// KLDivergence computes D(p || q) in bits over the union of populated
// states. Cells where p = 0 contribute nothing; a cell with p > 0 and
// q = 0 makes the divergence infinite.
func KLDivergence(p, q *ra.Table, vl *ra.VariableList) float64 {
	var d float64
	for i := 0; i < p.Len(); i++ {
		pv := p.At(i).Value
		if pv <= 0 {
			continue
		}
		qv := q.ValueOf(p.At(i).Key)
		if qv <= 0 {
			return math.Inf(1)
		}
		d += pv * math.Log2(pv/qv)
	}
	return d
}

// JensenShannon is the symmetrized, bounded divergence:
// JS(p, q) = (D(p||m) + D(q||m)) / 2 with m the midpoint mixture.
// Always finite and within [0, 1] bit.
func JensenShannon(p, q *ra.Table, vl *ra.VariableList) float64 {
	mid := func(k ra.Key) float64 {
		return (p.ValueOf(k) + q.ValueOf(k)) / 2
	}
	half := func(t *ra.Table) float64 {
		var d float64
		for i := 0; i < t.Len(); i++ {
			tv := t.At(i).Value
			if tv <= 0 {
				continue
			}
			m := mid(t.At(i).Key)
			if m > 0 {
				d += tv * math.Log2(tv/m)
			}
		}
		return d
	}
	return (half(p) + half(q)) / 2
}

// MaxCellDelta is the largest absolute per-state probability gap, taken
// over the populated states of both tables.
func MaxCellDelta(p, q *ra.Table, vl *ra.VariableList) float64 {
	var worst float64
	scan := func(a, b *ra.Table) {
		for i := 0; i < a.Len(); i++ {
			d := math.Abs(a.At(i).Value - b.ValueOf(a.At(i).Key))
			if d > worst {
				worst = d
			}
		}
	}
	scan(p, q)
	scan(q, p)
	return worst
}

// VariationOfInformation is the information distance between the two
// distributions, computed as twice their Jensen-Shannon divergence, so it
// lies in [0, 2] bits. For identical distributions VI is 0.
func VariationOfInformation(p, q *ra.Table, vl *ra.VariableList) float64 {
	js := JensenShannon(p, q, vl)
	// JS is the mutual information of the equal-weight mixture channel;
	// doubling it gives the symmetric information distance
	return 2 * js
}
