package ra

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Chi-squared machinery for model significance and power. Central
// distribution functions come from gonum; the noncentral CDF is the
// standard Poisson-weighted mixture of central CDFs.

// ChiSquaredCDF is the central chi-squared CDF. Zero degrees of freedom is
// the point mass at the origin.
func ChiSquaredCDF(x, df float64) float64 {
	if x <= 0 {
		return 0
	}
	if df <= 0 {
		return 1
	}
	return distuv.ChiSquared{K: df}.CDF(x)
}

// ChiSquaredPValue is the upper-tail probability P(X >= x), the regularized
// upper incomplete gamma function of (df/2, x/2).
func ChiSquaredPValue(x, df float64) float64 {
	if x <= 0 {
		return 1
	}
	if df <= 0 {
		return 0
	}
	return distuv.ChiSquared{K: df}.Survival(x)
}

// ChiSquaredCritical returns the critical value at upper-tail level alpha.
func ChiSquaredCritical(df, alpha float64) float64 {
	if df <= 0 {
		return 0
	}
	return distuv.ChiSquared{K: df}.Quantile(1 - alpha)
}

// noncentralTailTolerance bounds the unaccounted Poisson weight when the
// mixture series is truncated.
const noncentralTailTolerance = 1e-12

// NoncentralChiSquaredCDF evaluates P(X <= x) for the noncentral
// chi-squared with df degrees of freedom and noncentrality lambda, as the
// Poisson(lambda/2)-weighted mixture of central CDFs with df+2j degrees.
// The series is truncated once the remaining Poisson tail is below an
// absolute tolerance.
func NoncentralChiSquaredCDF(x, df, lambda float64) float64 {
	if x <= 0 {
		return 0
	}
	if lambda <= 0 {
		return ChiSquaredCDF(x, df)
	}
	half := lambda / 2
	// log-space Poisson weights avoid overflow for large lambda
	logW := -half
	var sum, weightSeen float64
	for j := 0; ; j++ {
		if j > 0 {
			logW += math.Log(half) - math.Log(float64(j))
		}
		w := math.Exp(logW)
		weightSeen += w
		sum += w * ChiSquaredCDF(x, df+2*float64(j))
		if 1-weightSeen < noncentralTailTolerance && float64(j) > half {
			break
		}
		if j > 10000 {
			break
		}
	}
	return sum
}

// ComputePower is the probability of rejecting at level alpha when the true
// noncentrality is lambda: 1 - F_nc(critical(df, alpha)).
func ComputePower(df, lambda, alpha float64) float64 {
	if df <= 0 {
		return 0
	}
	crit := ChiSquaredCritical(df, alpha)
	return 1 - NoncentralChiSquaredCDF(crit, df, lambda)
}

// ModelDegreesOfFreedom computes DF(M) by inclusion-exclusion over the
// relation hypergraph: for every non-empty subset S of relations, the term
// (-1)^(|S|+1) * (NC(intersection) - 1). Subsets with an empty variable
// intersection contribute nothing, which is what makes the independence
// model come out as the sum of (c-1).
//
// The walk is depth-first over subsets in index order and prunes as soon
// as the running intersection goes empty: intersections only shrink, so
// every superset of a dead subset is dead too. The result is exact for any
// relation count; the cost is bounded by the number of relation subsets
// sharing at least one variable, which stays small unless many relations
// overlap on the same variables.
func ModelDegreesOfFreedom(m *Model, vl *VariableList) float64 {
	rels := m.Relations()
	if len(rels) == 0 {
		return 0
	}
	var df float64
	var walk func(start int, inter *Relation, size int)
	walk = func(start int, inter *Relation, size int) {
		for i := start; i < len(rels); i++ {
			next := rels[i]
			if inter != nil {
				next = inter.Intersect(rels[i])
				if next.Size() == 0 {
					continue
				}
			}
			term := float64(next.NC(vl) - 1)
			if (size+1)%2 == 1 {
				df += term
			} else {
				df -= term
			}
			walk(i+1, next, size+1)
		}
	}
	walk(0, nil, 0)
	return df
}
