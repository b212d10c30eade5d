package ra

import (
	"math"
	"testing"
)

func TestChiSquaredPValue(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		df   float64
		want float64
		tol  float64
	}{
		{"df1 critical 5%", 3.841, 1, 0.05, 1e-3},
		{"df2 critical 5%", 5.991, 2, 0.05, 1e-3},
		{"df5 at mean", 5, 5, 0.4159, 1e-3},
		{"df10 far tail", 50, 10, 2.67e-7, 1e-8},
		{"zero statistic", 0, 3, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChiSquaredPValue(tt.x, tt.df); !approxEq(got, tt.want, tt.tol) {
				t.Errorf("ChiSquaredPValue(%v, %v) = %v, want %v", tt.x, tt.df, got, tt.want)
			}
		})
	}
}

func TestChiSquaredCriticalInvertsPValue(t *testing.T) {
	for _, df := range []float64{1, 2, 5, 10} {
		for _, alpha := range []float64{0.1, 0.05, 0.01} {
			crit := ChiSquaredCritical(df, alpha)
			if got := ChiSquaredPValue(crit, df); !approxEq(got, alpha, 1e-9) {
				t.Errorf("df=%v alpha=%v: pvalue(critical) = %v", df, alpha, got)
			}
		}
	}
}

func TestNoncentralChiSquaredCDF(t *testing.T) {
	// published reference value
	if got := NoncentralChiSquaredCDF(20, 5, 10); !approxEq(got, 0.7811, 0.01) {
		t.Errorf("P(X <= 20 | df=5, lambda=10) = %v, want 0.7811 within 0.01", got)
	}
	// lambda -> 0 degenerates to the central distribution
	if got, want := NoncentralChiSquaredCDF(5, 5, 0), ChiSquaredCDF(5, 5); !approxEq(got, want, 1e-12) {
		t.Errorf("lambda=0: %v vs central %v", got, want)
	}
	// monotone in x
	if NoncentralChiSquaredCDF(10, 5, 10) >= NoncentralChiSquaredCDF(30, 5, 10) {
		t.Error("CDF must be increasing in x")
	}
	// larger noncentrality shifts mass right
	if NoncentralChiSquaredCDF(20, 5, 10) <= NoncentralChiSquaredCDF(20, 5, 30) {
		t.Error("CDF must decrease in lambda at fixed x")
	}
}

func TestComputePower(t *testing.T) {
	// at lambda = 0 the power equals the significance level
	if got := ComputePower(5, 0, 0.05); !approxEq(got, 0.05, 1e-9) {
		t.Errorf("power at lambda=0 = %v, want alpha", got)
	}
	// power grows with the noncentrality
	p1 := ComputePower(5, 5, 0.05)
	p2 := ComputePower(5, 20, 0.05)
	if !(p2 > p1 && p1 > 0.05) {
		t.Errorf("power not monotone: %v, %v", p1, p2)
	}
	if p2 <= 0.9 {
		t.Errorf("power at lambda=20 df=5 should be large, got %v", p2)
	}
}

func TestModelDegreesOfFreedom(t *testing.T) {
	vl := fourVarList(t) // A:3 B:2 C:2 D:2
	tests := []struct {
		spec string
		want float64
	}{
		// independence: sum of (c-1)
		{"A:B:C:D", 2 + 1 + 1 + 1},
		// saturated: product - 1
		{"ABCD", 23},
		// chain: DF(AB) + DF(BC) - DF(B)
		{"AB:BC", 5 + 3 - 1},
		// disjoint pair: DF(AC) + DF(BD)
		{"AC:BD", 5 + 3},
		{"A:C:BD", 2 + 1 + 3},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			m := mustModel(t, vl, tt.spec)
			if got := ModelDegreesOfFreedom(m, vl); !approxEq(got, tt.want, 1e-9) {
				t.Errorf("DF(%s) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}

	// DF(top) - DF(bottom) = state_space - 1 - sum(c-1)
	top := ModelDegreesOfFreedom(TopReferenceModel(vl), vl)
	bottom := ModelDegreesOfFreedom(BottomReferenceModel(vl), vl)
	want := float64(vl.StateSpace() - 1 - (2 + 1 + 1 + 1))
	if !approxEq(top-bottom, want, 1e-9) {
		t.Errorf("DF(top)-DF(bottom) = %v, want %v", top-bottom, want)
	}

	if got := ModelDegreesOfFreedom(NewModel(nil), vl); got != 0 {
		t.Errorf("empty model DF = %v, want 0", got)
	}
}

func TestModelDFManyRelations(t *testing.T) {
	// all 28 pairwise relations over 8 binary variables; inclusion-exclusion
	// must count 8 main effects plus 28 interaction terms = 36
	vl := NewVariableList()
	for i := 0; i < 8; i++ {
		ab := string(rune('A' + i))
		if _, err := vl.Add(ab, ab, 2, false); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	vl.Freeze()
	var rels []*Relation
	for i := 0; i < 8; i++ {
		for j := i + 1; j < 8; j++ {
			rels = append(rels, NewRelation([]VariableIndex{VariableIndex(i), VariableIndex(j)}))
		}
	}
	m := NewModel(rels)
	if m.Size() != 28 {
		t.Fatalf("model has %d relations, want 28", m.Size())
	}
	if got := ModelDegreesOfFreedom(m, vl); !approxEq(got, 36, 1e-9) {
		t.Errorf("DF(all pairs over 8 binary) = %v, want 36", got)
	}
}

func TestCardinalityOneContributesNothing(t *testing.T) {
	vl := NewVariableList()
	for _, s := range []struct {
		ab   string
		card int
	}{{"A", 2}, {"K", 1}} {
		if _, err := vl.Add(s.ab, s.ab, s.card, false); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	vl.Freeze()
	bottom := BottomReferenceModel(vl)
	if got := ModelDegreesOfFreedom(bottom, vl); !approxEq(got, 1, 1e-12) {
		t.Errorf("independence DF with a cardinality-1 variable = %v, want 1", got)
	}
}

func TestEntropyAndLR(t *testing.T) {
	vl := fourVarList(t)
	tb := NewTable(vl.KeySize())
	// uniform over A's three values
	for a := 0; a < 3; a++ {
		k := NewKey(vl.KeySize())
		k.SetValue(vl, 0, a)
		tb.Add(k, 1.0/3)
	}
	tb.Sort()
	if got := Entropy(tb); !approxEq(got, math.Log2(3), 1e-12) {
		t.Errorf("uniform-3 entropy = %v, want log2(3)", got)
	}

	// zero cells are skipped
	tb.SetValue(2, 0)
	if got := Entropy(tb); math.IsNaN(got) || math.IsInf(got, 0) {
		t.Errorf("entropy with zero cells = %v", got)
	}

	if got := LikelihoodRatio(1000, 2.5, 2.5); got != 0 {
		t.Errorf("LR at equal entropies = %v, want 0", got)
	}
	lr := LikelihoodRatio(1000, 2.6, 2.5)
	want := 2 * 1000 * math.Ln2 * 0.1
	if !approxEq(lr, want, 1e-9) {
		t.Errorf("LR = %v, want %v", lr, want)
	}
}

func TestUncertaintyCoefficient(t *testing.T) {
	if got := UncertaintyCoefficient(2, 1); !approxEq(got, 0.5, 1e-12) {
		t.Errorf("UncertaintyCoefficient(2,1) = %v, want 0.5", got)
	}
	if got := UncertaintyCoefficient(0, 0); got != 0 {
		t.Errorf("zero reference entropy should yield 0, got %v", got)
	}
}
