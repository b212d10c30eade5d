package ra

// Sum-product belief propagation on a junction tree. For a decomposable
// model this produces the exact maximum-entropy fit in two tree passes,
// where IPF would need to iterate.

// BPConfig controls the final normalization of clique potentials.
type BPConfig struct {
	Normalize bool
}

// BPResult holds the calibrated potentials after the collect and distribute
// passes. Converged is always true: BP on a valid junction tree is exact.
type BPResult struct {
	CliquePotentials    []*Table
	SeparatorPotentials []*Table
	Converged           bool

	tree    *JunctionTree
	varList *VariableList
}

// mulDivByMessage scales every tuple of psi by num/den evaluated at the
// tuple's projection onto the separator. A zero denominator yields zero:
// a vanished separator marginal implies a vanished numerator.
func mulDivByMessage(vl *VariableList, psi *Table, sep *Relation, num, den *Table) {
	mask := sep.Mask(vl)
	for i := 0; i < psi.Len(); i++ {
		k := psi.At(i).Key.ApplyMask(mask)
		dv := den.ValueOf(k)
		if dv == 0 {
			psi.SetValue(i, 0)
			continue
		}
		psi.SetValue(i, psi.At(i).Value*num.ValueOf(k)/dv)
	}
}

// RunBeliefPropagation calibrates the junction tree against the normalized
// input distribution p0. Clique potentials start at the input marginals and
// separator potentials at the input separator marginals, so the product
// form Π ψ / Π φ represents the decomposable fit from the start; the
// upward (collect) and downward (distribute) passes keep that product
// invariant while making every potential the fitted marginal over its
// variables.
func RunBeliefPropagation(p0 *Table, jt *JunctionTree, vl *VariableList, cfg BPConfig) *BPResult {
	n := len(jt.Cliques)
	res := &BPResult{
		CliquePotentials:    make([]*Table, n),
		SeparatorPotentials: make([]*Table, n),
		Converged:           true,
		tree:                jt,
		varList:             vl,
	}
	for i, c := range jt.Cliques {
		res.CliquePotentials[i] = p0.Project(vl, c)
		if jt.Separators[i] != nil {
			res.SeparatorPotentials[i] = p0.Project(vl, jt.Separators[i])
		}
	}

	// Collect: leaves push their separator marginal into the parent.
	for _, c := range jt.PostOrder {
		p := jt.Parent[c]
		if p < 0 {
			continue
		}
		sep := jt.Separators[c]
		mu := res.CliquePotentials[c].Project(vl, sep)
		mulDivByMessage(vl, res.CliquePotentials[p], sep, mu, res.SeparatorPotentials[c])
		res.SeparatorPotentials[c] = mu
	}

	// Distribute: parents push the updated marginal back down.
	for _, c := range jt.PreOrder {
		p := jt.Parent[c]
		if p < 0 {
			continue
		}
		sep := jt.Separators[c]
		mu := res.CliquePotentials[p].Project(vl, sep)
		mulDivByMessage(vl, res.CliquePotentials[c], sep, mu, res.SeparatorPotentials[c])
		res.SeparatorPotentials[c] = mu
	}

	if cfg.Normalize {
		for _, t := range res.CliquePotentials {
			t.Normalize()
		}
	}
	return res
}

// Joint expands the factorized fit over the full state space of the covered
// variables: the product of clique potentials divided by the product of
// separator potentials, with 0/0 = 0.
func (r *BPResult) Joint(m *Model) *Table {
	vl := r.varList
	jt := r.tree
	out := NewTable(vl.KeySize())
	covered := m.CoveredVariables()
	cliqueMasks := make([]Key, len(jt.Cliques))
	for i, c := range jt.Cliques {
		cliqueMasks[i] = c.Mask(vl)
	}
	vl.EnumerateKeys(covered, func(k Key) {
		val := 1.0
		for i := range jt.Cliques {
			val *= r.CliquePotentials[i].ValueOf(k.ApplyMask(cliqueMasks[i]))
			if val == 0 {
				return
			}
		}
		for i, sep := range jt.Separators {
			if sep == nil {
				continue
			}
			sv := r.SeparatorPotentials[i].ValueOf(k.ApplyMask(sep.Mask(vl)))
			if sv == 0 {
				return
			}
			val /= sv
		}
		out.Add(k, val)
	})
	out.Sort()
	return out
}

// Marginal answers P(v) from the smallest clique containing v.
func (r *BPResult) Marginal(v VariableIndex) *Table {
	i := r.tree.SmallestCliqueContaining(v)
	if i < 0 {
		return NewTable(r.varList.KeySize())
	}
	return r.CliquePotentials[i].Project(r.varList, NewRelation([]VariableIndex{v}))
}

// DecomposableEntropy is the closed-form entropy of a decomposable fit:
// the sum of clique entropies minus the sum of separator entropies, all
// computed directly from the input marginals.
func DecomposableEntropy(p0 *Table, jt *JunctionTree, vl *VariableList) float64 {
	var h float64
	for i, c := range jt.Cliques {
		h += Entropy(p0.Project(vl, c))
		if jt.Separators[i] != nil {
			h -= Entropy(p0.Project(vl, jt.Separators[i]))
		}
	}
	return h
}
