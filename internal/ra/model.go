package ra

import (
	"sort"
	"strings"
)

// Model is a factorization hypothesis: a canonically ordered set of
// relations. Immutable once constructed.
type Model struct {
	relations []*Relation
}

// NewModel canonicalizes: relations are sorted lexicographically by their
// variable-index sequence and exact duplicates are removed.
func NewModel(relations []*Relation) *Model {
	rels := make([]*Relation, len(relations))
	copy(rels, relations)
	sort.SliceStable(rels, func(i, j int) bool { return rels[i].Compare(rels[j]) < 0 })
	out := rels[:0]
	for i, r := range rels {
		if i == 0 || !r.Equal(rels[i-1]) {
			out = append(out, r)
		}
	}
	return &Model{relations: out}
}

func (m *Model) Relations() []*Relation { return m.relations }
func (m *Model) Size() int              { return len(m.relations) }

// SimplifyRelations drops every relation that is a proper subset of another.
// Equal relations are NOT proper subsets of each other, so identical
// duplicates all survive; callers relying on that are tested explicitly.
func SimplifyRelations(rels []*Relation) []*Relation {
	var out []*Relation
	for i, r := range rels {
		proper := false
		for j, o := range rels {
			if i == j {
				continue
			}
			if r.IsProperSubsetOf(o) {
				proper = true
				break
			}
		}
		if !proper {
			out = append(out, r)
		}
	}
	return out
}

// Simplify returns the model with proper-subset relations removed.
func (m *Model) Simplify() *Model {
	kept := SimplifyRelations(m.relations)
	if len(kept) == len(m.relations) {
		return m
	}
	sorted := make([]*Relation, len(kept))
	copy(sorted, kept)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Compare(sorted[j]) < 0 })
	return &Model{relations: sorted}
}

// PrintName joins relation names with ':', e.g. "AB:BC".
func (m *Model) PrintName(vl *VariableList) string {
	if len(m.relations) == 0 {
		return ""
	}
	parts := make([]string, len(m.relations))
	for i, r := range m.relations {
		parts[i] = r.PrintName(vl)
	}
	return strings.Join(parts, ":")
}

// ContainsDependent reports whether at least one relation contains a
// dependent variable.
func (m *Model) ContainsDependent(vl *VariableList) bool {
	for _, r := range m.relations {
		if r.ContainsDependent(vl) {
			return true
		}
	}
	return false
}

// CoveredVariables is the union of all relation members, sorted.
func (m *Model) CoveredVariables() []VariableIndex {
	seen := map[VariableIndex]bool{}
	var out []VariableIndex
	for _, r := range m.relations {
		for _, v := range r.vars {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CoversAll reports whether every variable of the list appears in some
// relation.
func (m *Model) CoversAll(vl *VariableList) bool {
	return len(m.CoveredVariables()) == vl.Len()
}

// HasLoops is the decomposability test: a model has loops exactly when its
// junction graph admits no running-intersection spanning forest.
func (m *Model) HasLoops(vl *VariableList) bool {
	return !BuildJunctionTree(m, vl).Valid
}

// ContainsRelation reports whether an equal relation is present.
func (m *Model) ContainsRelation(r *Relation) bool {
	for _, o := range m.relations {
		if o.Equal(r) {
			return true
		}
	}
	return false
}

// BottomReferenceModel is full independence for a neutral system; for a
// directed system it joins all IVs into one relation and leaves the DVs in
// a second one.
func BottomReferenceModel(vl *VariableList) *Model {
	if vl.IsDirected() {
		return NewModel([]*Relation{
			NewRelation(vl.IndependentIndices()),
			NewRelation(vl.DependentIndices()),
		})
	}
	rels := make([]*Relation, vl.Len())
	for i := range rels {
		rels[i] = NewRelation([]VariableIndex{VariableIndex(i)})
	}
	return NewModel(rels)
}

// TopReferenceModel is the saturated model: one relation over everything.
func TopReferenceModel(vl *VariableList) *Model {
	return NewModel([]*Relation{NewRelation(vl.AllIndices())})
}
