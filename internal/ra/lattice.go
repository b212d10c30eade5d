package ra

import "sort"

// Neighbor generation over the model lattice. The three strategies share
// one shape; dispatch happens once per search level, so an interface over
// small stateless values is all that is needed.

type NeighborStrategy interface {
	Name() string
	// Neighbors produces the deduplicated neighbor models of m in the
	// manager's current direction, in deterministic canonical order.
	Neighbors(mgr *VBManager, m *Model) []*Model
}

// StrategyByName maps request strings to strategies; loopless is the
// default.
func StrategyByName(name string) NeighborStrategy {
	switch name {
	case "full":
		return FullStrategy{}
	case "disjoint":
		return DisjointStrategy{}
	default:
		return LooplessStrategy{}
	}
}

// collectCandidates canonicalizes, dedups by print name, drops the
// original model and anything violating directed-mode DV preservation,
// then orders by name for determinism.
func collectCandidates(mgr *VBManager, original *Model, raw []*Model) []*Model {
	vl := mgr.VarList()
	originalName := original.PrintName(vl)
	preserveDV := vl.IsDirected() && original.ContainsDependent(vl)
	seen := map[string]bool{}
	var out []*Model
	for _, cand := range raw {
		if cand.Size() == 0 {
			continue
		}
		cand = mgr.internModel(cand.Simplify())
		name := cand.PrintName(vl)
		if name == originalName || seen[name] {
			continue
		}
		if preserveDV && !cand.ContainsDependent(vl) {
			continue
		}
		seen[name] = true
		out = append(out, cand)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PrintName(vl) < out[j].PrintName(vl)
	})
	return out
}

// replaceRelations builds a model from rels minus the given indices plus
// the additions.
func replaceRelations(rels []*Relation, drop map[int]bool, add ...*Relation) *Model {
	var next []*Relation
	for i, r := range rels {
		if !drop[i] {
			next = append(next, r)
		}
	}
	next = append(next, add...)
	return NewModel(next)
}

// ascendingMoves: merge any two relations, or grow one relation by one
// absent variable.
func ascendingMoves(mgr *VBManager, m *Model) []*Model {
	rels := m.Relations()
	var out []*Model
	for i := 0; i < len(rels); i++ {
		for j := i + 1; j < len(rels); j++ {
			out = append(out, replaceRelations(rels, map[int]bool{i: true, j: true}, rels[i].Union(rels[j])))
		}
	}
	for i, r := range rels {
		for v := 0; v < mgr.VarList().Len(); v++ {
			vi := VariableIndex(v)
			if r.Contains(vi) {
				continue
			}
			grown := mgr.GetRelation(append(append([]VariableIndex{}, r.Variables()...), vi))
			out = append(out, replaceRelations(rels, map[int]bool{i: true}, grown))
		}
	}
	return out
}

// descendingMoves: shrink one relation by one variable, or split it into
// two halves.
func descendingMoves(mgr *VBManager, m *Model) []*Model {
	rels := m.Relations()
	var out []*Model
	for i, r := range rels {
		if r.Size() < 2 {
			continue
		}
		vars := r.Variables()
		for _, v := range vars {
			shrunk := mgr.GetRelation(NewRelation(vars).Difference(NewRelation([]VariableIndex{v})).Variables())
			out = append(out, replaceRelations(rels, map[int]bool{i: true}, shrunk))
		}
		half := r.Size() / 2
		left := mgr.GetRelation(vars[:half])
		right := mgr.GetRelation(vars[half:])
		out = append(out, replaceRelations(rels, map[int]bool{i: true}, left, right))
	}
	return out
}

// FullStrategy generates every structural neighbor with no loop filter.
// Used for completeness on small problems.
type FullStrategy struct{}

func (FullStrategy) Name() string { return "full" }

func (FullStrategy) Neighbors(mgr *VBManager, m *Model) []*Model {
	if mgr.Direction() == Descending {
		return collectCandidates(mgr, m, descendingMoves(mgr, m))
	}
	return collectCandidates(mgr, m, ascendingMoves(mgr, m))
}

// LooplessStrategy is the full construction filtered to decomposable
// candidates.
type LooplessStrategy struct{}

func (LooplessStrategy) Name() string { return "loopless" }

func (LooplessStrategy) Neighbors(mgr *VBManager, m *Model) []*Model {
	all := FullStrategy{}.Neighbors(mgr, m)
	var out []*Model
	for _, cand := range all {
		if !cand.HasLoops(mgr.VarList()) {
			out = append(out, cand)
		}
	}
	return out
}

// DisjointStrategy keeps every candidate a partition of its variables:
// ascending merges two relations, descending splits one into halves;
// neither introduces sharing.
type DisjointStrategy struct{}

func (DisjointStrategy) Name() string { return "disjoint" }

func (DisjointStrategy) Neighbors(mgr *VBManager, m *Model) []*Model {
	rels := m.Relations()
	var raw []*Model
	if mgr.Direction() == Descending {
		for i, r := range rels {
			if r.Size() < 2 {
				continue
			}
			vars := r.Variables()
			half := r.Size() / 2
			raw = append(raw, replaceRelations(rels, map[int]bool{i: true},
				mgr.GetRelation(vars[:half]), mgr.GetRelation(vars[half:])))
		}
	} else {
		for i := 0; i < len(rels); i++ {
			for j := i + 1; j < len(rels); j++ {
				raw = append(raw, replaceRelations(rels, map[int]bool{i: true, j: true}, rels[i].Union(rels[j])))
			}
		}
	}
	var disjoint []*Model
	for _, cand := range raw {
		if isDisjoint(cand) {
			disjoint = append(disjoint, cand)
		}
	}
	return collectCandidates(mgr, m, disjoint)
}

func isDisjoint(m *Model) bool {
	rels := m.Relations()
	for i := 0; i < len(rels); i++ {
		for j := i + 1; j < len(rels); j++ {
			if rels[i].Overlaps(rels[j]) {
				return false
			}
		}
	}
	return true
}

// LatticeEntry is one enumerated model with its distance from the bottom
// reference model.
type LatticeEntry struct {
	Model    *Model
	Level    int
	HasLoops bool
}

// EnumerateLattice runs an exhaustive BFS upward from the bottom reference
// model, bounded by maxModels. looplessOnly filters loop models from the
// output but still expands through them.
func EnumerateLattice(mgr *VBManager, maxModels int, looplessOnly bool) []LatticeEntry {
	vl := mgr.VarList()
	prev := mgr.Direction()
	mgr.SetDirection(Ascending)
	defer mgr.SetDirection(prev)

	bottom := mgr.BottomRefModel()
	visited := map[string]bool{bottom.PrintName(vl): true}
	frontier := []*Model{bottom}
	var out []LatticeEntry
	level := 0
	for len(frontier) > 0 {
		for _, m := range frontier {
			if looplessOnly && m.HasLoops(vl) {
				continue
			}
			out = append(out, LatticeEntry{Model: m, Level: level, HasLoops: m.HasLoops(vl)})
			if maxModels > 0 && len(out) >= maxModels {
				return out
			}
		}
		var next []*Model
		for _, m := range frontier {
			for _, n := range (FullStrategy{}).Neighbors(mgr, m) {
				name := n.PrintName(vl)
				if !visited[name] {
					visited[name] = true
					next = append(next, n)
				}
			}
		}
		frontier = next
		level++
	}
	return out
}
