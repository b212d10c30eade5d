package ra

import (
	"sort"
	"strconv"
	"strings"
)

// Relation is a hyperedge: a sorted set of variable indices. Two relations
// with the same variable set are equal regardless of construction order.
type Relation struct {
	vars []VariableIndex

	// built lazily, keyed to one variable list per engine instance
	mask Key

	// projection of the input table, attached by the manager
	projection *Table
}

// NewRelation builds a relation from any ordering of indices; duplicates are
// dropped and the set is kept sorted ascending.
func NewRelation(vars []VariableIndex) *Relation {
	sorted := make([]VariableIndex, len(vars))
	copy(sorted, vars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return &Relation{vars: out}
}

func (r *Relation) Variables() []VariableIndex { return r.vars }
func (r *Relation) Size() int                  { return len(r.vars) }

func (r *Relation) Contains(v VariableIndex) bool {
	i := sort.Search(len(r.vars), func(i int) bool { return r.vars[i] >= v })
	return i < len(r.vars) && r.vars[i] == v
}

// NC is the relation's state-space size, the product of member cardinalities.
func (r *Relation) NC(vl *VariableList) int {
	n := 1
	for _, v := range r.vars {
		n *= int(vl.Get(v).Card)
	}
	return n
}

// DegreesOfFreedom of the relation alone: NC - 1.
func (r *Relation) DegreesOfFreedom(vl *VariableList) int {
	return r.NC(vl) - 1
}

// Mask returns the projection mask: member slots set (kept), everything else
// zero, so ApplyMask wildcards the non-members.
func (r *Relation) Mask(vl *VariableList) Key {
	if r.mask == nil {
		m := make(Key, vl.KeySize())
		for _, v := range r.vars {
			vr := vl.Get(v)
			m[vr.Segment] |= vr.Mask
		}
		r.mask = m
	}
	return r.mask
}

// ContainsDependent reports whether any member is a dependent variable.
func (r *Relation) ContainsDependent(vl *VariableList) bool {
	for _, v := range r.vars {
		if vl.Get(v).IsDependent {
			return true
		}
	}
	return false
}

// IsIndependentOnly reports whether no member is dependent.
func (r *Relation) IsIndependentOnly(vl *VariableList) bool {
	return !r.ContainsDependent(vl)
}

// IsDependentOnly reports whether every member is dependent.
func (r *Relation) IsDependentOnly(vl *VariableList) bool {
	for _, v := range r.vars {
		if !vl.Get(v).IsDependent {
			return false
		}
	}
	return len(r.vars) > 0
}

func (r *Relation) Equal(o *Relation) bool {
	if len(r.vars) != len(o.vars) {
		return false
	}
	for i := range r.vars {
		if r.vars[i] != o.vars[i] {
			return false
		}
	}
	return true
}

// Compare orders relations lexicographically by variable-index sequence.
func (r *Relation) Compare(o *Relation) int {
	n := len(r.vars)
	if len(o.vars) < n {
		n = len(o.vars)
	}
	for i := 0; i < n; i++ {
		if r.vars[i] != o.vars[i] {
			if r.vars[i] < o.vars[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(r.vars) < len(o.vars):
		return -1
	case len(r.vars) > len(o.vars):
		return 1
	}
	return 0
}

// IsSubsetOf reports whether every member of r is also in o.
func (r *Relation) IsSubsetOf(o *Relation) bool {
	i, j := 0, 0
	for i < len(r.vars) && j < len(o.vars) {
		switch {
		case r.vars[i] == o.vars[j]:
			i++
			j++
		case r.vars[i] > o.vars[j]:
			j++
		default:
			return false
		}
	}
	return i == len(r.vars)
}

// IsProperSubsetOf is IsSubsetOf excluding equality.
func (r *Relation) IsProperSubsetOf(o *Relation) bool {
	return len(r.vars) < len(o.vars) && r.IsSubsetOf(o)
}

// SharedCount is the size of the intersection with o.
func (r *Relation) SharedCount(o *Relation) int {
	i, j, n := 0, 0, 0
	for i < len(r.vars) && j < len(o.vars) {
		switch {
		case r.vars[i] == o.vars[j]:
			n++
			i++
			j++
		case r.vars[i] < o.vars[j]:
			i++
		default:
			j++
		}
	}
	return n
}

// Overlaps reports whether the two relations share any variable.
func (r *Relation) Overlaps(o *Relation) bool { return r.SharedCount(o) > 0 }

func (r *Relation) Union(o *Relation) *Relation {
	return NewRelation(append(append([]VariableIndex{}, r.vars...), o.vars...))
}

func (r *Relation) Intersect(o *Relation) *Relation {
	var out []VariableIndex
	i, j := 0, 0
	for i < len(r.vars) && j < len(o.vars) {
		switch {
		case r.vars[i] == o.vars[j]:
			out = append(out, r.vars[i])
			i++
			j++
		case r.vars[i] < o.vars[j]:
			i++
		default:
			j++
		}
	}
	return &Relation{vars: out}
}

// Difference returns the members of r not in o.
func (r *Relation) Difference(o *Relation) *Relation {
	var out []VariableIndex
	for _, v := range r.vars {
		if !o.Contains(v) {
			out = append(out, v)
		}
	}
	return &Relation{vars: out}
}

// CacheKey is the canonical comma-joined index string used by the relation
// cache, equivalent to canonical ordering.
func (r *Relation) CacheKey() string {
	var b strings.Builder
	for i, v := range r.vars {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(v)))
	}
	return b.String()
}

// PrintName concatenates member abbreviations, e.g. "ABD".
func (r *Relation) PrintName(vl *VariableList) string {
	var b strings.Builder
	for _, v := range r.vars {
		b.WriteString(vl.Get(v).Abbrev)
	}
	return b.String()
}
