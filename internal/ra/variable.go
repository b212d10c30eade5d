package ra

import (
	"fmt"
	"strings"
)

// Variable is one categorical dimension of the system. Immutable after
// registration; the packing fields (Segment, Shift, Mask) are assigned by
// the VariableList bit allocator and never change afterwards.
type Variable struct {
	Name        string
	Abbrev      string // Title-cased, used in model notation
	Card        Cardinality
	IsDependent bool

	BitSize int
	Segment SegmentIndex
	Shift   BitShift
	Mask    KeySegment // ones over the slot, in segment position
}

// VariableList is the ordered registry of variables plus the bit-packing
// cursor. Frozen once table construction starts.
type VariableList struct {
	vars     []Variable
	segments int
	curShift int // next free bit boundary in the current segment
	frozen   bool
}

func NewVariableList() *VariableList {
	return &VariableList{}
}

// foldAbbrev case-folds an abbreviation to Title-case so that lookups and
// print names are deterministic regardless of input casing.
func foldAbbrev(abbrev string) string {
	if abbrev == "" {
		return ""
	}
	return strings.ToUpper(abbrev[:1]) + strings.ToLower(abbrev[1:])
}

// Add registers a variable and assigns its bit slot. If the slot does not
// fit in the current segment's remaining bits a new segment is started at
// the top. Returns the new variable's index.
func (vl *VariableList) Add(name, abbrev string, card int, dependent bool) (VariableIndex, error) {
	if vl.frozen {
		return 0, fmt.Errorf("variable list is frozen, cannot add %q", name)
	}
	if card < 1 {
		return 0, fmt.Errorf("variable %q: cardinality must be >= 1, got %d", name, card)
	}
	abbrev = foldAbbrev(abbrev)
	if abbrev == "" {
		return 0, fmt.Errorf("variable %q: empty abbreviation", name)
	}
	for _, v := range vl.vars {
		if v.Abbrev == abbrev {
			return 0, fmt.Errorf("variable %q: abbreviation %q already registered", name, abbrev)
		}
	}

	v := Variable{
		Name:        name,
		Abbrev:      abbrev,
		Card:        Cardinality(card),
		IsDependent: dependent,
		BitSize:     bitSizeFor(Cardinality(card)),
	}
	if v.BitSize > SegmentBits {
		return 0, fmt.Errorf("variable %q: cardinality %d does not fit a %d-bit segment", name, card, SegmentBits)
	}

	if vl.segments == 0 || vl.curShift-v.BitSize < 0 {
		vl.segments++
		vl.curShift = SegmentBits
	}
	vl.curShift -= v.BitSize
	v.Segment = SegmentIndex(vl.segments - 1)
	v.Shift = BitShift(vl.curShift)
	v.Mask = DontCare(v.BitSize) << v.Shift

	vl.vars = append(vl.vars, v)
	return VariableIndex(len(vl.vars) - 1), nil
}

// Freeze marks the list immutable. Called by table builders before any key
// is constructed.
func (vl *VariableList) Freeze() { vl.frozen = true }

func (vl *VariableList) Len() int { return len(vl.vars) }

// KeySize is the number of segments a key over this list occupies.
func (vl *VariableList) KeySize() int { return vl.segments }

func (vl *VariableList) Get(i VariableIndex) *Variable { return &vl.vars[i] }

// IsDirected reports whether any variable is flagged dependent.
func (vl *VariableList) IsDirected() bool {
	for i := range vl.vars {
		if vl.vars[i].IsDependent {
			return true
		}
	}
	return false
}

// StateSpace is the product of all cardinalities.
func (vl *VariableList) StateSpace() int {
	n := 1
	for i := range vl.vars {
		n *= int(vl.vars[i].Card)
	}
	return n
}

// ByAbbrev looks up a variable by abbreviation, case-insensitively.
func (vl *VariableList) ByAbbrev(abbrev string) (VariableIndex, bool) {
	folded := foldAbbrev(abbrev)
	for i := range vl.vars {
		if vl.vars[i].Abbrev == folded {
			return VariableIndex(i), true
		}
	}
	return 0, false
}

// AllIndices returns 0..Len-1 in order.
func (vl *VariableList) AllIndices() []VariableIndex {
	out := make([]VariableIndex, len(vl.vars))
	for i := range out {
		out[i] = VariableIndex(i)
	}
	return out
}

// DependentIndices returns the indices of dependent variables in order.
func (vl *VariableList) DependentIndices() []VariableIndex {
	var out []VariableIndex
	for i := range vl.vars {
		if vl.vars[i].IsDependent {
			out = append(out, VariableIndex(i))
		}
	}
	return out
}

// IndependentIndices returns the indices of non-dependent variables in order.
func (vl *VariableList) IndependentIndices() []VariableIndex {
	var out []VariableIndex
	for i := range vl.vars {
		if !vl.vars[i].IsDependent {
			out = append(out, VariableIndex(i))
		}
	}
	return out
}

// EnumerateKeys visits every joint assignment of the given variables in
// odometer order (last variable fastest). Slots of variables not listed
// stay DontCare. The callback receives a fresh key each time.
func (vl *VariableList) EnumerateKeys(vars []VariableIndex, fn func(Key)) {
	if len(vars) == 0 {
		fn(NewKey(vl.KeySize()))
		return
	}
	values := make([]int, len(vars))
	for {
		k := NewKey(vl.KeySize())
		for i, v := range vars {
			k.SetValue(vl, v, values[i])
		}
		fn(k)
		// advance the odometer
		i := len(values) - 1
		for i >= 0 {
			values[i]++
			if values[i] < int(vl.vars[vars[i]].Card) {
				break
			}
			values[i] = 0
			i--
		}
		if i < 0 {
			return
		}
	}
}
