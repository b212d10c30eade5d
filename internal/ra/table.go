package ra

import "sort"

// Tuple is one populated state of a contingency table.
type Tuple struct {
	Key   Key
	Value float64
}

// Table is a sparse map from packed state keys to float counts or
// probabilities, kept sorted ascending by key for binary-search reads.
// Writers append with Add and must Sort (and usually SumInto) before any
// read access.
type Table struct {
	keySize int
	tuples  []Tuple
}

func NewTable(keySize int) *Table {
	return &Table{keySize: keySize}
}

func (t *Table) KeySize() int { return t.keySize }
func (t *Table) Len() int     { return len(t.tuples) }

// At returns the i-th tuple of a sorted table.
func (t *Table) At(i int) Tuple { return t.tuples[i] }

// SetValue overwrites the value at index i.
func (t *Table) SetValue(i int, v float64) { t.tuples[i].Value = v }

// Add appends a tuple. O(1) amortized; does not maintain sort order.
func (t *Table) Add(k Key, v float64) {
	t.tuples = append(t.tuples, Tuple{Key: k, Value: v})
}

// Sort stable-sorts the tuples by key.
func (t *Table) Sort() {
	sort.SliceStable(t.tuples, func(i, j int) bool {
		return t.tuples[i].Key.Compare(t.tuples[j].Key) < 0
	})
}

// SumInto collapses runs of equal keys by summing their values.
// Precondition: sorted.
func (t *Table) SumInto() {
	if len(t.tuples) < 2 {
		return
	}
	out := t.tuples[:1]
	for _, tp := range t.tuples[1:] {
		last := &out[len(out)-1]
		if tp.Key.Equal(last.Key) {
			last.Value += tp.Value
		} else {
			out = append(out, tp)
		}
	}
	t.tuples = out
}

// Sum returns the total of all values.
func (t *Table) Sum() float64 {
	var s float64
	for i := range t.tuples {
		s += t.tuples[i].Value
	}
	return s
}

// Normalize divides every value by the total and returns the total.
// A zero total is a no-op.
func (t *Table) Normalize() float64 {
	total := t.Sum()
	if total == 0 {
		return 0
	}
	for i := range t.tuples {
		t.tuples[i].Value /= total
	}
	return total
}

// Find locates a key in a sorted table via binary search.
func (t *Table) Find(k Key) (int, bool) {
	lo, hi := 0, len(t.tuples)
	for lo < hi {
		mid := (lo + hi) / 2
		if t.tuples[mid].Key.Compare(k) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(t.tuples) && t.tuples[lo].Key.Equal(k) {
		return lo, true
	}
	return 0, false
}

// ValueOf returns the value stored under k, or 0 when absent.
func (t *Table) ValueOf(k Key) float64 {
	if i, ok := t.Find(k); ok {
		return t.tuples[i].Value
	}
	return 0
}

// Project marginalizes the table onto the given relation: slots outside the
// relation become DontCare, equal projected keys are summed. Preserves the
// table total exactly (up to float64 rounding).
func (t *Table) Project(vl *VariableList, rel *Relation) *Table {
	mask := rel.Mask(vl)
	out := NewTable(t.keySize)
	for i := range t.tuples {
		out.Add(t.tuples[i].Key.ApplyMask(mask), t.tuples[i].Value)
	}
	out.Sort()
	out.SumInto()
	return out
}

func (t *Table) Clone() *Table {
	out := NewTable(t.keySize)
	out.tuples = make([]Tuple, len(t.tuples))
	for i := range t.tuples {
		out.tuples[i] = Tuple{Key: t.tuples[i].Key.Clone(), Value: t.tuples[i].Value}
	}
	return out
}
