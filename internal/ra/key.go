package ra

import "hash/fnv"

// Key is a packed joint assignment: KeySize segments, one slot per variable.
// A slot holding its all-ones codeword is DontCare (wildcard). A fresh key is
// fully wildcarded, which also keeps padding bits (bits not owned by any
// slot) at one everywhere, so bitwise comparisons stay meaningful.
type Key []KeySegment

// NewKey returns a key of the given size with every slot DontCare.
func NewKey(keySize int) Key {
	k := make(Key, keySize)
	for i := range k {
		k[i] = AllOnes
	}
	return k
}

func (k Key) Clone() Key {
	out := make(Key, len(k))
	copy(out, k)
	return out
}

// SetValue writes value into v's slot. Writing the DontCare codeword
// explicitly is allowed; values >= the codeword are clamped to it.
func (k Key) SetValue(vl *VariableList, v VariableIndex, value int) {
	vr := vl.Get(v)
	dc := DontCare(vr.BitSize)
	code := KeySegment(value)
	if code > dc {
		code = dc
	}
	seg := &k[vr.Segment]
	*seg = (*seg &^ vr.Mask) | (code << vr.Shift)
}

// GetValue extracts the integer in v's slot; an unset slot reads back as the
// DontCare codeword.
func (k Key) GetValue(vl *VariableList, v VariableIndex) int {
	vr := vl.Get(v)
	return int((k[vr.Segment] >> vr.Shift) & DontCare(vr.BitSize))
}

// IsDontCare reports whether v's slot is the wildcard codeword.
func (k Key) IsDontCare(vl *VariableList, v VariableIndex) bool {
	vr := vl.Get(v)
	return k.GetValue(vl, v) == int(DontCare(vr.BitSize))
}

// ApplyMask returns a new key keeping the bits selected by mask and forcing
// every other position to DontCare.
func (k Key) ApplyMask(mask Key) Key {
	out := make(Key, len(k))
	for i := range k {
		out[i] = (k[i] & mask[i]) | ^mask[i]
	}
	return out
}

// Compare orders keys lexicographically by segment, first segment most
// significant. Shorter keys order before longer ones.
func (k Key) Compare(o Key) int {
	n := len(k)
	if len(o) < n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		if k[i] != o[i] {
			if k[i] < o[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(k) < len(o):
		return -1
	case len(k) > len(o):
		return 1
	}
	return 0
}

func (k Key) Equal(o Key) bool { return k.Compare(o) == 0 }

// Matches is the fast bitwise match: segments must be identical except
// where one key's whole segment is wildcarded (all ones, i.e. every slot
// in it is DontCare). A fully defined key never has an all-ones segment —
// every slot holds a value below its DontCare codeword — so on fully
// defined keys this agrees exactly with MatchesWithVarList. A value bit
// differing inside a partially wildcarded segment is indistinguishable
// from wildcard absorption without the slot layout, so those need the
// slot-accurate MatchesWithVarList. Keys of different sizes never match.
func (k Key) Matches(o Key) bool {
	if len(k) != len(o) {
		return false
	}
	for i := range k {
		if k[i] != o[i] && k[i] != AllOnes && o[i] != AllOnes {
			return false
		}
	}
	return true
}

// MatchesWithVarList is the slot-accurate match: every variable's slot must
// hold equal values or be DontCare in at least one of the two keys.
func (k Key) MatchesWithVarList(o Key, vl *VariableList) bool {
	if len(k) != len(o) {
		return false
	}
	for i := 0; i < vl.Len(); i++ {
		v := VariableIndex(i)
		a := k.GetValue(vl, v)
		b := o.GetValue(vl, v)
		if a == b {
			continue
		}
		dc := int(DontCare(vl.Get(v).BitSize))
		if a != dc && b != dc {
			return false
		}
	}
	return true
}

// Hash is a deterministic function of the segment bytes.
func (k Key) Hash() uint64 {
	h := fnv.New64a()
	var buf [4]byte
	for _, seg := range k {
		buf[0] = byte(seg)
		buf[1] = byte(seg >> 8)
		buf[2] = byte(seg >> 16)
		buf[3] = byte(seg >> 24)
		h.Write(buf[:])
	}
	return h.Sum64()
}
