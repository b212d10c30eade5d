package ra

// Core index and packing types for the reconstructability engine.
//
// Joint states are packed into fixed-width unsigned segments. Every variable
// owns a contiguous bit slot inside one segment; the all-ones codeword inside
// a slot is the DontCare wildcard, which is why a slot must be wide enough to
// hold c distinct values PLUS the sentinel.

// VariableIndex identifies a variable by its position in a VariableList.
type VariableIndex int

// Cardinality is the number of distinct values a variable can take.
type Cardinality int

// KeySegment is one machine word of a packed state key.
type KeySegment uint32

// BitShift is a bit offset inside a KeySegment.
type BitShift int

// SegmentIndex identifies which segment of a key a slot lives in.
type SegmentIndex int

// SegmentBits is the width of one key segment. The packing algorithm is
// width-agnostic but the whole engine must agree on one constant.
const SegmentBits = 32

// AllOnes is a fully wildcarded segment.
const AllOnes KeySegment = ^KeySegment(0)

// DontCare returns the wildcard codeword for a slot of the given bit size:
// every bit of the slot set. Distinct from any valid value 0..c-1 because
// slots are sized ceil(log2(c+1)).
func DontCare(bitSize int) KeySegment {
	return (KeySegment(1) << bitSize) - 1
}

// bitSizeFor returns the slot width needed to represent values 0..c-1 plus
// the DontCare codeword.
func bitSizeFor(c Cardinality) int {
	n := 0
	// smallest n with 2^n >= c+1
	for (1 << n) < int(c)+1 {
		n++
	}
	return n
}
