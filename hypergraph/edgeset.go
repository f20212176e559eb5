package hypergraph

import "math/bits"

// edgeSetWords is the number of 64-bit words backing an EdgeSet, giving a
// fixed capacity of 256 edges per rule fragment — the same ceiling the
// teacher's std::bitset<256> enforces on cfg_rule edge sets. A rule
// fragment wider than this is rejected by grammar.Compile as malformed
// rather than silently truncated.
const edgeSetWords = 4

// MaxEdges is the largest edge index an EdgeSet can represent.
const MaxEdges = edgeSetWords * 64

// EdgeSet is a fixed-size, value-typed bitset over rule-fragment edge
// indices. It is comparable with ==, suitable as a map key component and
// for the structhash-based dedup key of forest.Node, mirroring the
// teacher's chart item equality, which compares edge_set and
// boundary_node_mapping only.
type EdgeSet [edgeSetWords]uint64

// Set returns a copy of s with bit i set.
func (s EdgeSet) Set(i int) EdgeSet {
	s[i>>6] |= 1 << uint(i&63)
	return s
}

// Clear returns a copy of s with bit i cleared.
func (s EdgeSet) Clear(i int) EdgeSet {
	s[i>>6] &^= 1 << uint(i&63)
	return s
}

// Test reports whether bit i is set.
func (s EdgeSet) Test(i int) bool {
	return s[i>>6]&(1<<uint(i&63)) != 0
}

// Or returns the bitwise union of s and t.
func (s EdgeSet) Or(t EdgeSet) EdgeSet {
	var r EdgeSet
	for i := range r {
		r[i] = s[i] | t[i]
	}
	return r
}

// And returns the bitwise intersection of s and t.
func (s EdgeSet) And(t EdgeSet) EdgeSet {
	var r EdgeSet
	for i := range r {
		r[i] = s[i] & t[i]
	}
	return r
}

// AndNot returns s with every bit also set in t cleared.
func (s EdgeSet) AndNot(t EdgeSet) EdgeSet {
	var r EdgeSet
	for i := range r {
		r[i] = s[i] &^ t[i]
	}
	return r
}

// Disjoint reports whether s and t share no set bit. The parser relies on
// this to reject combinations that would double-cover an edge.
func (s EdgeSet) Disjoint(t EdgeSet) bool {
	for i := range s {
		if s[i]&t[i] != 0 {
			return false
		}
	}
	return true
}

// Subset reports whether every bit set in s is also set in t.
func (s EdgeSet) Subset(t EdgeSet) bool {
	for i := range s {
		if s[i]&^t[i] != 0 {
			return false
		}
	}
	return true
}

// PopCount returns the number of set bits.
func (s EdgeSet) PopCount() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// Empty reports whether no bit is set.
func (s EdgeSet) Empty() bool {
	return s == EdgeSet{}
}

// Equal reports whether s and t have identical bits set. Provided for
// readability; EdgeSet is a comparable array type, so == works directly.
func (s EdgeSet) Equal(t EdgeSet) bool {
	return s == t
}
