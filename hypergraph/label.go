package hypergraph

// Label identifies a node or edge symbol (a grammar non-terminal / terminal
// name, or an EDS predicate label) by small interned integer. Labels are
// assigned by a corpusio loader's string table and are stable for the
// lifetime of a Graph or grammar.Index.
type Label int32

// NoLabel marks an absent or not-yet-assigned label.
const NoLabel Label = -1

// LabelHash packs a Label together with the edge's arity and terminal-ness
// into a single comparable key, used by grammar.Index to bucket rule
// fragments by their root edge signature.
//
// Layout: the label occupies the high bits, the linked-node count the
// next two bits down, and the terminal flag the low bit. Arities above
// 3 collide into the same bucket as 3;
// that only costs a few extra candidate comparisons during indexing, never
// correctness, since the bucket is a pre-filter and every candidate is
// still checked exactly.
type LabelHash uint64

// MakeLabelHash builds the bucket key for an edge with the given label,
// number of linked nodes, and terminal flag.
func MakeLabelHash(label Label, linkedNodeCount int, isTerminal bool) LabelHash {
	arity := linkedNodeCount
	if arity > 3 {
		arity = 3
	}
	var term LabelHash
	if isTerminal {
		term = 1
	}
	return LabelHash(label)<<8 | LabelHash(arity)<<2 | term
}

// EdgeHash identifies an edge within a Graph for parser bookkeeping
// (chart items reference edges by this index, not by pointer).
type EdgeHash int32
