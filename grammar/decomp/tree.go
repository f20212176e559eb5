package decomp

import (
	"github.com/npillmayer/shrg/grammar"
	"github.com/npillmayer/shrg/hypergraph"
)

// Strategy selects the edge-combination order a Tree is built with.
type Strategy int

const (
	// Naive combines the next unvisited edge with the running
	// accumulator, in the rule's TerminalEdges-then-NonTerminalEdges
	// order.
	Naive Strategy = iota
	// TerminalFirst merges every terminal edge (in DFS order) before
	// touching any non-terminal edge.
	TerminalFirst
	// MinimumWidth exhaustively tries every legal next combination at
	// each step and keeps the one whose resulting boundary-node count is
	// smallest; only tractable on the small fragments SHRG rules have
	// (≤32 edges).
	MinimumWidth
)

// Node is one node of a rule's binary combination tree. Leaves (IsLeaf)
// hold a single fragment edge; internal nodes combine Left and Right.
// BoundaryMask is the frontier bitmask of the subgraph this node
// represents, cached once at decomposition time and reused unchanged for
// every input graph the rule is tried against.
type Node struct {
	IsLeaf       bool
	Edge         hypergraph.EdgeHash // valid iff IsLeaf
	Left, Right  *Node               // valid iff !IsLeaf
	EdgeSet      map[hypergraph.EdgeHash]bool
	BoundaryMask grammar.NodeMask
}

// Tree is the root of a rule's combination tree, plus the strategy used
// to build it (kept for diagnostics/round-tripping, not consulted by the
// chart parser).
type Tree struct {
	Root     *Node
	Strategy Strategy
}

// Decompose builds r's binary combination tree under the given strategy.
// Returns nil if r has no fragment (filtered/empty grammar entry) or no
// edges.
func Decompose(r *grammar.Rule, strategy Strategy) *Tree {
	if r.Fragment == nil || len(r.Fragment.Edges) == 0 {
		return nil
	}
	order := combinationOrder(r, strategy)
	root := buildLeftDeep(r, order)
	if strategy == MinimumWidth {
		root = buildMinimumWidth(r, order)
	}
	return &Tree{Root: root, Strategy: strategy}
}

// combinationOrder returns the edge order Naive and TerminalFirst fold
// over; MinimumWidth uses it only as the candidate pool at each step.
func combinationOrder(r *grammar.Rule, strategy Strategy) []hypergraph.EdgeHash {
	switch strategy {
	case TerminalFirst:
		order := append([]hypergraph.EdgeHash(nil), r.TerminalEdges...)
		return append(order, r.NonTerminalEdges...)
	default:
		order := append([]hypergraph.EdgeHash(nil), r.TerminalEdges...)
		return append(order, r.NonTerminalEdges...)
	}
}

func leaf(r *grammar.Rule, e hypergraph.EdgeHash) *Node {
	consumed := map[hypergraph.EdgeHash]bool{e: true}
	return &Node{
		IsLeaf:       true,
		Edge:         e,
		EdgeSet:      consumed,
		BoundaryMask: grammar.BoundaryMaskForEdges(r, consumed),
	}
}

func combine(r *grammar.Rule, l, rt *Node) *Node {
	merged := make(map[hypergraph.EdgeHash]bool, len(l.EdgeSet)+len(rt.EdgeSet))
	for e := range l.EdgeSet {
		merged[e] = true
	}
	for e := range rt.EdgeSet {
		merged[e] = true
	}
	return &Node{
		IsLeaf:       false,
		Left:         l,
		Right:        rt,
		EdgeSet:      merged,
		BoundaryMask: grammar.BoundaryMaskForEdges(r, merged),
	}
}

// buildLeftDeep folds order into a left-deep binary tree: ((e0 e1) e2)
// e3 ... — the shape both Naive and TerminalFirst use, differing only in
// the edge order they are handed.
func buildLeftDeep(r *grammar.Rule, order []hypergraph.EdgeHash) *Node {
	if len(order) == 0 {
		return nil
	}
	acc := leaf(r, order[0])
	for _, e := range order[1:] {
		acc = combine(r, acc, leaf(r, e))
	}
	return acc
}

// buildMinimumWidth greedily combines, at each step, whichever pair of
// current subtrees yields the smallest resulting boundary-node count —
// an exhaustive O(k^2) scan per step, tractable since k ≤
// grammar.MaxFragmentEdges.
func buildMinimumWidth(r *grammar.Rule, order []hypergraph.EdgeHash) *Node {
	if len(order) == 0 {
		return nil
	}
	live := make([]*Node, 0, len(order))
	for _, e := range order {
		live = append(live, leaf(r, e))
	}
	for len(live) > 1 {
		bestI, bestJ := 0, 1
		var best *Node
		for i := 0; i < len(live); i++ {
			for j := i + 1; j < len(live); j++ {
				cand := combine(r, live[i], live[j])
				if best == nil || popcount(cand.BoundaryMask) < popcount(best.BoundaryMask) {
					best, bestI, bestJ = cand, i, j
				}
			}
		}
		next := make([]*Node, 0, len(live)-1)
		for i, n := range live {
			if i != bestI && i != bestJ {
				next = append(next, n)
			}
		}
		next = append(next, best)
		live = next
	}
	return live[0]
}

func popcount(m grammar.NodeMask) int {
	n := 0
	for m != 0 {
		n += int(m & 1)
		m >>= 1
	}
	return n
}
