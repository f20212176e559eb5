package grammar

import (
	"golang.org/x/exp/slices"
	"golang.org/x/tools/container/intsets"

	"github.com/npillmayer/shrg/hypergraph"
)

// NodeMask is a boundary-node bitmask over a rule fragment's nodes (at
// most MaxFragmentNodes of them, so a uint32 has ample headroom).
type NodeMask uint32

func maskBit(i int) NodeMask { return 1 << uint(i) }

// RequiredMask is one prefix's boundary-node mask as Compile records it
// per rule. The chart parser does not read it: chart builds its own
// per-(label, arity) registry of required masks for its agenda keys.
type RequiredMask struct {
	PrefixIndex int
	Mask        NodeMask
}

// Index is a grammar's compiled, read-only pre-index: one entry per rule
// of terminal/non-terminal edge order, boundary masks per prefix, and the
// fast terminal-edge compatibility filter. Built once by Compile and
// shared (read-only) by every concurrent parser context, per §5.
type Index struct {
	Rules []*Rule

	boundaryMasks [][]NodeMask      // [ruleIdx][prefix] -> mask
	requiredMasks [][]RequiredMask  // [ruleIdx] -> registered projections
	terminalSet   []*intsets.Sparse // [ruleIdx] -> set of terminal-edge LabelHash, as int

	// byTerminalHash buckets rule indices by each of their terminal
	// edges' LabelHash, letting Initialize find candidate rules for an
	// input edge without scanning the whole grammar.
	byTerminalHash map[hypergraph.LabelHash][]int

	numRules int // dense size of the ShrgIndex space; see NumRules
}

// Compile builds an Index over rules: DFS-orders each rule's terminal
// edges, ascending-sorts its non-terminal edges by Free-node count,
// computes boundary masks and required-mask projections per prefix, and
// builds the terminal-edge compatibility filter. Returns
// ErrMalformedGrammar (wrapped with a specific reason) on any structural
// violation from §4.1/§3.1.
func Compile(rules []*Rule) (*Index, error) {
	idx := &Index{
		Rules:          rules,
		boundaryMasks:  make([][]NodeMask, len(rules)),
		requiredMasks:  make([][]RequiredMask, len(rules)),
		terminalSet:    make([]*intsets.Sparse, len(rules)),
		byTerminalHash: make(map[hypergraph.LabelHash][]int),
	}
	seenShrgIndex := make(map[int]bool)
	for ri, r := range rules {
		if r.Fragment == nil {
			continue // filtered/empty grammar entry
		}
		orderTerminalEdgesDFS(r)
		orderNonTerminalEdgesByFreeCount(r)
		if err := r.validateShape(); err != nil {
			return nil, err
		}
		for _, cr := range r.CFGRules {
			if seenShrgIndex[cr.ShrgIndex] {
				return nil, malformed("shrg_index %d is not unique", cr.ShrgIndex)
			}
			seenShrgIndex[cr.ShrgIndex] = true
		}

		idx.boundaryMasks[ri] = boundaryMasksPerPrefix(r)
		idx.requiredMasks[ri] = requiredMasksFor(idx.boundaryMasks[ri])

		ts := &intsets.Sparse{}
		for _, e := range r.TerminalEdges {
			edge := r.Fragment.Edges[e]
			h := edge.Hash()
			ts.Insert(int(h))
			idx.byTerminalHash[h] = append(idx.byTerminalHash[h], ri)
		}
		idx.terminalSet[ri] = ts
	}
	if err := checkShrgIndexDense(seenShrgIndex); err != nil {
		return nil, err
	}
	idx.numRules = len(seenShrgIndex)
	return idx, nil
}

// NumRules returns the dense size of the grammar's ShrgIndex space —
// the size every rule-weight vector (em.Config's weights, forest.Weights,
// forest.ExpectedCounts) must be allocated to.
func (idx *Index) NumRules() int {
	return idx.numRules
}

func checkShrgIndexDense(seen map[int]bool) error {
	if len(seen) == 0 {
		return nil
	}
	max := -1
	for k := range seen {
		if k > max {
			max = k
		}
	}
	for i := 0; i <= max; i++ {
		if !seen[i] {
			return malformed("shrg_index %d missing: indices must be dense", i)
		}
	}
	return nil
}

// orderTerminalEdgesDFS fills r.TerminalEdges with a DFS order over the
// fragment's terminal edges, starting from an arbitrary one and
// preferring, at each step, an unvisited terminal edge sharing a node
// with the edge just visited — so consecutive edges in the order tend to
// share a node, narrowing the branch factor of §4.3's terminal matching.
func orderTerminalEdgesDFS(r *Rule) {
	var terminals []hypergraph.EdgeHash
	for _, e := range r.Fragment.Edges {
		if e.IsTerminal {
			terminals = append(terminals, e.Index)
		}
	}
	if len(terminals) == 0 {
		r.TerminalEdges = nil
		return
	}
	visited := make(map[hypergraph.EdgeHash]bool, len(terminals))
	order := make([]hypergraph.EdgeHash, 0, len(terminals))
	var visit func(e hypergraph.EdgeHash)
	visit = func(e hypergraph.EdgeHash) {
		if visited[e] {
			return
		}
		visited[e] = true
		order = append(order, e)
		edge := r.Fragment.Edges[e]
		for _, ni := range edge.LinkedNodes {
			for _, adj := range r.Fragment.Nodes[ni].LinkedEdges {
				if !visited[adj] && r.Fragment.Edges[adj].IsTerminal {
					visit(adj)
				}
			}
		}
	}
	for _, e := range terminals {
		visit(e)
	}
	r.TerminalEdges = order
}

// orderNonTerminalEdgesByFreeCount fills r.NonTerminalEdges, ascending by
// the number of Free-typed nodes each edge links, so the merge sequence
// binds boundary nodes as early as possible (§4.1).
func orderNonTerminalEdgesByFreeCount(r *Rule) {
	var nts []hypergraph.EdgeHash
	for _, e := range r.Fragment.Edges {
		if !e.IsTerminal {
			nts = append(nts, e.Index)
		}
	}
	slices.SortFunc(nts, func(a, b hypergraph.EdgeHash) bool {
		return r.freeNodeCount(a) < r.freeNodeCount(b)
	})
	r.NonTerminalEdges = nts
}

// boundaryMasksPerPrefix computes, for every prefix length i of
// r.NonTerminalEdges (0..len inclusive), the bitmask of fragment nodes
// that remain on the frontier after edges 0..i-1 have been consumed: a
// node is on the frontier iff it has at least one incident edge outside
// that prefix. All of TerminalEdges is seeded as already-consumed before
// prefix 0, since terminal matching (§4.3 Initialise) always completes
// before the first non-terminal merge — prefix i therefore reflects the
// state of an active item that has matched every terminal edge plus the
// first i non-terminal edges.
func boundaryMasksPerPrefix(r *Rule) []NodeMask {
	masks := make([]NodeMask, len(r.NonTerminalEdges)+1)
	consumed := make(map[hypergraph.EdgeHash]bool, len(r.TerminalEdges)+len(r.NonTerminalEdges))
	for _, e := range r.TerminalEdges {
		consumed[e] = true
	}
	for i := 0; i <= len(r.NonTerminalEdges); i++ {
		var m NodeMask
		for _, n := range r.Fragment.Nodes {
			for _, le := range n.LinkedEdges {
				if !consumed[le] {
					m |= maskBit(n.Index)
					break
				}
			}
		}
		masks[i] = m
		if i < len(r.NonTerminalEdges) {
			consumed[r.NonTerminalEdges[i]] = true
		}
	}
	return masks
}

// requiredMasksFor records, for each prefix, one RequiredMask holding
// that prefix's own boundary mask; no external-only projection is
// recorded.
func requiredMasksFor(masks []NodeMask) []RequiredMask {
	out := make([]RequiredMask, 0, len(masks))
	for i, m := range masks {
		out = append(out, RequiredMask{PrefixIndex: i, Mask: m})
	}
	return out
}

// BoundaryMaskForEdges returns the bitmask of fragment nodes that remain
// on the frontier once exactly the edges in consumed have been merged —
// the general form boundaryMasksPerPrefix specializes to linear prefixes
// of NonTerminalEdges. Used by package decomp to label the boundary of
// each internal node of a rule's binary combination tree.
func BoundaryMaskForEdges(r *Rule, consumed map[hypergraph.EdgeHash]bool) NodeMask {
	var m NodeMask
	for _, n := range r.Fragment.Nodes {
		for _, le := range n.LinkedEdges {
			if !consumed[le] {
				m |= maskBit(n.Index)
				break
			}
		}
	}
	return m
}

// CompatibleWithTerminals reports whether rule ri's terminal-edge
// signature set is a subset of the input graph's available terminal-edge
// hashes, the fast pre-filter that lets Initialize skip a rule without
// ever attempting DFS matching against it.
func (idx *Index) CompatibleWithTerminals(ri int, available *intsets.Sparse) bool {
	need := idx.terminalSet[ri]
	if need == nil {
		return true
	}
	var missing intsets.Sparse
	missing.Difference(need, available)
	return missing.IsEmpty()
}

// BoundaryMask returns the boundary-node bitmask for rule ri after
// consuming the first prefixLen non-terminal edges.
func (idx *Index) BoundaryMask(ri, prefixLen int) NodeMask {
	return idx.boundaryMasks[ri][prefixLen]
}

// RulesWithTerminalHash returns the indices of rules whose fragment
// contains a terminal edge with the given LabelHash.
func (idx *Index) RulesWithTerminalHash(h hypergraph.LabelHash) []int {
	return idx.byTerminalHash[h]
}
