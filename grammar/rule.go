package grammar

import (
	"errors"
	"fmt"
	"math"

	"github.com/npillmayer/shrg/hypergraph"
)

// MaxFragmentEdges and MaxFragmentNodes bound the size of a single rule's
// hypergraph fragment (MAX_SHRG_EDGE_COUNT / MAX_SHRG_NODE_COUNT).
const (
	MaxFragmentEdges = 32
	MaxFragmentNodes = 16
)

// ErrMalformedGrammar is wrapped with a reason by every validation failure
// raised while compiling a grammar.
var ErrMalformedGrammar = errors.New("grammar: malformed")

// malformed wraps ErrMalformedGrammar with a specific reason.
func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedGrammar, fmt.Sprintf(format, args...))
}

// CFGItem is one symbol of a CFGRule's right-hand side: either a literal
// string (IsLiteral true, AlignedEdge unused) or an alignment to one edge
// of the owning Rule's fragment, synchronising CFG yield and hyperedge
// replacement.
type CFGItem struct {
	Label       string
	IsLiteral   bool
	AlignedEdge hypergraph.EdgeHash
}

// CFGRule is one synchronous-CFG projection of a Rule: its own label, the
// SHRG rule index it belongs to, a log-probability score, and its
// right-hand side items.
type CFGRule struct {
	Label     string
	ShrgIndex int
	Score     float64 // natural-log probability
	Items     []CFGItem
}

// Rule is one SHRG production: a labelled hyperedge rewrites into a
// hypergraph Fragment exposing ExternalNodes (in rule-declared order),
// plus a set of synchronous CFGRules that score and yield a surface
// string alongside the structural rewrite.
//
// TerminalEdges and NonTerminalEdges are populated by Compile, not by the
// caller: TerminalEdges holds a DFS ordering chosen so consecutive edges
// share a node whenever possible (narrows branching during terminal
// matching, §4.1); NonTerminalEdges is sorted ascending by the count of
// Free-typed nodes each edge links (so the parser binds boundary nodes as
// early in a merge sequence as possible).
type Rule struct {
	Label         hypergraph.Label
	Fragment      *hypergraph.Hypergraph
	ExternalNodes []int

	TerminalEdges    []hypergraph.EdgeHash
	NonTerminalEdges []hypergraph.EdgeHash

	CFGRules []CFGRule
}

// freeNodeCount returns the number of Free-typed nodes edge e links.
func (r *Rule) freeNodeCount(e hypergraph.EdgeHash) int {
	edge := r.Fragment.Edges[e]
	n := 0
	for _, ni := range edge.LinkedNodes {
		if r.Fragment.Nodes[ni].Type == hypergraph.Free {
			n++
		}
	}
	return n
}

// validateShape checks the invariants §3.1 places on an individual rule,
// ahead of any indexing work: fragment size ceilings, terminal-edge
// self-loops, edge partition completeness, and CFG rule score sanity.
func (r *Rule) validateShape() error {
	if r.Fragment == nil {
		return nil // empty/filtered grammar (teacher's IsEmpty), nothing to check
	}
	if len(r.Fragment.Edges) > MaxFragmentEdges {
		return malformed("rule %d: fragment has %d edges, exceeds %d",
			r.Label, len(r.Fragment.Edges), MaxFragmentEdges)
	}
	if len(r.Fragment.Nodes) > MaxFragmentNodes {
		return malformed("rule %d: fragment has %d nodes, exceeds %d",
			r.Label, len(r.Fragment.Nodes), MaxFragmentNodes)
	}
	for _, e := range r.Fragment.Edges {
		if e.IsTerminal && hasDuplicate(e.LinkedNodes) {
			return malformed("rule %d: terminal edge %d is a self-loop", r.Label, e.Index)
		}
	}
	covered := make(map[hypergraph.EdgeHash]bool, len(r.Fragment.Edges))
	for _, e := range r.TerminalEdges {
		covered[e] = true
	}
	for _, e := range r.NonTerminalEdges {
		covered[e] = true
	}
	if len(covered) != len(r.Fragment.Edges) {
		return malformed("rule %d: terminal ∪ non-terminal edges do not partition fragment edges", r.Label)
	}
	for _, cr := range r.CFGRules {
		if cr.Label != "" && math.IsInf(cr.Score, -1) {
			return malformed("rule %d: cfg_rule %d has score -Inf", r.Label, cr.ShrgIndex)
		}
	}
	return nil
}

func hasDuplicate(xs []int) bool {
	seen := make(map[int]bool, len(xs))
	for _, x := range xs {
		if seen[x] {
			return true
		}
		seen[x] = true
	}
	return false
}
