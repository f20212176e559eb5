package chart

import (
	"github.com/npillmayer/shrg/forest"
	"github.com/npillmayer/shrg/hypergraph"
)

// agendaKey identifies one agenda bucket. label is the category an
// active item's next non-terminal edge demands (and, symmetrically, the
// category a freshly completed passive item is filed under); mask is a
// small position-local boundary snapshot, indexed 0..arity-1 by the
// edge's own linked-node order rather than by either rule's raw fragment
// node indices — the coordinate system active items (keyed by the
// consuming rule's edge) and passive items (keyed by the producing
// rule's ExternalNodes order) actually share. Positions the static
// required-mask for this (label, arity) doesn't care about yet are left
// at hypergraph.NoBoundaryNode. Grounded on LinearSHRGParser's
// agendas_.At(label_hash, node_mapping, boundary_node_count) keying
// (parser_linear.cpp), minus the boundary_node_count dimension, which
// this parser neither keys on nor checks anywhere.
type agendaKey struct {
	label hypergraph.Label
	arity int
	mask  hypergraph.NodeMapping
}

// activeItem is a chart item partway through one rule's non-terminal
// edges: Node covers every terminal edge plus NonTerminalEdges[:Step] of
// rule RuleIdx; the next merge must supply NonTerminalEdges[Step].
type activeItem struct {
	Node    *forest.Node
	RuleIdx int
	Step    int
}

// agenda bundles the active/passive items filed under one agendaKey,
// plus the incremental-update bookkeeping drainAgenda relies on:
// numVisited{Active,Passive} let a drain only cross "new active × all
// passive" and "all active × new passive" instead of rescanning pairs
// already merged (§4.3, mirroring LinearSHRGParser::UpdateAgenda).
// seenPassive keeps registerPassive from filing the same canonical
// passive item twice under one key.
type agenda struct {
	inQueue bool

	active      []activeItem
	passive     []*forest.Node
	seenPassive map[*forest.Node]bool

	numVisitedActive  int
	numVisitedPassive int
}
