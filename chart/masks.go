package chart

import (
	"github.com/npillmayer/shrg/grammar"
	"github.com/npillmayer/shrg/hypergraph"
)

// edgeMask is the static, position-local "is this slot already
// constrained" mask for one non-terminal edge: position k is required
// (true) iff the rule-local node edge.LinkedNodes[k] was already bound
// by an earlier-matched edge (every TerminalEdge, or a NonTerminalEdge
// before this one in NonTerminalEdges order) — a purely structural fact,
// computed once per rule by Compile (via buildRuleMasks), mirroring
// LinearSHRGParser's constructor-time edge_masks/activated_masks
// computation (parser_linear.cpp).
type edgeMask []bool

// ruleMasks holds every non-terminal edge's edgeMask for one rule, in
// NonTerminalEdges order. The grammar-wide (label, arity) registry of
// required-mask patterns is not part of it; buildRuleMasks returns that
// registry separately.
type ruleMasks struct {
	perStep []edgeMask // perStep[i] is the mask for NonTerminalEdges[i]
}

// buildRuleMasks computes every rule's static per-step edge masks and,
// alongside them, the grammar-wide registry of distinct required-mask
// patterns bucketed by (label, arity) — the set a freshly completed
// passive item must be filed under (§4.3 "for each registered
// required-mask, the item is additionally indexed under the masked
// agenda key").
func buildRuleMasks(rules []*grammar.Rule) ([]ruleMasks, map[labelArity][]edgeMask) {
	out := make([]ruleMasks, len(rules))
	registry := make(map[labelArity]map[string]edgeMask)

	for ri, r := range rules {
		if r.Fragment == nil {
			continue
		}
		bound := make(map[int]bool, len(r.Fragment.Nodes))
		for _, e := range r.TerminalEdges {
			for _, n := range r.Fragment.Edges[e].LinkedNodes {
				bound[n] = true
			}
		}
		perStep := make([]edgeMask, len(r.NonTerminalEdges))
		for i, e := range r.NonTerminalEdges {
			edge := r.Fragment.Edges[e]
			mask := make(edgeMask, len(edge.LinkedNodes))
			for k, n := range edge.LinkedNodes {
				mask[k] = bound[n]
				bound[n] = true
			}
			perStep[i] = mask

			la := labelArity{Label: edge.Label, Arity: len(edge.LinkedNodes)}
			if registry[la] == nil {
				registry[la] = make(map[string]edgeMask)
			}
			registry[la][maskKey(mask)] = mask
		}
		out[ri] = ruleMasks{perStep: perStep}
	}

	flat := make(map[labelArity][]edgeMask, len(registry))
	for la, set := range registry {
		for _, m := range set {
			flat[la] = append(flat[la], m)
		}
	}
	return out, flat
}

type labelArity struct {
	Label hypergraph.Label
	Arity int
}

func maskKey(m edgeMask) string {
	b := make([]byte, len(m))
	for i, v := range m {
		if v {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}

// projectKey builds the position-local agendaKey mapping for linkedNodes
// (an edge's LinkedNodes, either the consuming rule's non-terminal edge
// or an enumeration of the producing rule's ExternalNodes), reading each
// position's value from get and keeping only the positions mask marks
// required.
func projectKey(linkedNodes []int, get func(localIdx int) byte, mask edgeMask) hypergraph.NodeMapping {
	m := hypergraph.NewNodeMapping()
	for k := range linkedNodes {
		if k < len(mask) && mask[k] {
			m = m.Bind(k, get(linkedNodes[k]))
		}
	}
	return m
}
