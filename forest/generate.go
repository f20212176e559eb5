package forest

import (
	"github.com/npillmayer/shrg/grammar"
	"github.com/npillmayer/shrg/hypergraph"
)

// Generate walks d (a Derivation already chosen by an ExtractionPolicy)
// and emits the flat CFG-item stream an external realiser consumes: a
// pre-order walk substituting, at every CFGItem aligned to a fragment
// edge, the corresponding child's own generated stream. Grounded on
// original_source/src/graph_parser/generator.hpp's generate-by-walking-
// chosen-alternatives design (§2 row 11, "Generator hook").
func Generate(d *Derivation) []string {
	var out []string
	var walk func(n *Derivation)
	walk = func(n *Derivation) {
		if n.Rule == nil || n.CFGRuleIndex < 0 || n.CFGRuleIndex >= len(n.Rule.CFGRules) {
			return
		}
		cr := n.Rule.CFGRules[n.CFGRuleIndex]
		childByEdge := edgeAlignedChildren(n.Rule, n.Children)
		for _, item := range cr.Items {
			if item.IsLiteral {
				out = append(out, item.Label)
				continue
			}
			if child, ok := childByEdge[item.AlignedEdge]; ok {
				walk(child)
			}
		}
	}
	walk(d)
	return out
}

// edgeAlignedChildren associates each of rule r's non-terminal fragment
// edges with the Derivation child that was merged in for it, in the
// order the parser consumed them (r.NonTerminalEdges) — the same
// correspondence the parser established between merge steps and
// fragment edges during parsing.
func edgeAlignedChildren(r *grammar.Rule, children []*Derivation) map[hypergraph.EdgeHash]*Derivation {
	m := make(map[hypergraph.EdgeHash]*Derivation, len(children))
	for i, e := range r.NonTerminalEdges {
		if i < len(children) {
			m[e] = children[i]
		}
	}
	return m
}
