package chart

import (
	"github.com/npillmayer/shrg/grammar"
	"github.com/npillmayer/shrg/hypergraph"
)

// terminalIndex is the input graph's quick-lookup structure for
// terminal-edge matching: every terminal edge bucketed by its own
// LabelHash, further refined by which of its one or two linked graph
// nodes are already known. Grounded on terminal_map_ /
// terminal_partial_map_ / terminal_complete_map_ in
// parser_linear_base.hpp/.cpp.
type terminalIndex struct {
	full     map[hypergraph.LabelHash][]hypergraph.EdgeHash
	partial0 map[hypergraph.LabelHash]map[int][]hypergraph.EdgeHash // first node bound
	partial1 map[hypergraph.LabelHash]map[int][]hypergraph.EdgeHash // second node bound
	complete map[hypergraph.LabelHash]map[[2]int]hypergraph.EdgeHash
}

func buildTerminalIndex(g *hypergraph.Graph) *terminalIndex {
	idx := &terminalIndex{
		full:     make(map[hypergraph.LabelHash][]hypergraph.EdgeHash),
		partial0: make(map[hypergraph.LabelHash]map[int][]hypergraph.EdgeHash),
		partial1: make(map[hypergraph.LabelHash]map[int][]hypergraph.EdgeHash),
		complete: make(map[hypergraph.LabelHash]map[[2]int]hypergraph.EdgeHash),
	}
	for _, e := range g.Edges {
		if !e.IsTerminal {
			continue
		}
		h := e.Hash()
		idx.full[h] = append(idx.full[h], e.Index)
		n0 := e.LinkedNodes[0]
		if idx.partial0[h] == nil {
			idx.partial0[h] = make(map[int][]hypergraph.EdgeHash)
		}
		idx.partial0[h][n0] = append(idx.partial0[h][n0], e.Index)
		if len(e.LinkedNodes) > 1 {
			n1 := e.LinkedNodes[1]
			if idx.partial1[h] == nil {
				idx.partial1[h] = make(map[int][]hypergraph.EdgeHash)
			}
			idx.partial1[h][n1] = append(idx.partial1[h][n1], e.Index)
			if idx.complete[h] == nil {
				idx.complete[h] = make(map[[2]int]hypergraph.EdgeHash)
			}
			idx.complete[h][[2]int{n0, n1}] = e.Index
		} else {
			if idx.complete[h] == nil {
				idx.complete[h] = make(map[[2]int]hypergraph.EdgeHash)
			}
			idx.complete[h][[2]int{n0, -1}] = e.Index
		}
	}
	return idx
}

// isGraphNodeBoundary reports whether graph node nodeIdx has any
// incident graph edge not yet in used — i.e. whether it still connects
// to the rest of the graph beyond what a candidate chart item covers
// (§4.3's frontier rule, applied at the input-graph level rather than at
// the rule-fragment level grammar.Index's boundary masks apply it at).
func isGraphNodeBoundary(g *hypergraph.Graph, nodeIdx int, used hypergraph.EdgeSet) bool {
	for _, e := range g.Nodes[nodeIdx].LinkedEdges {
		if !used.Test(int(e)) {
			return true
		}
	}
	return false
}

// checkMappingValidity re-validates every bound rule-local node against
// the rule's own node-type declaration, now that used reflects every
// graph edge the candidate chart item actually covers: a Fixed node must
// turn out non-boundary (fully interior to the covered subgraph) and an
// External/SemiFixed node must turn out boundary. Grounded on
// LinearSHRGParserBase::CheckTerminalItems's per-node validity loop;
// applied here both right after terminal matching and again once a
// rule's non-terminal edges are fully merged, since both are points
// where "is this mapping still internally consistent" must hold.
func checkMappingValidity(r *grammar.Rule, g *hypergraph.Graph, mapping hypergraph.NodeMapping, used hypergraph.EdgeSet) bool {
	for i, node := range r.Fragment.Nodes {
		gi := mapping.At(i)
		if gi == hypergraph.NoBoundaryNode {
			continue
		}
		boundary := isGraphNodeBoundary(g, int(gi), used)
		if boundary {
			if !node.IsExternal && node.Type == hypergraph.Fixed {
				return false // an internal node must not be mapped to a boundary graph node
			}
		} else {
			if node.IsExternal || node.Type != hypergraph.Fixed {
				return false // an external/semi-fixed node must be mapped to a boundary graph node
			}
		}
	}
	return true
}

// terminalMatch is one successful assignment of every one of rule r's
// TerminalEdges to a distinct input graph edge.
type terminalMatch struct {
	Mapping hypergraph.NodeMapping
	Used    hypergraph.EdgeSet
	Chosen  []hypergraph.EdgeHash // parallel to r.TerminalEdges
}

// matchTerminalEdges enumerates every structurally valid way of matching
// r's TerminalEdges (in their precomputed DFS order) against g's
// terminal edges, via the same three-way branch
// (both-ends-bound/one-end-bound/neither-bound) as
// LinearSHRGParserBase::MatchTerminalEdges, backtracking exactly on
// failure. nodeUsed (shared, indexed by graph node) prevents two
// distinct rule-local nodes from ever being matched to the same graph
// node within one rule attempt.
func matchTerminalEdges(r *grammar.Rule, g *hypergraph.Graph, idx *terminalIndex) []terminalMatch {
	var out []terminalMatch
	if len(r.TerminalEdges) == 0 {
		return []terminalMatch{{Mapping: hypergraph.NewNodeMapping()}}
	}
	nodeUsed := make([]bool, len(g.Nodes))
	var chosen []hypergraph.EdgeHash

	var rec func(mapping hypergraph.NodeMapping, used hypergraph.EdgeSet, pos int)
	rec = func(mapping hypergraph.NodeMapping, used hypergraph.EdgeSet, pos int) {
		if pos == len(r.TerminalEdges) {
			out = append(out, terminalMatch{
				Mapping: mapping,
				Used:    used,
				Chosen:  append([]hypergraph.EdgeHash(nil), chosen...),
			})
			return
		}
		ruleEdgeHash := r.TerminalEdges[pos]
		edge := r.Fragment.Edges[ruleEdgeHash]
		h := edge.Hash()
		n0 := edge.LinkedNodes[0]
		from := mapping.At(n0)
		nodeCount := len(edge.LinkedNodes)
		to := hypergraph.NoBoundaryNode
		var n1 int
		if nodeCount > 1 {
			n1 = edge.LinkedNodes[1]
			to = mapping.At(n1)
		}

		try := func(ge hypergraph.EdgeHash) {
			if used.Test(int(ge)) {
				return
			}
			gedge := g.Edges[ge]
			if len(gedge.LinkedNodes) != nodeCount {
				return
			}
			newMapping := mapping
			var newlyUsed []int
			if nodeCount == 1 {
				gi := gedge.LinkedNodes[0]
				if nodeUsed[gi] {
					return
				}
				newMapping = newMapping.Bind(n0, byte(gi))
				nodeUsed[gi] = true
				newlyUsed = append(newlyUsed, gi)
			} else {
				gi0, gi1 := gedge.LinkedNodes[0], gedge.LinkedNodes[1]
				if from == hypergraph.NoBoundaryNode && nodeUsed[gi0] {
					return
				}
				if to == hypergraph.NoBoundaryNode && nodeUsed[gi1] {
					return
				}
				newMapping = newMapping.Bind(n0, byte(gi0)).Bind(n1, byte(gi1))
				if from == hypergraph.NoBoundaryNode {
					nodeUsed[gi0] = true
					newlyUsed = append(newlyUsed, gi0)
				}
				if to == hypergraph.NoBoundaryNode {
					nodeUsed[gi1] = true
					newlyUsed = append(newlyUsed, gi1)
				}
			}
			chosen = append(chosen, ge)
			rec(newMapping, used.Set(int(ge)), pos+1)
			chosen = chosen[:len(chosen)-1]
			for _, gi := range newlyUsed {
				nodeUsed[gi] = false
			}
		}

		switch {
		case from != hypergraph.NoBoundaryNode && (to != hypergraph.NoBoundaryNode || nodeCount == 1):
			key := [2]int{int(from), -1}
			if nodeCount > 1 {
				key = [2]int{int(from), int(to)}
			}
			if ge, ok := idx.complete[h][key]; ok {
				try(ge)
			}
		case from != hypergraph.NoBoundaryNode:
			for _, ge := range idx.partial0[h][int(from)] {
				try(ge)
			}
		case to != hypergraph.NoBoundaryNode:
			for _, ge := range idx.partial1[h][int(to)] {
				try(ge)
			}
		default:
			for _, ge := range idx.full[h] {
				try(ge)
			}
		}
	}
	rec(hypergraph.NewNodeMapping(), hypergraph.EdgeSet{}, 0)

	valid := out[:0]
	for _, m := range out {
		if checkMappingValidity(r, g, m.Mapping, m.Used) {
			valid = append(valid, m)
		}
	}
	return valid
}
