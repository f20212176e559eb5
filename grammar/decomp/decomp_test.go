package decomp

import (
	"testing"

	"github.com/npillmayer/shrg/grammar"
	"github.com/npillmayer/shrg/hypergraph"
)

// buildPathRule returns a 3-node, 2-edge rule fragment forming a path
// 0–1–2, both edges terminal, with node 1 external — the minimal shape
// that gives every decomposition strategy a genuine two-step combine.
func buildPathRule(t *testing.T) *grammar.Rule {
	t.Helper()
	r := &grammar.Rule{Label: 1}
	r.Fragment = hypergraph.NewHypergraph(3, 2)
	r.Fragment.AddNode(false, hypergraph.Fixed)
	r.Fragment.AddNode(true, hypergraph.Fixed)
	r.Fragment.AddNode(false, hypergraph.Fixed)
	e0 := r.Fragment.AddEdge(10, true, 0, 1)
	e1 := r.Fragment.AddEdge(11, true, 1, 2)
	r.TerminalEdges = []hypergraph.EdgeHash{e0, e1}
	r.ExternalNodes = []int{1}
	return r
}

func allEdgesCovered(n *Node) map[hypergraph.EdgeHash]bool {
	return n.EdgeSet
}

func TestDecomposeReturnsNilForEmptyFragment(t *testing.T) {
	r := &grammar.Rule{Label: 1}
	if got := Decompose(r, Naive); got != nil {
		t.Fatalf("expected nil for a rule with no fragment, got %+v", got)
	}
	r.Fragment = hypergraph.NewHypergraph(0, 0)
	if got := Decompose(r, Naive); got != nil {
		t.Fatalf("expected nil for a rule with an empty fragment, got %+v", got)
	}
}

func TestNaiveDecomposeCoversAllEdgesLeftDeep(t *testing.T) {
	r := buildPathRule(t)
	tree := Decompose(r, Naive)
	if tree == nil || tree.Root == nil {
		t.Fatalf("expected a non-nil tree")
	}
	if tree.Root.IsLeaf {
		t.Fatalf("expected the root of a 2-edge fragment to be an internal combine node")
	}
	if len(allEdgesCovered(tree.Root)) != 2 {
		t.Fatalf("expected the root to cover both fragment edges, got %d", len(tree.Root.EdgeSet))
	}
	if tree.Root.Left == nil || !tree.Root.Left.IsLeaf {
		t.Fatalf("expected a left-deep shape: Left must be the first leaf")
	}
}

func TestTerminalFirstDecomposeCoversAllEdges(t *testing.T) {
	r := buildPathRule(t)
	tree := Decompose(r, TerminalFirst)
	if tree == nil || len(tree.Root.EdgeSet) != 2 {
		t.Fatalf("expected TerminalFirst to cover both edges, got %+v", tree)
	}
	if tree.Strategy != TerminalFirst {
		t.Fatalf("expected Tree.Strategy to record TerminalFirst")
	}
}

func TestMinimumWidthDecomposeCoversAllEdgesAndMinimizesFrontier(t *testing.T) {
	r := buildPathRule(t)
	tree := Decompose(r, MinimumWidth)
	if tree == nil || len(tree.Root.EdgeSet) != 2 {
		t.Fatalf("expected MinimumWidth to cover both edges, got %+v", tree)
	}
	// the boundary mask puts a node on the frontier only while one of its
	// incident edges is unconsumed; external status does not enter it.
	// Here both edges are covered, so the root's boundary mask is empty,
	// node 1 included.
	if tree.Root.BoundaryMask != 0 {
		t.Fatalf("expected an empty boundary mask once all edges are consumed, got %v", tree.Root.BoundaryMask)
	}
}

func TestLeafNodesCarryTheirSingleEdge(t *testing.T) {
	r := buildPathRule(t)
	tree := Decompose(r, Naive)
	left := tree.Root.Left
	if !left.IsLeaf || len(left.EdgeSet) != 1 {
		t.Fatalf("expected a single-edge leaf, got %+v", left)
	}
}
