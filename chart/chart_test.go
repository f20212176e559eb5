package chart

import (
	"errors"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/npillmayer/shrg/grammar"
	"github.com/npillmayer/shrg/hypergraph"
)

// buildSmallGrammar returns a two-rule grammar: rule 0 is a preterminal
// matching a single-node virtual terminal edge of label 10, rule 1 is a
// root rule combining rule 0's passive item (via a non-terminal edge)
// with a literal binary relation edge (label 20) and the second node's
// own virtual terminal edge (label 11) — covering a whole two-node,
// three-edge graph with no external interface left over.
func buildSmallGrammar(t *testing.T) *grammar.Index {
	t.Helper()

	leaf := &grammar.Rule{Label: 1}
	leaf.Fragment = hypergraph.NewHypergraph(1, 1)
	leaf.Fragment.AddNode(true, hypergraph.Free)
	leafEdge := leaf.Fragment.AddEdge(10, true, 0)
	leaf.ExternalNodes = []int{0}
	leaf.CFGRules = []grammar.CFGRule{{
		Label: "leaf", ShrgIndex: 0,
		Items: []grammar.CFGItem{{AlignedEdge: leafEdge}},
	}}

	root := &grammar.Rule{Label: 2}
	root.Fragment = hypergraph.NewHypergraph(2, 3)
	root.Fragment.AddNode(false, hypergraph.Fixed) // node 0: bound via NT edge
	root.Fragment.AddNode(false, hypergraph.Fixed) // node 1: covered by literal edges only
	nt := root.Fragment.AddEdge(1, false, 0)        // refers to leaf's label
	rel := root.Fragment.AddEdge(20, true, 0, 1)
	term1 := root.Fragment.AddEdge(11, true, 1)
	root.ExternalNodes = nil
	root.CFGRules = []grammar.CFGRule{{
		Label: "root", ShrgIndex: 1,
		Items: []grammar.CFGItem{{AlignedEdge: nt}, {AlignedEdge: rel}, {AlignedEdge: term1}},
	}}

	idx, err := grammar.Compile([]*grammar.Rule{leaf, root})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return idx
}

func buildSmallGraph() *hypergraph.Graph {
	g := hypergraph.NewGraph(2, 3)
	n0 := g.AddLexicalNode(hypergraph.GraphNode{Label: 10}, hypergraph.Fixed)
	n1 := g.AddLexicalNode(hypergraph.GraphNode{Label: 11}, hypergraph.Fixed)
	g.AddEdge(20, true, n0, n1)
	g.AugmentVirtualTerminal(n0)
	g.AugmentVirtualTerminal(n1)
	g.SetTop(n0)
	return g
}

func TestParseFindsRootCoveringWholeGraph(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.chart")
	defer teardown()

	idx := buildSmallGrammar(t)
	cg := Compile(idx)
	g := buildSmallGraph()

	root, pool, err := Parse(cg, g)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := fullEdgeSet(len(g.Edges))
	if root.EdgeSet != want {
		t.Fatalf("expected root to cover every graph edge, got %#v", root.EdgeSet)
	}
	if pool.Len() == 0 {
		t.Fatalf("expected a non-empty pool after a successful parse")
	}
}

func TestParseRejectsRootArityMismatch(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.chart")
	defer teardown()

	idx := buildSmallGrammar(t)
	cg := Compile(idx)
	g := buildSmallGraph()

	_, _, err := Parse(cg, g, WithRootArity(1))
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected ErrNoResult when the only root has arity 0, got %v", err)
	}
}

func TestParseNoResultOnUnparsableGraph(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.chart")
	defer teardown()

	idx := buildSmallGrammar(t)
	cg := Compile(idx)

	// A single isolated node whose virtual terminal edge matches no rule
	// in the grammar at all.
	g := hypergraph.NewGraph(1, 1)
	n0 := g.AddLexicalNode(hypergraph.GraphNode{Label: 999}, hypergraph.Fixed)
	g.AugmentVirtualTerminal(n0)

	_, _, err := Parse(cg, g)
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
}

func TestParseOutOfMemory(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.chart")
	defer teardown()

	idx := buildSmallGrammar(t)
	cg := Compile(idx)
	g := buildSmallGraph()

	_, _, err := Parse(cg, g, WithPoolSize(1))
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("expected ErrOutOfMemory with a pool ceiling of 1, got %v", err)
	}
}

func TestParseTooLarge(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.chart")
	defer teardown()

	idx := buildSmallGrammar(t)
	cg := Compile(idx)

	g := hypergraph.NewGraph(hypergraph.MaxEdges+2, hypergraph.MaxEdges+2)
	for i := 0; i <= hypergraph.MaxEdges+1; i++ {
		n := g.AddLexicalNode(hypergraph.GraphNode{Label: hypergraph.Label(i)}, hypergraph.Fixed)
		g.AugmentVirtualTerminal(n)
	}

	_, _, err := Parse(cg, g)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}
