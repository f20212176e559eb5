package grammar

import (
	"errors"
	"testing"

	"golang.org/x/tools/container/intsets"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/npillmayer/shrg/hypergraph"
)

func makeSparse(vals ...int) *intsets.Sparse {
	s := &intsets.Sparse{}
	for _, v := range vals {
		s.Insert(v)
	}
	return s
}

// leafRule builds a single-node, single-terminal-edge fragment rule: a
// boundary node matched against one virtual terminal edge of label
// termLabel, synchronised with a one-item literal CFGRule. Mirrors the
// shape corpusio.ReadGrammar produces for a preterminal SHRG rule.
func leafRule(lhs hypergraph.Label, termLabel hypergraph.Label, shrgIndex int) *Rule {
	frag := hypergraph.NewHypergraph(1, 1)
	frag.AddNode(true, hypergraph.Free)
	e := frag.AddEdge(termLabel, true, 0)
	return &Rule{
		Label:         lhs,
		Fragment:      frag,
		ExternalNodes: []int{0},
		CFGRules: []CFGRule{{
			Label:     "leaf",
			ShrgIndex: shrgIndex,
			Items:     []CFGItem{{AlignedEdge: e, IsLiteral: false}},
		}},
	}
}

func TestCompileOrdersEdgesAndBuildsMasks(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.grammar")
	defer teardown()

	// Root rule combines two leaves via two non-terminal edges sharing
	// no boundary node, so both orderings of NonTerminalEdges are
	// structurally valid — Compile must still produce a deterministic
	// ordering without error.
	root := &Rule{Label: 99}
	root.Fragment = hypergraph.NewHypergraph(2, 2)
	root.Fragment.AddNode(false, hypergraph.SemiFixed)
	root.Fragment.AddNode(false, hypergraph.SemiFixed)
	nt0 := root.Fragment.AddEdge(0, false, 0)
	nt1 := root.Fragment.AddEdge(0, false, 1)
	_ = nt0
	_ = nt1
	root.ExternalNodes = nil
	root.CFGRules = []CFGRule{{Label: "root", ShrgIndex: 2, Items: []CFGItem{
		{AlignedEdge: nt0}, {AlignedEdge: nt1},
	}}}

	rules := []*Rule{leafRule(0, 10, 0), leafRule(0, 10, 1), root}

	idx, err := Compile(rules)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if idx.NumRules() != 3 {
		t.Fatalf("expected 3 dense shrg indices, got %d", idx.NumRules())
	}
	if len(rules[2].NonTerminalEdges) != 2 {
		t.Fatalf("expected root's 2 non-terminal edges ordered, got %d", len(rules[2].NonTerminalEdges))
	}
	// boundary mask shrinks monotonically toward 0 as more edges merge.
	m0 := idx.BoundaryMask(2, 0)
	m2 := idx.BoundaryMask(2, 2)
	if m2 != 0 {
		t.Fatalf("expected empty boundary mask once every non-terminal edge is consumed, got %#x", m2)
	}
	if m0 == 0 {
		t.Fatalf("expected a non-empty boundary mask before any edge is consumed")
	}
}

func TestCompileRejectsDuplicateShrgIndex(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.grammar")
	defer teardown()

	rules := []*Rule{leafRule(0, 10, 0), leafRule(1, 11, 0)}
	_, err := Compile(rules)
	if !errors.Is(err, ErrMalformedGrammar) {
		t.Fatalf("expected ErrMalformedGrammar for duplicate shrg_index, got %v", err)
	}
}

func TestCompileRejectsNonDenseShrgIndex(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.grammar")
	defer teardown()

	rules := []*Rule{leafRule(0, 10, 0), leafRule(1, 11, 5)}
	_, err := Compile(rules)
	if !errors.Is(err, ErrMalformedGrammar) {
		t.Fatalf("expected ErrMalformedGrammar for a gap in shrg_index space, got %v", err)
	}
}

func TestCompileRejectsTerminalSelfLoop(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.grammar")
	defer teardown()

	frag := hypergraph.NewHypergraph(1, 1)
	frag.AddNode(true, hypergraph.Free)
	e := frag.AddEdge(10, true, 0, 0) // self-loop: same node twice
	r := &Rule{
		Label:         0,
		Fragment:      frag,
		ExternalNodes: []int{0},
		CFGRules:      []CFGRule{{Label: "leaf", ShrgIndex: 0, Items: []CFGItem{{AlignedEdge: e}}}},
	}
	_, err := Compile([]*Rule{r})
	if !errors.Is(err, ErrMalformedGrammar) {
		t.Fatalf("expected ErrMalformedGrammar for terminal self-loop, got %v", err)
	}
}

func TestCompatibleWithTerminals(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.grammar")
	defer teardown()

	rules := []*Rule{leafRule(0, 10, 0)}
	idx, err := Compile(rules)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	present := makeSparse(int(hypergraph.MakeLabelHash(10, 1, true)))
	if !idx.CompatibleWithTerminals(0, present) {
		t.Fatalf("expected rule 0 compatible when its terminal hash is available")
	}
	absent := makeSparse(int(hypergraph.MakeLabelHash(11, 1, true)))
	if idx.CompatibleWithTerminals(0, absent) {
		t.Fatalf("expected rule 0 incompatible when its terminal hash is missing")
	}
}
