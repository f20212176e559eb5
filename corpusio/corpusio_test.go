package corpusio

import (
	"math"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/npillmayer/shrg/forest"
)

func TestSymbolsInternIsStableAndDense(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.corpusio")
	defer teardown()

	syms := NewSymbols()
	a := syms.Intern("ARG1")
	b := syms.Intern("ARG2")
	a2 := syms.Intern("ARG1")
	if a != a2 {
		t.Fatalf("expected repeated Intern of the same name to return the same Label")
	}
	if a == b {
		t.Fatalf("expected distinct names to get distinct labels")
	}
	if syms.Name(a) != "ARG1" || syms.Name(b) != "ARG2" {
		t.Fatalf("Name did not round-trip Intern")
	}
	if syms.Len() != 2 {
		t.Fatalf("expected 2 interned symbols, got %d", syms.Len())
	}
}

// a one-rule grammar with a one-node, one-edge fragment and a single
// literal CFG rule, in the §6.1 text format.
const oneRuleGrammar = `1
1
1 1
_dog_n_1 1 0 Y
1 0
1
0 1.0 2.0 np 1
"dog" -1
`

func TestReadGrammarParsesOneRuleWithFragment(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.corpusio")
	defer teardown()

	syms := NewSymbols()
	rules, err := ReadGrammar(oneRuleGrammar, syms)
	if err != nil {
		t.Fatalf("ReadGrammar: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	r := rules[0]
	if r.Fragment == nil || len(r.Fragment.Nodes) != 1 || len(r.Fragment.Edges) != 1 {
		t.Fatalf("expected a 1-node, 1-edge fragment, got %+v", r.Fragment)
	}
	if len(r.ExternalNodes) != 1 || r.ExternalNodes[0] != 0 {
		t.Fatalf("expected external node [0], got %v", r.ExternalNodes)
	}
	if len(r.CFGRules) != 1 {
		t.Fatalf("expected 1 cfg rule, got %d", len(r.CFGRules))
	}
	cr := r.CFGRules[0]
	wantScore := math.Log(1.0) - math.Log(2.0)
	if math.Abs(cr.Score-wantScore) > 1e-9 {
		t.Fatalf("expected score log(1/2)=%v, got %v", wantScore, cr.Score)
	}
	if len(cr.Items) != 1 || cr.Items[0].Label != "dog" || !cr.Items[0].IsLiteral {
		t.Fatalf("expected a single literal item \"dog\", got %+v", cr.Items)
	}
}

func TestReadGrammarRejectsZeroCountScore(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.corpusio")
	defer teardown()

	bad := strings.Replace(oneRuleGrammar, "1.0 2.0", "0.0 1.0", 1)
	syms := NewSymbols()
	if _, err := ReadGrammar(bad, syms); err == nil {
		t.Fatalf("expected an error for a cfg_rule with count 0 (score -Inf)")
	}
}

// a one-graph corpus in the §6.2 text format: two lexical nodes joined
// by a single ARG1 relation edge.
const oneGraph = `1
#20001001
the dog barked
the dog bark
2
0 n1 _dog_n_1 dog NN x1 - - - - -
1 n2 _bark_v_1 bark VBD e2 - - - - -
1 1
0 1 ARG1
`

func TestReadGraphsParsesOneGraphWithRelationEdge(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.corpusio")
	defer teardown()

	syms := NewSymbols()
	graphs, err := ReadGraphs(oneGraph, syms)
	if err != nil {
		t.Fatalf("ReadGraphs: %v", err)
	}
	if len(graphs) != 1 {
		t.Fatalf("expected 1 graph, got %d", len(graphs))
	}
	g := graphs[0]
	if g.SentenceID != "#20001001" {
		t.Fatalf("unexpected sentence id %q", g.SentenceID)
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(g.Nodes))
	}
	// 1 relation edge + 2 virtual terminal edges (one per node).
	if len(g.Edges) != 3 {
		t.Fatalf("expected 3 edges (1 relation + 2 virtual terminals), got %d", len(g.Edges))
	}
	if g.TopIndex != 1 {
		t.Fatalf("expected top_node_idx 1, got %d", g.TopIndex)
	}
}

func TestReadGraphsRejectsOutOfOrderNodeIndex(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.corpusio")
	defer teardown()

	bad := strings.Replace(oneGraph, "1 n2 _bark_v_1", "5 n2 _bark_v_1", 1)
	syms := NewSymbols()
	if _, err := ReadGraphs(bad, syms); err == nil {
		t.Fatalf("expected an error for an out-of-order node index")
	}
}

func TestWeightHistoryRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.corpusio")
	defer teardown()

	hist := []WeightHistory{
		{ShrgIndex: 0, LogWeights: []float64{0, math.Log(0.5), math.Log(0.25)}},
		{ShrgIndex: 1, LogWeights: []float64{math.Inf(-1), -1.5}},
	}
	var buf strings.Builder
	if err := WriteWeightHistory(&buf, hist); err != nil {
		t.Fatalf("WriteWeightHistory: %v", err)
	}
	got, err := ReadWeightHistory(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ReadWeightHistory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(got))
	}
	for i, h := range hist {
		if got[i].ShrgIndex != h.ShrgIndex {
			t.Fatalf("rule %d: shrg_index mismatch: %d vs %d", i, got[i].ShrgIndex, h.ShrgIndex)
		}
		for j, w := range h.LogWeights {
			gw := got[i].LogWeights[j]
			if math.IsInf(w, -1) {
				if !math.IsInf(gw, -1) {
					t.Fatalf("rule %d iter %d: expected -Inf round trip, got %v", i, j, gw)
				}
				continue
			}
			if math.Abs(gw-w) > 1e-9 {
				t.Fatalf("rule %d iter %d: expected %v, got %v", i, j, w, gw)
			}
		}
	}
}

func TestParseTolerantFloatAcceptsVariantSpellings(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.corpusio")
	defer teardown()

	cases := []struct {
		tok  string
		want float64
	}{
		{"inf", math.Inf(1)},
		{"-inf", math.Inf(-1)},
		{"Infinity", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
		{"NaN", math.NaN()},
		{"-1.5\r", -1.5},
		{"−1.5", -1.5}, // Unicode minus sign U+2212
		{"  2.5  ", 2.5},
	}
	for _, c := range cases {
		got, err := parseTolerantFloat(c.tok)
		if err != nil {
			t.Fatalf("parseTolerantFloat(%q): %v", c.tok, err)
		}
		if math.IsNaN(c.want) {
			if !math.IsNaN(got) {
				t.Fatalf("parseTolerantFloat(%q): expected NaN, got %v", c.tok, got)
			}
			continue
		}
		if got != c.want {
			t.Fatalf("parseTolerantFloat(%q): expected %v, got %v", c.tok, c.want, got)
		}
	}
}

func TestParseTolerantFloatRejectsEmptyAndMalformed(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.corpusio")
	defer teardown()

	for _, tok := range []string{"", "   ", "not-a-number"} {
		if _, err := parseTolerantFloat(tok); err == nil {
			t.Fatalf("parseTolerantFloat(%q): expected an error", tok)
		}
	}
}

func TestWriteDerivationsHandlesNilFailedParse(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.corpusio")
	defer teardown()

	var buf strings.Builder
	if err := WriteDerivations(&buf, "#99", nil); err != nil {
		t.Fatalf("WriteDerivations: %v", err)
	}
	want := "Graph_ID: #99\nRule_Indices:\nEdge_Sets:\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestWriteDerivationsAllAlignsShorterDerivationSlice(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.corpusio")
	defer teardown()

	ids := []string{"#1", "#2"}
	derivs := []*forest.Derivation{nil}
	var buf strings.Builder
	if err := WriteDerivationsAll(&buf, ids, derivs); err != nil {
		t.Fatalf("WriteDerivationsAll: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Graph_ID: #1") || !strings.Contains(out, "Graph_ID: #2") {
		t.Fatalf("expected both graph ids to appear, got %q", out)
	}
}
