package forest

import (
	"math"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/npillmayer/shrg/grammar"
	"github.com/npillmayer/shrg/hypergraph"
)

// buildAmbiguousForest hand-builds a two-leaf, two-alternative forest
// directly against a Pool: leafA covers edge 0, leafB covers edge 1, and
// the root OR-node has two alternatives — ruleA at weight log(0.6),
// ruleB at log(0.4) — both spanning the same (edgeSet, boundary), so
// EmitPassive splices them into a single cycle. This is the packed
// derivation forest's minimal interesting shape: one genuine ambiguity,
// with known closed-form inside/outside/entropy values.
func buildAmbiguousForest(t *testing.T) (pool *Pool, root *Node, w Weights) {
	t.Helper()
	pool = NewPool(0)

	leafA, err := pool.NewLeaf(100, 0, hypergraph.NewNodeMapping())
	if err != nil {
		t.Fatalf("NewLeaf: %v", err)
	}
	leafB, err := pool.NewLeaf(200, 1, hypergraph.NewNodeMapping())
	if err != nil {
		t.Fatalf("NewLeaf: %v", err)
	}

	ruleA := &grammar.Rule{Label: 5, CFGRules: []grammar.CFGRule{{Label: "a", ShrgIndex: 0}}}
	ruleB := &grammar.Rule{Label: 5, CFGRules: []grammar.CFGRule{{Label: "b", ShrgIndex: 1}}}

	edgeSet := hypergraph.EdgeSet{}.Set(0).Set(1)
	mapping := hypergraph.NewNodeMapping()

	alt1, err := pool.EmitPassive(5, ruleA, 0, edgeSet, mapping, leafA, leafB)
	if err != nil {
		t.Fatalf("EmitPassive alt1: %v", err)
	}
	alt2, err := pool.EmitPassive(5, ruleB, 0, edgeSet, mapping, leafB, leafA)
	if err != nil {
		t.Fatalf("EmitPassive alt2: %v", err)
	}
	if alt1 != alt2 {
		t.Fatalf("expected both alternatives to dedup to the same OR-node, got %p vs %p", alt1, alt2)
	}
	if len(alt1.Cycle()) != 2 {
		t.Fatalf("expected a 2-alternative cycle, got %d", len(alt1.Cycle()))
	}

	w = Weights{math.Log(0.6), math.Log(0.4)}
	return pool, alt1, w
}

func TestPoolDedupSplicesAlternativesIntoOneCycle(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	_, root, _ := buildAmbiguousForest(t)
	if Canonical(root) != root {
		t.Fatalf("expected the first-inserted alternative to remain canonical")
	}
}

func TestPoolLenAndOutOfMemory(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	pool := NewPool(1)
	_, err := pool.NewLeaf(1, 0, hypergraph.NewNodeMapping())
	if err != nil {
		t.Fatalf("first leaf should fit within a pool of size 1: %v", err)
	}
	if pool.Len() != 1 {
		t.Fatalf("expected Len()==1, got %d", pool.Len())
	}
	_, err = pool.NewLeaf(2, 1, hypergraph.NewNodeMapping())
	if err == nil {
		t.Fatalf("expected ErrOutOfMemory once the pool ceiling is exceeded")
	}
}

func TestAddLogsIdentityAndCommutativity(t *testing.T) {
	negInf := math.Inf(-1)
	if got := AddLogs(negInf, 3.0); got != 3.0 {
		t.Fatalf("AddLogs(-Inf, x) should equal x, got %v", got)
	}
	if got := AddLogs(3.0, negInf); got != 3.0 {
		t.Fatalf("AddLogs(x, -Inf) should equal x, got %v", got)
	}
	a, b := math.Log(0.6), math.Log(0.4)
	ab := AddLogs(a, b)
	ba := AddLogs(b, a)
	if math.Abs(ab-ba) > 1e-12 {
		t.Fatalf("AddLogs should be commutative, got %v vs %v", ab, ba)
	}
	if got := math.Exp(ab); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("log(0.6)+log(0.4) in log-space should exponentiate to 1.0, got %v", got)
	}
}

func TestInsideOutsideOnAmbiguousForest(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	pool, root, w := buildAmbiguousForest(t)
	Closure(root)

	result := InsideOutside(pool, root, w, 2)
	if math.Abs(result.LogZ) > 1e-9 {
		t.Fatalf("expected logZ == log(1) == 0 (weights sum to 1), got %v", result.LogZ)
	}
	wantCounts := []float64{math.Log(0.6), math.Log(0.4)}
	for i, want := range wantCounts {
		if math.Abs(result.ExpectedCounts[i]-want) > 1e-9 {
			t.Fatalf("rule %d: expected log-count %v, got %v", i, want, result.ExpectedCounts[i])
		}
	}
}

func TestOutsideByLevelAgreesOnWellBehavedForest(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	pool, root, w := buildAmbiguousForest(t)
	Closure(root)

	pass1 := pool.BeginPass()
	Inside(root, w, pass1)
	Outside(root, w, pass1)
	wantRoot, wantLeafA := Canonical(root).LogOutside, Canonical(root.Left).LogOutside

	pool2, root2, w2 := buildAmbiguousForest(t)
	Closure(root2)
	pass2 := pool2.BeginPass()
	Inside(root2, w2, pass2)
	OutsideByLevel(root2, w2, pass2)
	gotRoot, gotLeafA := Canonical(root2).LogOutside, Canonical(root2.Left).LogOutside

	if math.Abs(wantRoot-gotRoot) > 1e-9 {
		t.Fatalf("Outside and OutsideByLevel disagree on root: %v vs %v", wantRoot, gotRoot)
	}
	if math.Abs(wantLeafA-gotLeafA) > 1e-9 {
		t.Fatalf("Outside and OutsideByLevel disagree on a leaf: %v vs %v", wantLeafA, gotLeafA)
	}
}

func TestClosureParentsRecordBothAlternatives(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	_, root, _ := buildAmbiguousForest(t)
	Closure(root)

	leafA := Canonical(root.Left)
	if len(leafA.Parents) != 2 {
		t.Fatalf("expected leafA to be reached as a child of both alternatives, got %d parent entries", len(leafA.Parents))
	}
}
