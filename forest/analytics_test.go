package forest

import (
	"math"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestDerivationCountCountsBothAlternatives(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	_, root, _ := buildAmbiguousForest(t)
	if got := DerivationCount(root); got != 2.0 {
		t.Fatalf("expected 2 distinct derivations (one per alternative), got %v", got)
	}
	if got := LogDerivationCount(root); math.Abs(got-math.Log(2)) > 1e-9 {
		t.Fatalf("expected log(2), got %v", got)
	}
}

func TestEntropyMatchesBinaryEntropyFormula(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	pool, root, w := buildAmbiguousForest(t)
	Closure(root)
	pass := pool.BeginPass()
	logZ := Inside(root, w, pass)
	Outside(root, w, pass)

	got := Entropy(root, logZ, w)
	want := -(0.6*math.Log(0.6) + 0.4*math.Log(0.4))
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected binary entropy %v, got %v", want, got)
	}
	if got < 0 {
		t.Fatalf("entropy must never be negative, got %v", got)
	}
}

func TestComplexityCountsNodesEdgesDepth(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	_, root, _ := buildAmbiguousForest(t)
	stats := Complexity(root)
	if stats.NumNodes != 4 {
		t.Fatalf("expected 4 distinct AND-nodes (2 alternatives + 2 leaves), got %d", stats.NumNodes)
	}
	if stats.NumEdges != 4 {
		t.Fatalf("expected 4 child edges (2 per alternative), got %d", stats.NumEdges)
	}
	if stats.MaxDepth != 1 {
		t.Fatalf("expected max depth 1, got %d", stats.MaxDepth)
	}
}

func TestComputeMetricsReportsAmbiguousAlternatives(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	pool, root, w := buildAmbiguousForest(t)
	Closure(root)
	pass := pool.BeginPass()
	logZ := Inside(root, w, pass)
	Outside(root, w, pass)

	m := ComputeMetrics(root, logZ, w)
	if !m.HasValidEntropy {
		t.Fatalf("expected a valid entropy given a finite logZ")
	}
	if m.NumAmbiguousAlternatives != 2 {
		t.Fatalf("expected 2 ambiguous alternatives at the root OR-node, got %d", m.NumAmbiguousAlternatives)
	}
	if m.ExpectedDerivationCount != 2.0 {
		t.Fatalf("expected derivation count 2.0, got %v", m.ExpectedDerivationCount)
	}
}
