package forest

import (
	"math"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestEMGreedyPicksHigherWeightedAlternative(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	pool, root, w := buildAmbiguousForest(t)
	d := Extract(pool, root, EMGreedy(w))
	if d.Rule == nil || d.Rule.CFGRules[d.CFGRuleIndex].ShrgIndex != 0 {
		t.Fatalf("expected em-greedy to pick the log(0.6)-weighted alternative (shrg_index 0)")
	}
	if len(d.Children) != 2 {
		t.Fatalf("expected 2 extracted children, got %d", len(d.Children))
	}

	// em-greedy(forest) applied twice yields the same tree (§8).
	d2 := Extract(pool, root, EMGreedy(w))
	idx1, es1 := d.RuleIndicesAndEdgeSets()
	idx2, es2 := d2.RuleIndicesAndEdgeSets()
	if !sameMultiset(idx1, idx2) {
		t.Fatalf("repeated em-greedy extraction produced different rule indices: %v vs %v", idx1, idx2)
	}
	for i := range es1 {
		if es1[i] != es2[i] {
			t.Fatalf("repeated em-greedy extraction produced different edge sets at position %d", i)
		}
	}
}

func TestCountGreedyMemoisesAndPicksBestDerivation(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	pool, root, w := buildAmbiguousForest(t)
	d := Extract(pool, root, CountGreedy(w))
	if d.Rule == nil || d.Rule.CFGRules[d.CFGRuleIndex].ShrgIndex != 0 {
		t.Fatalf("expected count-greedy to pick shrg_index 0 (both leaves contribute 0 either way)")
	}
	want := math.Log(0.6)
	if got := Canonical(root).BestScore; math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected BestScore memoised as log(0.6)=%v, got %v", want, got)
	}
}

func TestSampleIsReproducibleWithFixedSeed(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	pool, root, w := buildAmbiguousForest(t)
	d1 := Extract(pool, root, Sample(w, 42))
	d2 := Extract(pool, root, Sample(w, 42))
	idx1, _ := d1.RuleIndicesAndEdgeSets()
	idx2, _ := d2.RuleIndicesAndEdgeSets()
	if !sameMultiset(idx1, idx2) {
		t.Fatalf("Sample with the same seed should reproduce the same derivation, got %v vs %v", idx1, idx2)
	}
}

func TestUniformIsReproducibleWithFixedSeed(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	pool, root, _ := buildAmbiguousForest(t)
	d1 := Extract(pool, root, Uniform(7))
	d2 := Extract(pool, root, Uniform(7))
	idx1, _ := d1.RuleIndicesAndEdgeSets()
	idx2, _ := d2.RuleIndicesAndEdgeSets()
	if !sameMultiset(idx1, idx2) {
		t.Fatalf("Uniform with the same seed should reproduce the same derivation, got %v vs %v", idx1, idx2)
	}
}

func TestAlignGoldConsumesLeafPlaceholders(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	_, root, _ := buildAmbiguousForest(t)
	// gold derivations carry a -1 placeholder per leaf, as produced by
	// RuleIndicesAndEdgeSets; two leaves means two -1 entries.
	d, err := AlignGold(root, []int{0, -1, -1})
	if err != nil {
		t.Fatalf("AlignGold: %v", err)
	}
	if d.Rule == nil || d.Rule.CFGRules[d.CFGRuleIndex].ShrgIndex != 0 {
		t.Fatalf("expected AlignGold to select the shrg_index 0 alternative")
	}
}

func TestAlignGoldRejectsUnrepresentableGold(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	_, root, _ := buildAmbiguousForest(t)
	_, err := AlignGold(root, []int{99})
	if err != ErrNotRepresentable {
		t.Fatalf("expected ErrNotRepresentable, got %v", err)
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shrg.forest")
	defer teardown()

	pool, root, w := buildAmbiguousForest(t)
	d := Extract(pool, root, EMGreedy(w))
	if err := VerifyRoundTrip(root, d); err != nil {
		t.Fatalf("VerifyRoundTrip: %v", err)
	}
}
