package forest

import (
	"errors"
	"math"
	"math/rand"

	"github.com/npillmayer/shrg/grammar"
)

// Derivation is a finite labelled tree extracted from a packed forest:
// each node names the rule alternative chosen at that OR-node and its
// extracted children. Never materialised during parsing, only by
// extraction (§3.1).
type Derivation struct {
	ChartNode    *Node
	Rule         *grammar.Rule
	CFGRuleIndex int
	Children     []*Derivation
}

// RuleIndicesAndEdgeSets flattens a Derivation into the
// (rule_indices[], edge_sets[]) pair §4.7 names as the extractor's
// alternate output shape (used by corpusio.WriteDerivations), in
// pre-order.
func (d *Derivation) RuleIndicesAndEdgeSets() (ruleIndices []int, edgeSets []string) {
	var walk func(n *Derivation)
	walk = func(n *Derivation) {
		idx := -1
		if n.Rule != nil && n.CFGRuleIndex >= 0 {
			idx = n.Rule.CFGRules[n.CFGRuleIndex].ShrgIndex
		}
		ruleIndices = append(ruleIndices, idx)
		edgeSets = append(edgeSets, bitstring256(n.ChartNode.EdgeSet))
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(d)
	return
}

func bitstring256(es [4]uint64) string {
	buf := make([]byte, 0, 256)
	for w := 0; w < 4; w++ {
		for b := 0; b < 64; b++ {
			if es[w]&(1<<uint(b)) != 0 {
				buf = append(buf, '1')
			} else {
				buf = append(buf, '0')
			}
		}
	}
	return string(buf)
}

// ExtractionPolicy selects, at every OR-node reached during extraction,
// which alternative of the cycle to recurse into (§4.7). Extract
// memoises the choice per canonical node, so a deterministic policy
// applied twice to the same forest yields the same derivation (the
// em-greedy(forest) applied twice law, §8).
type ExtractionPolicy interface {
	Name() string
	choose(cycle []*Node) *Node
}

type scoredPolicy struct {
	name  string
	score func(alt *Node) float64
}

func (p *scoredPolicy) Name() string { return p.name }

func (p *scoredPolicy) choose(cycle []*Node) *Node {
	best := cycle[0]
	bestScore := math.Inf(-1)
	for _, alt := range cycle {
		s := p.score(alt)
		if s > bestScore {
			bestScore = s
			best = alt
		}
	}
	return best
}

// EMGreedy picks, at every OR-node, the alternative whose own rule has
// maximum log weight (ties broken by cycle order), independently per
// node — grounded on FindBestDerivation_EMGreedy in
// original_source/src/em_framework/find_derivations.cpp.
func EMGreedy(w Weights) ExtractionPolicy {
	return &scoredPolicy{name: "em-greedy", score: func(alt *Node) float64 {
		if alt.Rule == nil {
			return math.Inf(-1)
		}
		return w.LogWeight(alt)
	}}
}

// EMInside picks the alternative whose own per-alternative inside term
// (log w(alt) + Σ β(child)) is largest — distinct from the OR-node's
// marginal β, which by construction is identical across every
// alternative of the cycle. Requires Inside to have already been run
// under pass. Grounded on FindBestDerivation_EMInside.
func EMInside(w Weights, pass int) ExtractionPolicy {
	return &scoredPolicy{name: "em-inside", score: func(alt *Node) float64 {
		t := w.LogWeight(alt)
		for _, c := range alt.Children() {
			t += Canonical(c).LogInside
		}
		return t
	}}
}

// countGreedyPolicy implements count-greedy: each OR-node's BestScore is
// the Viterbi-max analogue of inside (max instead of ⊕), computed once
// via memoised DP and cached on the canonical node — grounded on
// FindBestScoreWeight, which also Swaps the winning alternative into the
// canonical slot so the cached score sits beside the decomposition it
// describes.
type countGreedyPolicy struct {
	w        Weights
	computed map[*Node]bool
}

func (p *countGreedyPolicy) Name() string { return "count-greedy" }

func (p *countGreedyPolicy) bestScore(n *Node) float64 {
	c := Canonical(n)
	if p.computed[c] {
		return c.BestScore
	}
	p.computed[c] = true
	bestScore := math.Inf(-1)
	var winner *Node
	for _, alt := range c.Cycle() {
		current := p.w.LogWeight(alt)
		for _, child := range alt.Children() {
			current += p.bestScore(child)
		}
		if current > bestScore {
			bestScore = current
			winner = alt
		}
	}
	c.BestScore = bestScore
	if winner != nil && winner != c {
		Swap(c, winner)
	}
	return bestScore
}

func (p *countGreedyPolicy) choose(cycle []*Node) *Node {
	c := Canonical(cycle[0])
	p.bestScore(c) // ensures BestScore/Swap applied
	return c        // post-Swap, the canonical slot holds the winning decomposition
}

// CountGreedy picks, via Viterbi-style memoised DP, the alternative
// maximising logw(alt) + Σ child-score, grounded on FindBestScoreWeight
// (which also swaps the winning alternative into the canonical slot so
// the cached score sits beside the decomposition it describes).
func CountGreedy(w Weights) ExtractionPolicy {
	return &countGreedyPolicy{w: w, computed: make(map[*Node]bool)}
}

// countInsidePolicy picks the alternative maximising its own
// log_inside_count contribution (Σ child LogDerivationCount), i.e. the
// alternative that participates in the most distinct derivations.
type countInsidePolicy struct{}

func (p *countInsidePolicy) Name() string { return "count-inside" }

func (p *countInsidePolicy) choose(cycle []*Node) *Node {
	best := cycle[0]
	bestScore := math.Inf(-1)
	for _, alt := range cycle {
		s := 0.0
		for _, child := range alt.Children() {
			s += LogDerivationCount(child)
		}
		if s > bestScore {
			bestScore = s
			best = alt
		}
	}
	return best
}

// CountInside returns the count-inside policy.
func CountInside() ExtractionPolicy { return &countInsidePolicy{} }

// samplePolicy draws an alternative multinomially, weighted by each
// alternative's own rule weight (not its outside-adjusted marginal) —
// grounded on sampleWeighted/FindBestDerivation_sample.
type samplePolicy struct {
	w   Weights
	rng *rand.Rand
}

func (p *samplePolicy) Name() string { return "sample" }

func (p *samplePolicy) choose(cycle []*Node) *Node {
	weights := make([]float64, len(cycle))
	total := 0.0
	for i, alt := range cycle {
		weights[i] = math.Exp(p.w.LogWeight(alt))
		total += weights[i]
	}
	if total <= 0 {
		return cycle[0]
	}
	r := p.rng.Float64() * total
	cum := 0.0
	for i, wt := range weights {
		cum += wt
		if r <= cum {
			return cycle[i]
		}
	}
	return cycle[len(cycle)-1]
}

// Sample returns the sample policy, seeded for reproducibility (the
// `sample(forest)` with fixed seed is reproducible law, §8).
func Sample(w Weights, seed int64) ExtractionPolicy {
	return &samplePolicy{w: w, rng: rand.New(rand.NewSource(seed))}
}

// uniformPolicy draws an alternative uniformly at random.
type uniformPolicy struct{ rng *rand.Rand }

func (p *uniformPolicy) Name() string { return "uniform" }

func (p *uniformPolicy) choose(cycle []*Node) *Node {
	return cycle[p.rng.Intn(len(cycle))]
}

// Uniform returns the uniform-sampling policy, seeded for
// reproducibility.
func Uniform(seed int64) ExtractionPolicy {
	return &uniformPolicy{rng: rand.New(rand.NewSource(seed))}
}

// Extract runs policy over root's forest, producing a Derivation tree.
// Memoises the chosen alternative per canonical node in a map local to
// the call (pool is not consulted), so two Extract calls with the same
// deterministic policy on the same forest always yield structurally
// identical trees.
func Extract(pool *Pool, root *Node, policy ExtractionPolicy) *Derivation {
	memo := make(map[*Node]*Derivation)
	var rec func(n *Node) *Derivation
	rec = func(n *Node) *Derivation {
		c := Canonical(n)
		if d, ok := memo[c]; ok {
			return d
		}
		chosen := policy.choose(c.Cycle())
		d := &Derivation{ChartNode: chosen, Rule: chosen.Rule, CFGRuleIndex: chosen.CFGRuleIndex}
		memo[c] = d
		for _, child := range chosen.Children() {
			d.Children = append(d.Children, rec(child))
		}
		return d
	}
	return rec(root)
}

// ErrNotRepresentable is returned by AlignGold when the forest cannot
// realise the requested gold rule-index multiset.
var ErrNotRepresentable = errors.New("forest: gold derivation not representable")

// AlignGold depth-first explores root's alternatives against gold, a
// multiset of CFGRule.ShrgIndex values forming the gold derivation: at
// each AND-node it consumes one matching rule index from the multiset,
// backtracking exactly on mismatch or exhaustion (§4.7). Returns
// ErrNotRepresentable if no alignment exists.
func AlignGold(root *Node, gold []int) (*Derivation, error) {
	multiset := make(map[int]int, len(gold))
	for _, idx := range gold {
		multiset[idx]++
	}
	// log records every index decremented from multiset, in consumption
	// order, so a failed alternative can undo its own consumption and
	// that of every child it got partway through before failing.
	var log []int
	var explore func(n *Node) *Derivation
	explore = func(n *Node) *Derivation {
		for _, alt := range n.Cycle() {
			idx := -1
			if alt.Rule != nil && alt.CFGRuleIndex >= 0 {
				idx = alt.Rule.CFGRules[alt.CFGRuleIndex].ShrgIndex
			}
			if multiset[idx] <= 0 {
				continue
			}
			mark := len(log)
			multiset[idx]--
			log = append(log, idx)
			children := alt.Children()
			childDerivs := make([]*Derivation, 0, len(children))
			ok := true
			for _, child := range children {
				cd := explore(child)
				if cd == nil {
					ok = false
					break
				}
				childDerivs = append(childDerivs, cd)
			}
			if ok {
				return &Derivation{ChartNode: alt, Rule: alt.Rule, CFGRuleIndex: alt.CFGRuleIndex, Children: childDerivs}
			}
			// backtrack: restore every index this alt's subtree consumed,
			// including from siblings that themselves succeeded before a
			// later sibling failed, and try the next alt.
			for i := len(log) - 1; i >= mark; i-- {
				multiset[log[i]]++
			}
			log = log[:mark]
		}
		return nil
	}
	d := explore(root)
	if d == nil {
		return nil, ErrNotRepresentable
	}
	return d, nil
}

// VerifyRoundTrip checks that flattening d with RuleIndicesAndEdgeSets
// and re-aligning the resulting rule-index multiset against root
// reproduces a rule-index multiset equal to d's own — the gold-alignment
// round-trip law of §8 scenario 5.
func VerifyRoundTrip(root *Node, d *Derivation) error {
	ruleIndices, _ := d.RuleIndicesAndEdgeSets()
	aligned, err := AlignGold(root, ruleIndices)
	if err != nil {
		return err
	}
	got, _ := aligned.RuleIndicesAndEdgeSets()
	if !sameMultiset(ruleIndices, got) {
		return errors.New("forest: round-trip rule-index multiset mismatch")
	}
	return nil
}

func sameMultiset(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[int]int, len(a))
	for _, x := range a {
		counts[x]++
	}
	for _, x := range b {
		counts[x]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}
