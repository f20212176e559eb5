package forest

import (
	"math"

	"golang.org/x/exp/slices"
)

// saturationCeiling is the real-domain derivation-count ceiling past
// which further multiplication/summation is clamped, flagging overflow
// rather than producing +Inf or NaN (§4.6).
const saturationCeiling = 1e100

// DerivationCount computes D(root) in the real domain: for each OR-node,
// the sum over alternatives of the product of child counts, memoised on
// canonical nodes. Leaves contribute D = 1. Saturates at
// saturationCeiling on both the per-alternative product and the running
// total.
func DerivationCount(root *Node) float64 {
	cache := make(map[*Node]float64)
	var rec func(n *Node) float64
	rec = func(n *Node) float64 {
		c := Canonical(n)
		if v, ok := cache[c]; ok {
			return v
		}
		total := 0.0
		for _, alt := range c.Cycle() {
			altCount := 1.0
			for _, child := range alt.Children() {
				altCount *= rec(child)
				if altCount > saturationCeiling {
					altCount = saturationCeiling
				}
			}
			total += altCount
			if total > saturationCeiling {
				total = saturationCeiling
			}
		}
		cache[c] = total
		return total
	}
	return rec(root)
}

// LogDerivationCount computes log D(root) via log-sum-exp, equivalent to
// DerivationCount but immune to the real-domain saturation ceiling.
func LogDerivationCount(root *Node) float64 {
	cache := make(map[*Node]float64)
	var rec func(n *Node) float64
	rec = func(n *Node) float64 {
		c := Canonical(n)
		if v, ok := cache[c]; ok {
			return v
		}
		logTotal := math.Inf(-1)
		for _, alt := range c.Cycle() {
			logAlt := 0.0 // log(1)
			for _, child := range alt.Children() {
				logAlt += rec(child)
			}
			logTotal = AddLogs(logTotal, logAlt)
		}
		cache[c] = logTotal
		return logTotal
	}
	return rec(root)
}

// Entropy computes H = logZ − Σ_alt γ(alt)·log w(alt), where alt ranges
// over every AND-node (alternative) reachable from root and
// γ(alt) = exp(log w(alt) + Σ_child β(canonical(child)) + α(canonical(OR
// node alt belongs to)) − logZ) is the edge posterior of that single
// alternative, not the OR-node's marginal. Requires Inside/Outside to
// have already populated LogInside/LogOutside for the pass weights w
// belongs to. Clamped to ≥ 0 (§4.6, §8).
func Entropy(root *Node, logZ float64, w Weights) float64 {
	visited := make(map[*Node]bool)
	sum := 0.0
	var visit func(n *Node)
	visit = func(n *Node) {
		if n == nil || visited[n] {
			return
		}
		start := n
		for cur := n; ; cur = cur.Next {
			if !visited[cur] {
				visited[cur] = true
				canon := Canonical(cur)
				logOutside := canon.LogOutside
				logW := w.LogWeight(cur)
				if isValidLogProb(logOutside) && !math.IsInf(logW, 0) {
					childSum := 0.0
					childrenValid := true
					for _, child := range cur.Children() {
						ci := Canonical(child).LogInside
						if !isValidLogProb(ci) {
							childrenValid = false
							break
						}
						childSum += ci
					}
					if childrenValid {
						logGamma := logW + childSum + logOutside - logZ
						gamma := math.Exp(logGamma)
						if gamma > 0 && !math.IsInf(gamma, 0) && !math.IsNaN(gamma) {
							sum += gamma * logW
						}
					}
				}
				for _, child := range cur.Children() {
					visit(child)
				}
			}
			if cur.Next == start {
				break
			}
		}
	}
	visit(root)
	h := logZ - sum
	if h < 0 {
		h = 0
	}
	return h
}

func isValidLogProb(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 1)
}

// Stats is the composite forest-size/shape metric: node and edge counts
// from a single DFS, maximum depth, average branching factor, and the
// product complexity = nodes × avgBranching × maxDepth (§4.6).
type Stats struct {
	NumNodes     int
	NumEdges     int
	MaxDepth     int
	AvgBranching float64
	Complexity   float64
}

// Complexity runs the single DFS that computes Stats: each distinct
// AND-node (across every OR-node cycle) is counted once, its children
// count towards NumEdges, and depth is tracked along the recursion.
func Complexity(root *Node) Stats {
	var stats Stats
	visited := make(map[*Node]bool)
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if n == nil {
			return
		}
		start := n
		for cur := n; ; cur = cur.Next {
			if !visited[cur] {
				visited[cur] = true
				stats.NumNodes++
				children := cur.Children()
				stats.NumEdges += len(children)
				if depth > stats.MaxDepth {
					stats.MaxDepth = depth
				}
				for _, child := range children {
					visit(child, depth+1)
				}
			}
			if cur.Next == start {
				break
			}
		}
	}
	visit(root, 0)
	if stats.NumNodes > 0 {
		stats.AvgBranching = float64(stats.NumEdges) / float64(stats.NumNodes)
	}
	stats.Complexity = float64(stats.NumNodes) * stats.AvgBranching * float64(stats.MaxDepth)
	return stats
}

// Metrics bundles every ambiguity metric computed for one forest: the
// entropy (requires a valid log partition), the expected derivation
// count (real + log domain), size/shape statistics, and the total count
// of OR-nodes with more than one alternative.
type Metrics struct {
	Entropy                  float64
	HasValidEntropy          bool
	ExpectedDerivationCount  float64
	LogDerivationCount       float64
	Stats                    Stats
	NumAmbiguousAlternatives int // total alt count at OR-nodes with >1 alt
}

// ComputeMetrics computes every Metrics field in one call. logZ should
// be the forest's log partition function (Inside(root, w, pass));
// entropy is populated if logZ is a valid log-probability (not NaN, not
// +Inf; -Inf passes), and otherwise from root's memoised LogInside if
// that one is valid.
func ComputeMetrics(root *Node, logZ float64, w Weights) Metrics {
	var m Metrics
	m.ExpectedDerivationCount = DerivationCount(root)
	m.LogDerivationCount = LogDerivationCount(root)
	m.Stats = Complexity(root)
	if isValidLogProb(logZ) || isValidLogProb(Canonical(root).LogInside) {
		z := logZ
		if !isValidLogProb(z) {
			z = Canonical(root).LogInside
		}
		m.Entropy = Entropy(root, z, w)
		m.HasValidEntropy = true
	}
	m.NumAmbiguousAlternatives = countAmbiguousAlternatives(root)
	return m
}

func countAmbiguousAlternatives(root *Node) int {
	visited := make(map[*Node]bool)
	total := 0
	var visit func(n *Node)
	visit = func(n *Node) {
		if n == nil || visited[n] {
			return
		}
		alts := n.Cycle()
		// cycle() walks from n; guard re-entry by checking canonical only
		// once per OR-node.
		if visited[alts[0]] {
			return
		}
		for _, a := range alts {
			visited[a] = true
		}
		if len(alts) > 1 {
			total += len(alts)
		}
		for _, a := range alts {
			for _, child := range a.Children() {
				visit(child)
			}
		}
	}
	visit(root)
	return total
}

// sortedByIndex returns a copy of ns ordered by allocation id, a
// deterministic order irrespective of pointer identity, using
// golang.org/x/exp/slices the way grammar.Index orders non-terminal
// edges. Nothing in this module calls it.
func sortedByIndex(ns []*Node) []*Node {
	out := append([]*Node(nil), ns...)
	slices.SortFunc(out, func(a, b *Node) bool { return a.id < b.id })
	return out
}
