package em

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/npillmayer/shrg/chart"
	"github.com/npillmayer/shrg/corpusio"
	"github.com/npillmayer/shrg/forest"
	"github.com/npillmayer/shrg/grammar"
	"github.com/npillmayer/shrg/hypergraph"
)

// Checkpoint records one EM iteration's convergence statistics —
// em_debug.cpp's per-iteration log line, generalized across every mode.
type Checkpoint struct {
	Iteration     int
	LogLikelihood float64
	NumFailed     int // graphs that contributed zero this iteration (§7)
}

// Result is run_em's return value (§6.5): the trained weights, the
// iteration-by-iteration convergence trace, and the indices of graphs
// that never once produced a forest (permanently NoResult/TooLarge, as
// opposed to a transient per-iteration timeout).
type Result struct {
	Weights      forest.Weights
	Checkpoints  []Checkpoint
	FailedGraphs []int
}

// graphState caches one graph's parse across EM iterations: spec §3.2's
// "EM persists a deep copy of the final forest for reuse across
// iterations" is realized here simply by keeping the *forest.Pool/*Node
// pair alive in Go's ordinary memory model for the life of the Run call
// — no explicit deep-copy step is needed (or possible to express more
// cheaply) once nothing but Inside/Outside ever mutates a node's
// OR-node-level cached fields, which every pass already overwrites under
// its own pass token rather than reading stale values across iterations.
type graphState struct {
	g       *hypergraph.Graph
	pool    *forest.Pool
	root    *forest.Node
	failed  bool
	failErr error
}

// parseOnce parses gs.g exactly once across the whole Run call; later
// calls return the cached outcome (success or permanent failure)
// immediately.
func (gs *graphState) parseOnce(cg *chart.CompiledGrammar, poolSize int) error {
	if gs.root != nil {
		return nil
	}
	if gs.failed {
		return gs.failErr
	}
	root, pool, err := chart.Parse(cg, gs.g, chart.WithPoolSize(poolSize))
	if err != nil {
		gs.failed = true
		gs.failErr = err
		return err
	}
	forest.Closure(root)
	gs.root, gs.pool = root, pool
	return nil
}

// graphOutcome is one graph's E-step contribution for one iteration.
type graphOutcome struct {
	logZ     float64
	counts   []float64 // log-domain soft counts, or real-domain hard counts under Viterbi
	failed   bool
	timedOut bool
}

// withTimeout runs fn to completion, or reports timedOut=true once d
// elapses first (d <= 0 disables the timeout and runs fn synchronously).
// Mirrors em_framework/em.cpp's per-graph wall-clock guard (§5, §9).
func withTimeout(d time.Duration, fn func() (float64, []float64, error)) (logZ float64, counts []float64, err error, timedOut bool) {
	if d <= 0 {
		logZ, counts, err = fn()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	type res struct {
		logZ   float64
		counts []float64
		err    error
	}
	ch := make(chan res, 1)
	go func() {
		lz, c, e := fn()
		ch <- res{lz, c, e}
	}()
	select {
	case r := <-ch:
		return r.logZ, r.counts, r.err, false
	case <-ctx.Done():
		return 0, nil, nil, true
	}
}

// viterbiEStep extracts the single best derivation (forest.CountGreedy,
// the Viterbi-max analogue of Inside) and returns its own score as logZ
// plus hard (integer-valued) rule-usage counts — the "only the single
// best child alternative retained per node" E-step of §4.5.
func viterbiEStep(pool *forest.Pool, root *forest.Node, w forest.Weights, numRules int) (float64, []float64) {
	d := forest.Extract(pool, root, forest.CountGreedy(w))
	counts := make([]float64, numRules)
	var score float64
	var walk func(n *forest.Derivation)
	walk = func(n *forest.Derivation) {
		if n.Rule != nil && n.CFGRuleIndex >= 0 {
			idx := n.Rule.CFGRules[n.CFGRuleIndex].ShrgIndex
			if idx >= 0 && idx < numRules {
				counts[idx]++
			}
			score += w.LogWeight(n.ChartNode)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(d)
	return score, counts
}

// runEStepGraph parses gs (if not already cached) and runs one E-step
// under w, respecting timeout.
func runEStepGraph(mode Mode, gs *graphState, cg *chart.CompiledGrammar, w forest.Weights, numRules, poolSize int, timeout time.Duration) graphOutcome {
	do := func() (float64, []float64, error) {
		if err := gs.parseOnce(cg, poolSize); err != nil {
			return 0, nil, err
		}
		if mode.Kind == KindViterbi {
			logZ, counts := viterbiEStep(gs.pool, gs.root, w, numRules)
			return logZ, counts, nil
		}
		res := forest.InsideOutside(gs.pool, gs.root, w, numRules)
		return res.LogZ, res.ExpectedCounts, nil
	}
	logZ, counts, err, timedOut := withTimeout(timeout, do)
	if timedOut {
		return graphOutcome{timedOut: true}
	}
	if err != nil {
		return graphOutcome{failed: true}
	}
	return graphOutcome{logZ: logZ, counts: counts}
}

// fanOutEStep runs runEStepGraph over every state concurrently, bounded
// by concurrency goroutines in flight at once, and waits for all of them
// (§5: per-graph E-steps are independent; weight mutation is deferred to
// a synchronisation barrier after every E-step completes).
func fanOutEStep(mode Mode, states []*graphState, cg *chart.CompiledGrammar, w forest.Weights, numRules, poolSize, concurrency int, timeout time.Duration) []graphOutcome {
	outcomes := make([]graphOutcome, len(states))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, gs := range states {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, gs *graphState) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = runEStepGraph(mode, gs, cg, w, numRules, poolSize, timeout)
		}(i, gs)
	}
	wg.Wait()
	return outcomes
}

// ruleGroups builds the ShrgIndex -> LHS Label map and the inverse
// LHS -> []ShrgIndex grouping the M-step re-normalises over (§4.5's "for
// each LHS group G = {r : r.LHS = l}").
func ruleGroups(idx *grammar.Index, numRules int) ([]hypergraph.Label, map[hypergraph.Label][]int) {
	ruleLabel := make([]hypergraph.Label, numRules)
	groups := make(map[hypergraph.Label][]int)
	for _, r := range idx.Rules {
		for _, cr := range r.CFGRules {
			if cr.ShrgIndex < 0 || cr.ShrgIndex >= numRules {
				continue
			}
			ruleLabel[cr.ShrgIndex] = r.Label
			groups[r.Label] = append(groups[r.Label], cr.ShrgIndex)
		}
	}
	return ruleLabel, groups
}

// initialWeights gives every rule in an LHS group equal probability
// 1/|G| before the first E-step has run.
func initialWeights(numRules int, groups map[hypergraph.Label][]int) forest.Weights {
	w := make(forest.Weights, numRules)
	for _, idxs := range groups {
		lw := -math.Log(float64(len(idxs)))
		for _, i := range idxs {
			w[i] = lw
		}
	}
	return w
}

// mStepSoft is §4.5's soft-EM M-step: per LHS group, normalise log
// counts to log probabilities via log-sum-exp; a rule with zero
// (log = −∞) expected count keeps −∞ unless it is its group's only
// member, in which case it becomes certain (log 1 = 0).
func mStepSoft(logCounts []float64, groups map[hypergraph.Label][]int) forest.Weights {
	w := make(forest.Weights, len(logCounts))
	for _, idxs := range groups {
		s := math.Inf(-1)
		for _, i := range idxs {
			s = forest.AddLogs(s, logCounts[i])
		}
		for _, i := range idxs {
			if math.IsInf(logCounts[i], -1) {
				if len(idxs) == 1 {
					w[i] = 0
				} else {
					w[i] = math.Inf(-1)
				}
				continue
			}
			w[i] = logCounts[i] - s
		}
	}
	return w
}

// viterbiSmoothing is the +1e-10 add-one smoothing §4.5 applies before
// Viterbi-EM's M-step re-normalises.
const viterbiSmoothing = 1e-10

// mStepViterbi re-normalises real-domain hard counts per LHS group after
// add-one smoothing (§4.5).
func mStepViterbi(counts []float64, groups map[hypergraph.Label][]int) forest.Weights {
	w := make(forest.Weights, len(counts))
	for _, idxs := range groups {
		sum := 0.0
		for _, i := range idxs {
			sum += counts[i] + viterbiSmoothing
		}
		for _, i := range idxs {
			w[i] = math.Log(counts[i]+viterbiSmoothing) - math.Log(sum)
		}
	}
	return w
}

// variationalGammaFloor is the §4.5 "clipped to ≥ 10⁻¹⁰" Dirichlet
// pseudo-count floor.
const variationalGammaFloor = 1e-10

// variationalEStepWeights substitutes ψ(γ_r) − ψ(Σ_{r' same LHS} γ_{r'})
// for every rule's log-weight (§4.5), given the current Dirichlet
// pseudo-counts gamma.
func variationalEStepWeights(gamma []float64, ruleLabel []hypergraph.Label, groups map[hypergraph.Label][]int) forest.Weights {
	groupDigamma := make(map[hypergraph.Label]float64, len(groups))
	for label, idxs := range groups {
		s := 0.0
		for _, i := range idxs {
			s += gamma[i]
		}
		groupDigamma[label] = digamma(s)
	}
	w := make(forest.Weights, len(gamma))
	for i, g := range gamma {
		w[i] = digamma(g) - groupDigamma[ruleLabel[i]]
	}
	return w
}

// mStepVariational updates the Dirichlet pseudo-counts (gamma_r <- alpha
// + soft count, floored) and separately derives the reported weights as
// the per-LHS-renormalised point estimate E[p_r] = gamma_r / Σ_group —
// §8's "per-LHS sum of exp(log w) equals 1" law applies to the *reported*
// weights; gamma itself is carried, unnormalised, into the next
// iteration's E-step substitute (see DESIGN.md's Open Question decision).
func mStepVariational(logCounts []float64, alpha float64, groups map[hypergraph.Label][]int) (gamma []float64, w forest.Weights) {
	gamma = make([]float64, len(logCounts))
	for i, lc := range logCounts {
		c := 0.0
		if !math.IsInf(lc, -1) {
			c = math.Exp(lc)
		}
		gamma[i] = alpha + c
		if gamma[i] < variationalGammaFloor {
			gamma[i] = variationalGammaFloor
		}
	}
	w = make(forest.Weights, len(logCounts))
	for _, idxs := range groups {
		sum := 0.0
		for _, i := range idxs {
			sum += gamma[i]
		}
		for _, i := range idxs {
			w[i] = math.Log(gamma[i]) - math.Log(sum)
		}
	}
	return gamma, w
}

func checkDegenerate(w forest.Weights) error {
	for _, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 1) {
			return ErrDegenerateCount
		}
	}
	return nil
}

func failedIndices(states []*graphState) []int {
	var out []int
	for i, gs := range states {
		if gs.failed {
			out = append(out, i)
		}
	}
	return out
}

// barrierEpoch runs one Soft or Viterbi iteration: every graph's E-step
// runs (up to concurrency at a time), all of them complete (the
// barrier), then a single M-step updates every weight at once (§5).
func barrierEpoch(mode Mode, states []*graphState, cg *chart.CompiledGrammar, w forest.Weights,
	groups map[hypergraph.Label][]int, numRules, concurrency int, cfg Config) (ll float64, numFailed int, newW forest.Weights, err error) {

	outcomes := fanOutEStep(mode, states, cg, w, numRules, cfg.PoolSize, concurrency, cfg.GraphTimeout)
	if mode.Kind == KindViterbi {
		counts := make([]float64, numRules)
		for _, o := range outcomes {
			if o.failed || o.timedOut {
				numFailed++
				continue
			}
			ll += o.logZ
			for i, c := range o.counts {
				counts[i] += c
			}
		}
		newW = mStepViterbi(counts, groups)
	} else {
		logCounts := make([]float64, numRules)
		for i := range logCounts {
			logCounts[i] = math.Inf(-1)
		}
		for _, o := range outcomes {
			if o.failed || o.timedOut {
				numFailed++
				continue
			}
			ll += o.logZ
			for i, c := range o.counts {
				logCounts[i] = forest.AddLogs(logCounts[i], c)
			}
		}
		newW = mStepSoft(logCounts, groups)
	}
	if err := checkDegenerate(newW); err != nil {
		return 0, numFailed, nil, err
	}
	return ll, numFailed, newW, nil
}

// batchEpoch runs one pass over the corpus in chunks of mode.BatchSize
// graphs, firing an M-step after every chunk rather than waiting for the
// whole corpus (§4.5 "Batch EM runs M after every k graphs"); later
// chunks within the same pass already see the updated weights.
func batchEpoch(mode Mode, states []*graphState, cg *chart.CompiledGrammar, w forest.Weights,
	groups map[hypergraph.Label][]int, numRules, concurrency int, cfg Config) (ll float64, numFailed int, newW forest.Weights, err error) {

	newW = append(forest.Weights(nil), w...)
	k := mode.BatchSize
	soft := Mode{Kind: KindSoft}
	for start := 0; start < len(states); start += k {
		end := start + k
		if end > len(states) {
			end = len(states)
		}
		chunk := states[start:end]
		outcomes := fanOutEStep(soft, chunk, cg, newW, numRules, cfg.PoolSize, concurrency, cfg.GraphTimeout)
		logCounts := make([]float64, numRules)
		for i := range logCounts {
			logCounts[i] = math.Inf(-1)
		}
		for _, o := range outcomes {
			if o.failed || o.timedOut {
				numFailed++
				continue
			}
			ll += o.logZ
			for i, c := range o.counts {
				logCounts[i] = forest.AddLogs(logCounts[i], c)
			}
		}
		newW = mStepSoft(logCounts, groups)
		if derr := checkDegenerate(newW); derr != nil {
			return 0, numFailed, nil, derr
		}
	}
	return ll, numFailed, newW, nil
}

// onlineEpoch re-estimates weights after every single graph, on one
// goroutine (no cross-graph concurrency, §5): each graph's instant
// per-graph estimate is folded into the running weights via a weighted
// log-average (§4.5's "log w_new = ⊕(log η + log w_fresh, log(1-η) +
// log w_old)").
func onlineEpoch(mode Mode, states []*graphState, cg *chart.CompiledGrammar, w forest.Weights,
	groups map[hypergraph.Label][]int, numRules int, cfg Config) (ll float64, numFailed int, newW forest.Weights, err error) {

	newW = append(forest.Weights(nil), w...)
	logEta := math.Log(mode.Eta)
	log1mEta := math.Log(1 - mode.Eta)
	soft := Mode{Kind: KindSoft}
	for _, gs := range states {
		o := runEStepGraph(soft, gs, cg, newW, numRules, cfg.PoolSize, cfg.GraphTimeout)
		if o.failed || o.timedOut {
			numFailed++
			continue
		}
		ll += o.logZ
		fresh := mStepSoft(o.counts, groups)
		for i := range newW {
			newW[i] = forest.AddLogs(logEta+fresh[i], log1mEta+newW[i])
		}
		if derr := checkDegenerate(newW); derr != nil {
			return 0, numFailed, nil, derr
		}
	}
	return ll, numFailed, newW, nil
}

// variationalEpoch runs one collapsed-variational-Bayes iteration: the
// E-step substitutes digamma-derived weights computed from the current
// Dirichlet pseudo-counts gamma, then the M-step re-estimates both gamma
// and the reported weights (§4.5).
func variationalEpoch(mode Mode, states []*graphState, cg *chart.CompiledGrammar, gamma []float64,
	ruleLabel []hypergraph.Label, groups map[hypergraph.Label][]int, numRules, concurrency int, cfg Config) (
	ll float64, numFailed int, newW forest.Weights, newGamma []float64, err error) {

	eWeights := variationalEStepWeights(gamma, ruleLabel, groups)
	soft := Mode{Kind: KindSoft}
	outcomes := fanOutEStep(soft, states, cg, eWeights, numRules, cfg.PoolSize, concurrency, cfg.GraphTimeout)
	logCounts := make([]float64, numRules)
	for i := range logCounts {
		logCounts[i] = math.Inf(-1)
	}
	for _, o := range outcomes {
		if o.failed || o.timedOut {
			numFailed++
			continue
		}
		ll += o.logZ
		for i, c := range o.counts {
			logCounts[i] = forest.AddLogs(logCounts[i], c)
		}
	}
	newGamma, newW = mStepVariational(logCounts, mode.Alpha, groups)
	if derr := checkDegenerate(newW); derr != nil {
		return 0, numFailed, nil, nil, derr
	}
	return ll, numFailed, newW, newGamma, nil
}

// writeCheckpoint overwrites outputDir/weights.csv with hist, the full
// accumulated history (§6.3: "a complete, independently-loadable
// snapshot rather than a partial append"). Run appends the current
// weights to hist before each call.
func writeCheckpoint(outputDir string, hist []corpusio.WeightHistory) error {
	f, err := os.Create(filepath.Join(outputDir, "weights.csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	return corpusio.WriteWeightHistory(f, hist)
}

// Run executes EM over graphs against cg's grammar under mode, returning
// the re-estimated weights, convergence trace, and the set of graphs
// that never parsed at all (§6.5's run_em contract).
func Run(mode Mode, graphs []*hypergraph.Graph, cg *chart.CompiledGrammar, opts ...Option) (*Result, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	idx := cg.Index()
	numRules := idx.NumRules()
	ruleLabel, groups := ruleGroups(idx, numRules)

	states := make([]*graphState, len(graphs))
	for i, g := range graphs {
		states[i] = &graphState{g: g}
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	weights := initialWeights(numRules, groups)
	var gamma []float64
	if mode.Kind == KindVariational {
		gamma = make([]float64, numRules)
		for i := range gamma {
			gamma[i] = mode.Alpha
		}
	}

	var history []corpusio.WeightHistory
	if cfg.OutputDir != "" {
		history = make([]corpusio.WeightHistory, numRules)
		for i := range history {
			history[i].ShrgIndex = i
		}
	}

	var checkpoints []Checkpoint
	prevLL := math.Inf(-1)
	maxIter := cfg.MaxIter
	if maxIter <= 0 {
		maxIter = 1
	}

	for iter := 0; iter < maxIter; iter++ {
		var ll float64
		var numFailed int
		var stepErr error
		switch mode.Kind {
		case KindOnline:
			ll, numFailed, weights, stepErr = onlineEpoch(mode, states, cg, weights, groups, numRules, cfg)
		case KindBatch:
			ll, numFailed, weights, stepErr = batchEpoch(mode, states, cg, weights, groups, numRules, concurrency, cfg)
		case KindVariational:
			var newGamma []float64
			ll, numFailed, weights, newGamma, stepErr = variationalEpoch(mode, states, cg, gamma, ruleLabel, groups, numRules, concurrency, cfg)
			gamma = newGamma
		default: // KindSoft, KindViterbi
			ll, numFailed, weights, stepErr = barrierEpoch(mode, states, cg, weights, groups, numRules, concurrency, cfg)
		}
		if stepErr != nil {
			return nil, stepErr
		}

		checkpoints = append(checkpoints, Checkpoint{Iteration: iter, LogLikelihood: ll, NumFailed: numFailed})
		if history != nil {
			for i := range history {
				history[i].LogWeights = append(history[i].LogWeights, weights[i])
			}
			if err := writeCheckpoint(cfg.OutputDir, history); err != nil {
				return nil, err
			}
		}

		converged := math.Abs(ll-prevLL) < cfg.Threshold
		prevLL = ll
		if converged {
			break
		}
	}

	return &Result{Weights: weights, Checkpoints: checkpoints, FailedGraphs: failedIndices(states)}, nil
}
