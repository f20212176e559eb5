/*
Command shrgparse is a flag-based CLI batch-driving the chart parser and
the EM trainer over a grammar/corpus pair (§6.5): parse every graph,
report ambiguity metrics, optionally run EM, and write derivations and a
weight-history checkpoint.

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"

	"github.com/npillmayer/shrg/chart"
	"github.com/npillmayer/shrg/corpusio"
	"github.com/npillmayer/shrg/em"
	"github.com/npillmayer/shrg/forest"
	"github.com/npillmayer/shrg/grammar"
	"github.com/npillmayer/shrg/hypergraph"
)

func tracer() tracing.Trace {
	return tracing.Select("shrg.cmd")
}

func initDisplay() {
	pterm.Info.Prefix = pterm.Prefix{
		Text:  "  >>",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "  Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

func main() {
	initDisplay()
	gtrace.SyntaxTracer = gologadapter.New()

	grammarFile := flag.String("grammar", "", "Grammar file (§6.1 text format)")
	graphFile := flag.String("graphs", "", "Graph corpus file (§6.2 text format)")
	tlevel := flag.String("tracelevel", "Info", "Trace level [Debug|Info|Error]")
	mode := flag.String("em", "", "Run EM after parsing: soft|viterbi|batch|online|variational")
	batchSize := flag.Int("batch-size", 8, "Batch size for -em=batch")
	eta := flag.Float64("eta", 0.1, "Learning rate for -em=online")
	alpha := flag.Float64("alpha", 0.1, "Dirichlet prior for -em=variational")
	maxIter := flag.Int("max-iter", 50, "Maximum EM iterations")
	threshold := flag.Float64("threshold", 1e-6, "EM log-likelihood convergence threshold")
	timeout := flag.Duration("graph-timeout", 0, "Per-graph EM timeout (0 disables)")
	outDir := flag.String("output-dir", "", "Directory to write weight-history/derivation output")
	poolSize := flag.Int("pool-size", 0, "Per-graph forest.Pool node ceiling (0 = unbounded)")
	flag.Parse()

	tracer().SetTraceLevel(tracing.TraceLevelFromString(*tlevel))
	pterm.Info.Println("shrgparse starting")

	if *grammarFile == "" || *graphFile == "" {
		pterm.Error.Println("both -grammar and -graphs are required")
		os.Exit(2)
	}

	syms := corpusio.NewSymbols()
	gdata, err := os.ReadFile(*grammarFile)
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
	rules, err := corpusio.ReadGrammar(string(gdata), syms)
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
	idx, err := grammar.Compile(rules)
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
	cg := chart.Compile(idx)
	tracer().Infof("compiled grammar: %d rules, %d CFG rules", len(rules), idx.NumRules())

	cdata, err := os.ReadFile(*graphFile)
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
	graphs, err := corpusio.ReadGraphs(string(cdata), syms)
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
	pterm.Info.Printfln("loaded %d graphs", len(graphs))

	if *mode != "" {
		runEM(*mode, graphs, cg, *batchSize, *eta, *alpha, *maxIter, *threshold, *timeout, *outDir, *poolSize)
		return
	}
	runParseOnly(graphs, cg, *poolSize, *outDir)
}

func parseMode(name string, batchSize int, eta, alpha float64) (em.Mode, error) {
	switch name {
	case "soft":
		return em.Soft(), nil
	case "viterbi":
		return em.Viterbi(), nil
	case "batch":
		return em.Batch(batchSize), nil
	case "online":
		return em.Online(eta), nil
	case "variational":
		return em.Variational(alpha), nil
	default:
		return em.Mode{}, fmt.Errorf("unknown -em mode %q", name)
	}
}

func runEM(modeName string, graphs []*hypergraph.Graph, cg *chart.CompiledGrammar, batchSize int, eta, alpha float64,
	maxIter int, threshold float64, timeout time.Duration, outDir string, poolSize int) {
	mode, err := parseMode(modeName, batchSize, eta, alpha)
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(2)
	}
	opts := []em.Option{
		em.WithMaxIter(maxIter),
		em.WithThreshold(threshold),
		em.WithGraphTimeout(timeout),
		em.WithPoolSize(poolSize),
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			pterm.Error.Println(err.Error())
			os.Exit(1)
		}
		opts = append(opts, em.WithOutputDir(outDir))
	}
	pb, _ := pterm.DefaultProgressbar.WithTotal(maxIter).WithTitle("EM " + modeName).Start()
	result, err := em.Run(mode, graphs, cg, opts...)
	pb.Stop()
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
	tbl := pterm.TableData{{"iteration", "log-likelihood", "failed graphs"}}
	for _, cp := range result.Checkpoints {
		tbl = append(tbl, []string{fmt.Sprintf("%d", cp.Iteration), fmt.Sprintf("%.4f", cp.LogLikelihood), fmt.Sprintf("%d", cp.NumFailed)})
	}
	pterm.DefaultTable.WithHasHeader().WithData(tbl).Render()
	if len(result.FailedGraphs) > 0 {
		pterm.Warning.Printfln("%d graphs never produced a forest", len(result.FailedGraphs))
	}
	pterm.Info.Println("EM finished")
}

func runParseOnly(graphs []*hypergraph.Graph, cg *chart.CompiledGrammar, poolSize int, outDir string) {
	var derivOut *os.File
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			pterm.Error.Println(err.Error())
			os.Exit(1)
		}
		f, err := os.Create(outDir + "/derivations.txt")
		if err != nil {
			pterm.Error.Println(err.Error())
			os.Exit(1)
		}
		defer f.Close()
		derivOut = f
	}
	w := uniformWeights(cg)
	succeeded := 0
	for _, g := range graphs {
		root, pool, err := chart.Parse(cg, g, chart.WithPoolSize(poolSize))
		if err != nil {
			tracer().Errorf("graph %s: %v", g.SentenceID, err)
			continue
		}
		forest.Closure(root)
		logZ := forest.Inside(root, w, pool.BeginPass())
		m := forest.ComputeMetrics(root, logZ, w)
		tracer().Infof("graph %s: %d nodes, %d ambiguous alternatives, complexity %.2f",
			g.SentenceID, m.Stats.NumNodes, m.NumAmbiguousAlternatives, m.Stats.Complexity)
		succeeded++
		if derivOut != nil {
			d := forest.Extract(pool, root, forest.CountGreedy(w))
			if err := corpusio.WriteDerivations(derivOut, g.SentenceID, d); err != nil {
				tracer().Errorf("writing derivation for %s: %v", g.SentenceID, err)
			}
		}
	}
	pterm.Info.Printfln("parsed %d/%d graphs", succeeded, len(graphs))
}

func uniformWeights(cg *chart.CompiledGrammar) forest.Weights {
	idx := cg.Index()
	n := idx.NumRules()
	w := make(forest.Weights, n)
	for i := range w {
		w[i] = 0
	}
	return w
}
