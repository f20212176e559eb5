/*
Command shrginspect is an interactive REPL over one parsed forest: load a
grammar and a single graph, then explore derivations, metrics, and
generated surface strings from the command line — built the same way as
terex/terexlang/trepl/repl.go.

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"

	"github.com/npillmayer/shrg/chart"
	"github.com/npillmayer/shrg/corpusio"
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

// session holds the REPL's current working state: the compiled grammar,
// the chosen input graph, and (once a parse succeeds) its forest.
type session struct {
	cg    *chart.CompiledGrammar
	graph *hypergraph.Graph
	pool  *forest.Pool
	root  *forest.Node
	w     forest.Weights
	repl  *readline.Instance
}

func main() {
	initDisplay()
	gtrace.SyntaxTracer = gologadapter.New()

	grammarFile := flag.String("grammar", "", "Grammar file (§6.1 text format)")
	graphFile := flag.String("graphs", "", "Graph corpus file (§6.2 text format)")
	graphID := flag.String("sentence", "", "Sentence id to select from -graphs; empty selects the first graph")
	weightsFile := flag.String("weights", "", "Weight-history CSV (§6.3) to load the final iteration's weights from; empty uses uniform weights")
	tlevel := flag.String("tracelevel", "Info", "Trace level [Debug|Info|Error]")
	flag.Parse()

	tracer().SetTraceLevel(tracing.TraceLevelFromString(*tlevel))
	pterm.Info.Println("Welcome to shrginspect")

	if *grammarFile == "" || *graphFile == "" {
		pterm.Error.Println("both -grammar and -graphs are required")
		os.Exit(2)
	}

	syms := corpusio.NewSymbols()
	gdata, err := os.ReadFile(*grammarFile)
	exitOnErr(err)
	rules, err := corpusio.ReadGrammar(string(gdata), syms)
	exitOnErr(err)
	idx, err := grammar.Compile(rules)
	exitOnErr(err)
	cg := chart.Compile(idx)

	cdata, err := os.ReadFile(*graphFile)
	exitOnErr(err)
	graphs, err := corpusio.ReadGraphs(string(cdata), syms)
	exitOnErr(err)

	g := selectGraph(graphs, *graphID)
	if g == nil {
		pterm.Error.Println("no matching graph found")
		os.Exit(2)
	}

	repl, err := readline.New("shrginspect> ")
	if err != nil {
		tracer().Errorf(err.Error())
		os.Exit(3)
	}
	s := &session{cg: cg, graph: g, repl: repl}
	s.w = loadWeights(*weightsFile, idx.NumRules())

	if err := s.parse(); err != nil {
		pterm.Error.Println(err.Error())
	}

	pterm.Info.Println("Quit with <ctrl>D. Type 'help' for commands.")
	s.REPL()
}

func selectGraph(graphs []*hypergraph.Graph, id string) *hypergraph.Graph {
	if id == "" {
		if len(graphs) == 0 {
			return nil
		}
		return graphs[0]
	}
	for _, g := range graphs {
		if g.SentenceID == id {
			return g
		}
	}
	return nil
}

// loadWeights reads the last column of a §6.3 weight-history CSV (each
// rule's most recent iteration) into a dense forest.Weights vector,
// falling back to uniform (log 1) weights when file is empty.
func loadWeights(file string, numRules int) forest.Weights {
	w := make(forest.Weights, numRules)
	if file == "" {
		return w
	}
	data, err := os.ReadFile(file)
	if err != nil {
		pterm.Error.Printfln("loading weights: %v (using uniform weights)", err)
		return w
	}
	hist, err := corpusio.ReadWeightHistory(strings.NewReader(string(data)))
	if err != nil {
		pterm.Error.Printfln("loading weights: %v (using uniform weights)", err)
		return w
	}
	for _, h := range hist {
		if h.ShrgIndex < 0 || h.ShrgIndex >= numRules || len(h.LogWeights) == 0 {
			continue
		}
		w[h.ShrgIndex] = h.LogWeights[len(h.LogWeights)-1]
	}
	return w
}

func exitOnErr(err error) {
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
}

func (s *session) parse() error {
	root, pool, err := chart.Parse(s.cg, s.graph)
	if err != nil {
		return err
	}
	forest.Closure(root)
	s.root, s.pool = root, pool
	return nil
}

// REPL drives the read-eval-print loop; each line is a single command
// word plus optional arguments, dispatched in Eval.
func (s *session) REPL() {
	for {
		line, err := s.repl.Readline()
		if err != nil { // io.EOF
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if quit := s.Eval(line); quit {
			break
		}
	}
	println("Good bye!")
}

func (s *session) Eval(line string) (quit bool) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]
	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		s.help()
	case "metrics":
		s.metrics()
	case "extract":
		s.extract(args)
	case "generate":
		s.generate(args)
	case "sentence":
		pterm.Info.Printfln("%s: %q", s.graph.SentenceID, s.graph.Sentence)
	default:
		pterm.Error.Printfln("unknown command %q; type 'help'", cmd)
	}
	return false
}

func (s *session) help() {
	pterm.Info.Println(strings.Join([]string{
		"Commands:",
		"  metrics               - print entropy/derivation-count/complexity for the current forest",
		"  extract <policy>      - extract a derivation via em-greedy|em-inside|count-greedy|count-inside|uniform|sample",
		"  generate <policy>     - extract then print the generated surface-string stream",
		"  sentence              - print the current graph's sentence id and text",
		"  quit                  - exit",
	}, "\n"))
}

func (s *session) metrics() {
	if s.root == nil {
		pterm.Error.Println("no forest: parse failed")
		return
	}
	pass := s.pool.BeginPass()
	logZ := forest.Inside(s.root, s.w, pass)
	m := forest.ComputeMetrics(s.root, logZ, s.w)
	tbl := pterm.TableData{
		{"metric", "value"},
		{"nodes", strconv.Itoa(m.Stats.NumNodes)},
		{"max depth", strconv.Itoa(m.Stats.MaxDepth)},
		{"avg branching", fmt.Sprintf("%.3f", m.Stats.AvgBranching)},
		{"complexity", fmt.Sprintf("%.3f", m.Stats.Complexity)},
		{"ambiguous alternatives", strconv.Itoa(m.NumAmbiguousAlternatives)},
		{"derivation count", fmt.Sprintf("%.3g", m.ExpectedDerivationCount)},
		{"log derivation count", fmt.Sprintf("%.3f", m.LogDerivationCount)},
	}
	if m.HasValidEntropy {
		tbl = append(tbl, []string{"entropy", fmt.Sprintf("%.4f", m.Entropy)})
	}
	pterm.DefaultTable.WithHasHeader().WithData(tbl).Render()
}

func (s *session) policy(name string) forest.ExtractionPolicy {
	switch name {
	case "em-greedy":
		return forest.EMGreedy(s.w)
	case "em-inside":
		pass := s.pool.BeginPass()
		forest.Inside(s.root, s.w, pass)
		return forest.EMInside(s.w, pass)
	case "count-greedy":
		return forest.CountGreedy(s.w)
	case "count-inside":
		return forest.CountInside()
	case "uniform":
		return forest.Uniform(1)
	case "sample":
		return forest.Sample(s.w, 1)
	default:
		return nil
	}
}

func (s *session) extract(args []string) {
	if s.root == nil {
		pterm.Error.Println("no forest: parse failed")
		return
	}
	name := "count-greedy"
	if len(args) > 0 {
		name = args[0]
	}
	p := s.policy(name)
	if p == nil {
		pterm.Error.Printfln("unknown extraction policy %q", name)
		return
	}
	d := forest.Extract(s.pool, s.root, p)
	indices, edgeSets := d.RuleIndicesAndEdgeSets()
	tbl := pterm.TableData{{"rule index", "edge set"}}
	for i := range indices {
		tbl = append(tbl, []string{strconv.Itoa(indices[i]), edgeSets[i]})
	}
	pterm.DefaultTable.WithHasHeader().WithData(tbl).Render()
}

func (s *session) generate(args []string) {
	if s.root == nil {
		pterm.Error.Println("no forest: parse failed")
		return
	}
	name := "count-greedy"
	if len(args) > 0 {
		name = args[0]
	}
	p := s.policy(name)
	if p == nil {
		pterm.Error.Printfln("unknown extraction policy %q", name)
		return
	}
	d := forest.Extract(s.pool, s.root, p)
	tokens := forest.Generate(d)
	pterm.Info.Println(strings.Join(tokens, " "))
}
