package chart

import (
	"errors"

	"github.com/emirpasic/gods/lists/arraylist"
	"golang.org/x/tools/container/intsets"

	"github.com/npillmayer/shrg/forest"
	"github.com/npillmayer/shrg/grammar"
	"github.com/npillmayer/shrg/hypergraph"
)

// CompiledGrammar is a grammar.Index enriched with the chart parser's own
// static, per-rule bookkeeping: every non-terminal edge's required-mask
// (§4.1, computed once from rule structure, never from an actual input
// graph) and the grammar-wide registry of distinct mask patterns a
// completed passive item must advertise itself under. Immutable once
// built, and safe to share read-only across concurrently running
// Parsers (§5) the same way grammar.Index itself is.
type CompiledGrammar struct {
	idx           *grammar.Index
	rulesMasks    []ruleMasks
	requiredMasks map[labelArity][]edgeMask
}

// Compile derives a CompiledGrammar from idx. Call once per grammar.Index
// and reuse across every parse.
func Compile(idx *grammar.Index) *CompiledGrammar {
	rm, req := buildRuleMasks(idx.Rules)
	return &CompiledGrammar{idx: idx, rulesMasks: rm, requiredMasks: req}
}

// Index returns the grammar.Index a CompiledGrammar was built from, so
// callers that only hold the CompiledGrammar (e.g. package em, which
// needs rule-LHS grouping and NumRules but never touches the
// parser-specific mask tables directly) don't need to keep a second
// reference around themselves.
func (cg *CompiledGrammar) Index() *grammar.Index {
	return cg.idx
}

// Parser holds the per-graph mutable state of one chart parse: its own
// memory pool, agenda set, and FIFO queue (§5 — never shared across
// graphs, unlike CompiledGrammar).
type Parser struct {
	cg    *CompiledGrammar
	graph *hypergraph.Graph
	pool  *forest.Pool
	opts  Options

	agendas map[agendaKey]*agenda
	queue   *arraylist.List

	err error
}

// Parse runs the chart parser over g under cg, returning the canonical
// root node of a derivation spanning every edge of g (the grammar's
// "root" rule, filtered by WithRootArity if given) together with the
// pool it was allocated from. Callers that go on to run
// forest.InsideOutside or an ExtractionPolicy must call forest.Closure
// on the returned root first — Parse does not do this itself, since not
// every caller needs it (e.g. a bare reachability check).
func Parse(cg *CompiledGrammar, g *hypergraph.Graph, opts ...Option) (*forest.Node, *forest.Pool, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if len(g.Edges) > hypergraph.MaxEdges {
		return nil, nil, ErrTooLarge
	}
	p := &Parser{
		cg:      cg,
		graph:   g,
		pool:    forest.NewPool(o.poolSize),
		opts:    o,
		agendas: make(map[agendaKey]*agenda),
		queue:   arraylist.New(),
	}
	if err := p.initialize(); err != nil {
		return nil, p.pool, err
	}
	for !p.queue.Empty() {
		if o.poolSize > 0 && p.pool.Len() > o.poolSize {
			return nil, p.pool, ErrOutOfMemory
		}
		v, _ := p.queue.Get(0)
		p.queue.Remove(0)
		key := v.(agendaKey)
		ag := p.agendas[key]
		ag.inQueue = false
		p.drainAgenda(key, ag)
		if p.err != nil {
			return nil, p.pool, p.err
		}
	}
	root := p.findRoot()
	if root == nil {
		return nil, p.pool, ErrNoResult
	}
	return root, p.pool, nil
}

// initialize performs §4.3's Initialise step: for every rule compatible
// with g's terminal edge signatures, enumerate every structurally valid
// terminal-edge match, build each into a forest accumulator, and either
// promote it straight to a passive item (rule has no non-terminal edges)
// or seed the first active item of that rule's merge sequence.
func (p *Parser) initialize() error {
	terminalSet := graphTerminalSet(p.graph)
	tidx := buildTerminalIndex(p.graph)
	for ri, r := range p.cg.idx.Rules {
		if r.Fragment == nil {
			continue
		}
		if !p.cg.idx.CompatibleWithTerminals(ri, terminalSet) {
			continue
		}
		matches := matchTerminalEdges(r, p.graph, tidx)
		for _, m := range matches {
			accum, err := p.buildTerminalAccumulator(r, m)
			if err != nil {
				return translatePoolErr(err)
			}
			if len(r.NonTerminalEdges) == 0 {
				p.promoteRule(ri, accum)
			} else {
				p.registerActive(activeItem{Node: accum, RuleIdx: ri, Step: 0})
			}
			if p.err != nil {
				return p.err
			}
		}
	}
	return nil
}

// buildTerminalAccumulator left-deep combines, in r.TerminalEdges order,
// one forest leaf per matched graph edge of m into a single chart item
// covering every terminal edge of r — mirroring
// decomp.buildLeftDeep's shape, but over actually-allocated forest nodes
// rather than an abstract combination tree. Returns nil if r has no
// terminal edges (the rule's merge sequence then starts from a bare
// active item with no left sibling).
func (p *Parser) buildTerminalAccumulator(r *grammar.Rule, m terminalMatch) (*forest.Node, error) {
	if len(r.TerminalEdges) == 0 {
		return nil, nil
	}
	var accum *forest.Node
	var used hypergraph.EdgeSet
	touched := make(map[int]bool, len(r.Fragment.Nodes))
	for i, ruleEdgeHash := range r.TerminalEdges {
		ge := m.Chosen[i]
		edge := r.Fragment.Edges[ruleEdgeHash]
		leafMapping := hypergraph.NewNodeMapping()
		for _, n := range edge.LinkedNodes {
			leafMapping = leafMapping.Bind(n, m.Mapping.At(n))
			touched[n] = true
		}
		leaf, err := p.pool.NewLeaf(p.graph.Edges[ge].Label, ge, leafMapping)
		if err != nil {
			return nil, err
		}
		used = used.Set(int(ge))
		if accum == nil {
			accum = leaf
			continue
		}
		combinedMapping := hypergraph.NewNodeMapping()
		for n := range touched {
			combinedMapping = combinedMapping.Bind(n, m.Mapping.At(n))
		}
		next, err := p.pool.EmitPassive(hypergraph.NoLabel, nil, -1, used, combinedMapping, accum, leaf)
		if err != nil {
			return nil, err
		}
		accum = next
	}
	return accum, nil
}

// mergeAndAdvance is the merge step (§4.3): combine item's current
// accumulator with passive — a candidate for item's next non-terminal
// edge — and either register the advanced active item at the next key,
// or, if the prefix is now complete, promote the finished rule instance.
func (p *Parser) mergeAndAdvance(item activeItem, passive *forest.Node) {
	r := p.cg.idx.Rules[item.RuleIdx]
	step := item.Step
	edge := r.Fragment.Edges[r.NonTerminalEdges[step]]

	var activeMapping hypergraph.NodeMapping
	var activeUsed hypergraph.EdgeSet
	if item.Node != nil {
		activeMapping = item.Node.Boundary
		activeUsed = item.Node.EdgeSet
	} else {
		activeMapping = hypergraph.NewNodeMapping()
	}
	if !activeUsed.Disjoint(passive.EdgeSet) {
		return // would double-cover a graph edge
	}
	passiveRule := passive.Rule
	if passiveRule == nil || len(passiveRule.ExternalNodes) != len(edge.LinkedNodes) {
		return
	}

	newMapping := activeMapping
	for k, localIdx := range edge.LinkedNodes {
		val := passive.Boundary.At(passiveRule.ExternalNodes[k])
		existing := newMapping.At(localIdx)
		if existing != hypergraph.NoBoundaryNode && existing != val {
			return // boundary mappings disagree
		}
		newMapping = newMapping.Bind(localIdx, val)
	}
	newUsed := activeUsed.Or(passive.EdgeSet)

	combined, err := p.pool.EmitPassive(hypergraph.NoLabel, nil, -1, newUsed, newMapping, item.Node, passive)
	if err != nil {
		p.err = translatePoolErr(err)
		return
	}

	nextStep := step + 1
	if nextStep == len(r.NonTerminalEdges) {
		if !checkMappingValidity(r, p.graph, combined.Boundary, combined.EdgeSet) {
			return
		}
		p.promoteRule(item.RuleIdx, combined)
	} else {
		p.registerActive(activeItem{Node: combined, RuleIdx: item.RuleIdx, Step: nextStep})
	}
}

// promoteRule instantiates one passive item per CFGRule of r (every
// alternative sharing r's label, hence splicing into a single OR-node
// cycle, §4.4), then files the resulting OR-node under every agenda key
// §4.3's "emit passive item" names: the full boundary mapping, plus
// every registered required-mask projection.
func (p *Parser) promoteRule(ruleIdx int, accum *forest.Node) {
	r := p.cg.idx.Rules[ruleIdx]
	if len(r.CFGRules) == 0 {
		return
	}
	var canon *forest.Node
	for cfgIdx := range r.CFGRules {
		n, err := p.pool.EmitPassive(r.Label, r, cfgIdx, accum.EdgeSet, accum.Boundary, accum.Left, accum.Right)
		if err != nil {
			p.err = translatePoolErr(err)
			return
		}
		canon = n
	}
	p.registerPassive(r.Label, r.ExternalNodes, canon)
}

func (p *Parser) registerPassive(label hypergraph.Label, externalNodes []int, node *forest.Node) {
	canon := forest.Canonical(node)
	arity := len(externalNodes)
	full := make(edgeMask, arity)
	for i := range full {
		full[i] = true
	}
	get := func(localIdx int) byte { return canon.Boundary.At(localIdx) }
	masks := append([]edgeMask{full}, p.cg.requiredMasks[labelArity{Label: label, Arity: arity}]...)
	for _, mask := range masks {
		key := agendaKey{label: label, arity: arity, mask: projectKey(externalNodes, get, mask)}
		ag := p.agendaFor(key)
		if ag.seenPassive == nil {
			ag.seenPassive = make(map[*forest.Node]bool)
		}
		if ag.seenPassive[canon] {
			continue
		}
		ag.seenPassive[canon] = true
		ag.passive = append(ag.passive, canon)
		p.enqueue(key, ag)
	}
}

func (p *Parser) registerActive(item activeItem) {
	r := p.cg.idx.Rules[item.RuleIdx]
	edge := r.Fragment.Edges[r.NonTerminalEdges[item.Step]]
	mask := p.cg.rulesMasks[item.RuleIdx].perStep[item.Step]

	var mapping hypergraph.NodeMapping
	if item.Node != nil {
		mapping = item.Node.Boundary
	} else {
		mapping = hypergraph.NewNodeMapping()
	}
	get := func(localIdx int) byte { return mapping.At(localIdx) }
	key := agendaKey{label: edge.Label, arity: len(edge.LinkedNodes), mask: projectKey(edge.LinkedNodes, get, mask)}
	ag := p.agendaFor(key)
	ag.active = append(ag.active, item)
	p.enqueue(key, ag)
}

func (p *Parser) agendaFor(key agendaKey) *agenda {
	ag, ok := p.agendas[key]
	if !ok {
		ag = &agenda{}
		p.agendas[key] = ag
	}
	return ag
}

func (p *Parser) enqueue(key agendaKey, ag *agenda) {
	if ag.inQueue {
		return
	}
	ag.inQueue = true
	p.queue.Add(key)
}

// drainAgenda runs the "new × all, all × new" merge sweep of §4.3 over
// one agenda's current active/passive items, then records how far it
// got so the next sweep (triggered by a future enqueue of this same
// key) only ever re-examines genuinely new pairs.
func (p *Parser) drainAgenda(key agendaKey, ag *agenda) {
	activeLen, passiveLen := len(ag.active), len(ag.passive)
	if activeLen == 0 || passiveLen == 0 {
		return
	}
	for i := ag.numVisitedActive; i < activeLen && p.err == nil; i++ {
		for j := 0; j < passiveLen && p.err == nil; j++ {
			p.mergeAndAdvance(ag.active[i], ag.passive[j])
		}
	}
	for i := 0; i < ag.numVisitedActive && p.err == nil; i++ {
		for j := ag.numVisitedPassive; j < passiveLen && p.err == nil; j++ {
			p.mergeAndAdvance(ag.active[i], ag.passive[j])
		}
	}
	ag.numVisitedActive, ag.numVisitedPassive = activeLen, passiveLen
}

// findRoot returns a canonical passive item whose edge set equals every
// edge of the input graph and whose rule's external-node arity matches
// the requested root arity (§4.3 "fails with NoResult").
func (p *Parser) findRoot() *forest.Node {
	full := fullEdgeSet(len(p.graph.Edges))
	for _, n := range p.pool.All() {
		if n.Rule == nil || n.EdgeSet != full {
			continue
		}
		if p.opts.rootArity >= 0 && len(n.Rule.ExternalNodes) != p.opts.rootArity {
			continue
		}
		return n
	}
	return nil
}

func fullEdgeSet(n int) hypergraph.EdgeSet {
	var s hypergraph.EdgeSet
	for i := 0; i < n; i++ {
		s = s.Set(i)
	}
	return s
}

func graphTerminalSet(g *hypergraph.Graph) *intsets.Sparse {
	ts := &intsets.Sparse{}
	for _, e := range g.Edges {
		if e.IsTerminal {
			ts.Insert(int(e.Hash()))
		}
	}
	return ts
}

func translatePoolErr(err error) error {
	if errors.Is(err, forest.ErrOutOfMemory) {
		return ErrOutOfMemory
	}
	return err
}
