package forest

import (
	"errors"

	"github.com/cnf/structhash"
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"

	"github.com/npillmayer/shrg/grammar"
	"github.com/npillmayer/shrg/hypergraph"
)

// ErrOutOfMemory is returned by NewLeaf and EmitPassive once the pool's configured
// size ceiling is reached; callers (the chart parser) must drain their
// queues and abort the current parse (§4.3, §7).
var ErrOutOfMemory = errors.New("forest: pool exhausted")

// dedupKey is the structhash input for a chart item's OR-node identity:
// two items denote the same OR-node iff their label, edge set, and
// boundary mapping are all equal (§3.1, §4.3 "emit passive item": keyed
// by (label_hash, edge_set, boundary_mapping)). Label must be part of
// the key: Boundary stores graph node indices at positions local to
// whichever rule produced the item, so two items of different labels
// (hence different fragments) could otherwise coincide bytewise without
// denoting the same derivation category. EdgeSet/NodeMapping are
// themselves plain comparable arrays, so a native map key would work
// without hashing; we route it through structhash anyway to mirror the
// teacher's structhash-based backlink keys in lr/earley/earley.go, and
// because a string key lets Pool grow the key shape later without
// changing the map's key type.
type dedupKey struct {
	Label    hypergraph.Label
	EdgeSet  hypergraph.EdgeSet
	Boundary hypergraph.NodeMapping
}

func (p *Pool) hashKey(label hypergraph.Label, es hypergraph.EdgeSet, nm hypergraph.NodeMapping) string {
	h, err := structhash.Hash(dedupKey{Label: label, EdgeSet: es, Boundary: nm}, 1)
	if err != nil {
		// structhash only fails on unhashable types; dedupKey is a
		// plain value struct of fixed arrays, so this cannot happen.
		panic(err)
	}
	return h
}

// Pool is the per-parse memory arena chart items are allocated from
// (§3.2): a flat slice of Nodes plus the deduplicating OR-node index
// keyed by (label, edge_set, boundary_mapping). Freed en masse by Reset
// between parses; EM keeps each graph's parse Pool alive for the whole
// training loop instead of copying it.
type Pool struct {
	maxSize int // 0 = unbounded
	nodes   []*Node
	dedup   map[string]*Node

	// freeIDs holds allocation ids available for reuse, kept in ascending
	// order so alloc reuses the smallest one first — preserving the
	// "smallest id = canonical" convention. Nothing in this package adds
	// ids to it; Reset empties it.
	freeIDs *treeset.Set

	visitPass int // incremented by each BeginPass; see Node.markVisited
}

// NewPool returns an empty pool. maxSize caps the number of live nodes;
// pass 0 for unbounded (EM's persistent pool).
func NewPool(maxSize int) *Pool {
	return &Pool{
		maxSize: maxSize,
		dedup:   make(map[string]*Node),
		freeIDs: treeset.NewWith(utils.IntComparator),
	}
}

// Len returns the number of live nodes in the pool.
func (p *Pool) Len() int {
	return len(p.nodes) - p.freeIDs.Size()
}

func (p *Pool) alloc() (*Node, error) {
	if p.maxSize > 0 && p.Len() >= p.maxSize {
		return nil, ErrOutOfMemory
	}
	if !p.freeIDs.Empty() {
		it := p.freeIDs.Iterator()
		it.First()
		id := it.Value().(int)
		p.freeIDs.Remove(id)
		n := &Node{id: id}
		p.nodes[id] = n
		return n, nil
	}
	n := &Node{id: len(p.nodes)}
	p.nodes = append(p.nodes, n)
	return n, nil
}

// NewLeaf allocates a terminal chart item for input edge e bound at
// boundary nm: attrs_ptr is null (Rule nil), edge_set has exactly one
// bit set (§3.1). Participates in dedup like any other passive item,
// under label (the single covered edge's own label — distinct input
// edges never collide since each sets a different EdgeSet bit).
func (p *Pool) NewLeaf(label hypergraph.Label, e hypergraph.EdgeHash, nm hypergraph.NodeMapping) (*Node, error) {
	return p.EmitPassive(label, nil, -1, hypergraph.EdgeSet{}.Set(int(e)), nm, nil, nil)
}

// EmitPassive inserts a fully-instantiated chart item into the
// deduplicating set keyed by (label, edgeSet, boundary) (§4.3 "emit
// passive item"). On first insertion for a key the new node is its own
// singleton cycle and becomes canonical. On a repeat key the new node is
// spliced into the existing OR-node's cycle and the (unchanged)
// canonical node is returned. label should be rule.Label for a completed
// rule application, or the intermediate combination's own running label
// (hypergraph.NoLabel for a partial, not-yet-labelled accumulator, e.g.
// a terminal-edge combination still awaiting its rule's non-terminal
// edges).
func (p *Pool) EmitPassive(label hypergraph.Label, rule *grammar.Rule, cfgRuleIdx int, edgeSet hypergraph.EdgeSet,
	boundary hypergraph.NodeMapping, left, right *Node) (*Node, error) {
	n, err := p.alloc()
	if err != nil {
		return nil, err
	}
	n.Rule = rule
	n.CFGRuleIndex = cfgRuleIdx
	n.EdgeSet = edgeSet
	n.Boundary = boundary
	n.Left = left
	n.Right = right

	key := p.hashKey(label, edgeSet, boundary)
	canon, exists := p.dedup[key]
	if !exists {
		n.Next = n
		p.dedup[key] = n
		return n, nil
	}
	n.Next = canon.Next
	canon.Next = n
	return canon, nil
}

// Lookup returns the canonical node for (label, edgeSet, boundary), if
// one has already been emitted.
func (p *Pool) Lookup(label hypergraph.Label, edgeSet hypergraph.EdgeSet, boundary hypergraph.NodeMapping) (*Node, bool) {
	n, ok := p.dedup[p.hashKey(label, edgeSet, boundary)]
	return n, ok
}

// All returns every canonical (OR-node-representative) node in the pool,
// in no particular order. Used by forest-wide passes (closure, metrics)
// that must visit every OR-node exactly once.
func (p *Pool) All() []*Node {
	out := make([]*Node, 0, len(p.dedup))
	for _, n := range p.dedup {
		out = append(out, n)
	}
	return out
}

// Reset releases every node back to the pool, clearing the dedup index.
// Call between independent parses sharing one Pool (not required — a
// fresh Pool per parse is equally valid and is what chart.Parser uses by
// default).
func (p *Pool) Reset() {
	p.nodes = p.nodes[:0]
	p.dedup = make(map[string]*Node)
	p.freeIDs.Clear()
}

// BeginPass returns a fresh pass token for Node.markVisited-based
// scratch-status bookkeeping; every traversal (inside, outside, extract,
// ...) calls this once at its own start instead of running an explicit
// reset sweep over every node (§3.2).
func (p *Pool) BeginPass() int {
	p.visitPass++
	return p.visitPass
}
