package hypergraph

// NodeType classifies a hypergraph node by the kinds of edges incident
// to it.
type NodeType int

const (
	// Fixed nodes have only terminal edges incident to them.
	Fixed NodeType = iota
	// SemiFixed nodes have both terminal and non-terminal edges incident.
	SemiFixed
	// Free nodes have only non-terminal edges incident to them.
	Free
)

func (t NodeType) String() string {
	switch t {
	case Fixed:
		return "fixed"
	case SemiFixed:
		return "semi-fixed"
	case Free:
		return "free"
	default:
		return "unknown"
	}
}

// Node is a hypergraph vertex: a graph position that zero or more Edges
// are incident to. IsExternal marks a node as a boundary node of the
// fragment (it survives into the NodeMapping of a chart item spanning
// this fragment); Type records which kinds of edges are incident to it
// (see NodeType).
type Node struct {
	Index       int
	IsExternal  bool
	Type        NodeType
	LinkedEdges []EdgeHash
}

// AddEdge records e as incident to n, if not already recorded.
func (n *Node) AddEdge(e EdgeHash) {
	for _, x := range n.LinkedEdges {
		if x == e {
			return
		}
	}
	n.LinkedEdges = append(n.LinkedEdges, e)
}

// Edge is a labelled hyperedge connecting an ordered sequence of nodes.
// IsTerminal edges are matched directly against input-graph edges:
// either a unary virtual node-label edge (described in corpusio's graph
// loader) or a binary relation edge. Non-terminal edges are SHRG
// rule-fragment edges that another rule rewrites. Validate accepts one
// or two linked nodes, in a fixed argument order, for either kind.
type Edge struct {
	Index       EdgeHash
	Label       Label
	IsTerminal  bool
	LinkedNodes []int
}

// Hash returns the bucket key grammar.Index uses to pre-filter candidate
// fragments sharing this edge's label/arity/terminal-ness signature.
func (e Edge) Hash() LabelHash {
	return MakeLabelHash(e.Label, len(e.LinkedNodes), e.IsTerminal)
}

// IsConnected reports whether every node e references actually lists e
// among its LinkedEdges — a structural sanity check run once after a
// Graph or rule fragment is fully loaded.
func (e Edge) IsConnected(nodes []Node) bool {
	for _, ni := range e.LinkedNodes {
		if ni < 0 || ni >= len(nodes) {
			return false
		}
		found := false
		for _, le := range nodes[ni].LinkedEdges {
			if le == e.Index {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Hypergraph is the common incidence structure shared by rule fragments
// (grammar.Rule.Fragment) and full EDS input graphs (Graph): a set of Nodes and
// a set of Edges connecting them, built once and read thereafter.
type Hypergraph struct {
	Nodes []Node
	Edges []Edge
}

// NewHypergraph returns an empty hypergraph with nodeHint/edgeHint
// pre-allocated capacity.
func NewHypergraph(nodeHint, edgeHint int) *Hypergraph {
	return &Hypergraph{
		Nodes: make([]Node, 0, nodeHint),
		Edges: make([]Edge, 0, edgeHint),
	}
}

// AddNode appends a new node and returns its index.
func (h *Hypergraph) AddNode(isExternal bool, typ NodeType) int {
	idx := len(h.Nodes)
	h.Nodes = append(h.Nodes, Node{Index: idx, IsExternal: isExternal, Type: typ})
	return idx
}

// AddEdge appends a new edge connecting nodeIdxs, in order, and records
// the back-reference on every connected node.
func (h *Hypergraph) AddEdge(label Label, isTerminal bool, nodeIdxs ...int) EdgeHash {
	idx := EdgeHash(len(h.Edges))
	linked := append([]int(nil), nodeIdxs...)
	h.Edges = append(h.Edges, Edge{
		Index:       idx,
		Label:       label,
		IsTerminal:  isTerminal,
		LinkedNodes: linked,
	})
	for _, ni := range nodeIdxs {
		h.Nodes[ni].AddEdge(idx)
	}
	return idx
}

// Validate runs the structural checks every loaded hypergraph must pass:
// every edge's linked nodes are in range and back-reference it, and every
// edge connects at most two nodes (§3.1 "linked_nodes (≤2, order
// significant)") — a terminal edge may be either a unary virtual
// node-label edge or a binary relation edge matched directly against the
// input graph; only non-terminal edges ever stand for a further,
// recursive rewrite.
func (h *Hypergraph) Validate() error {
	for _, e := range h.Edges {
		if !e.IsConnected(h.Nodes) {
			return &MalformedError{Reason: "edge references node outside graph or missing back-link", Edge: e.Index}
		}
		if len(e.LinkedNodes) == 0 || len(e.LinkedNodes) > 2 {
			return &MalformedError{Reason: "edge must connect one or two nodes", Edge: e.Index}
		}
	}
	return nil
}

// MalformedError reports a structural violation detected while loading or
// compiling a hypergraph.
type MalformedError struct {
	Reason string
	Edge   EdgeHash
}

func (e *MalformedError) Error() string {
	return "hypergraph: malformed (" + e.Reason + ")"
}
