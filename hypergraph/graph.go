package hypergraph

// GraphNode carries the lexical attributes an EDS node contributes to the
// downstream realiser: predicate label, part of speech, lemma, word
// sense, constant-argument string (CARG), and a handful of scratch
// properties used by corpusio's post-loading normalisation pass. None of
// these participate in chart-item equality or in parsing itself — the
// parser only ever consults a node's index and its virtual terminal
// edge's Label.
type GraphNode struct {
	Label      Label
	PosTag     string
	Lemma      string
	Sense      string
	CArg       string
	Properties [5]string
	IsLexical  bool
}

// Graph is a fully loaded EDS semantic graph: the hypergraph incidence
// structure plus per-node lexical attributes and per-sentence metadata.
// Grounded on EdsGraph (original_source/src/graph_parser/edsgraph.hpp):
// HyperGraph<GraphNode> plus sentence/lemma_sequence/sentence_id/
// top_index.
type Graph struct {
	*Hypergraph

	Attrs          []GraphNode // parallel to Hypergraph.Nodes
	Sentence       string
	LemmaSequence  string
	SentenceID     string
	TopIndex       int
}

// NewGraph returns an empty graph with nodeHint/edgeHint pre-allocated
// capacity. Edge capacity should account for the virtual terminal edge
// every node receives in addition to its explicit semantic edges.
func NewGraph(nodeHint, edgeHint int) *Graph {
	return &Graph{
		Hypergraph: NewHypergraph(nodeHint, edgeHint),
		Attrs:      make([]GraphNode, 0, nodeHint),
		TopIndex:   -1,
	}
}

// AddLexicalNode appends a node with lexical attributes attrs and returns
// its index. The node starts with no edges; call AugmentVirtualTerminal
// once all explicit edges are loaded to add its uniform-matching terminal
// edge.
func (g *Graph) AddLexicalNode(attrs GraphNode, typ NodeType) int {
	idx := g.AddNode(false, typ)
	g.Attrs = append(g.Attrs, attrs)
	return idx
}

// AugmentVirtualTerminal adds, for node nodeIdx, a terminal edge labelled
// with the node's own Label and connecting only that node. This is the
// "virtual terminal edge" the parser relies on for uniform matching
// between SHRG terminal-edge rule fragments and plain EDS predicate
// nodes: after this call every node looks, to the matcher, like a node
// with an explicit terminal edge of its label, whether or not the source
// corpus actually wrote one. Mirrors LoadEdsGraph's per-node edge
// synthesis in the original loader.
func (g *Graph) AugmentVirtualTerminal(nodeIdx int) EdgeHash {
	label := g.Attrs[nodeIdx].Label
	return g.AddEdge(label, true, nodeIdx)
}

// Node returns the lexical attributes of node i.
func (g *Graph) Node(i int) GraphNode {
	return g.Attrs[i]
}

// SetTop marks nodeIdx as the graph's top (root) node.
func (g *Graph) SetTop(nodeIdx int) {
	g.TopIndex = nodeIdx
}
