package corpusio

import (
	"fmt"
	"strings"

	"github.com/npillmayer/shrg/hypergraph"
)

// ReadGraphs loads a sequence of hypergraph.Graph from the §6.2 text
// format: a graph_count, then per graph its sentence metadata, lexical
// nodes, and semantic edges. Node and edge labels are interned through
// syms — the same table a ReadGrammar call against the accompanying
// grammar file should use, so a relation edge's label compares equal to
// whatever terminal-edge label the grammar expects it to match.
//
// Every relation edge in the source format connects exactly two nodes
// (from, to) and is loaded as a terminal edge: §3.1 treats a terminal
// edge as anything matched directly against the input rather than
// rewritten further, and a binary EDS relation (ARG1/ARG2-style) is
// exactly that — never the left-hand side of a further rewrite. After
// all explicit edges are loaded, every node additionally receives a
// virtual terminal edge of its own label (AugmentVirtualTerminal), so
// a SHRG rule fragment whose terminal edges only name node labels
// matches uniformly whether or not the corpus wrote an explicit edge
// for that predicate.
func ReadGraphs(data string, syms *Symbols) ([]*hypergraph.Graph, error) {
	sc := newLineScanner(strings.NewReader(data))
	graphCount, err := sc.int()
	if err != nil {
		return nil, fmt.Errorf("corpusio: reading graph_count: %w", err)
	}
	graphs := make([]*hypergraph.Graph, 0, graphCount)
	for gi := 0; gi < graphCount; gi++ {
		g, err := readOneGraph(sc, syms)
		if err != nil {
			return nil, fmt.Errorf("corpusio: graph %d: %w", gi, err)
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}

func readOneGraph(sc *lineScanner, syms *Symbols) (*hypergraph.Graph, error) {
	sentenceID, err := sc.next()
	if err != nil {
		return nil, fmt.Errorf("sentence_id: %w", err)
	}
	sentence, err := sc.next()
	if err != nil {
		return nil, fmt.Errorf("sentence: %w", err)
	}
	lemmaSeq, err := sc.next()
	if err != nil {
		return nil, fmt.Errorf("lemma_sequence: %w", err)
	}
	numNodes, err := sc.int()
	if err != nil {
		return nil, fmt.Errorf("num_nodes: %w", err)
	}

	g := hypergraph.NewGraph(numNodes, numNodes*2)
	g.SentenceID = sentenceID
	g.Sentence = sentence
	g.LemmaSequence = lemmaSeq

	for i := 0; i < numNodes; i++ {
		fields, err := sc.fields()
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		if len(fields) < 7 {
			return nil, fmt.Errorf("corpusio: line %d: node %d: too few fields", sc.n, i)
		}
		idx, err := atoiField(fields[0], "node idx", sc.n)
		if err != nil {
			return nil, err
		}
		if idx != i {
			return nil, fmt.Errorf("corpusio: line %d: node %d: idx field %d out of order", sc.n, i, idx)
		}
		// fields[1] is the corpus-internal node id, kept implicit — this
		// loader addresses nodes by their dense position (idx) only.
		attrs := hypergraph.GraphNode{
			Label:     syms.Intern(fields[2]),
			Lemma:     fields[3],
			PosTag:    fields[4],
			Sense:     fields[5],
			CArg:      fields[6],
			IsLexical: true,
		}
		for k, p := range fields[7:] {
			if k >= len(attrs.Properties) {
				break
			}
			attrs.Properties[k] = p
		}
		ni := g.AddLexicalNode(attrs, hypergraph.Fixed) // firmed up by classifyNodeTypes once edges are loaded
		if ni != i {
			return nil, fmt.Errorf("corpusio: internal error: node index mismatch (%d != %d)", ni, i)
		}
	}

	topAndEdges, err := sc.fields()
	if err != nil {
		return nil, fmt.Errorf("top_node_idx/num_edges: %w", err)
	}
	if err := requireFieldCount(2, topAndEdges, "top_node_idx/num_edges", sc.n); err != nil {
		return nil, err
	}
	topIdx, err := atoiField(topAndEdges[0], "top_node_idx", sc.n)
	if err != nil {
		return nil, err
	}
	numEdges, err := atoiField(topAndEdges[1], "num_edges", sc.n)
	if err != nil {
		return nil, err
	}
	g.SetTop(topIdx)

	for i := 0; i < numEdges; i++ {
		fields, err := sc.fields()
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		if err := requireFieldCount(3, fields, fmt.Sprintf("edge %d", i), sc.n); err != nil {
			return nil, err
		}
		from, err := atoiField(fields[0], "edge from", sc.n)
		if err != nil {
			return nil, err
		}
		to, err := atoiField(fields[1], "edge to", sc.n)
		if err != nil {
			return nil, err
		}
		label := syms.Intern(fields[2])
		g.AddEdge(label, true, from, to)
	}

	for i := 0; i < numNodes; i++ {
		g.AugmentVirtualTerminal(i)
	}
	classifyNodeTypes(g.Hypergraph)

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("corpusio: malformed graph: %w", err)
	}
	return g, nil
}
