package corpusio

import (
	"bufio"
	"fmt"
	"io"

	"github.com/npillmayer/shrg/forest"
)

// WriteDerivations writes one §6.4 derivation record per graph:
//
//	Graph_ID: <sentence_id>
//	Rule_Indices: <i1> <i2> ...
//	Edge_Sets: <bitstring_1> <bitstring_2> ...
//
// sentenceID identifies the graph the derivation d was extracted from;
// d.RuleIndicesAndEdgeSets supplies the pre-order rule-index and
// 256-character edge-set bitstring sequences verbatim. A nil d (the
// graph failed to parse, §7) writes the header with empty Rule_Indices
// and Edge_Sets lines, so per-graph output stays aligned with the input
// corpus even when a graph contributes nothing.
func WriteDerivations(w io.Writer, sentenceID string, d *forest.Derivation) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "Graph_ID: %s\n", sentenceID); err != nil {
		return err
	}
	var ruleIndices []int
	var edgeSets []string
	if d != nil {
		ruleIndices, edgeSets = d.RuleIndicesAndEdgeSets()
	}
	if _, err := bw.WriteString("Rule_Indices:"); err != nil {
		return err
	}
	for _, idx := range ruleIndices {
		if _, err := fmt.Fprintf(bw, " %d", idx); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}
	if _, err := bw.WriteString("Edge_Sets:"); err != nil {
		return err
	}
	for _, es := range edgeSets {
		if _, err := fmt.Fprintf(bw, " %s", es); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteDerivationsAll writes a §6.4 record for every (sentenceID,
// derivation) pair in order, as a single multi-graph derivation file.
func WriteDerivationsAll(w io.Writer, sentenceIDs []string, derivations []*forest.Derivation) error {
	for i, id := range sentenceIDs {
		var d *forest.Derivation
		if i < len(derivations) {
			d = derivations[i]
		}
		if err := WriteDerivations(w, id, d); err != nil {
			return err
		}
	}
	return nil
}
