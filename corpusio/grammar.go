package corpusio

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/npillmayer/shrg/grammar"
	"github.com/npillmayer/shrg/hypergraph"
)

// ReadGrammar loads a sequence of grammar.Rule from the §6.1 text format:
// a rule_count, then per rule an optional fragment followed by its
// synchronous CFGRules. syms interns every label token encountered, and
// should be the same table used to load whatever graph files are parsed
// against this grammar, so a rule's terminal-edge labels compare equal to
// the graph's virtual-terminal-edge labels.
//
// Node types (Fixed/SemiFixed/Free) are never serialised directly — §3.1
// defines them purely in terms of which kind of edge (terminal or
// non-terminal) a node is incident to, so ReadGrammar derives each node's
// type once its fragment's edges are all loaded, rather than trusting a
// redundant field.
func ReadGrammar(data string, syms *Symbols) ([]*grammar.Rule, error) {
	sc := newLineScanner(strings.NewReader(data))
	ruleCount, err := sc.int()
	if err != nil {
		return nil, fmt.Errorf("corpusio: reading rule_count: %w", err)
	}
	rules := make([]*grammar.Rule, 0, ruleCount)
	for ri := 0; ri < ruleCount; ri++ {
		r, err := readOneRule(sc, syms)
		if err != nil {
			return nil, fmt.Errorf("corpusio: rule %d: %w", ri, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func readOneRule(sc *lineScanner, syms *Symbols) (*grammar.Rule, error) {
	hasFragment, err := sc.int()
	if err != nil {
		return nil, fmt.Errorf("has_fragment: %w", err)
	}
	rule := &grammar.Rule{Label: hypergraph.NoLabel}
	if hasFragment != 0 {
		frag, external, err := readFragment(sc, syms)
		if err != nil {
			return nil, err
		}
		rule.Fragment = frag
		rule.ExternalNodes = external
	}
	numCFG, err := sc.int()
	if err != nil {
		return nil, fmt.Errorf("num_cfg_rules: %w", err)
	}
	rule.CFGRules = make([]grammar.CFGRule, 0, numCFG)
	for i := 0; i < numCFG; i++ {
		cr, label, err := readCFGRule(sc, syms)
		if err != nil {
			return nil, fmt.Errorf("cfg_rule %d: %w", i, err)
		}
		if rule.Label == hypergraph.NoLabel {
			rule.Label = label
		}
		rule.CFGRules = append(rule.CFGRules, cr)
	}
	return rule, nil
}

func readFragment(sc *lineScanner, syms *Symbols) (*hypergraph.Hypergraph, []int, error) {
	sizes, err := sc.fields()
	if err != nil {
		return nil, nil, fmt.Errorf("num_nodes/num_edges: %w", err)
	}
	if err := requireFieldCount(2, sizes, "num_nodes/num_edges", sc.n); err != nil {
		return nil, nil, err
	}
	numNodes, err := atoiField(sizes[0], "num_nodes", sc.n)
	if err != nil {
		return nil, nil, err
	}
	numEdges, err := atoiField(sizes[1], "num_edges", sc.n)
	if err != nil {
		return nil, nil, err
	}

	frag := hypergraph.NewHypergraph(numNodes, numEdges)
	for i := 0; i < numNodes; i++ {
		frag.AddNode(false, hypergraph.Fixed) // type fixed up below, once edges are known
	}
	for i := 0; i < numEdges; i++ {
		fields, err := sc.fields()
		if err != nil {
			return nil, nil, fmt.Errorf("edge %d: %w", i, err)
		}
		if len(fields) < 3 {
			return nil, nil, fmt.Errorf("corpusio: line %d: edge %d: too few fields", sc.n, i)
		}
		label := syms.Intern(fields[0])
		arity, err := atoiField(fields[1], "edge arity", sc.n)
		if err != nil {
			return nil, nil, err
		}
		if err := requireFieldCount(3+arity, fields, fmt.Sprintf("edge %d", i), sc.n); err != nil {
			return nil, nil, err
		}
		nodeIdxs := make([]int, arity)
		for k := 0; k < arity; k++ {
			n, err := atoiField(fields[2+k], "edge node index", sc.n)
			if err != nil {
				return nil, nil, err
			}
			nodeIdxs[k] = n
		}
		isTerminal, err := parseYN(fields[2+arity], sc.n)
		if err != nil {
			return nil, nil, err
		}
		frag.AddEdge(label, isTerminal, nodeIdxs...)
	}

	extFields, err := sc.fields()
	if err != nil {
		return nil, nil, fmt.Errorf("external nodes: %w", err)
	}
	if len(extFields) < 1 {
		return nil, nil, fmt.Errorf("corpusio: line %d: missing num_external", sc.n)
	}
	numExternal, err := atoiField(extFields[0], "num_external", sc.n)
	if err != nil {
		return nil, nil, err
	}
	if err := requireFieldCount(1+numExternal, extFields, "external nodes", sc.n); err != nil {
		return nil, nil, err
	}
	external := make([]int, numExternal)
	for i := 0; i < numExternal; i++ {
		n, err := atoiField(extFields[1+i], "external node index", sc.n)
		if err != nil {
			return nil, nil, err
		}
		external[i] = n
		frag.Nodes[n].IsExternal = true
	}

	classifyNodeTypes(frag)

	if err := frag.Validate(); err != nil {
		return nil, nil, fmt.Errorf("corpusio: malformed fragment: %w", err)
	}
	return frag, external, nil
}

// classifyNodeTypes derives each node's Type from the edges actually
// incident to it, per §3.1's own definition: a node touched only by
// terminal edges is Fixed, one touched only by non-terminal edges is
// Free, and one touched by both is SemiFixed. An isolated node (no
// incident edges at all) is left Fixed, the harmless default.
func classifyNodeTypes(h *hypergraph.Hypergraph) {
	for i := range h.Nodes {
		n := &h.Nodes[i]
		var sawTerminal, sawNonTerminal bool
		for _, eh := range n.LinkedEdges {
			if h.Edges[eh].IsTerminal {
				sawTerminal = true
			} else {
				sawNonTerminal = true
			}
		}
		switch {
		case sawTerminal && sawNonTerminal:
			n.Type = hypergraph.SemiFixed
		case sawNonTerminal:
			n.Type = hypergraph.Free
		default:
			n.Type = hypergraph.Fixed
		}
	}
}

func parseYN(s string, lineNo int) (bool, error) {
	switch s {
	case "Y", "y":
		return true, nil
	case "N", "n":
		return false, nil
	default:
		return false, fmt.Errorf("corpusio: line %d: expected Y/N, got %q", lineNo, s)
	}
}

func readCFGRule(sc *lineScanner, syms *Symbols) (grammar.CFGRule, hypergraph.Label, error) {
	fields, err := sc.fields()
	if err != nil {
		return grammar.CFGRule{}, hypergraph.NoLabel, fmt.Errorf("header: %w", err)
	}
	if err := requireFieldCount(5, fields, "cfg_rule header", sc.n); err != nil {
		return grammar.CFGRule{}, hypergraph.NoLabel, err
	}
	shrgIndex, err := atoiField(fields[0], "shrg_index", sc.n)
	if err != nil {
		return grammar.CFGRule{}, hypergraph.NoLabel, err
	}
	count, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return grammar.CFGRule{}, hypergraph.NoLabel, fmt.Errorf("corpusio: line %d: malformed count %q", sc.n, fields[1])
	}
	total, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return grammar.CFGRule{}, hypergraph.NoLabel, fmt.Errorf("corpusio: line %d: malformed total %q", sc.n, fields[2])
	}
	labelText := fields[3]
	label := syms.Intern(labelText)
	numItems, err := atoiField(fields[4], "num_items", sc.n)
	if err != nil {
		return grammar.CFGRule{}, hypergraph.NoLabel, err
	}

	score := math.Log(count) - math.Log(total)
	if math.IsInf(score, -1) {
		return grammar.CFGRule{}, hypergraph.NoLabel, fmt.Errorf("corpusio: line %d: cfg_rule %d has score -Inf (count=%v total=%v)", sc.n, shrgIndex, count, total)
	}

	items := make([]grammar.CFGItem, 0, numItems)
	for i := 0; i < numItems; i++ {
		line, err := sc.next()
		if err != nil {
			return grammar.CFGRule{}, hypergraph.NoLabel, fmt.Errorf("item %d: %w", i, err)
		}
		text, alignedEdge, err := parseCFGItemLine(line)
		if err != nil {
			return grammar.CFGRule{}, hypergraph.NoLabel, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, grammar.CFGItem{
			Label:       text,
			IsLiteral:   alignedEdge < 0,
			AlignedEdge: hypergraph.EdgeHash(alignedEdge),
		})
	}

	return grammar.CFGRule{
		Label:     labelText,
		ShrgIndex: shrgIndex,
		Score:     score,
		Items:     items,
	}, label, nil
}

// parseCFGItemLine splits a "<item_label> <aligned_edge_idx | -1>" line
// into its label text and aligned-edge index. item_label is read
// char-by-char rather than by whitespace-splitting the whole line,
// because a quoted label may itself contain embedded spaces; once its
// extent is found, lexItemLabels (backed by the lexmachine DFA in
// lex.go) classifies and unescapes it.
func parseCFGItemLine(line string) (text string, alignedEdge int, err error) {
	trimmed := strings.TrimLeft(line, " \t")
	var rawTok string
	if strings.HasPrefix(trimmed, `"`) {
		i := 1
		for i < len(trimmed) {
			if trimmed[i] == '\\' && i+1 < len(trimmed) {
				i += 2
				continue
			}
			if trimmed[i] == '"' {
				i++
				break
			}
			i++
		}
		if i > len(trimmed) || trimmed[i-1] != '"' {
			return "", 0, fmt.Errorf("unterminated quoted item label in %q", line)
		}
		rawTok = trimmed[:i]
		trimmed = trimmed[i:]
	} else {
		i := strings.IndexAny(trimmed, " \t")
		if i < 0 {
			return "", 0, fmt.Errorf("malformed cfg item line %q", line)
		}
		rawTok = trimmed[:i]
		trimmed = trimmed[i:]
	}
	labels, err := lexItemLabels(rawTok)
	if err != nil {
		return "", 0, fmt.Errorf("malformed item label %q: %w", rawTok, err)
	}
	if len(labels) != 1 {
		return "", 0, fmt.Errorf("expected exactly one item label, got %d in %q", len(labels), rawTok)
	}
	rest := strings.TrimSpace(trimmed)
	idx, err := strconv.Atoi(rest)
	if err != nil {
		return "", 0, fmt.Errorf("malformed aligned-edge field %q", rest)
	}
	return labels[0].text, idx, nil
}
