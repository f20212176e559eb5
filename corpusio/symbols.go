package corpusio

import "github.com/npillmayer/shrg/hypergraph"

// Symbols interns label text into hypergraph.Label values, shared across
// a grammar file and the graph files parsed alongside it so that the
// same surface token always maps to the same Label — the condition
// grammar.Index's terminal-hash pre-filter (§4.1) relies on to ever
// match a graph edge against a rule's terminal edges at all.
type Symbols struct {
	byName []string
	index  map[string]hypergraph.Label
}

// NewSymbols returns an empty symbol table.
func NewSymbols() *Symbols {
	return &Symbols{index: make(map[string]hypergraph.Label)}
}

// Intern returns the Label for name, assigning it the next dense integer
// the first time name is seen.
func (s *Symbols) Intern(name string) hypergraph.Label {
	if l, ok := s.index[name]; ok {
		return l
	}
	l := hypergraph.Label(len(s.byName))
	s.byName = append(s.byName, name)
	s.index[name] = l
	return l
}

// Name returns the text a previously interned Label was assigned. Panics
// if l was never returned by Intern on this table, a programmer error.
func (s *Symbols) Name(l hypergraph.Label) string {
	return s.byName[int(l)]
}

// Len returns the number of distinct symbols interned so far.
func (s *Symbols) Len() int {
	return len(s.byName)
}
