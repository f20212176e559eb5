package chart

import "errors"

// ErrOutOfMemory is returned by Parse once its forest.Pool exceeds the
// configured pool size; the parser drains its agenda queue and returns
// immediately rather than continuing to allocate (§4.3, §7).
var ErrOutOfMemory = errors.New("chart: pool exhausted")

// ErrTooLarge is returned by Parse before parsing even starts, if the
// input graph has more terminal edges than hypergraph.MaxEdges (§4.3,
// §7): a chart item's EdgeSet cannot represent the full input span.
var ErrTooLarge = errors.New("chart: input graph exceeds the maximum edge count")

// ErrNoResult is returned by Parse when the agenda drains without ever
// producing a passive item whose edge set equals the full input graph
// and whose rule's external-node arity matches the requested root arity
// (§4.3, §7).
var ErrNoResult = errors.New("chart: no derivation spans the whole input graph")
