/*
Package hypergraph implements the labelled-hyperedge data model shared by
SHRG rule fragments and by EDS input graphs: nodes, edges, incidence, and
the fixed-width bitset/byte-vector types used as chart-item dedup keys
(EdgeSet, NodeMapping).

Grounded on hyper_graph.hpp/edsgraph.hpp (original_source/src/
graph_parser), re-expressed as a generic Go type the way gorgo's lr
package represents grammar Symbols: small value types with interned
integer labels, built once at load time and treated as read-only
thereafter.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package hypergraph

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'shrg.hypergraph'.
func tracer() tracing.Trace {
	return tracing.Select("shrg.hypergraph")
}
