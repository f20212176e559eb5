/*
Package chart implements the linear SHRG chart parser: given a compiled
grammar.Index and an input hypergraph.Graph, it drives terminal-edge
matching and a FIFO agenda of active/passive chart items to a packed
forest.Pool of derivations.

Grounded on original_source/src/graph_parser/parser_linear.cpp,
parser_linear.hpp and parser_linear_base.cpp: Initialize (terminal-edge
DFS matching, CheckTerminalItems), the Agenda/FIFO updated_agendas drain
loop (UpdateAgenda/MergeItems), and EmitSubGraph's multiple-required-mask
indexing of a freshly completed passive item. parser_base.hpp/.cpp (the
shared MergeTwoChartItems/CheckAndChangeMappingFinally helpers the linear
parser calls into) were not present in the retrieved reference pack; the
merge step and final-mapping validity check here are instead derived
from the merge operation's defining prose and from the terminal-match
validity check parser_linear_base.cpp does show in full.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package chart

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'shrg.chart'.
func tracer() tracing.Trace {
	return tracing.Select("shrg.chart")
}
