/*
Package forest implements the packed derivation forest shared by the
chart parser and the EM trainer: AND-nodes (chart items) grouped into
OR-node cycles, the arena Pool they are allocated from, forest-closure
materialisation of parent/sibling links, the log-space inside–outside
engine, ambiguity metrics, and derivation extraction/alignment.

Grounded on original_source/src/graph_parser/parser_chart_item.hpp (the
AND-node field layout and next_ptr cycle), em_base.cpp (inside/outside
recursions), and on lr/sppf's general shape of a shared packed forest
with deduplicated alternatives — here folded into a single node type,
since a SHRG chart item already plays both the "symbol" and
"alternative" role sppf.SymbolNode/rhsNode split apart.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package forest

import "github.com/npillmayer/schuko/tracing"

func tracer() tracing.Trace {
	return tracing.Select("shrg.forest")
}
