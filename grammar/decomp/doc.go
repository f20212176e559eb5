/*
Package decomp builds, for the tree-v1/v2 and tree-index-v1/v2 parsers, a
binary combination tree over a rule fragment's edges: leaves are single
fragment edges, internal nodes denote a binary merge of their children's
edge sets, and each node caches the boundary-node mask of the subgraph it
represents (computed once per rule and reused for every input graph, per
§4.2).

Grounded on original_source/src/graph_parser/parser_tree_base.hpp, which
walks an equivalent binary tree structure (left_/right_ sub-trees,
boundary bitmask cached per node) built once at grammar-load time.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package decomp

import "github.com/npillmayer/schuko/tracing"

func tracer() tracing.Trace {
	return tracing.Select("shrg.grammar.decomp")
}
