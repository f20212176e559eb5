/*
Package grammar represents a loaded SHRG rule set and its pre-index: the
per-rule terminal/non-terminal edge orderings, boundary-node bitmasks,
and compatibility filters the chart parser consults on every merge.

The pre-index is built once per grammar (Compile) and treated as
read-only afterwards, so multiple concurrent parser contexts can consult
it without synchronization.

Grounded on lr/tables.go's table-construction style (building a CFSM
once from a CFG and reusing it across parses) and on
original_source/src/graph_parser/cfg_rule.hpp / cfg_grammar.hpp for the
exact rule/CFG-item shape.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package grammar

import "github.com/npillmayer/schuko/tracing"

func tracer() tracing.Trace {
	return tracing.Select("shrg.grammar")
}
