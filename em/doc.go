/*
Package em implements the Expectation-Maximisation engine that
re-estimates a SHRG grammar's rule weights from an unannotated treebank
over the packed forest built by package chart/forest: soft EM, Viterbi
EM, batch/online EM, and a collapsed-variational Dirichlet variant, all
dispatched from one Run entry point parameterised by a Mode value
(§4.5, §6.5, §9 "Open Question decisions").

Grounded on original_source/src/em_framework/em.cpp (the soft-EM
driver's E-step/M-step/convergence loop and per-graph timeout guard),
em_viterbi.cpp (the best-parse-only E-step), variational_inference.cpp
(the digamma-weighted E-step and Dirichlet M-step), and em_debug.cpp
(weight-history checkpointing) — none of which survive as separate
translation units here: Run shares one E-step driver across every mode,
varying only the per-graph scoring function and the M-step, in the
teacher's (gorgo) own functional-options configuration idiom rather than
the original's near-duplicated per-variant files.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package em

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'shrg.em'.
func tracer() tracing.Trace {
	return tracing.Select("shrg.em")
}
