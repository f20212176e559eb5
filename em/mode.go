package em

// Kind names one of the five EM variants spec §6.5 enumerates. The zero
// value is KindSoft, so a zero Mode runs ordinary soft EM.
type Kind int

const (
	KindSoft Kind = iota
	KindViterbi
	KindBatch
	KindOnline
	KindVariational
)

// String names k for log lines and progress-bar labels.
func (k Kind) String() string {
	switch k {
	case KindSoft:
		return "soft"
	case KindViterbi:
		return "viterbi"
	case KindBatch:
		return "batch"
	case KindOnline:
		return "online"
	case KindVariational:
		return "variational"
	default:
		return "unknown"
	}
}

// Mode selects an EM variant and carries the one parameter each
// parameterised variant needs: BatchSize for Batch(k), Eta for
// Online(eta), Alpha for Variational(alpha). Unused fields are zero for
// the other variants.
type Mode struct {
	Kind      Kind
	BatchSize int
	Eta       float64
	Alpha     float64
}

// Soft is ordinary batch soft EM: every graph's E-step runs before a
// single M-step re-estimates every rule weight (§4.5's soft-count
// formula, no further variant).
func Soft() Mode { return Mode{Kind: KindSoft} }

// Viterbi restricts every OR-node to its single best-scoring alternative
// during the E-step (the "best-parse relationship" sub-forest, §4.5) and
// applies add-one smoothing at the M-step.
func Viterbi() Mode { return Mode{Kind: KindViterbi} }

// Batch runs an M-step after every k graphs within one pass over the
// corpus, rather than waiting for the whole corpus (§4.5 "Batch EM runs
// M after every k graphs"). k must be >= 1.
func Batch(k int) Mode {
	if k < 1 {
		k = 1
	}
	return Mode{Kind: KindBatch, BatchSize: k}
}

// Online re-estimates weights after every single graph via a weighted
// average of the fresh per-graph estimate and the running weight (§4.5:
// log w_new = ⊕(log η + log w_fresh, log(1-η) + log w_old)).
func Online(eta float64) Mode { return Mode{Kind: KindOnline, Eta: eta} }

// Variational runs the collapsed-variational Dirichlet EM variant: the
// E-step substitutes ψ(γ_r) − ψ(Σ γ_r') for log w(r) (digamma of the
// rule's and its LHS-group's pseudo-counts), and the M-step updates
// γ_r ← alpha + Σ soft counts, clipped and renormalised per LHS (§4.5).
func Variational(alpha float64) Mode { return Mode{Kind: KindVariational, Alpha: alpha} }
