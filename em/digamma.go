package em

import "math"

// digamma approximates ψ(x), the logarithmic derivative of the gamma
// function, for x > 0. Used only by the variational-EM E-step to turn
// Dirichlet pseudo-counts into the log-weight substitute
// ψ(γ_r) − ψ(Σ γ_r'). No available numerics package exposes a digamma
// function, so this is a standard-library recurrence-plus-asymptotic-
// series approximation (shift x up past 6 via the recurrence
// ψ(x) = ψ(x+1) − 1/x, then apply the asymptotic expansion), accurate to
// better than 1e-10 for x > 6.
func digamma(x float64) float64 {
	if x <= 0 {
		// Not reachable under the M-step's clamp (γ_r >= 1e-10), but
		// guard rather than propagate a domain error into log-space sums.
		return math.Inf(-1)
	}
	result := 0.0
	for x < 6 {
		result -= 1 / x
		x++
	}
	f := 1 / (x * x)
	result += math.Log(x) - 0.5/x -
		f*(1.0/12-f*(1.0/120-f*(1.0/252-f*(1.0/240-f*(1.0/132)))))
	return result
}
