package em

import "errors"

// ErrDegenerateCount is returned by Run when an M-step produces a rule
// weight that is NaN or +Inf (§4.5 "Failure semantics", §7). Expected
// counts themselves sanitise silently to zero (−∞ in log-space) per
// graph; only a degenerate *weight* aborts the run, since the M-step's
// smoothing contract is otherwise deterministic and total.
var ErrDegenerateCount = errors.New("em: M-step produced a degenerate (NaN or +Inf) rule weight")
