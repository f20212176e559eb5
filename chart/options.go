package chart

// Options configures one Parse call. The zero value is never used
// directly; Parse starts from defaultOptions and applies every Option in
// order.
type Options struct {
	poolSize int
	rootArity int
}

// Option mutates Options; functional-options style, matching the rest of
// the module's configuration surface (em.Config).
type Option func(*Options)

// WithPoolSize caps the number of live forest.Node allocations a single
// parse may make before failing with ErrOutOfMemory. 0 (the default)
// means unbounded.
func WithPoolSize(n int) Option {
	return func(o *Options) { o.poolSize = n }
}

// WithRootArity requires the accepted root passive item to have exactly
// this many external nodes (the number of boundary nodes the whole-graph
// derivation must expose, e.g. 1 for a graph with a single top node). -1
// (the default) accepts a root of any arity.
func WithRootArity(n int) Option {
	return func(o *Options) { o.rootArity = n }
}

func defaultOptions() Options {
	return Options{poolSize: 0, rootArity: -1}
}
